package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"epicgpt/internal/config"
	"epicgpt/internal/models"
)

// completionStub serves scripted chat completion responses in order and
// captures each decoded request body.
type completionStub struct {
	t         *testing.T
	responses []string
	requests  []map[string]any
}

func (s *completionStub) handler(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.t.Errorf("failed to decode request body: %v", err)
	}
	s.requests = append(s.requests, body)

	if len(s.responses) == 0 {
		http.Error(w, `{"error":{"message":"no scripted response"}}`, http.StatusInternalServerError)
		return
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, resp)
}

func textResponse(content string) string {
	return fmt.Sprintf(`{
		"choices": [{"message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120,
		          "prompt_tokens_details": {"cached_tokens": 50}}
	}`, content)
}

func toolCallResponse(callID, name, args string) string {
	return fmt.Sprintf(`{
		"choices": [{"message": {"role": "assistant", "content": "",
			"tool_calls": [{"id": %q, "type": "function",
				"function": {"name": %q, "arguments": %q}}]},
			"finish_reason": "tool_calls"}],
		"usage": {"prompt_tokens": 100, "completion_tokens": 10, "total_tokens": 110}
	}`, callID, name, args)
}

// requestMessages extracts the messages array of a captured request as
// []map[string]any.
func requestMessages(t *testing.T, req map[string]any) []map[string]any {
	t.Helper()
	raw, ok := req["messages"].([]any)
	if !ok {
		t.Fatalf("request has no messages array: %v", req)
	}
	msgs := make([]map[string]any, 0, len(raw))
	for _, m := range raw {
		msgs = append(msgs, m.(map[string]any))
	}
	return msgs
}

type fakeSessions struct {
	messages map[string][]models.SessionMessage
	saved    map[string][]models.SessionMessage
	getErr   error
	saveErr  error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		messages: make(map[string][]models.SessionMessage),
		saved:    make(map[string][]models.SessionMessage),
	}
}

func sessionKey(guildID, userID, channelID string) string {
	return guildID + "/" + userID + "/" + channelID
}

func (f *fakeSessions) Get(_ context.Context, guildID, userID, channelID string) (*models.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	msgs, ok := f.messages[sessionKey(guildID, userID, channelID)]
	if !ok {
		return nil, nil
	}
	return &models.Session{GuildID: guildID, UserID: userID, ChannelID: channelID, Messages: msgs}, nil
}

// Save truncates like the real store does, so tests observe the persisted
// window rather than the raw message list.
func (f *fakeSessions) Save(_ context.Context, guildID, userID, channelID string, messages []models.SessionMessage) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved[sessionKey(guildID, userID, channelID)] = models.TrimToWindow(messages, config.SessionMaxMessages)
	return nil
}

type fakeGuilds struct {
	vectorStoreID string
	err           error
}

func (f *fakeGuilds) GetOrCreate(_ context.Context, guildID string) (*models.GuildConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.GuildConfig{GuildID: guildID, VectorStoreID: f.vectorStoreID}, nil
}

type fakeKB struct {
	content string
	err     error
	queries []string
}

func (f *fakeKB) Search(_ context.Context, _, query, _ string) (*KBSearchResult, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return &KBSearchResult{Content: f.content}, nil
}

type fakeWeb struct {
	results []WebResult
	err     error
}

func (f *fakeWeb) Search(_ context.Context, _ string) ([]WebResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type executedCall struct {
	name string
	args map[string]any
}

type fakeTools struct {
	outcome  ToolOutcome
	executed []executedCall
}

func (f *fakeTools) Schemas() []map[string]any {
	return []map[string]any{
		{
			"type": "function",
			"function": map[string]any{
				"name":        "get_solana_balance",
				"description": "Get SOL balance for a wallet address",
				"parameters": map[string]any{
					"type":       "object",
					"properties": map[string]any{"address": map[string]any{"type": "string"}},
					"required":   []string{"address"},
				},
			},
		},
	}
}

func (f *fakeTools) Execute(_ context.Context, name string, args map[string]any) ToolOutcome {
	f.executed = append(f.executed, executedCall{name: name, args: args})
	return f.outcome
}

type orchestratorFixture struct {
	stub     *completionStub
	sessions *fakeSessions
	guilds   *fakeGuilds
	kb       *fakeKB
	web      *fakeWeb
	tools    *fakeTools
	orch     *Orchestrator
	server   *httptest.Server
}

func newFixture(t *testing.T, model string, responses ...string) *orchestratorFixture {
	t.Helper()
	f := &orchestratorFixture{
		stub:     &completionStub{t: t, responses: responses},
		sessions: newFakeSessions(),
		guilds:   &fakeGuilds{},
		kb:       &fakeKB{},
		web:      &fakeWeb{},
		tools:    &fakeTools{outcome: ToolOutcome{Success: true, Result: map[string]any{"ok": true}}},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.stub.handler))
	t.Cleanup(f.server.Close)

	client := NewClient(f.server.URL, "test-key", model, 2048, 0.7)
	f.orch = NewOrchestrator(client, f.sessions, f.guilds, f.kb, f.web, f.tools)
	return f
}

func defaultOpts() RunOptions {
	return RunOptions{GuildID: "g1", UserID: "u1", ChannelID: "c1", Prompt: "hello"}
}

func TestRunToolCallScenario(t *testing.T) {
	f := newFixture(t, "gpt-4o",
		toolCallResponse("call_1", "get_solana_balance", `{"address":"So11111111111111111111111111111111111111112"}`),
		textResponse("The balance is 12.5 SOL."),
	)
	f.tools.outcome = ToolOutcome{Success: true, Result: map[string]any{"balance": 12.5}}

	opts := defaultOpts()
	opts.Prompt = "What is the SOL balance of address X?"
	result := f.orch.Run(context.Background(), opts)

	if !result.Success {
		t.Fatalf("run failed: %s", result.Error)
	}
	if result.Response != "The balance is 12.5 SOL." {
		t.Errorf("response = %q", result.Response)
	}
	if len(f.stub.requests) != 2 {
		t.Errorf("completion calls = %d, want 2", len(f.stub.requests))
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].Name != "get_solana_balance" {
		t.Errorf("tool call records = %v", result.ToolCalls)
	}
	if len(f.tools.executed) != 1 {
		t.Fatalf("tools executed = %d, want 1", len(f.tools.executed))
	}
	if got := f.tools.executed[0].args["address"]; got != "So11111111111111111111111111111111111111112" {
		t.Errorf("tool args = %v", f.tools.executed[0].args)
	}

	// Second request must include the assistant tool-call turn and a tool
	// result message referencing the call ID.
	msgs := requestMessages(t, f.stub.requests[1])
	last := msgs[len(msgs)-1]
	if last["role"] != "tool" || last["tool_call_id"] != "call_1" {
		t.Errorf("last message of second request = %v", last)
	}

	// Usage accumulated across both calls.
	if result.TokenUsage.TotalTokens != 230 {
		t.Errorf("total tokens = %d, want 230", result.TokenUsage.TotalTokens)
	}
}

func TestRunNoVectorStore(t *testing.T) {
	f := newFixture(t, "gpt-4o", textResponse("hi"))
	f.guilds.vectorStoreID = ""
	f.kb.content = "should never be used"

	result := f.orch.Run(context.Background(), defaultOpts())

	if !result.Success {
		t.Fatalf("run failed: %s", result.Error)
	}
	if result.UsedFileSearch {
		t.Error("UsedFileSearch should be false without a vector store")
	}
	if len(f.kb.queries) != 0 {
		t.Errorf("retriever should not be queried, got %v", f.kb.queries)
	}

	msgs := requestMessages(t, f.stub.requests[0])
	user := msgs[len(msgs)-1]
	if user["role"] != "user" || user["content"] != "hello" {
		t.Errorf("user message = %v, want the raw prompt", user)
	}
}

func TestRunKnowledgeBaseWrapping(t *testing.T) {
	f := newFixture(t, "gpt-4o", textResponse("answer"))
	f.guilds.vectorStoreID = "vs_123"
	f.kb.content = "Article 4 covers voting."

	result := f.orch.Run(context.Background(), defaultOpts())

	if !result.UsedFileSearch {
		t.Error("UsedFileSearch should be true on a KB hit")
	}

	msgs := requestMessages(t, f.stub.requests[0])
	user := msgs[len(msgs)-1]
	want := "[Knowledge Base Context]\nArticle 4 covers voting.\n\n---\n\nUser question: hello"
	if user["content"] != want {
		t.Errorf("user message = %q, want %q", user["content"], want)
	}
}

func TestRunWebSearchEmptyResults(t *testing.T) {
	f := newFixture(t, "gpt-4o", textResponse("answer"))
	f.web.results = nil

	opts := defaultOpts()
	opts.WebSearchEnabled = true
	result := f.orch.Run(context.Background(), opts)

	if result.UsedWebSearch {
		t.Error("UsedWebSearch should be false when search returns nothing")
	}
	msgs := requestMessages(t, f.stub.requests[0])
	user := msgs[len(msgs)-1]
	if user["content"] != "hello" {
		t.Errorf("user message = %q, want raw prompt without search block", user["content"])
	}
}

func TestRunWebAndKBCompose(t *testing.T) {
	f := newFixture(t, "gpt-4o", textResponse("answer"))
	f.guilds.vectorStoreID = "vs_123"
	f.kb.content = "kb text"
	f.web.results = []WebResult{{Title: "T", Snippet: "S", URL: "https://x.example"}}

	opts := defaultOpts()
	opts.WebSearchEnabled = true
	result := f.orch.Run(context.Background(), opts)

	if !result.UsedFileSearch || !result.UsedWebSearch {
		t.Errorf("flags = file:%v web:%v, want both true", result.UsedFileSearch, result.UsedWebSearch)
	}

	msgs := requestMessages(t, f.stub.requests[0])
	user := msgs[len(msgs)-1]
	content := user["content"].(string)
	if !strings.HasPrefix(content, "[Web Search Results]") {
		t.Errorf("web results should lead the user message, got %q", content)
	}
	if !strings.Contains(content, "[Knowledge Base Context]\nkb text") {
		t.Errorf("KB wrapping missing from composed message: %q", content)
	}
	if !strings.HasSuffix(content, "User question: hello") {
		t.Errorf("original prompt should end the message: %q", content)
	}

	// Composition happens inside a single user message.
	userCount := 0
	for _, m := range msgs {
		if m["role"] == "user" {
			userCount++
		}
	}
	if userCount != 1 {
		t.Errorf("user messages = %d, want exactly 1", userCount)
	}
}

func TestRunMessageOrder(t *testing.T) {
	f := newFixture(t, "gpt-4o", textResponse("answer"))
	f.sessions.messages[sessionKey("g1", "u1", "c1")] = []models.SessionMessage{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}

	result := f.orch.Run(context.Background(), defaultOpts())
	if !result.Success {
		t.Fatalf("run failed: %s", result.Error)
	}

	msgs := requestMessages(t, f.stub.requests[0])
	roles := make([]string, len(msgs))
	for i, m := range msgs {
		roles[i] = m["role"].(string)
	}
	want := []string{"system", "user", "assistant", "user"}
	if !reflect.DeepEqual(roles, want) {
		t.Errorf("message roles = %v, want %v", roles, want)
	}
	if msgs[1]["content"] != "earlier question" || msgs[2]["content"] != "earlier answer" {
		t.Errorf("prior turns out of order: %v", msgs)
	}
}

func TestRunPersistsOriginalPrompt(t *testing.T) {
	f := newFixture(t, "gpt-4o", textResponse("the answer"))
	f.guilds.vectorStoreID = "vs_123"
	f.kb.content = "kb context"
	f.sessions.messages[sessionKey("g1", "u1", "c1")] = []models.SessionMessage{
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
	}

	result := f.orch.Run(context.Background(), defaultOpts())
	if !result.Success {
		t.Fatalf("run failed: %s", result.Error)
	}

	saved := f.sessions.saved[sessionKey("g1", "u1", "c1")]
	if len(saved) != 4 {
		t.Fatalf("saved turns = %d, want 4", len(saved))
	}
	if saved[2].Role != "user" || saved[2].Content != "hello" {
		t.Errorf("persisted user turn = %+v, want the unwrapped prompt", saved[2])
	}
	if saved[3].Role != "assistant" || saved[3].Content != "the answer" {
		t.Errorf("persisted assistant turn = %+v", saved[3])
	}
}

func TestRunSessionWindowTruncation(t *testing.T) {
	f := newFixture(t, "gpt-4o", textResponse("latest answer"))

	// Seed more history than the window holds: 6 full turns = 12 messages
	// against a 10-message window.
	prior := make([]models.SessionMessage, 0, 12)
	for i := 1; i <= 6; i++ {
		prior = append(prior,
			models.SessionMessage{Role: "user", Content: fmt.Sprintf("q%d", i)},
			models.SessionMessage{Role: "assistant", Content: fmt.Sprintf("a%d", i)},
		)
	}
	f.sessions.messages[sessionKey("g1", "u1", "c1")] = prior

	result := f.orch.Run(context.Background(), defaultOpts())
	if !result.Success {
		t.Fatalf("run failed: %s", result.Error)
	}

	// The request carries system + the 10 most recent prior turns + one user
	// message; q1/a1 fall out of the window.
	msgs := requestMessages(t, f.stub.requests[0])
	if len(msgs) != 1+config.SessionMaxMessages+1 {
		t.Fatalf("request messages = %d, want %d", len(msgs), 1+config.SessionMaxMessages+1)
	}
	if msgs[1]["content"] != "q2" {
		t.Errorf("oldest windowed turn = %q, want q2", msgs[1]["content"])
	}
	for _, m := range msgs[1 : len(msgs)-1] {
		if m["content"] == "q1" || m["content"] == "a1" {
			t.Errorf("turn %q should have fallen out of the window", m["content"])
		}
	}

	// Persisted state is capped at the window size: 12 prior + 2 new turns
	// trim back down to 10, dropping the 4 oldest.
	saved := f.sessions.saved[sessionKey("g1", "u1", "c1")]
	if len(saved) != config.SessionMaxMessages {
		t.Fatalf("saved turns = %d, want %d", len(saved), config.SessionMaxMessages)
	}
	if saved[0].Content != "q3" {
		t.Errorf("oldest saved turn = %q, want q3", saved[0].Content)
	}
	if saved[len(saved)-2].Content != "hello" || saved[len(saved)-1].Content != "latest answer" {
		t.Errorf("newest saved turns = %+v", saved[len(saved)-2:])
	}
}

func TestRunCompletionFailure(t *testing.T) {
	// No scripted responses: the stub answers 500.
	f := newFixture(t, "gpt-4o")

	result := f.orch.Run(context.Background(), defaultOpts())

	if result.Success {
		t.Fatal("run should fail on a completion API error")
	}
	if result.Error == "" {
		t.Error("error message should be populated")
	}
	if len(f.sessions.saved) != 0 {
		t.Error("no session state should be persisted on a failed run")
	}
}

func TestRunMalformedToolArguments(t *testing.T) {
	f := newFixture(t, "gpt-4o",
		toolCallResponse("call_1", "get_solana_balance", `{not json`),
		textResponse("done"),
	)

	result := f.orch.Run(context.Background(), defaultOpts())
	if !result.Success {
		t.Fatalf("run failed: %s", result.Error)
	}
	if len(f.tools.executed) != 1 {
		t.Fatalf("tool should still execute, executed = %d", len(f.tools.executed))
	}
	if len(f.tools.executed[0].args) != 0 {
		t.Errorf("malformed arguments should degrade to empty map, got %v", f.tools.executed[0].args)
	}
}

func TestRunToolErrorEncodedForModel(t *testing.T) {
	f := newFixture(t, "gpt-4o",
		toolCallResponse("call_1", "get_solana_balance", `{"address":"bad"}`),
		textResponse("done"),
	)
	f.tools.outcome = ToolOutcome{Success: false, Error: "invalid address"}

	result := f.orch.Run(context.Background(), defaultOpts())
	if !result.Success {
		t.Fatalf("run failed: %s", result.Error)
	}

	msgs := requestMessages(t, f.stub.requests[1])
	last := msgs[len(msgs)-1]
	if last["content"] != `{"error":"invalid address"}` {
		t.Errorf("tool error message = %q", last["content"])
	}
	if result.ToolCalls[0].Result != "invalid address" {
		t.Errorf("recorded result = %v", result.ToolCalls[0].Result)
	}
}

func TestRunToolLoopBound(t *testing.T) {
	responses := make([]string, 0, maxToolIterations+1)
	for i := 0; i <= maxToolIterations; i++ {
		responses = append(responses, toolCallResponse(fmt.Sprintf("call_%d", i), "get_solana_balance", `{}`))
	}
	f := newFixture(t, "gpt-4o", responses...)

	result := f.orch.Run(context.Background(), defaultOpts())

	if !result.Success {
		t.Fatalf("exhausting the loop should not fail the run: %s", result.Error)
	}
	if result.Response != responseFallback {
		t.Errorf("response = %q, want the fallback text", result.Response)
	}
	if len(f.stub.requests) != maxToolIterations+1 {
		t.Errorf("completion calls = %d, want %d", len(f.stub.requests), maxToolIterations+1)
	}
	if len(f.sessions.saved) != 1 {
		t.Error("session should still be persisted")
	}
}

func TestRunFallbackOnEmptyContent(t *testing.T) {
	f := newFixture(t, "gpt-4o", textResponse(""))

	result := f.orch.Run(context.Background(), defaultOpts())
	if !result.Success {
		t.Fatalf("run failed: %s", result.Error)
	}
	if result.Response != responseFallback {
		t.Errorf("response = %q, want fallback", result.Response)
	}
}

func TestRunSessionLoadFailure(t *testing.T) {
	f := newFixture(t, "gpt-4o", textResponse("unused"))
	f.sessions.getErr = fmt.Errorf("connection reset")

	result := f.orch.Run(context.Background(), defaultOpts())
	if result.Success {
		t.Fatal("run should fail when the session store is down")
	}
}

func TestModelParameterDialects(t *testing.T) {
	t.Run("gpt-5 uses max_completion_tokens", func(t *testing.T) {
		f := newFixture(t, "gpt-5-mini", textResponse("ok"))
		f.orch.Run(context.Background(), defaultOpts())

		req := f.stub.requests[0]
		if _, ok := req["max_completion_tokens"]; !ok {
			t.Error("max_completion_tokens missing")
		}
		if _, ok := req["max_tokens"]; ok {
			t.Error("max_tokens should not be sent for gpt-5 models")
		}
		if _, ok := req["temperature"]; !ok {
			t.Error("gpt-5-mini supports custom temperature")
		}
	})

	t.Run("nano omits temperature", func(t *testing.T) {
		f := newFixture(t, "gpt-5-nano", textResponse("ok"))
		f.orch.Run(context.Background(), defaultOpts())

		if _, ok := f.stub.requests[0]["temperature"]; ok {
			t.Error("temperature should be omitted for nano models")
		}
	})

	t.Run("legacy models use max_tokens", func(t *testing.T) {
		f := newFixture(t, "gpt-4o", textResponse("ok"))
		f.orch.Run(context.Background(), defaultOpts())

		req := f.stub.requests[0]
		if _, ok := req["max_tokens"]; !ok {
			t.Error("max_tokens missing")
		}
		if _, ok := req["max_completion_tokens"]; ok {
			t.Error("max_completion_tokens should not be sent for legacy models")
		}
	})

	t.Run("extended cache retention on supported models", func(t *testing.T) {
		f := newFixture(t, "gpt-4.1-2025-04-14", textResponse("ok"))
		f.orch.Run(context.Background(), defaultOpts())

		if f.stub.requests[0]["prompt_cache_retention"] != "24h" {
			t.Error("prompt_cache_retention should be 24h for gpt-4.1")
		}
	})

	t.Run("cache key derived from guild", func(t *testing.T) {
		f := newFixture(t, "gpt-4o", textResponse("ok"))
		f.orch.Run(context.Background(), defaultOpts())

		if f.stub.requests[0]["prompt_cache_key"] != "epicgpt_g1" {
			t.Errorf("prompt_cache_key = %v", f.stub.requests[0]["prompt_cache_key"])
		}
	})
}

func TestDetectAdvisoryContext(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{"no match", "what time is it", ""},
		{"ownership keywords", "how do Ownership Coins work", metaDAOAdvisory},
		{"technical keywords", "explain the OPX protocol", opxAdvisory},
		{"both sets joined with space", "ownership coin trading", metaDAOAdvisory + " " + opxAdvisory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectAdvisoryContext(tt.prompt); got != tt.want {
				t.Errorf("detectAdvisoryContext(%q) = %q, want %q", tt.prompt, got, tt.want)
			}
		})
	}
}
