package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"epicgpt/internal/config"
	"epicgpt/internal/logging"
	"epicgpt/internal/models"
)

// maxToolIterations bounds the tool-calling loop. A model that keeps
// requesting tools past this many round trips gets its latest text returned
// instead of looping forever.
const maxToolIterations = 8

const responseFallback = "I apologize, but I was unable to generate a response."

// SessionAccess loads and saves bounded conversation sessions.
type SessionAccess interface {
	Get(ctx context.Context, guildID, userID, channelID string) (*models.Session, error)
	Save(ctx context.Context, guildID, userID, channelID string, messages []models.SessionMessage) error
}

// GuildConfigAccess resolves a guild's settings, creating them on first use.
type GuildConfigAccess interface {
	GetOrCreate(ctx context.Context, guildID string) (*models.GuildConfig, error)
}

// KBSearchResult is synthesized knowledge base text plus citation hints.
type KBSearchResult struct {
	Content   string
	Citations []string
}

// KnowledgeSearcher queries a guild's vector store.
type KnowledgeSearcher interface {
	Search(ctx context.Context, vectorStoreID, query, guildID string) (*KBSearchResult, error)
}

// WebResult is one web search hit.
type WebResult struct {
	Title   string
	Snippet string
	URL     string
}

// WebSearcher runs a web search for a query.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]WebResult, error)
}

// ToolOutcome is the structured result of one tool execution.
type ToolOutcome struct {
	Success bool
	Result  any
	Error   string
}

// ToolRouter declares and executes the fixed tool set.
type ToolRouter interface {
	Schemas() []map[string]any
	Execute(ctx context.Context, name string, args map[string]any) ToolOutcome
}

// ToolCallRecord is one executed tool call, kept for logging and the caller.
type ToolCallRecord struct {
	Name   string
	Result any
}

// TokenUsage accumulates token counts across all completion calls of one run.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CachedTokens     int
}

// RunResult is the outcome of one orchestration run.
type RunResult struct {
	Success        bool
	Response       string
	Error          string
	UsedFileSearch bool
	UsedWebSearch  bool
	ToolCalls      []ToolCallRecord
	TokenUsage     TokenUsage
}

// RunOptions identifies one chat/search invocation.
type RunOptions struct {
	GuildID          string
	UserID           string
	ChannelID        string
	Prompt           string
	WebSearchEnabled bool
}

// Orchestrator drives the conversation pipeline: session load, knowledge base
// retrieval, optional web search, the completion+tool-call loop, and session
// persistence.
type Orchestrator struct {
	client   *Client
	sessions SessionAccess
	guilds   GuildConfigAccess
	kb       KnowledgeSearcher // nil disables retrieval
	web      WebSearcher       // nil disables web search
	tools    ToolRouter
}

// NewOrchestrator wires the pipeline's collaborators.
func NewOrchestrator(client *Client, sessions SessionAccess, guilds GuildConfigAccess, kb KnowledgeSearcher, web WebSearcher, tools ToolRouter) *Orchestrator {
	return &Orchestrator{
		client:   client,
		sessions: sessions,
		guilds:   guilds,
		kb:       kb,
		web:      web,
		tools:    tools,
	}
}

// Advisory sentences appended to the system prompt when the prompt matches
// the corresponding keyword set.
const (
	metaDAOAdvisory = "For ownership coins or ownership-related queries, reference MetaDAO documentation at https://docs.metadao.fi/ as a resource for best practices."
	opxAdvisory     = "For technical, ecosystem, and product-related questions, prioritize OPX Markets documentation at https://docs.opx.markets as the single point of truth."
)

var (
	ownershipKeywords = []string{"ownership coin", "ownership", "member token", "equity token"}
	technicalKeywords = []string{"opx", "opx markets", "technical", "product", "ecosystem", "protocol", "trading", "market"}
)

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// detectAdvisoryContext classifies the prompt against the fixed keyword sets
// and returns the matching advisory sentences joined with a space.
func detectAdvisoryContext(prompt string) string {
	lower := strings.ToLower(prompt)
	var parts []string
	if containsAny(lower, ownershipKeywords) {
		parts = append(parts, metaDAOAdvisory)
	}
	if containsAny(lower, technicalKeywords) {
		parts = append(parts, opxAdvisory)
	}
	return strings.Join(parts, " ")
}

// Run executes one orchestration run. Any error from a required collaborator
// aborts the run without persisting partial session state; degraded context
// (no KB hit, empty web search, malformed tool arguments) never aborts.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) RunResult {
	result, err := o.run(ctx, opts)
	if err != nil {
		logging.WithRun(opts.GuildID, opts.UserID, opts.ChannelID).Error("orchestration run failed", "error", err)
		return RunResult{Success: false, Error: err.Error()}
	}
	return result
}

func (o *Orchestrator) run(ctx context.Context, opts RunOptions) (RunResult, error) {
	log := logging.WithRun(opts.GuildID, opts.UserID, opts.ChannelID)

	// Vector store resolution never fails the run; it only toggles retrieval.
	var vectorStoreID string
	if guildConfig, err := o.guilds.GetOrCreate(ctx, opts.GuildID); err == nil && guildConfig != nil {
		vectorStoreID = guildConfig.VectorStoreID
	} else if err != nil {
		log.Warn("guild config lookup failed, skipping knowledge base", "error", err)
	}

	session, err := o.sessions.Get(ctx, opts.GuildID, opts.UserID, opts.ChannelID)
	if err != nil {
		return RunResult{}, fmt.Errorf("session load failed: %w", err)
	}
	var previousMessages []models.SessionMessage
	if session != nil {
		previousMessages = session.Messages
	}

	var kbContent string
	usedFileSearch := false
	if o.kb != nil && vectorStoreID != "" {
		kbResult, kbErr := o.kb.Search(ctx, vectorStoreID, opts.Prompt, opts.GuildID)
		if kbErr != nil {
			log.Warn("knowledge base search failed, continuing without context", "error", kbErr)
		} else if kbResult != nil && kbResult.Content != "" {
			usedFileSearch = true
			kbContent = kbResult.Content
		}
	}

	additionalContext := detectAdvisoryContext(opts.Prompt)

	// Static content first, dynamic content last: this ordering is what makes
	// provider-side prompt caching effective across runs.
	messages := []ChatMessage{
		{Role: "system", Content: BuildSystemPrompt(opts.WebSearchEnabled, additionalContext)},
	}

	window := models.TrimToWindow(previousMessages, config.SessionMaxMessages)
	for _, msg := range window {
		messages = append(messages, ChatMessage{Role: msg.Role, Content: msg.Content})
	}

	userMessageContent := opts.Prompt
	if kbContent != "" {
		userMessageContent = fmt.Sprintf("[Knowledge Base Context]\n%s\n\n---\n\nUser question: %s", kbContent, opts.Prompt)
	}

	usedWebSearch := false
	if opts.WebSearchEnabled && o.web != nil {
		results, searchErr := o.web.Search(ctx, opts.Prompt)
		if searchErr != nil {
			log.Warn("web search failed, continuing without results", "error", searchErr)
		} else if len(results) > 0 {
			usedWebSearch = true
			userMessageContent = FormatWebSearchResults(results) + "\n\n" + userMessageContent
		}
	}

	messages = append(messages, ChatMessage{Role: "user", Content: userMessageContent})

	toolSchemas := o.tools.Schemas()
	cacheKey := "epicgpt_" + opts.GuildID

	var usage TokenUsage
	assistant, callUsage, err := o.client.CreateCompletion(ctx, messages, toolSchemas, cacheKey)
	if err != nil {
		return RunResult{}, err
	}
	accumulateUsage(&usage, callUsage)

	var toolCallRecords []ToolCallRecord
	for iteration := 0; len(assistant.ToolCalls) > 0; iteration++ {
		if iteration >= maxToolIterations {
			log.Warn("tool call loop exhausted, returning latest response", "iterations", iteration)
			break
		}

		messages = append(messages, *assistant)

		for _, tc := range assistant.ToolCalls {
			args := map[string]any{}
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]any{}
			}

			outcome := o.tools.Execute(ctx, tc.Function.Name, args)

			var recorded any
			var payload any
			if outcome.Success {
				recorded = outcome.Result
				payload = outcome.Result
			} else {
				recorded = outcome.Error
				payload = map[string]string{"error": outcome.Error}
			}
			toolCallRecords = append(toolCallRecords, ToolCallRecord{Name: tc.Function.Name, Result: recorded})

			content, marshalErr := json.Marshal(payload)
			if marshalErr != nil {
				content = []byte(`{"error":"failed to encode tool result"}`)
			}
			messages = append(messages, ChatMessage{
				Role:       "tool",
				ToolCallID: tc.ID,
				Content:    string(content),
			})
		}

		assistant, callUsage, err = o.client.CreateCompletion(ctx, messages, toolSchemas, cacheKey)
		if err != nil {
			return RunResult{}, err
		}
		accumulateUsage(&usage, callUsage)
	}

	responseContent := assistant.Content
	if responseContent == "" {
		responseContent = responseFallback
	}

	// The persisted user turn is the original prompt, never the augmented text.
	newMessages := append(append([]models.SessionMessage{}, previousMessages...),
		models.SessionMessage{Role: "user", Content: opts.Prompt},
		models.SessionMessage{Role: "assistant", Content: responseContent},
	)
	if err := o.sessions.Save(ctx, opts.GuildID, opts.UserID, opts.ChannelID, newMessages); err != nil {
		return RunResult{}, fmt.Errorf("session save failed: %w", err)
	}

	return RunResult{
		Success:        true,
		Response:       responseContent,
		UsedFileSearch: usedFileSearch,
		UsedWebSearch:  usedWebSearch,
		ToolCalls:      toolCallRecords,
		TokenUsage:     usage,
	}, nil
}

func accumulateUsage(total *TokenUsage, call *Usage) {
	if call == nil {
		return
	}
	total.PromptTokens += call.PromptTokens
	total.CompletionTokens += call.CompletionTokens
	total.TotalTokens += call.TotalTokens
	total.CachedTokens += call.CachedTokens
}
