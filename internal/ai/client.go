package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ChatMessage is one message in an OpenAI-style chat completion request.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction carries the requested tool name and raw JSON arguments.
type ToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Usage is the token accounting block of one completion response.
// CachedTokens comes from prompt_tokens_details and may be absent.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	CachedTokens     int `json:"-"`
}

// modelCaps declares which parameter dialect a model family speaks.
// Resolved once at client construction, not per call.
type modelCaps struct {
	maxCompletionTokensParam bool // gpt-5 family renamed max_tokens
	customTemperature        bool // nano models only accept the default
	extendedCacheRetention   bool // 24h prompt cache retention support
}

func capsFor(model string) modelCaps {
	return modelCaps{
		maxCompletionTokensParam: strings.Contains(model, "gpt-5"),
		customTemperature:        !strings.Contains(model, "nano"),
		extendedCacheRetention: strings.Contains(model, "gpt-5.2") ||
			strings.Contains(model, "gpt-5.1") ||
			strings.Contains(model, "gpt-4.1"),
	}
}

// Client is a minimal chat completions client for OpenAI-compatible APIs.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	caps        modelCaps
	httpClient  *http.Client
}

// NewClient creates a completion client for the given model.
func NewClient(baseURL, apiKey, model string, maxTokens int, temperature float64) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		caps:        capsFor(model),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// CreateCompletion makes one chat completion call and returns the assistant
// message plus its usage block. cacheKey routes requests with a shared static
// prefix to the same provider-side prompt cache.
func (c *Client) CreateCompletion(ctx context.Context, messages []ChatMessage, tools []map[string]any, cacheKey string) (*ChatMessage, *Usage, error) {
	reqBody := map[string]any{
		"model":    c.model,
		"messages": messages,
	}
	if len(tools) > 0 {
		reqBody["tools"] = tools
	}
	if c.caps.maxCompletionTokensParam {
		reqBody["max_completion_tokens"] = c.maxTokens
	} else {
		reqBody["max_tokens"] = c.maxTokens
	}
	if c.caps.customTemperature {
		reqBody["temperature"] = c.temperature
	}
	if cacheKey != "" {
		reqBody["prompt_cache_key"] = cacheKey
	}
	if c.caps.extendedCacheRetention {
		reqBody["prompt_cache_retention"] = "24h"
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, nil, fmt.Errorf("completion API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResult struct {
		Choices []struct {
			Message      ChatMessage `json:"message"`
			FinishReason string      `json:"finish_reason"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens        int `json:"prompt_tokens"`
			CompletionTokens    int `json:"completion_tokens"`
			TotalTokens         int `json:"total_tokens"`
			PromptTokensDetails *struct {
				CachedTokens int `json:"cached_tokens"`
			} `json:"prompt_tokens_details"`
		} `json:"usage"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResult); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(apiResult.Choices) == 0 {
		return nil, nil, fmt.Errorf("no choices in response")
	}

	usage := &Usage{}
	if apiResult.Usage != nil {
		usage.PromptTokens = apiResult.Usage.PromptTokens
		usage.CompletionTokens = apiResult.Usage.CompletionTokens
		usage.TotalTokens = apiResult.Usage.TotalTokens
		if apiResult.Usage.PromptTokensDetails != nil {
			usage.CachedTokens = apiResult.Usage.PromptTokensDetails.CachedTokens
		}
		if usage.CachedTokens > 0 && usage.PromptTokens > 0 {
			log.Printf("💾 [CACHE] Cache hit: %d/%d prompt tokens cached (%d%%)",
				usage.CachedTokens, usage.PromptTokens,
				usage.CachedTokens*100/usage.PromptTokens)
		}
	}

	msg := apiResult.Choices[0].Message
	return &msg, usage, nil
}
