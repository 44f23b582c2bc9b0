package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"epicgpt/internal/ai"
	"epicgpt/internal/config"
)

const serperAPIBase = "https://google.serper.dev"

const (
	searchCacheTTL     = 5 * time.Minute
	searchCacheCleanup = 10 * time.Minute
)

// SerperClient searches the web through the Serper.dev API. Identical queries
// within a short window are served from an in-process cache.
type SerperClient struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
	cache      *gocache.Cache
}

// NewSerperClient creates a web search client.
func NewSerperClient(apiKey string) *SerperClient {
	return &SerperClient{
		apiKey:     apiKey,
		baseURL:    serperAPIBase,
		maxResults: config.WebSearchMaxResults,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		cache: gocache.New(searchCacheTTL, searchCacheCleanup),
	}
}

// Search runs a Google search and returns up to maxResults organic hits.
// A response with no organic results is a successful empty search, not an
// error.
func (c *SerperClient) Search(ctx context.Context, query string) ([]ai.WebResult, error) {
	if cached, found := c.cache.Get(query); found {
		return cached.([]ai.WebResult), nil
	}

	reqBody, err := json.Marshal(map[string]any{
		"q":   query,
		"num": c.maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/search", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("Serper API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResult struct {
		Organic []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResult); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]ai.WebResult, 0, len(apiResult.Organic))
	for _, item := range apiResult.Organic {
		results = append(results, ai.WebResult{
			Title:   item.Title,
			Snippet: item.Snippet,
			URL:     item.Link,
		})
		if len(results) >= c.maxResults {
			break
		}
	}

	c.cache.Set(query, results, gocache.DefaultExpiration)
	return results, nil
}
