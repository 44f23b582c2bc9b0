package kb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const fetchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxPageSize limits how much of a page body is read (10MB).
const maxPageSize = 10 * 1024 * 1024

// FetchedPage is the extracted content of one web page.
type FetchedPage struct {
	Content string
	Title   string
}

// Fetcher downloads a page and extracts its main content for ingestion.
type Fetcher struct {
	client *http.Client
	robots *RobotsChecker
}

// NewFetcher creates a page fetcher with robots.txt compliance.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		robots: NewRobotsChecker(fetchUserAgent),
	}
}

// ValidateURL rejects anything that is not a plain HTTP or HTTPS URL.
func ValidateURL(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("only HTTP/HTTPS URLs are supported, got: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("URL has no host")
	}
	return parsed, nil
}

// Fetch downloads a page and returns its extracted text and title.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchedPage, error) {
	parsed, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	allowed, err := f.robots.CanFetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("access blocked by robots.txt for: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	content, title, err := HTMLToText(body, parsed)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = titleFromURL(parsed)
	}

	return &FetchedPage{Content: content, Title: title}, nil
}

// titleFromURL derives a fallback title from the last path segment, or the
// hostname for a bare domain.
func titleFromURL(u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	last := segments[len(segments)-1]
	if last == "" {
		return u.Hostname()
	}
	return last
}
