package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"epicgpt/internal/config"
)

// attachPollInterval is how often file processing status is re-checked.
const attachPollInterval = 1 * time.Second

// attachPollMax bounds how long to wait for a file to finish indexing.
const attachPollMax = 60

// VectorStoreClient talks to the OpenAI vector store and files REST API.
type VectorStoreClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewVectorStoreClient creates a vector store client.
func NewVectorStoreClient(baseURL, apiKey string) *VectorStoreClient {
	return &VectorStoreClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// VectorStoreFile is one file attached to a vector store.
type VectorStoreFile struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SearchChunk is one retrieved chunk from a vector store search.
type SearchChunk struct {
	FileID   string
	Filename string
	Score    float64
	Text     string
}

// Exists reports whether a vector store is still present upstream.
func (c *VectorStoreClient) Exists(ctx context.Context, storeID string) bool {
	var out struct {
		ID string `json:"id"`
	}
	err := c.doJSON(ctx, "GET", "/vector_stores/"+storeID, nil, &out)
	return err == nil && out.ID != ""
}

// CreateStore creates a new vector store that expires a year after its last
// activity, and returns its ID.
func (c *VectorStoreClient) CreateStore(ctx context.Context, name string) (string, error) {
	body := map[string]any{
		"name": name,
		"expires_after": map[string]any{
			"anchor": "last_active_at",
			"days":   365,
		},
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, "POST", "/vector_stores", body, &out); err != nil {
		return "", fmt.Errorf("failed to create vector store: %w", err)
	}
	log.Printf("✅ [KB] Created vector store: %s", out.ID)
	return out.ID, nil
}

// UploadFile uploads content to the files API with purpose "assistants" and
// returns the file ID.
func (c *VectorStoreClient) UploadFile(ctx context.Context, filename string, content []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("purpose", "assistants"); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/files", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("upload failed (status %d): %s", resp.StatusCode, string(body))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}

	log.Printf("📤 [KB] Uploaded file: %s (%s)", out.ID, filename)
	return out.ID, nil
}

// AttachFile attaches an uploaded file to a vector store and waits for
// indexing to complete. Returns the vector store file ID.
func (c *VectorStoreClient) AttachFile(ctx context.Context, storeID, fileID string) (string, error) {
	body := map[string]any{
		"file_id": fileID,
		"chunking_strategy": map[string]any{
			"type": "static",
			"static": map[string]any{
				"max_chunk_size_tokens": config.KBChunkSize,
				"chunk_overlap_tokens":  config.KBChunkOverlap,
			},
		},
	}
	var attached VectorStoreFile
	if err := c.doJSON(ctx, "POST", "/vector_stores/"+storeID+"/files", body, &attached); err != nil {
		return "", fmt.Errorf("failed to attach file: %w", err)
	}
	log.Printf("📎 [KB] Attached to vector store: %s", attached.ID)

	status := attached.Status
	for i := 0; status == "in_progress"; i++ {
		if i >= attachPollMax {
			return "", fmt.Errorf("file processing timed out: %s", fileID)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(attachPollInterval):
		}

		var updated VectorStoreFile
		if err := c.doJSON(ctx, "GET", "/vector_stores/"+storeID+"/files/"+attached.ID, nil, &updated); err != nil {
			return "", fmt.Errorf("failed to poll file status: %w", err)
		}
		status = updated.Status
	}

	if status == "failed" {
		return "", fmt.Errorf("failed to process file: %s", fileID)
	}
	return attached.ID, nil
}

// ListFiles returns the files attached to a vector store.
func (c *VectorStoreClient) ListFiles(ctx context.Context, storeID string) ([]VectorStoreFile, error) {
	var out struct {
		Data []VectorStoreFile `json:"data"`
	}
	if err := c.doJSON(ctx, "GET", "/vector_stores/"+storeID+"/files", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list vector store files: %w", err)
	}
	return out.Data, nil
}

// RemoveFile detaches a file from the vector store and deletes the underlying
// file. Both deletions are best effort.
func (c *VectorStoreClient) RemoveFile(ctx context.Context, storeID, vectorStoreFileID, fileID string) {
	if err := c.doJSON(ctx, "DELETE", "/vector_stores/"+storeID+"/files/"+vectorStoreFileID, nil, nil); err != nil {
		log.Printf("⚠️  [KB] Failed to remove from vector store: %v", err)
	} else {
		log.Printf("🗑️  [KB] Removed from vector store: %s", vectorStoreFileID)
	}

	if err := c.doJSON(ctx, "DELETE", "/files/"+fileID, nil, nil); err != nil {
		log.Printf("⚠️  [KB] Failed to delete file: %v", err)
	} else {
		log.Printf("🗑️  [KB] Deleted file: %s", fileID)
	}
}

// Search runs a semantic query against a vector store and returns scored
// chunks with their source files.
func (c *VectorStoreClient) Search(ctx context.Context, storeID, query string, maxResults int) ([]SearchChunk, error) {
	body := map[string]any{
		"query":           query,
		"max_num_results": maxResults,
	}
	var out struct {
		Data []struct {
			FileID   string  `json:"file_id"`
			Filename string  `json:"filename"`
			Score    float64 `json:"score"`
			Content  []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, "POST", "/vector_stores/"+storeID+"/search", body, &out); err != nil {
		return nil, fmt.Errorf("vector store search failed: %w", err)
	}

	chunks := make([]SearchChunk, 0, len(out.Data))
	for _, d := range out.Data {
		var text strings.Builder
		for _, part := range d.Content {
			if part.Type == "text" {
				text.WriteString(part.Text)
			}
		}
		chunks = append(chunks, SearchChunk{
			FileID:   d.FileID,
			Filename: d.Filename,
			Score:    d.Score,
			Text:     text.String(),
		})
	}
	return chunks, nil
}

// doJSON performs one JSON API request. A nil out discards the response body.
func (c *VectorStoreClient) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
