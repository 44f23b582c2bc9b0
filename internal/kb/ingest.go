package kb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"epicgpt/internal/config"
	"epicgpt/internal/database"
	"epicgpt/internal/models"
)

// supportedFileTypes are the extensions /kb_add_file accepts.
var supportedFileTypes = []string{".pdf", ".md", ".txt"}

// ComputeContentHash hashes extracted content for deduplication.
func ComputeContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// IsFileTypeSupported reports whether the filename's extension can be
// ingested.
func IsFileTypeSupported(filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	for _, supported := range supportedFileTypes {
		if ext == supported {
			return true
		}
	}
	return false
}

// IngestResult reports the outcome of one ingestion. Duplicate means the
// content hash matched an existing item and nothing was uploaded.
type IngestResult struct {
	KnowledgeItemID string
	Title           string
	Duplicate       bool
}

// Ingestor handles file and URL ingestion into a guild's knowledge base.
type Ingestor struct {
	client  *VectorStoreClient
	guilds  *database.GuildConfigStore
	items   *database.KnowledgeItemStore
	fetcher *Fetcher
}

// NewIngestor wires the ingestion pipeline.
func NewIngestor(client *VectorStoreClient, guilds *database.GuildConfigStore, items *database.KnowledgeItemStore, fetcher *Fetcher) *Ingestor {
	return &Ingestor{
		client:  client,
		guilds:  guilds,
		items:   items,
		fetcher: fetcher,
	}
}

// EnsureStore returns the guild's vector store ID, creating a store (and
// recreating one deleted upstream) as needed.
func (in *Ingestor) EnsureStore(ctx context.Context, guildID string) (string, error) {
	guildConfig, err := in.guilds.GetOrCreate(ctx, guildID)
	if err != nil {
		return "", err
	}

	if guildConfig.VectorStoreID != "" {
		if in.client.Exists(ctx, guildConfig.VectorStoreID) {
			return guildConfig.VectorStoreID, nil
		}
		log.Printf("⚠️  [KB] Vector store %s not found, creating new one", guildConfig.VectorStoreID)
	}

	storeID, err := in.client.CreateStore(ctx, config.BotName+" Knowledge Base")
	if err != nil {
		return "", err
	}
	if err := in.guilds.SetVectorStoreID(ctx, guildID, storeID); err != nil {
		return "", err
	}
	return storeID, nil
}

// IngestFile extracts text from an uploaded file and adds it to the guild's
// knowledge base.
func (in *Ingestor) IngestFile(ctx context.Context, guildID, userID, filename string, data []byte) (*IngestResult, error) {
	ext := strings.ToLower(path.Ext(filename))
	if !IsFileTypeSupported(filename) {
		return nil, fmt.Errorf("unsupported file type: %s. Supported types: %s", ext, strings.Join(supportedFileTypes, ", "))
	}

	fileSizeMB := float64(len(data)) / (1024 * 1024)
	if fileSizeMB > config.KBMaxFileSizeMB {
		return nil, fmt.Errorf("file too large: %.2fMB. Maximum: %dMB", fileSizeMB, config.KBMaxFileSizeMB)
	}

	var content string
	var err error
	if ext == ".pdf" {
		content, err = PDFToText(data)
		if err != nil {
			return nil, err
		}
	} else {
		content = string(data)
	}

	content = PrepareForUpload(content)
	if len(content) < config.KBMinContentLength {
		return nil, fmt.Errorf("file content too short (%d characters). Minimum: %d", len(content), config.KBMinContentLength)
	}

	return in.store(ctx, storeRequest{
		guildID:    guildID,
		userID:     userID,
		kind:       models.KnowledgeItemFile,
		title:      filename,
		uploadName: filename + ".txt",
		content:    content,
	})
}

// IngestURL fetches a page and adds its extracted content to the guild's
// knowledge base.
func (in *Ingestor) IngestURL(ctx context.Context, guildID, userID, rawURL string) (*IngestResult, error) {
	if _, err := ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("invalid URL format. Please provide a valid HTTP or HTTPS URL")
	}

	log.Printf("🌐 [KB] Fetching URL: %s", rawURL)
	page, err := in.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	content := PrepareForUpload(page.Content)
	if len(content) < config.KBMinContentLength {
		return nil, fmt.Errorf("URL content too short (%d characters). The page might require JavaScript or be protected", len(content))
	}

	return in.store(ctx, storeRequest{
		guildID:    guildID,
		userID:     userID,
		kind:       models.KnowledgeItemURL,
		title:      page.Title,
		sourceURL:  rawURL,
		uploadName: uploadNameForURL(rawURL),
		content:    content,
	})
}

// Refresh re-fetches a URL item and replaces its stored content. Unchanged
// content is reported as a duplicate without re-uploading.
func (in *Ingestor) Refresh(ctx context.Context, guildID, itemID string) (*IngestResult, error) {
	item, err := in.items.GetByID(ctx, guildID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("knowledge item not found")
	}
	if item.Kind != models.KnowledgeItemURL {
		return nil, fmt.Errorf("only URL items can be refreshed")
	}

	page, err := in.fetcher.Fetch(ctx, item.SourceURL)
	if err != nil {
		return nil, err
	}
	content := PrepareForUpload(page.Content)
	if len(content) < config.KBMinContentLength {
		return nil, fmt.Errorf("URL content too short (%d characters)", len(content))
	}

	contentHash := ComputeContentHash(content)
	if contentHash == item.ContentHash {
		return &IngestResult{KnowledgeItemID: item.ID, Title: item.Title, Duplicate: true}, nil
	}

	storeID, err := in.EnsureStore(ctx, guildID)
	if err != nil {
		return nil, err
	}

	fileID, err := in.client.UploadFile(ctx, uploadNameForURL(item.SourceURL), []byte(content))
	if err != nil {
		return nil, err
	}
	vectorStoreFileID, err := in.client.AttachFile(ctx, storeID, fileID)
	if err != nil {
		return nil, err
	}

	in.client.RemoveFile(ctx, storeID, item.VectorStoreFileID, item.FileID)

	item.FileID = fileID
	item.VectorStoreFileID = vectorStoreFileID
	item.ContentHash = contentHash
	if page.Title != "" {
		item.Title = page.Title
	}
	if err := in.items.Update(ctx, item); err != nil {
		return nil, err
	}

	return &IngestResult{KnowledgeItemID: item.ID, Title: item.Title}, nil
}

// Remove deletes an item from the vector store and the database.
func (in *Ingestor) Remove(ctx context.Context, guildID, itemID string) (*models.KnowledgeItem, error) {
	item, err := in.items.GetByID(ctx, guildID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("knowledge item not found")
	}

	guildConfig, err := in.guilds.GetOrCreate(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if guildConfig.VectorStoreID != "" {
		in.client.RemoveFile(ctx, guildConfig.VectorStoreID, item.VectorStoreFileID, item.FileID)
	}

	if err := in.items.Delete(ctx, guildID, itemID); err != nil {
		return nil, err
	}
	return item, nil
}

type storeRequest struct {
	guildID    string
	userID     string
	kind       models.KnowledgeItemKind
	title      string
	sourceURL  string
	uploadName string
	content    string
}

// store runs the shared tail of ingestion: dedupe, upload, attach, record.
func (in *Ingestor) store(ctx context.Context, req storeRequest) (*IngestResult, error) {
	contentHash := ComputeContentHash(req.content)
	existing, err := in.items.GetByHash(ctx, req.guildID, contentHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &IngestResult{KnowledgeItemID: existing.ID, Title: existing.Title, Duplicate: true}, nil
	}

	storeID, err := in.EnsureStore(ctx, req.guildID)
	if err != nil {
		return nil, err
	}

	fileID, err := in.client.UploadFile(ctx, req.uploadName, []byte(req.content))
	if err != nil {
		return nil, err
	}
	vectorStoreFileID, err := in.client.AttachFile(ctx, storeID, fileID)
	if err != nil {
		return nil, err
	}

	item := &models.KnowledgeItem{
		ID:                uuid.New().String(),
		GuildID:           req.guildID,
		Kind:              req.kind,
		Title:             req.title,
		SourceURL:         req.sourceURL,
		FileID:            fileID,
		VectorStoreFileID: vectorStoreFileID,
		ContentHash:       contentHash,
		CreatedBy:         req.userID,
	}
	if err := in.items.Create(ctx, item); err != nil {
		return nil, err
	}

	return &IngestResult{KnowledgeItemID: item.ID, Title: item.Title}, nil
}

// uploadNameForURL derives a storable filename from a page URL.
func uploadNameForURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "page.md"
	}
	return parsed.Hostname() + strings.ReplaceAll(parsed.Path, "/", "_") + ".md"
}
