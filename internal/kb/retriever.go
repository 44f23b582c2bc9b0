package kb

import (
	"context"
	"fmt"
	"strings"

	"epicgpt/internal/ai"
	"epicgpt/internal/models"
)

// kbSearchMaxResults is how many chunks one retrieval pulls from the store.
const kbSearchMaxResults = 8

// KnowledgeItems lists a guild's knowledge items for title resolution.
type KnowledgeItems interface {
	List(ctx context.Context, guildID string) ([]models.KnowledgeItem, error)
}

// Retriever answers orchestrator queries against a guild's vector store.
type Retriever struct {
	client *VectorStoreClient
	items  KnowledgeItems
}

// NewRetriever creates a knowledge base retriever.
func NewRetriever(client *VectorStoreClient, items KnowledgeItems) *Retriever {
	return &Retriever{client: client, items: items}
}

// Search queries the vector store and synthesizes retrieved chunks into one
// context block, with citation hints resolved through the guild's knowledge
// items. No matching chunks yields an empty result, not an error.
func (r *Retriever) Search(ctx context.Context, vectorStoreID, query, guildID string) (*ai.KBSearchResult, error) {
	chunks, err := r.client.Search(ctx, vectorStoreID, query, kbSearchMaxResults)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &ai.KBSearchResult{}, nil
	}

	fileIDToTitle := make(map[string]string)
	if items, listErr := r.items.List(ctx, guildID); listErr == nil {
		for _, item := range items {
			fileIDToTitle[item.FileID] = item.Title
		}
	}

	var content strings.Builder
	var annotations []ai.Annotation
	for i, chunk := range chunks {
		if chunk.Text == "" {
			continue
		}
		if i > 0 {
			content.WriteString("\n\n")
		}
		source := chunk.Filename
		if title, ok := fileIDToTitle[chunk.FileID]; ok && title != "" {
			source = title
		}
		fmt.Fprintf(&content, "[Source: %s]\n%s", source, chunk.Text)

		annotations = append(annotations, ai.Annotation{
			Type:         "file_citation",
			FileCitation: &ai.FileRef{FileID: chunk.FileID},
		})
	}

	return &ai.KBSearchResult{
		Content:   content.String(),
		Citations: ai.ExtractFileSearchCitations(annotations, fileIDToTitle),
	}, nil
}
