package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GuildConfig holds per-guild settings, currently just the vector store handle.
// A guild without a vector store ID has no knowledge base yet.
type GuildConfig struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GuildID       string             `bson:"guildId" json:"guild_id"`
	VectorStoreID string             `bson:"vectorStoreId,omitempty" json:"vector_store_id,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updated_at"`
}

// KnowledgeItemKind distinguishes uploaded files from ingested URLs.
type KnowledgeItemKind string

const (
	KnowledgeItemFile KnowledgeItemKind = "FILE"
	KnowledgeItemURL  KnowledgeItemKind = "URL"
)

// KnowledgeItem records one ingested document: the uploaded file, its vector
// store attachment, and a content hash for deduplication.
type KnowledgeItem struct {
	ID                string            `bson:"_id" json:"id"` // uuid
	GuildID           string            `bson:"guildId" json:"guild_id"`
	Kind              KnowledgeItemKind `bson:"kind" json:"kind"`
	Title             string            `bson:"title" json:"title"`
	SourceURL         string            `bson:"sourceUrl,omitempty" json:"source_url,omitempty"`
	FileID            string            `bson:"fileId" json:"file_id"`
	VectorStoreFileID string            `bson:"vectorStoreFileId" json:"vector_store_file_id"`
	ContentHash       string            `bson:"contentHash" json:"content_hash"`
	CreatedBy         string            `bson:"createdByDiscordUserId" json:"created_by"`
	CreatedAt         time.Time         `bson:"createdAt" json:"created_at"`
	UpdatedAt         time.Time         `bson:"updatedAt" json:"updated_at"`
}

// RequestLog is an audit record for one chat/search invocation.
type RequestLog struct {
	ID             string    `bson:"_id" json:"id"` // uuid
	GuildID        string    `bson:"guildId" json:"guild_id"`
	UserID         string    `bson:"userId" json:"user_id"`
	Command        string    `bson:"command" json:"command"` // "chat" or "search"
	UsedFileSearch bool      `bson:"usedFileSearch" json:"used_file_search"`
	UsedWebSearch  bool      `bson:"usedWebSearch" json:"used_web_search"`
	ToolCalls      []string  `bson:"toolCalls,omitempty" json:"tool_calls,omitempty"` // tool names, in call order
	Error          string    `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt      time.Time `bson:"createdAt" json:"created_at"`
}
