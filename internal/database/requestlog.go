package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"epicgpt/internal/models"
)

// RequestLogStore writes audit records for chat/search runs.
type RequestLogStore struct {
	db *MongoDB
}

// NewRequestLogStore creates a request log store backed by MongoDB
func NewRequestLogStore(db *MongoDB) *RequestLogStore {
	return &RequestLogStore{db: db}
}

// Create inserts one audit record. ID and CreatedAt are filled if unset.
func (r *RequestLogStore) Create(ctx context.Context, entry *models.RequestLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := r.db.Collection(CollectionRequestLogs).InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to create request log: %w", err)
	}
	return nil
}
