package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"epicgpt/internal/models"
)

// KnowledgeItemStore manages knowledge base item records.
type KnowledgeItemStore struct {
	db *MongoDB
}

// NewKnowledgeItemStore creates a knowledge item store backed by MongoDB
func NewKnowledgeItemStore(db *MongoDB) *KnowledgeItemStore {
	return &KnowledgeItemStore{db: db}
}

// Create inserts a new knowledge item record.
func (k *KnowledgeItemStore) Create(ctx context.Context, item *models.KnowledgeItem) error {
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := k.db.Collection(CollectionKnowledgeItems).InsertOne(ctx, item)
	if err != nil {
		return fmt.Errorf("failed to create knowledge item: %w", err)
	}
	return nil
}

// List returns a guild's knowledge items, newest first.
func (k *KnowledgeItemStore) List(ctx context.Context, guildID string) ([]models.KnowledgeItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := k.db.Collection(CollectionKnowledgeItems).Find(ctx, bson.M{"guildId": guildID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []models.KnowledgeItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge items: %w", err)
	}
	return items, nil
}

// GetByID returns one item scoped to a guild, or (nil, nil) if absent.
func (k *KnowledgeItemStore) GetByID(ctx context.Context, guildID, id string) (*models.KnowledgeItem, error) {
	var item models.KnowledgeItem
	err := k.db.Collection(CollectionKnowledgeItems).FindOne(ctx, bson.M{"_id": id, "guildId": guildID}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge item: %w", err)
	}
	return &item, nil
}

// GetByHash looks up an item by content hash for deduplication.
func (k *KnowledgeItemStore) GetByHash(ctx context.Context, guildID, contentHash string) (*models.KnowledgeItem, error) {
	var item models.KnowledgeItem
	err := k.db.Collection(CollectionKnowledgeItems).FindOne(ctx, bson.M{"guildId": guildID, "contentHash": contentHash}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge item by hash: %w", err)
	}
	return &item, nil
}

// GetByURL looks up a URL item for refresh, or (nil, nil) if absent.
func (k *KnowledgeItemStore) GetByURL(ctx context.Context, guildID, sourceURL string) (*models.KnowledgeItem, error) {
	var item models.KnowledgeItem
	err := k.db.Collection(CollectionKnowledgeItems).FindOne(ctx, bson.M{
		"guildId":   guildID,
		"kind":      models.KnowledgeItemURL,
		"sourceUrl": sourceURL,
	}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge item by URL: %w", err)
	}
	return &item, nil
}

// Update replaces an item's file handles and hash after a refresh.
func (k *KnowledgeItemStore) Update(ctx context.Context, item *models.KnowledgeItem) error {
	item.UpdatedAt = time.Now()
	filter := bson.M{"_id": item.ID, "guildId": item.GuildID}
	result, err := k.db.Collection(CollectionKnowledgeItems).ReplaceOne(ctx, filter, item)
	if err != nil {
		return fmt.Errorf("failed to update knowledge item: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("knowledge item %s not found", item.ID)
	}
	return nil
}

// Delete removes an item record.
func (k *KnowledgeItemStore) Delete(ctx context.Context, guildID, id string) error {
	result, err := k.db.Collection(CollectionKnowledgeItems).DeleteOne(ctx, bson.M{"_id": id, "guildId": guildID})
	if err != nil {
		return fmt.Errorf("failed to delete knowledge item: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("knowledge item %s not found", id)
	}
	return nil
}
