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

// GuildConfigStore manages per-guild settings.
type GuildConfigStore struct {
	db *MongoDB
}

// NewGuildConfigStore creates a guild config store backed by MongoDB
func NewGuildConfigStore(db *MongoDB) *GuildConfigStore {
	return &GuildConfigStore{db: db}
}

// GetOrCreate returns the guild's config, inserting a fresh one on first use.
func (g *GuildConfigStore) GetOrCreate(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	filter := bson.M{"guildId": guildID}
	now := time.Now()
	update := bson.M{
		"$setOnInsert": bson.M{
			"guildId":   guildID,
			"createdAt": now,
		},
		"$set": bson.M{
			"updatedAt": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var cfg models.GuildConfig
	err := g.db.Collection(CollectionGuildConfigs).FindOneAndUpdate(ctx, filter, update, opts).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create guild config: %w", err)
	}
	return &cfg, nil
}

// Get returns the guild's config or (nil, nil) if none exists.
func (g *GuildConfigStore) Get(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	var cfg models.GuildConfig
	err := g.db.Collection(CollectionGuildConfigs).FindOne(ctx, bson.M{"guildId": guildID}).Decode(&cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guild config: %w", err)
	}
	return &cfg, nil
}

// SetVectorStoreID records the guild's vector store handle after creation.
func (g *GuildConfigStore) SetVectorStoreID(ctx context.Context, guildID, vectorStoreID string) error {
	filter := bson.M{"guildId": guildID}
	update := bson.M{
		"$set": bson.M{
			"vectorStoreId": vectorStoreID,
			"updatedAt":     time.Now(),
		},
	}
	_, err := g.db.Collection(CollectionGuildConfigs).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to set vector store ID: %w", err)
	}
	return nil
}
