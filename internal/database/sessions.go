package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"epicgpt/internal/config"
	"epicgpt/internal/models"
)

// SessionStore persists bounded conversation sessions keyed by
// (guildId, userId, channelId).
type SessionStore struct {
	db *MongoDB
}

// NewSessionStore creates a session store backed by MongoDB
func NewSessionStore(db *MongoDB) *SessionStore {
	return &SessionStore{db: db}
}

// Get loads the session for a key. A missing or expired session returns
// (nil, nil); an expired document is deleted on the way out.
func (s *SessionStore) Get(ctx context.Context, guildID, userID, channelID string) (*models.Session, error) {
	filter := bson.M{"guildId": guildID, "userId": userID, "channelId": channelID}

	var session models.Session
	err := s.db.Collection(CollectionSessions).FindOne(ctx, filter).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.Expired(time.Now()) {
		if _, delErr := s.db.Collection(CollectionSessions).DeleteOne(ctx, filter); delErr != nil {
			log.Printf("⚠️  [SESSION] Failed to delete expired session: %v", delErr)
		}
		return nil, nil
	}

	return &session, nil
}

// Save replaces the session wholesale: messages are truncated to the most
// recent SessionMaxMessages and the expiry is reset.
func (s *SessionStore) Save(ctx context.Context, guildID, userID, channelID string, messages []models.SessionMessage) error {
	messages = models.TrimToWindow(messages, config.SessionMaxMessages)

	now := time.Now()
	filter := bson.M{"guildId": guildID, "userId": userID, "channelId": channelID}
	update := bson.M{
		"$set": bson.M{
			"guildId":   guildID,
			"userId":    userID,
			"channelId": channelID,
			"messages":  messages,
			"expiresAt": now.Add(config.SessionTTL),
			"updatedAt": now,
		},
	}

	_, err := s.db.Collection(CollectionSessions).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear removes the session for a key.
func (s *SessionStore) Clear(ctx context.Context, guildID, userID, channelID string) error {
	filter := bson.M{"guildId": guildID, "userId": userID, "channelId": channelID}
	_, err := s.db.Collection(CollectionSessions).DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// CleanupExpired deletes all sessions past their expiry and returns the count.
// The Mongo TTL index is the backstop; this gives prompt cleanup and logging.
func (s *SessionStore) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.db.Collection(CollectionSessions).DeleteMany(ctx, bson.M{
		"expiresAt": bson.M{"$lt": time.Now()},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}
	return result.DeletedCount, nil
}
