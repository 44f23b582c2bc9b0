package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionMessage is a single conversation turn.
// Role is "user" or "assistant"; content is immutable once created.
type SessionMessage struct {
	Role    string `bson:"role" json:"role"`
	Content string `bson:"content" json:"content"`
}

// Session is the bounded, expiring conversational memory for one
// (guild, user, channel) triple. Messages are in chronological order and
// truncated to the most recent SessionMaxMessages on every save.
type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GuildID   string             `bson:"guildId" json:"guild_id"`
	UserID    string             `bson:"userId" json:"user_id"`
	ChannelID string             `bson:"channelId" json:"channel_id"`
	Messages  []SessionMessage   `bson:"messages" json:"messages"`
	ExpiresAt time.Time          `bson:"expiresAt" json:"expires_at"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updated_at"`
}

// Expired reports whether the session's TTL has passed.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// TrimToWindow returns the most recent max messages. Both the persisted
// session and the context window sent to the model are bounded by this.
func TrimToWindow(messages []SessionMessage, max int) []SessionMessage {
	if len(messages) > max {
		return messages[len(messages)-max:]
	}
	return messages
}
