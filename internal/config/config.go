package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Discord
	DiscordToken string
	DiscordAppID string
	AdminRoleID  string // optional; "Manage Server" permission is the fallback guard

	// OpenAI-compatible completion API
	OpenAIAPIKey  string
	OpenAIBaseURL string
	Model         string // main chat model for completions
	MaxTokens     int
	Temperature   float64

	// Persistence
	MongoURI string
	RedisURL string // optional; price caching degrades to no-op when absent

	// External APIs
	SerperAPIKey  string
	SolanaRPCURL  string
	BirdeyeAPIKey string

	// Health/metrics sidecar
	HealthPort string

	Environment string // "development" or "production"
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		DiscordToken: getEnv("DISCORD_TOKEN", ""),
		DiscordAppID: getEnv("DISCORD_CLIENT_ID", ""),
		AdminRoleID:  getEnv("ADMIN_ROLE_ID", ""),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: strings.TrimSuffix(getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
		Model:         getEnv("OPENAI_MODEL", "gpt-5-mini"),
		MaxTokens:     getIntEnv("OPENAI_MAX_TOKENS", 2048),
		Temperature:   getFloatEnv("OPENAI_TEMPERATURE", 1.0),

		MongoURI: getEnv("MONGODB_URI", ""),
		RedisURL: getEnv("REDIS_URL", ""),

		SerperAPIKey:  getEnv("SERPER_API_KEY", ""),
		SolanaRPCURL:  getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		BirdeyeAPIKey: getEnv("BIRDEYE_API_KEY", ""),

		HealthPort: getEnv("HEALTH_PORT", "3001"),

		Environment: getEnv("ENVIRONMENT", "development"),
	}
}

// Session settings
const (
	SessionTTL         = 1 * time.Hour
	SessionMaxMessages = 10 // last N turns kept in context and at rest
)

// RateLimitClass identifies an independent rate-limit bucket family.
type RateLimitClass string

const (
	RateLimitChat   RateLimitClass = "chat"
	RateLimitSearch RateLimitClass = "search"
	RateLimitTools  RateLimitClass = "tools"
)

// RateLimitRule is the max/window pair for one operation class.
type RateLimitRule struct {
	MaxRequests int
	Window      time.Duration
}

// RateLimits holds the per-class rules (lenient settings).
var RateLimits = map[RateLimitClass]RateLimitRule{
	RateLimitChat:   {MaxRequests: 10, Window: 10 * time.Second},
	RateLimitSearch: {MaxRequests: 10, Window: 10 * time.Second},
	RateLimitTools:  {MaxRequests: 30, Window: 60 * time.Second},
}

// Web search settings
const WebSearchMaxResults = 5

// Discord limits
const (
	DiscordMaxMessageLength   = 2000
	DiscordMaxEmbedDescLength = 4096
)

// Knowledge base settings
const (
	KBChunkSize        = 1000 // tokens per chunk for document splitting
	KBChunkOverlap     = 200  // token overlap between chunks
	KBMaxFileSizeMB    = 25
	KBMinContentLength = 100 // minimum chars before an extraction counts as usable
)

// Bot branding
const (
	BotName        = "EpicGPT"
	BotEmbedColor  = 0x7c3aed
	BotEmbedFooter = "Powered by Epicentral Labs"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
