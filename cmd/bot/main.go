package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"epicgpt/internal/ai"
	"epicgpt/internal/config"
	"epicgpt/internal/database"
	"epicgpt/internal/discord"
	"epicgpt/internal/health"
	"epicgpt/internal/jobs"
	"epicgpt/internal/kb"
	"epicgpt/internal/logging"
	"epicgpt/internal/metrics"
	"epicgpt/internal/ratelimit"
	"epicgpt/internal/tools"
	"epicgpt/internal/websearch"
)

func main() {
	logging.Init()

	if err := godotenv.Load(); err != nil {
		log.Println("📝 No .env file found, using environment variables")
	}

	cfg := config.Load()
	if cfg.DiscordToken == "" {
		log.Fatal("❌ DISCORD_TOKEN is required")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Fatal("❌ OPENAI_API_KEY is required")
	}
	if cfg.MongoURI == "" {
		log.Fatal("❌ MONGODB_URI is required")
	}

	log.Printf("🚀 Starting %s...", config.BotName)
	log.Printf("📌 Environment: %s", cfg.Environment)

	ctx := context.Background()

	mongoDB, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	if err := mongoDB.Initialize(ctx); err != nil {
		log.Fatalf("❌ Failed to initialize MongoDB: %v", err)
	}

	sessions := database.NewSessionStore(mongoDB)
	guilds := database.NewGuildConfigStore(mongoDB)
	items := database.NewKnowledgeItemStore(mongoDB)
	requests := database.NewRequestLogStore(mongoDB)

	// Redis is optional; without it price lookups just skip caching.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("⚠️ Invalid REDIS_URL, price caching disabled: %v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOpts)
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("⚠️ Redis unreachable, price caching disabled: %v", pingErr)
				redisClient = nil
			} else {
				log.Println("✅ Connected to Redis")
			}
			cancel()
		}
	}

	aiClient := ai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature)
	vectorClient := kb.NewVectorStoreClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)
	fetcher := kb.NewFetcher()
	ingestor := kb.NewIngestor(vectorClient, guilds, items, fetcher)
	retriever := kb.NewRetriever(vectorClient, items)

	var webSearcher ai.WebSearcher
	if cfg.SerperAPIKey != "" {
		webSearcher = websearch.NewSerperClient(cfg.SerperAPIKey)
	} else {
		log.Println("⚠️ SERPER_API_KEY not set, web search disabled")
	}

	solana := tools.NewSolanaClient(cfg.SolanaRPCURL)
	birdeye := tools.NewBirdeyeClient(cfg.BirdeyeAPIKey, redisClient)
	toolRouter := tools.NewRouter(solana, birdeye)

	orchestrator := ai.NewOrchestrator(aiClient, sessions, guilds, retriever, webSearcher, toolRouter)
	limiter := ratelimit.New(config.RateLimits)
	botMetrics := metrics.Init()

	bot, err := discord.New(discord.Deps{
		Config:       cfg,
		Orchestrator: orchestrator,
		Ingestor:     ingestor,
		Items:        items,
		Requests:     requests,
		Limiter:      limiter,
		Metrics:      botMetrics,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create Discord bot: %v", err)
	}

	scheduler, err := jobs.NewScheduler(sessions, limiter)
	if err != nil {
		log.Fatalf("❌ Failed to create scheduler: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("❌ Failed to start scheduler: %v", err)
	}

	healthServer := health.NewServer(mongoDB, cfg.HealthPort)
	go func() {
		log.Printf("🩺 Health/metrics sidecar listening on :%s", cfg.HealthPort)
		if err := healthServer.Listen(); err != nil {
			log.Printf("⚠️ Health server stopped: %v", err)
		}
	}()

	if err := bot.Start(); err != nil {
		log.Fatalf("❌ Failed to start Discord bot: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Printf("\n%s received. Shutting down gracefully...", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := bot.Stop(); err != nil {
		log.Printf("⚠️ Error closing Discord session: %v", err)
	}
	if err := scheduler.Stop(); err != nil {
		log.Printf("⚠️ Error stopping scheduler: %v", err)
	}
	if err := healthServer.Shutdown(); err != nil {
		log.Printf("⚠️ Error stopping health server: %v", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("⚠️ Error closing Redis: %v", err)
		}
	}
	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Printf("⚠️ Error closing MongoDB: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
