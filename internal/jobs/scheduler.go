package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"epicgpt/internal/database"
	"epicgpt/internal/ratelimit"
)

const (
	sessionCleanupInterval = 5 * time.Minute
	rateLimitSweepInterval = 1 * time.Minute
)

// Scheduler runs the bot's periodic maintenance jobs: expired session cleanup
// and rate limiter key sweeping.
type Scheduler struct {
	scheduler gocron.Scheduler
	sessions  *database.SessionStore
	limiter   *ratelimit.Limiter
}

// NewScheduler creates the maintenance scheduler.
func NewScheduler(sessions *database.SessionStore, limiter *ratelimit.Limiter) (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: scheduler,
		sessions:  sessions,
		limiter:   limiter,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	log.Println("⏰ Starting maintenance scheduler...")

	_, err := s.scheduler.NewJob(
		gocron.DurationJob(sessionCleanupInterval),
		gocron.NewTask(s.cleanupSessions),
	)
	if err != nil {
		return fmt.Errorf("failed to register session cleanup job: %w", err)
	}

	_, err = s.scheduler.NewJob(
		gocron.DurationJob(rateLimitSweepInterval),
		gocron.NewTask(s.sweepRateLimits),
	)
	if err != nil {
		return fmt.Errorf("failed to register rate limit sweep job: %w", err)
	}

	s.scheduler.Start()
	log.Println("✅ Maintenance scheduler started")
	return nil
}

// Stop shuts down the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() error {
	log.Println("⏹️ Stopping maintenance scheduler...")
	return s.scheduler.Shutdown()
}

func (s *Scheduler) cleanupSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := s.sessions.CleanupExpired(ctx)
	if err != nil {
		log.Printf("⚠️ [SESSION-CLEANUP] Failed to delete expired sessions: %v", err)
		return
	}
	if count > 0 {
		log.Printf("🧹 [SESSION-CLEANUP] Deleted %d expired session(s)", count)
	}
}

func (s *Scheduler) sweepRateLimits() {
	removed := s.limiter.Sweep()
	if removed > 0 {
		log.Printf("🧹 [RATELIMIT] Swept %d idle key(s), %d still tracked", removed, s.limiter.Len())
	}
}
