package health

import (
	"context"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"

	"epicgpt/internal/database"
)

// Server is the HTTP sidecar exposing /health and /metrics next to the
// gateway bot. The Prometheus middleware shares the default registry, so the
// bot's own counters are exported here too.
type Server struct {
	app       *fiber.App
	db        *database.MongoDB
	port      string
	startedAt time.Time
}

// NewServer builds the sidecar app and its routes.
func NewServer(db *database.MongoDB, port string) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	prometheus := fiberprometheus.New("epicgpt")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	server := &Server{
		app:       app,
		db:        db,
		port:      port,
		startedAt: time.Now(),
	}
	app.Get("/health", server.handleHealth)

	return server
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	mongoStatus := "up"
	status := fiber.StatusOK
	if err := s.db.Ping(ctx); err != nil {
		mongoStatus = "down"
		status = fiber.StatusServiceUnavailable
	}

	overall := "ok"
	if status != fiber.StatusOK {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":         overall,
		"mongodb":        mongoStatus,
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
	})
}

// Listen blocks serving the sidecar until Shutdown.
func (s *Server) Listen() error {
	return s.app.Listen(":" + s.port)
}

// Shutdown gracefully stops the sidecar.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
