package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hackerloum/secureview/config"
	"github.com/hackerloum/secureview/internal/app/service"
	inthttp "github.com/hackerloum/secureview/internal/http/handler"
	"github.com/hackerloum/secureview/internal/http/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies bundles infrastructure dependencies required by the HTTP server.
type Dependencies struct {
	Logger        *zap.Logger
	Postgres      *pgxpool.Pool
	Redis         *redis.Client
	NATS          *nats.Conn
	JetStream     nats.JetStreamContext
	Contents      service.ContentService
	Access        service.AccessService
	Quota         service.QuotaService
	ViewPublisher *service.ViewPublisher
	App           config.AppConfig
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 32 * 1024 * 1024,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())
	if s.deps.Redis != nil {
		s.app.Use(middleware.RateLimit(s.deps.Redis, middleware.DefaultRateLimitConfig(), s.deps.Logger))
	}

	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:         s.deps.Logger,
		Contents:       s.deps.Contents,
		Access:         s.deps.Access,
		Quota:          s.deps.Quota,
		ViewPublisher:  s.deps.ViewPublisher,
		BaseURL:        s.deps.App.BaseURL,
		SupportContact: s.deps.App.SupportContact,
	})
	apiHandler.Register(s.app)

	viewHandler := inthttp.NewViewHandler(inthttp.ViewDeps{
		Logger:               s.deps.Logger,
		Access:               s.deps.Access,
		ViewPublisher:        s.deps.ViewPublisher,
		Secret:               []byte(s.deps.App.MediaTokenSecret),
		TokenTTL:             time.Duration(s.deps.App.MediaTokenTTLSeconds) * time.Second,
		SessionSeconds:       s.deps.App.SessionDurationSeconds,
		MaxViews:             s.deps.App.MaxViewsPerSession,
		ToastDurationMs:      s.deps.App.ToastDurationMs,
		ScreenshotCooldownMs: s.deps.App.ScreenshotCooldownMs,
		ScreenshotDebounceMs: s.deps.App.ScreenshotDebounceMs,
		IdleTimeoutMs:        s.deps.App.IdleTimeoutMs,
		SupportContact:       s.deps.App.SupportContact,
	})
	viewHandler.Register(s.app)
}
