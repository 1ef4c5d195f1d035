package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmehdipour/kuritterweight/internal/config"
	"github.com/jmehdipour/kuritterweight/internal/dedup"
	"github.com/jmehdipour/kuritterweight/internal/http/middleware"
	"github.com/jmehdipour/kuritterweight/internal/model"
	"github.com/jmehdipour/kuritterweight/internal/repository"
	"github.com/jmehdipour/kuritterweight/internal/service/weight"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventHandler processes one webhook event.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev model.InboundEvent) (weight.Outcome, error)
}

type Deps struct {
	Events   EventHandler
	Dedup    *dedup.RedisStore               // nil disables dedup
	History  repository.CHWeightsRepository // nil disables the reports API
	Redis    *redis.Client                   // rate limiting; nil disables it
	Registry *prometheus.Registry
	Log      *zap.Logger
}

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

func NewServer(cfg config.Config, deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(log.INFO)

	e.Use(echoMid.BodyLimit("1M"))
	e.Use(echoMid.RequestIDWithConfig(echoMid.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "kw",
		Registerer: deps.Registry,
	}))
	e.Use(echoMid.Recover(), echoMid.Logger())

	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Registry}))

	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "Hello!") })
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	e.POST("/api/webhook", webhookHandler(cfg.Line, deps.Events, deps.Dedup, deps.Log))

	if deps.History != nil && cfg.HTTP.AdminAPIKey != "" {
		authMW := middleware.APIKeyMiddleware(cfg.HTTP.AdminAPIKey)
		rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
			Redis:          deps.Redis,
			RPS:            cfg.RateLimit.RPS,
			KeyPrefix:      "rl:client:",
			Window:         time.Second,
			RetryAfterHint: true,
		})

		v1 := e.Group("/v1", authMW, rlMW)
		v1.GET("/weights/:userId", listWeightsHandler(deps.History))
	}

	return &Server{e: e, log: deps.Log}
}

func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
