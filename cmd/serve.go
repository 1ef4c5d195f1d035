package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/kuritterweight/internal/config"
	"github.com/jmehdipour/kuritterweight/internal/db"
	"github.com/jmehdipour/kuritterweight/internal/dedup"
	httpSrv "github.com/jmehdipour/kuritterweight/internal/http"
	"github.com/jmehdipour/kuritterweight/internal/line"
	"github.com/jmehdipour/kuritterweight/internal/logger"
	"github.com/jmehdipour/kuritterweight/internal/metrics"
	"github.com/jmehdipour/kuritterweight/internal/repository"
	"github.com/jmehdipour/kuritterweight/internal/service/weight"
	"github.com/jmehdipour/kuritterweight/internal/social"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server (webhook + reports)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger.Init(cfg.Log.Level)
		defer logger.Sync()
		log := logger.Log

		sqlDB, err := db.NewSQLConnection(cfg.Store.Driver, cfg.Store.DSN, db.SQLOpts{
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
			PingTimeout:     cfg.Store.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("%s connect: %w", cfg.Store.Driver, err)
		}
		defer sqlDB.Close()

		redisClient, err := db.NewRedisClient(db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		if redisClient != nil {
			defer func() { _ = redisClient.Close() }()
		} else {
			log.Warn("redis not configured: webhook dedup and rate limiting disabled")
		}

		var history repository.CHWeightsRepository
		if cfg.ClickHouse.DSN != "" {
			chDB, err := db.NewClickHouseConnection(cfg.ClickHouse.DSN, db.SQLOpts{
				MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
				MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
				ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
				ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
				PingTimeout:     cfg.ClickHouse.PingTimeout,
			})
			if err != nil {
				return fmt.Errorf("clickhouse connect: %w", err)
			}
			defer func() { _ = chDB.Close() }()
			history = repository.NewCHWeightsRepository(chDB)
		}

		// outbox rows are only useful when a relay can ship them
		var outbox repository.OutboxRepository
		if len(cfg.Kafka.Brokers) > 0 {
			outbox = repository.NewOutboxRepository(sqlDB)
		}
		store := repository.NewWeightsRepository(sqlDB, outbox, cfg.Kafka.Topic)

		var poster weight.Poster = social.Disabled{}
		if cfg.Twitter.Enabled() {
			poster = social.NewXPoster(social.Credentials{
				APIKey:            cfg.Twitter.APIKey,
				APIKeySecret:      cfg.Twitter.APIKeySecret,
				AccessToken:       cfg.Twitter.AccessToken,
				AccessTokenSecret: cfg.Twitter.AccessTokenSecret,
			}, social.XOptions{
				BaseURL:       cfg.Twitter.BaseURL,
				TimeoutMs:     cfg.Twitter.TimeoutMs,
				FailThreshold: cfg.Twitter.Breaker.FailThreshold,
				OpenForMs:     cfg.Twitter.Breaker.OpenForMs,
			})
		} else {
			log.Warn("x credentials incomplete: posting disabled")
		}

		replier := line.NewClient(cfg.Line.BaseURL, cfg.Line.ChannelAccessToken, cfg.Line.TimeoutMs)
		svc := weight.New(store, poster, replier, log.Named("weight"))

		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics.MustRegister(registry)

		server := httpSrv.NewServer(cfg, httpSrv.Deps{
			Events:   svc,
			Dedup:    dedup.New(redisClient, cfg.Redis.DedupTTL),
			History:  history,
			Redis:    redisClient,
			Registry: registry,
			Log:      log.Named("http"),
		})

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		return serveUntilSignal(server, cfg.HTTP.Addr, sigCh, log)
	},
}

type httpServer interface {
	Start(addr string) error
	Shutdown(ctx context.Context) error
}

// serveUntilSignal runs server until a signal arrives or the listener fails.
// A listener failure is returned as the error.
func serveUntilSignal(server httpServer, addr string, sigCh <-chan os.Signal, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("signal received, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server exited", zap.Error(err))
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)

	return runErr
}
