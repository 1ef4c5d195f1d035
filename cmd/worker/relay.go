package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmehdipour/kuritterweight/internal/config"
	"github.com/jmehdipour/kuritterweight/internal/db"
	"github.com/jmehdipour/kuritterweight/internal/kafka"
	"github.com/jmehdipour/kuritterweight/internal/logger"
	"github.com/jmehdipour/kuritterweight/internal/metrics"
	"github.com/jmehdipour/kuritterweight/internal/repository"
	"github.com/jmehdipour/kuritterweight/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Publish outbox rows to Kafka",
	RunE:  runRelay,
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers: required for the relay")
	}

	logger.Init(cfg.Log.Level)
	defer logger.Sync()
	log := logger.Log.Named("relay")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	dbx, err := db.NewSQLConnection(cfg.Store.Driver, cfg.Store.DSN, db.SQLOpts{
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
		PingTimeout:     cfg.Store.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("%s connect: %w", cfg.Store.Driver, err)
	}
	defer dbx.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	r := worker.NewRelay(repository.NewOutboxRepository(dbx), producer, log)
	if cfg.Relay.BatchSize > 0 {
		r.BatchSize = cfg.Relay.BatchSize
	}
	if cfg.Relay.Interval > 0 {
		r.Interval = cfg.Relay.Interval
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveMetrics(ctx, cfg.HTTP.MetricsAddr, log)

	log.Info("relay started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.Int("batch_size", r.BatchSize),
		zap.Duration("interval", r.Interval),
	)

	return r.Run(ctx)
}
