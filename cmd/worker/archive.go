package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

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

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Copy recorded weights from Kafka into ClickHouse",
	RunE:  runArchive,
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Kafka.Brokers) == 0 || cfg.ClickHouse.DSN == "" {
		return fmt.Errorf("kafka.brokers and clickhouse.dsn: required for the archiver")
	}

	logger.Init(cfg.Log.Level)
	defer logger.Sync()
	log := logger.Log.Named("archive")

	metrics.MustRegister(prometheus.DefaultRegisterer)

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
	defer chDB.Close()

	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "kw-archiver"
	}

	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.Topic,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	a := worker.NewArchiver(consumer, repository.NewCHWeightsRepository(chDB), log)
	if cfg.Archive.BatchSize > 0 {
		a.BatchSize = cfg.Archive.BatchSize
	}
	if cfg.Archive.BatchWait > 0 {
		a.BatchWait = cfg.Archive.BatchWait
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveMetrics(ctx, cfg.HTTP.MetricsAddr, log)

	log.Info("archiver started",
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", groupID),
		zap.Int("batch_size", a.BatchSize),
		zap.Duration("batch_wait", a.BatchWait),
	)

	return a.Run(ctx)
}
