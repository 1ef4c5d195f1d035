package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/kuritterweight/internal/config"
	"github.com/jmehdipour/kuritterweight/internal/db"
	"github.com/jmehdipour/kuritterweight/internal/model"
	"github.com/jmehdipour/kuritterweight/internal/repository"
	"github.com/spf13/cobra"
)

var (
	seedUser string
	seedDays int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the weight store with a demo user's history",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if seedDays <= 0 {
			return fmt.Errorf("--days must be positive")
		}

		sqlDB, err := db.NewSQLConnection(cfg.Store.Driver, cfg.Store.DSN, db.SQLOpts{
			PingTimeout: cfg.Store.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("%s connect: %w", cfg.Store.Driver, err)
		}
		defer sqlDB.Close()

		var outbox repository.OutboxRepository
		if len(cfg.Kafka.Brokers) > 0 {
			outbox = repository.NewOutboxRepository(sqlDB)
		}
		repo := repository.NewWeightsRepository(sqlDB, outbox, cfg.Kafka.Topic)

		fmt.Printf(">> Seeding %d days for %s...\n", seedDays, seedUser)

		return seedWeights(context.Background(), repo, seedUser, seedDays, time.Now())
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedUser, "user", "Udemo0000000000000000000000000000", "user id to seed")
	seedCmd.Flags().IntVar(&seedDays, "days", 14, "number of daily weigh-ins to create")
}

type weightSaver interface {
	SaveAt(ctx context.Context, userID string, weight float64, previous *float64, at time.Time) (model.WeightRecord, error)
}

// seedWeights writes one deterministic weigh-in per morning ending at now.
func seedWeights(ctx context.Context, repo weightSaver, userID string, days int, now time.Time) error {
	start := time.Date(now.Year(), now.Month(), now.Day(), 7, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	var previous *float64
	for i := 0; i < days; i++ {
		// drifts down ~0.2kg/day with a small wobble, one decimal place
		w := float64(int((72.0-0.2*float64(i)+0.3*float64(i%3-1))*10+0.5)) / 10

		rec, err := repo.SaveAt(ctx, userID, w, previous, start.AddDate(0, 0, i))
		if err != nil {
			return fmt.Errorf("seed day %d: %w", i, err)
		}
		fmt.Printf("   %s %.1fkg\n", rec.Timestamp(), rec.Weight)

		previous = &rec.Weight
	}

	fmt.Println(">> Seed completed")
	return nil
}
