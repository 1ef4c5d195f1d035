package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/kuritterweight/internal/model"
	"github.com/jmehdipour/kuritterweight/internal/util"
	"github.com/jmoiron/sqlx"
)

// WeightsRepository is the append-only store of weight records.
type WeightsRepository interface {
	// Latest returns the most recent record for userID, or nil when there is none.
	Latest(ctx context.Context, userID string) (*model.WeightRecord, error)
	// Save appends a record stamped with the current time.
	Save(ctx context.Context, userID string, weight float64, previous *float64) (model.WeightRecord, error)
}

type WeightsRepositoryImpl struct {
	db     *sqlx.DB
	outbox OutboxRepository // optional
	topic  string
	now    func() time.Time
}

// NewWeightsRepository constructs a sqlx-backed repository. When outbox is non-nil every
// Save also writes a WeightRecorded event for topic in the same transaction.
func NewWeightsRepository(db *sqlx.DB, outbox OutboxRepository, topic string) *WeightsRepositoryImpl {
	return &WeightsRepositoryImpl{db: db, outbox: outbox, topic: topic, now: time.Now}
}

var _ WeightsRepository = (*WeightsRepositoryImpl)(nil)

func (r *WeightsRepositoryImpl) Latest(ctx context.Context, userID string) (*model.WeightRecord, error) {
	var rec model.WeightRecord
	err := r.db.GetContext(ctx, &rec, r.db.Rebind(`
		SELECT id, user_id, weight, recorded_at
		  FROM weights
		 WHERE user_id = ?
		 ORDER BY recorded_at DESC
		 LIMIT 1
	`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.RecordedAt = rec.RecordedAt.UTC()
	return &rec, nil
}

func (r *WeightsRepositoryImpl) Save(ctx context.Context, userID string, weight float64, previous *float64) (model.WeightRecord, error) {
	return r.SaveAt(ctx, userID, weight, previous, r.now())
}

// SaveAt appends a record stamped with at, truncated to milliseconds in UTC.
// A second record for one user at the same millisecond replaces the first.
func (r *WeightsRepositoryImpl) SaveAt(ctx context.Context, userID string, weight float64, previous *float64, at time.Time) (model.WeightRecord, error) {
	now := at.UTC().Truncate(time.Millisecond)
	rec := model.WeightRecord{
		ID:         util.NewID(now),
		UserID:     userID,
		Weight:     weight,
		RecordedAt: now,
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.WeightRecord{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, r.db.Rebind(upsertWeight(r.db.DriverName())), rec.ID, rec.UserID, rec.Weight, rec.RecordedAt); err != nil {
		return model.WeightRecord{}, fmt.Errorf("insert weight: %w", err)
	}

	if r.outbox != nil {
		payload, err := json.Marshal(model.WeightRecorded{
			ID:         rec.ID,
			UserID:     rec.UserID,
			Weight:     rec.Weight,
			Previous:   previous,
			RecordedAt: rec.RecordedAt,
		})
		if err != nil {
			return model.WeightRecord{}, fmt.Errorf("marshal envelope: %w", err)
		}

		if err := r.outbox.Insert(ctx, tx, model.OutboxEvent{
			ID:          util.NewID(now),
			Aggregate:   model.AggregateWeight,
			AggregateID: rec.ID,
			Topic:       r.topic,
			Payload:     payload,
			CreatedAt:   now,
		}); err != nil {
			return model.WeightRecord{}, fmt.Errorf("insert outbox: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.WeightRecord{}, err
	}
	return rec, nil
}

func upsertWeight(driver string) string {
	const insert = `
		INSERT INTO weights (id, user_id, weight, recorded_at)
		VALUES (?, ?, ?, ?)
	`
	if driver == "mysql" {
		return insert + `ON DUPLICATE KEY UPDATE id = VALUES(id), weight = VALUES(weight)`
	}
	return insert + `ON CONFLICT (user_id, recorded_at) DO UPDATE SET id = excluded.id, weight = excluded.weight`
}
