package repository

import (
	"context"
	"fmt"

	"github.com/jmehdipour/kuritterweight/internal/model"
	"github.com/jmoiron/sqlx"
)

// CHWeightsRepository stores and lists archived weight history in ClickHouse.
type CHWeightsRepository interface {
	InsertBatch(ctx context.Context, rows []model.WeightRecorded) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.WeightRecorded, error)
}

type chWeightsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHWeightsRepository(ch *sqlx.DB) CHWeightsRepository {
	return &chWeightsRepository{ch: ch}
}

// InsertBatch sends rows as one ClickHouse block (prepare + exec per row inside a tx).
func (r *chWeightsRepository) InsertBatch(ctx context.Context, rows []model.WeightRecorded) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.ch.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO weights_history (id, user_id, weight, previous, recorded_at)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.ID, row.UserID, row.Weight, row.Previous, row.RecordedAt.UTC()); err != nil {
			return fmt.Errorf("append %s: %w", row.ID, err)
		}
	}

	return tx.Commit()
}

func (r *chWeightsRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.WeightRecorded, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT id, user_id, weight, previous, recorded_at
		FROM weights_history FINAL
		WHERE user_id = ?
		ORDER BY recorded_at DESC
		LIMIT ? OFFSET ?
	`

	var rows []model.WeightRecorded
	if err := r.ch.SelectContext(ctx, &rows, q, userID, limit, offset); err != nil {
		return nil, err
	}
	return rows, nil
}
