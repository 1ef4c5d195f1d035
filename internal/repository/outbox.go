package repository

import (
	"context"

	"github.com/jmehdipour/kuritterweight/internal/model"
	"github.com/jmoiron/sqlx"
)

// OutboxRepository defines persistence methods for the outbox table.
type OutboxRepository interface {
	// Insert writes a single outbox event. If tx is nil, it will open/commit
	// an internal transaction; otherwise it uses the given tx.
	Insert(ctx context.Context, tx *sqlx.Tx, ev model.OutboxEvent) error
	// Pending returns up to limit events, oldest first.
	Pending(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	// Delete removes published events.
	Delete(ctx context.Context, ids []string) error
	// MarkAttempt bumps the attempt counter of events that failed to publish.
	MarkAttempt(ctx context.Context, ids []string) error
}

// OutboxRepositoryImpl is a sqlx-backed implementation.
type OutboxRepositoryImpl struct {
	db *sqlx.DB
}

// NewOutboxRepository constructs an OutboxRepositoryImpl.
func NewOutboxRepository(db *sqlx.DB) *OutboxRepositoryImpl {
	return &OutboxRepositoryImpl{db: db}
}

var _ OutboxRepository = (*OutboxRepositoryImpl)(nil)

// withTx runs fn in the provided tx, or starts a new transaction when tx is nil.
func (r *OutboxRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}

	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}

	return t.Commit()
}

// Insert adds an event row to outbox. The relay worker publishes it to Kafka
// based on the `topic` column.
func (r *OutboxRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, ev model.OutboxEvent) error {
	q := r.db.Rebind(`
		INSERT INTO outbox (id, aggregate, aggregate_id, topic, payload, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`)
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, ev.ID, ev.Aggregate, ev.AggregateID, ev.Topic, ev.Payload, ev.CreatedAt)

		return err
	})
}

func (r *OutboxRepositoryImpl) Pending(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []model.OutboxEvent
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, aggregate, aggregate_id, topic, payload, attempts, created_at
		  FROM outbox
		 ORDER BY id
		 LIMIT ?
	`), limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *OutboxRepositoryImpl) Delete(ctx context.Context, ids []string) error {
	return r.execIn(ctx, `DELETE FROM outbox WHERE id IN (?)`, ids)
}

func (r *OutboxRepositoryImpl) MarkAttempt(ctx context.Context, ids []string) error {
	return r.execIn(ctx, `UPDATE outbox SET attempts = attempts + 1 WHERE id IN (?)`, ids)
}

func (r *OutboxRepositoryImpl) execIn(ctx context.Context, base string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(base, ids)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	return err
}
