package worker

import (
	"context"
	"time"

	"github.com/jmehdipour/kuritterweight/internal/kafka"
	"github.com/jmehdipour/kuritterweight/internal/metrics"
	"github.com/jmehdipour/kuritterweight/internal/model"
	"go.uber.org/zap"
)

// Outbox is the part of the outbox repository the relay needs.
type Outbox interface {
	Pending(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	Delete(ctx context.Context, ids []string) error
	MarkAttempt(ctx context.Context, ids []string) error
}

type Publisher interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// Relay moves committed outbox rows to Kafka. Rows are deleted only after the
// broker acknowledged them, so a crash in between republishes (at-least-once).
type Relay struct {
	Outbox    Outbox
	Publisher Publisher
	BatchSize int
	Interval  time.Duration
	Log       *zap.Logger
}

func NewRelay(outbox Outbox, pub Publisher, log *zap.Logger) *Relay {
	return &Relay{
		Outbox:    outbox,
		Publisher: pub,
		BatchSize: 100,
		Interval:  time.Second,
		Log:       log,
	}
}

// Run polls the outbox every Interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if r.BatchSize <= 0 {
		r.BatchSize = 100
	}
	if r.Interval <= 0 {
		r.Interval = time.Second
	}
	if r.Log == nil {
		r.Log = zap.NewNop()
	}

	tick := time.NewTicker(r.Interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					if ctx.Err() == nil {
						r.Log.Warn("outbox relay failed", zap.Error(err))
					}
					break
				}
				// drain a backlog without waiting for the next tick
				if n < r.BatchSize {
					break
				}
			}
		}
	}
}

// RelayOnce publishes one batch of pending rows and returns how many were published.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	rows, err := r.Outbox.Pending(ctx, r.BatchSize)
	if err != nil || len(rows) == 0 {
		return 0, err
	}

	msgs := make([]kafka.Message, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, ev := range rows {
		msgs = append(msgs, kafka.Message{
			Topic: ev.Topic,
			Key:   []byte(ev.AggregateID),
			Value: ev.Payload,
			Headers: []kafka.Header{
				{Key: "aggregate", Value: []byte(ev.Aggregate)},
				{Key: "outbox_id", Value: []byte(ev.ID)},
			},
			Time: ev.CreatedAt,
		})
		ids = append(ids, ev.ID)
	}

	if err := r.Publisher.Publish(ctx, msgs...); err != nil {
		if markErr := r.Outbox.MarkAttempt(ctx, ids); markErr != nil {
			r.Log.Warn("outbox mark attempt failed", zap.Error(markErr))
		}
		return 0, err
	}

	if err := r.Outbox.Delete(ctx, ids); err != nil {
		return 0, err
	}

	metrics.OutboxPublishedTotal.Add(float64(len(ids)))
	r.Log.Debug("outbox relayed", zap.Int("count", len(ids)))

	return len(ids), nil
}
