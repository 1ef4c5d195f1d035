package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmehdipour/kuritterweight/internal/kafka"
	"github.com/jmehdipour/kuritterweight/internal/metrics"
	"github.com/jmehdipour/kuritterweight/internal/model"
	"go.uber.org/zap"
)

type Source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

type Sink interface {
	InsertBatch(ctx context.Context, rows []model.WeightRecorded) error
}

// Archiver copies WeightRecorded envelopes from Kafka into the history store.
// Offsets are committed only after the batch holding them was written.
type Archiver struct {
	Source    Source
	Sink      Sink
	BatchSize int
	BatchWait time.Duration
	Log       *zap.Logger
}

func NewArchiver(src Source, sink Sink, log *zap.Logger) *Archiver {
	return &Archiver{
		Source:    src,
		Sink:      sink,
		BatchSize: 200,
		BatchWait: 500 * time.Millisecond,
		Log:       log,
	}
}

// Run blocks until ctx is cancelled, flushing whatever is buffered on the way out.
func (a *Archiver) Run(ctx context.Context) error {
	if a.BatchSize <= 0 {
		a.BatchSize = 200
	}
	if a.BatchWait <= 0 {
		a.BatchWait = 500 * time.Millisecond
	}
	if a.Log == nil {
		a.Log = zap.NewNop()
	}

	msgCh := make(chan kafka.Message, a.BatchSize)

	go func() {
		defer close(msgCh)
		for {
			m, err := a.Source.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				a.Log.Warn("kafka fetch failed", zap.Error(err))
				time.Sleep(200 * time.Millisecond)
				continue
			}
			select {
			case msgCh <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	tick := time.NewTicker(a.BatchWait)
	defer tick.Stop()

	var (
		rows    []model.WeightRecorded
		pending []kafka.Message
	)

	flush := func(ctx context.Context) {
		if len(pending) == 0 {
			return
		}
		if len(rows) > 0 {
			if err := a.Sink.InsertBatch(ctx, rows); err != nil {
				// keep the batch; the next flush retries it
				a.Log.Warn("archive insert failed", zap.Int("rows", len(rows)), zap.Error(err))
				return
			}
			metrics.ArchivedTotal.Add(float64(len(rows)))
		}
		if err := a.Source.Commit(ctx, pending...); err != nil {
			a.Log.Warn("kafka commit failed", zap.Error(err))
		}
		a.Log.Debug("archive flushed", zap.Int("rows", len(rows)), zap.Int("messages", len(pending)))
		rows = rows[:0]
		pending = pending[:0]
	}

	final := func() {
		fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		flush(fctx)
	}

	for {
		select {
		case <-ctx.Done():
			final()
			return nil

		case m, ok := <-msgCh:
			if !ok {
				final()
				return nil
			}
			pending = append(pending, m)

			var env model.WeightRecorded
			if err := json.Unmarshal(m.Value, &env); err != nil || env.ID == "" {
				// poison: committed with the batch, never written
				a.Log.Warn("bad weight envelope", zap.Int64("offset", m.Offset), zap.Error(err))
			} else {
				rows = append(rows, env)
			}

			if len(pending) >= a.BatchSize {
				flush(ctx)
			}

		case <-tick.C:
			flush(ctx)
		}
	}
}
