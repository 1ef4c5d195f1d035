package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/kuritterweight/internal/kafka"
	"github.com/jmehdipour/kuritterweight/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOutbox struct {
	mu       sync.Mutex
	rows     []model.OutboxEvent
	attempts map[string]int
}

func (f *fakeOutbox) Pending(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rows) < limit {
		limit = len(f.rows)
	}
	return append([]model.OutboxEvent(nil), f.rows[:limit]...), nil
}

func (f *fakeOutbox) Delete(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := f.rows[:0]
	for _, r := range f.rows {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeOutbox) MarkAttempt(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attempts == nil {
		f.attempts = map[string]int{}
	}
	for _, id := range ids {
		f.attempts[id]++
	}
	return nil
}

func (f *fakeOutbox) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func outboxRows(ids ...string) []model.OutboxEvent {
	rows := make([]model.OutboxEvent, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, model.OutboxEvent{
			ID: id, Aggregate: model.AggregateWeight, AggregateID: "rec-" + id,
			Topic: "weight.recorded", Payload: []byte(`{"id":"rec-` + id + `"}`),
		})
	}
	return rows
}

func TestRelayOncePublishesAndDeletes(t *testing.T) {
	ob := &fakeOutbox{rows: outboxRows("1", "2", "3")}
	pub := &fakePublisher{}
	r := NewRelay(ob, pub, zap.NewNop())
	r.BatchSize = 2

	n, err := r.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, ob.len())

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "weight.recorded", pub.msgs[0].Topic)
	assert.Equal(t, []byte("rec-1"), pub.msgs[0].Key)
	assert.Equal(t, []byte(`{"id":"rec-1"}`), pub.msgs[0].Value)
}

func TestRelayOncePublishFailureKeepsRows(t *testing.T) {
	ob := &fakeOutbox{rows: outboxRows("1", "2")}
	pub := &fakePublisher{err: errors.New("broker down")}
	r := NewRelay(ob, pub, zap.NewNop())

	n, err := r.RelayOnce(context.Background())
	assert.ErrorIs(t, err, pub.err)
	assert.Zero(t, n)
	assert.Equal(t, 2, ob.len())
	assert.Equal(t, map[string]int{"1": 1, "2": 1}, ob.attempts)
}

func TestRelayRunDrainsBacklog(t *testing.T) {
	ob := &fakeOutbox{rows: outboxRows("1", "2", "3", "4", "5")}
	pub := &fakePublisher{}
	r := NewRelay(ob, pub, zap.NewNop())
	r.BatchSize = 2
	r.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return ob.len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
