package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/jmehdipour/kuritterweight/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSaver struct {
	recs     []model.WeightRecord
	previous []*float64
}

func (r *recordingSaver) SaveAt(ctx context.Context, userID string, weight float64, previous *float64, at time.Time) (model.WeightRecord, error) {
	rec := model.WeightRecord{ID: "x", UserID: userID, Weight: weight, RecordedAt: at}
	r.recs = append(r.recs, rec)
	r.previous = append(r.previous, previous)
	return rec, nil
}

func TestSeedWeights(t *testing.T) {
	saver := &recordingSaver{}
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, seedWeights(context.Background(), saver, "U1", 5, now))
	require.Len(t, saver.recs, 5)

	assert.Equal(t, time.Date(2024, 6, 6, 7, 0, 0, 0, time.UTC), saver.recs[0].RecordedAt)
	assert.Equal(t, time.Date(2024, 6, 10, 7, 0, 0, 0, time.UTC), saver.recs[4].RecordedAt)
	assert.Nil(t, saver.previous[0])
	for i := 1; i < 5; i++ {
		require.NotNil(t, saver.previous[i])
		assert.Equal(t, saver.recs[i-1].Weight, *saver.previous[i])
	}
}
