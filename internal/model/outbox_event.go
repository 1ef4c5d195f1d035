package model

import "time"

const AggregateWeight = "weight"

type OutboxEvent struct {
	ID          string    `db:"id"`
	Aggregate   string    `db:"aggregate"`    // "weight"
	AggregateID string    `db:"aggregate_id"` // WeightRecord.ID
	Topic       string    `db:"topic"`
	Payload     []byte    `db:"payload"`
	Attempts    int       `db:"attempts"`
	CreatedAt   time.Time `db:"created_at"`
}
