package model

import "time"

// WeightRecorded is the outbox payload published to Kafka after a weight is saved,
// and the row shape of the archived history.
type WeightRecorded struct {
	ID         string    `db:"id"          json:"id"`      // weight record ULID
	UserID     string    `db:"user_id"     json:"user_id"` // LINE user id
	Weight     float64   `db:"weight"      json:"weight"`
	Previous   *float64  `db:"previous"    json:"previous,omitempty"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}
