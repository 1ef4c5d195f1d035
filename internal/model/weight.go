package model

import "time"

// WeightRecord is one append-only weight measurement. Identity is (UserID, RecordedAt).
type WeightRecord struct {
	ID         string    `db:"id"          json:"id"`
	UserID     string    `db:"user_id"     json:"user_id"`
	Weight     float64   `db:"weight"      json:"weight"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}

// Timestamp renders RecordedAt the way it is exchanged with other systems (ISO-8601, UTC, ms).
func (r WeightRecord) Timestamp() string {
	return r.RecordedAt.UTC().Format(TimestampLayout)
}

const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
