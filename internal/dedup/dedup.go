package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore remembers webhook event ids so redeliveries are handled once.
type RedisStore struct {
	rds    *redis.Client
	ttl    time.Duration
	prefix string
}

func New(rds *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{rds: rds, ttl: ttl, prefix: "kw:evt:"}
}

// FirstSeen claims eventID and reports whether this call claimed it.
// An empty id, a nil store or a Redis error all count as first seen.
func (s *RedisStore) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	if s == nil || s.rds == nil || eventID == "" {
		return true, nil
	}

	ok, err := s.rds.SetNX(ctx, s.prefix+eventID, 1, s.ttl).Result()
	if err != nil {
		return true, err
	}
	return ok, nil
}
