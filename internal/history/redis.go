package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long an idle conversation survives in Redis.
const DefaultTTL = 24 * time.Hour

// RedisStore keeps each patient's turns in a Redis list.
type RedisStore struct {
	client *redis.Client
	limit  int
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, limit int, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, limit: NewBuffer(limit).Limit(), ttl: ttl}
}

func historyKey(patientID string) string {
	return "anchor:history:" + patientID
}

func (s *RedisStore) Load(ctx context.Context, patientID string) ([]Turn, error) {
	key := historyKey(patientID)
	vals, err := s.client.LRange(ctx, key, int64(-s.limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}
	turns := make([]Turn, 0, len(vals))
	for _, v := range vals {
		var t Turn
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			continue // skip malformed entries
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *RedisStore) Append(ctx context.Context, patientID string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	key := historyKey(patientID)
	vals := make([]any, 0, len(turns))
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshaling turn: %w", err)
		}
		vals = append(vals, string(data))
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, vals...)
	pipe.LTrim(ctx, key, int64(-s.limit), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec for %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, patientID string) error {
	return s.client.Del(ctx, historyKey(patientID)).Err()
}
