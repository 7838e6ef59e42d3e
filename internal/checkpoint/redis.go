package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"kazanim-analiz/internal/analysis"
)

const keyPrefix = "analiz:ckpt:"

// Redis is the durable Store used in production. States are stored as JSON
// under a per-request key with a TTL; a finished analysis does not need to
// outlive its consumer for long.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Redis{client: client, ttl: ttl}
}

func (s *Redis) Save(ctx context.Context, requestID string, st analysis.State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("checkpoint marshal: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+requestID, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("checkpoint save %s: %w", requestID, err)
	}
	return nil
}

func (s *Redis) Load(ctx context.Context, requestID string) (analysis.State, error) {
	b, err := s.client.Get(ctx, keyPrefix+requestID).Bytes()
	if err == redis.Nil {
		return analysis.State{}, ErrNotFound
	}
	if err != nil {
		return analysis.State{}, fmt.Errorf("checkpoint load %s: %w", requestID, err)
	}
	var st analysis.State
	if err := json.Unmarshal(b, &st); err != nil {
		return analysis.State{}, fmt.Errorf("checkpoint decode %s: %w", requestID, err)
	}
	return st, nil
}
