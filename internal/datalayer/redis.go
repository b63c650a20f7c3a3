package datalayer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/ecommerce"
)

// RedisSink stores a session's data layer as a Redis list. The TTL is
// refreshed on every push so abandoned sessions age out.
type RedisSink struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisSink(client *redis.Client, sessionID string, ttl time.Duration) *RedisSink {
	return &RedisSink{
		client: client,
		key:    dataLayerKey(sessionID),
		ttl:    ttl,
	}
}

func (s *RedisSink) Name() string {
	return "redis"
}

func (s *RedisSink) Reset(ctx context.Context) error {
	return s.push(ctx, ecommerce.ResetMarker())
}

func (s *RedisSink) Append(ctx context.Context, ev ecommerce.Event) error {
	return s.push(ctx, ev)
}

func (s *RedisSink) push(ctx context.Context, ev ecommerce.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal entry failed: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key, string(data))
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis push failed: %w", err)
	}
	return nil
}

func (s *RedisSink) Entries(ctx context.Context) ([]json.RawMessage, error) {
	values, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}
	out := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		out = append(out, json.RawMessage(v))
	}
	return out, nil
}

// Delete drops the session's list.
func (s *RedisSink) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func dataLayerKey(sessionID string) string {
	return fmt.Sprintf("datalayer:%s", sessionID)
}
