package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/scavengerbot/internal/hunt"
)

const redisKeyPrefix = "scavengerbot:progress:"

// RedisStore keeps each sender's progress as a JSON string. A positive ttl
// expires conversations that go quiet.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(senderID string) string { return redisKeyPrefix + senderID }

func (s *RedisStore) Get(ctx context.Context, senderID string) (hunt.Progress, error) {
	data, err := s.client.Get(ctx, redisKey(senderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return hunt.Progress{}, nil
	}
	if err != nil {
		return hunt.Progress{}, fmt.Errorf("loading progress for %s: %w", senderID, err)
	}

	var p hunt.Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return hunt.Progress{}, fmt.Errorf("decoding progress for %s: %w", senderID, err)
	}
	return p, nil
}

func (s *RedisStore) Put(ctx context.Context, senderID string, p hunt.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(senderID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving progress for %s: %w", senderID, err)
	}
	return nil
}

func (s *RedisStore) Reset(ctx context.Context, senderID string) error {
	if err := s.client.Del(ctx, redisKey(senderID)).Err(); err != nil {
		return fmt.Errorf("resetting progress for %s: %w", senderID, err)
	}
	return nil
}

func (s *RedisStore) Check(ctx context.Context) error { return s.client.Ping(ctx).Err() }
