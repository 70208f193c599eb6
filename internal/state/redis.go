package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const stateTTL = 24 * time.Hour

// redisStore keeps conversation state in redis so a restart or a second
// process sees the same per-user stage.
type redisStore struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func stateKey(userID int64) string {
	return fmt.Sprintf("convstate:%d", userID)
}

func (s *redisStore) Get(ctx context.Context, userID int64) (Conversation, error) {
	var conv Conversation
	raw, err := s.rdb.Get(ctx, stateKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return conv, nil
	}
	if err != nil {
		return conv, fmt.Errorf("failed to load state for %d: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(raw), &conv); err != nil {
		return Conversation{}, fmt.Errorf("failed to decode state for %d: %w", userID, err)
	}
	return conv, nil
}

func (s *redisStore) Set(ctx context.Context, userID int64, conv Conversation) error {
	raw, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to encode state for %d: %w", userID, err)
	}
	if err := s.rdb.Set(ctx, stateKey(userID), raw, stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to store state for %d: %w", userID, err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, stateKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear state for %d: %w", userID, err)
	}
	return nil
}
