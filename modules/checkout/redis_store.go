package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	recoveryKeyPrefix  = "checkout:recovery:"
	completedKeyPrefix = "checkout:completed:"

	// completedMarkerTTL keeps the one-shot success marker long enough
	// to absorb success-page reloads without accumulating keys forever.
	completedMarkerTTL = time.Hour
)

// RedisRecoveryStore persists recovery state as JSON blobs with a TTL
// matching the recovery window.
type RedisRecoveryStore struct {
	client *redis.Client
}

// NewRedisRecoveryStore creates a Redis-backed RecoveryStore.
func NewRedisRecoveryStore(client *redis.Client) *RedisRecoveryStore {
	if client == nil {
		panic("checkout: redis client is required")
	}
	return &RedisRecoveryStore{client: client}
}

func (s *RedisRecoveryStore) Save(ctx context.Context, scope string, state RecoveryState) error {
	if scope == "" {
		return ErrInvalidScope
	}

	state.SchemaVersion = RecoverySchemaVersion
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal recovery state: %w", err)
	}

	if err := s.client.Set(ctx, recoveryKeyPrefix+scope, raw, recoveryWindow).Err(); err != nil {
		return fmt.Errorf("save recovery state: %w", err)
	}
	return nil
}

func (s *RedisRecoveryStore) Load(ctx context.Context, scope string) (*RecoveryState, error) {
	if scope == "" {
		return nil, ErrInvalidScope
	}

	raw, err := s.client.Get(ctx, recoveryKeyPrefix+scope).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load recovery state: %w", err)
	}

	var state RecoveryState
	if err := json.Unmarshal(raw, &state); err != nil {
		// An unreadable blob is treated as absent, not as a hard error.
		return nil, ErrStateNotFound
	}
	if state.SchemaVersion != RecoverySchemaVersion {
		return nil, ErrStateNotFound
	}
	return &state, nil
}

func (s *RedisRecoveryStore) Clear(ctx context.Context, scope string) error {
	if scope == "" {
		return ErrInvalidScope
	}

	if err := s.client.Del(ctx, recoveryKeyPrefix+scope, completedKeyPrefix+scope).Err(); err != nil {
		return fmt.Errorf("clear recovery state: %w", err)
	}
	return nil
}

func (s *RedisRecoveryStore) ClearState(ctx context.Context, scope string) error {
	if scope == "" {
		return ErrInvalidScope
	}

	if err := s.client.Del(ctx, recoveryKeyPrefix+scope).Err(); err != nil {
		return fmt.Errorf("clear recovery state: %w", err)
	}
	return nil
}

func (s *RedisRecoveryStore) MarkCompleted(ctx context.Context, scope, status string) (bool, error) {
	if scope == "" {
		return false, ErrInvalidScope
	}

	first, err := s.client.SetNX(ctx, completedKeyPrefix+scope, status, completedMarkerTTL).Result()
	if err != nil {
		return false, fmt.Errorf("mark checkout completed: %w", err)
	}
	return first, nil
}

func (s *RedisRecoveryStore) Completed(ctx context.Context, scope string) (string, bool, error) {
	if scope == "" {
		return "", false, ErrInvalidScope
	}

	status, err := s.client.Get(ctx, completedKeyPrefix+scope).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load completion marker: %w", err)
	}
	return status, true, nil
}
