package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// AlertState remembers which products are currently below threshold so an
// alert fires once per transition instead of every cycle
type AlertState interface {
	// Enter marks name as below threshold and reports whether it was not
	// already marked
	Enter(ctx context.Context, name string) (bool, error)
	// Clear marks name as at or above threshold
	Clear(ctx context.Context, name string) error
}

var (
	_ AlertState = (*MemoryState)(nil)
	_ AlertState = (*RedisState)(nil)
)

// MemoryState is process-local alert state
type MemoryState struct {
	mu    sync.Mutex
	below map[string]bool
}

func NewMemoryState() *MemoryState {
	return &MemoryState{below: make(map[string]bool)}
}

func (s *MemoryState) Enter(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.below[name] {
		return false, nil
	}
	s.below[name] = true
	return true, nil
}

func (s *MemoryState) Clear(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.below, name)
	return nil
}

// RedisState keeps alert state in Redis so it survives restarts and is
// shared between instances
type RedisState struct {
	client *redis.Client
	prefix string
}

func NewRedisState(addr, password string, db int) *RedisState {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisState{client: client, prefix: "alert:below:"}
}

func (s *RedisState) key(name string) string {
	return s.prefix + name
}

// Ping verifies the Redis connection
func (s *RedisState) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisState) Enter(ctx context.Context, name string) (bool, error) {
	set, err := s.client.SetNX(ctx, s.key(name), 1, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", s.key(name), err)
	}
	return set, nil
}

func (s *RedisState) Clear(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, s.key(name)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.key(name), err)
	}
	return nil
}

func (s *RedisState) Close() error {
	return s.client.Close()
}
