// Package session stores encoded per-user conversation sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Memory keeps sessions in process.
type Memory struct {
	mu   sync.Mutex
	data map[int64][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[int64][]byte)}
}

func (m *Memory) Get(_ context.Context, userID int64) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.data[userID]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

func (m *Memory) Put(_ context.Context, userID int64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[userID] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, userID)
	return nil
}

const keyPrefix = "liftbot:session:"

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis keeps sessions in Redis so several bot processes can share them.
// A zero ttl keeps sessions until they are deleted.
type Redis struct {
	client redisClient
	ttl    time.Duration
}

func NewRedis(client redisClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// DialRedis parses a redis:// URL and returns a store with its client.
func DialRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedis(client, ttl), client, nil
}

func Key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

func (r *Redis) Get(ctx context.Context, userID int64) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, Key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get session: %w", err)
	}
	return b, true, nil
}

func (r *Redis) Put(ctx context.Context, userID int64, data []byte) error {
	if err := r.client.Set(ctx, Key(userID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, Key(userID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
