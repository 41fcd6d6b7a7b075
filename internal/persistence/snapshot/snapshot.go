// Package snapshot keeps the latest combined score per address in Redis,
// with a TTL. Snapshots are advisory: they back the read-only /snapshot
// endpoint and are never consulted by the scoring path, which always
// queries the upstream providers fresh.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/duskolend/creditd/internal/domain"
)

// ErrNotFound is returned when no snapshot exists for an address.
var ErrNotFound = errors.New("no snapshot for address")

// Store is a Redis-backed snapshot store.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
}

// New connects to Redis at addr.
func New(addr string, ttl time.Duration) *Store {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr}), ttl)
}

// NewWithClient wraps an existing Redis client, used by tests.
func NewWithClient(client redis.Cmdable, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Store{client: client, ttl: ttl}
}

func key(address string) string {
	return "creditd:snapshot:" + domain.NormalizeAddress(address)
}

// Put stores the latest decision for its address, replacing any previous
// snapshot and refreshing the TTL.
func (s *Store) Put(ctx context.Context, result *domain.CombinedScoreResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, key(result.Address), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Get returns the stored decision for address, or ErrNotFound.
func (s *Store) Get(ctx context.Context, address string) (*domain.CombinedScoreResult, error) {
	data, err := s.client.Get(ctx, key(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var result domain.CombinedScoreResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &result, nil
}
