package bulk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pitabwire/tabula/model"
)

// IdempotencyStore deduplicates bulk dispatches carrying the same
// idempotency key.
type IdempotencyStore interface {
	// Check returns the stored result for key. A key stored with a different
	// input hash yields a CONFLICT error.
	Check(ctx context.Context, key, inputHash string) (result *model.BulkResult, found bool, err error)
	// Store records result under key for ttl.
	Store(ctx context.Context, key, inputHash string, result model.BulkResult, ttl time.Duration) error
}

type idempotencyEntry struct {
	InputHash string           `json:"input_hash"`
	Result    model.BulkResult `json:"result"`
}

func conflict(key string) error {
	return model.NewConflictError(
		fmt.Sprintf("idempotency key %q already used with a different selection", key),
	)
}

// MemoryIdempotencyStore keeps entries in process memory with a TTL.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	data      idempotencyEntry
	expiresAt time.Time
}

// NewMemoryIdempotencyStore creates an empty in-memory store.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

// Check implements IdempotencyStore. Expired entries are dropped on access.
func (s *MemoryIdempotencyStore) Check(_ context.Context, key, inputHash string) (*model.BulkResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	if entry.data.InputHash != inputHash {
		return nil, true, conflict(key)
	}
	result := entry.data.Result
	return &result, true, nil
}

// Store implements IdempotencyStore.
func (s *MemoryIdempotencyStore) Store(_ context.Context, key, inputHash string, result model.BulkResult, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memEntry{
		data:      idempotencyEntry{InputHash: inputHash, Result: result},
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Len returns the number of entries, expired ones included.
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// HealthCheck implements the readiness checker contract.
func (s *MemoryIdempotencyStore) HealthCheck(context.Context) error {
	return nil
}

// RedisIdempotencyStore keeps entries in Redis with a TTL, so replays are
// recognized across service instances.
type RedisIdempotencyStore struct {
	client redis.Cmdable
}

// NewRedisIdempotencyStore creates a store over client.
func NewRedisIdempotencyStore(client redis.Cmdable) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

// Check implements IdempotencyStore.
func (s *RedisIdempotencyStore) Check(ctx context.Context, key, inputHash string) (*model.BulkResult, bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}

	var entry idempotencyEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("unmarshal idempotency entry %q: %w", key, err)
	}
	if entry.InputHash != inputHash {
		return nil, true, conflict(key)
	}
	return &entry.Result, true, nil
}

// Store implements IdempotencyStore.
func (s *RedisIdempotencyStore) Store(ctx context.Context, key, inputHash string, result model.BulkResult, ttl time.Duration) error {
	data, err := json.Marshal(idempotencyEntry{InputHash: inputHash, Result: result})
	if err != nil {
		return fmt.Errorf("marshal idempotency entry: %w", err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// HealthCheck pings Redis.
func (s *RedisIdempotencyStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// FormatIdempotencyKey builds the storage key of a bulk dispatch.
func FormatIdempotencyKey(tableID, actionID, key string) string {
	return fmt.Sprintf("idem:%s:%s:%s", tableID, actionID, key)
}
