package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// keyPrefix namespaces every redis key written by the Manager.
const keyPrefix = "catalog:"

// Hash fields of a stored entry. Timestamps are unix milliseconds.
const (
	fieldData     = "data"
	fieldCachedAt = "cached_at"
	fieldExpires  = "expires"
)

// StoredEntry is a response body persisted in redis.
type StoredEntry struct {
	// Data is the raw response body
	Data []byte

	// Expires is when the entry becomes stale
	Expires time.Time

	// CachedAt is when we cached this response
	CachedAt time.Time
}

// IsExpired returns true if the entry has expired.
func (e *StoredEntry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *StoredEntry) TTL() time.Duration {
	return max(time.Until(e.Expires), 0)
}

// Manager stores slow-changing catalog data (the category list) in redis so
// that it can be shared between processes. Course pages never go through the
// Manager; they live in the per-browser TTLCache.
//
// Each entry is a redis hash that expires at Expires, so readers in other
// processes never see it past its lifetime.
type Manager struct {
	redis *redis.Client
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis: redisClient,
	}
}

func (m *Manager) key(k CacheKey) string {
	return keyPrefix + k.String()
}

// Get retrieves an entry by key.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*StoredEntry, error) {
	fields, err := m.redis.HGetAll(ctx, m.key(key)).Result()
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		CacheMisses.WithLabelValues(layerRedis).Inc()
		return nil, ErrCacheMiss
	}

	entry, err := decodeStored(fields)
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	// Redis expiry has millisecond resolution and may lag slightly.
	if entry.IsExpired() {
		CacheMisses.WithLabelValues(layerRedis).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(layerRedis).Inc()
	return entry, nil
}

// Set stores an entry that redis removes at entry.Expires.
// Already expired entries are not stored.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *StoredEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if entry.TTL() <= 0 {
		return nil
	}

	k := m.key(key)
	_, err := m.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			fieldData, entry.Data,
			fieldCachedAt, entry.CachedAt.UnixMilli(),
			fieldExpires, entry.Expires.UnixMilli(),
		)
		pipe.PExpireAt(ctx, k, entry.Expires)
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues(layerRedis).Add(float64(len(entry.Data)))
	return nil
}

// Delete removes an entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, m.key(key)).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func decodeStored(fields map[string]string) (*StoredEntry, error) {
	data, ok := fields[fieldData]
	if !ok {
		return nil, fmt.Errorf("missing %q field", fieldData)
	}

	expires, err := unixMilliField(fields, fieldExpires)
	if err != nil {
		return nil, err
	}
	cachedAt, err := unixMilliField(fields, fieldCachedAt)
	if err != nil {
		return nil, err
	}

	return &StoredEntry{
		Data:     []byte(data),
		Expires:  expires,
		CachedAt: cachedAt,
	}, nil
}

func unixMilliField(fields map[string]string, name string) (time.Time, error) {
	raw, ok := fields[name]
	if !ok {
		return time.Time{}, fmt.Errorf("missing %q field", name)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %q: %w", name, err)
	}
	return time.UnixMilli(ms), nil
}
