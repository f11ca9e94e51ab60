// Package cache provides the query-answer cache. Answers are keyed by the
// question plus a fingerprint of the catalog library, so any catalog
// mutation naturally invalidates every cached answer.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/catalogmind/catalog-engine/internal/observability"
)

// ErrMiss is returned when no cached answer exists for the key.
var ErrMiss = errors.New("cache miss")

// Entry is a cached answer.
type Entry struct {
	Answer          string `json:"answer"`
	SelectedCatalog string `json:"selected_catalog"`
}

// Client is the cache contract. Both drivers treat failures as misses so the
// cache can never break query handling.
type Client interface {
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key string, entry Entry) error
	Close() error
}

// Key derives the cache key for a question against the current library
// state.
func Key(query, fingerprint string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query)) + "\x00" + fingerprint))
	return "answer:" + hex.EncodeToString(h[:])[:32]
}

// MemoryCache is the in-process driver. Expired entries are dropped lazily
// on read.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

// NewMemoryCache creates an in-process cache. A zero ttl means entries never
// expire.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Entry, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, ErrMiss
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return Entry{}, ErrMiss
	}
	return e.entry, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, entry Entry) error {
	var expires time.Time
	if c.ttl > 0 {
		expires = time.Now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{entry: entry, expiresAt: expires}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Close() error { return nil }

// RedisCache is the shared driver for multi-instance deployments.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *observability.Logger
}

// RedisOptions configures the Redis driver.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(ctx context.Context, opts RedisOptions, ttl time.Duration, logger *observability.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (Entry, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("redis get failed, treating as miss")
		}
		return Entry{}, ErrMiss
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, ErrMiss
	}
	return entry, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis set failed")
		return err
	}
	return nil
}

func (c *RedisCache) Close() error { return c.client.Close() }
