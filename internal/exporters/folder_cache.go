package exporters

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/eztutor/drive-export/internal/clock"
)

// FolderCache remembers provider folder ids by path so repeat exports skip
// the lookup-or-create round trips. Entries are hints: a stale id is
// detected by the pipeline and evicted.
type FolderCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, folderID string) error
	Delete(ctx context.Context, keys ...string) error
}

// NopFolderCache never remembers anything.
type NopFolderCache struct{}

func (NopFolderCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (NopFolderCache) Set(context.Context, string, string) error { return nil }
func (NopFolderCache) Delete(context.Context, ...string) error { return nil }

type memoryEntry struct {
	id        string
	expiresAt time.Time
}

// MemoryFolderCache is a process-local cache with a TTL.
type MemoryFolderCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	clock   clock.Clock
}

func NewMemoryFolderCache(ttl time.Duration, clk clock.Clock) *MemoryFolderCache {
	if clk == nil {
		clk = clock.Real{}
	}
	return &MemoryFolderCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		clock:   clk,
	}
}

func (c *MemoryFolderCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if c.ttl > 0 && !c.clock.Now().Before(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return "", false, nil
	}
	return entry.id, true, nil
}

func (c *MemoryFolderCache) Set(_ context.Context, key, folderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{id: folderID, expiresAt: c.clock.Now().Add(c.ttl)}
	return nil
}

func (c *MemoryFolderCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

// Len returns the number of entries, expired or not.
func (c *MemoryFolderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

const redisKeyPrefix = "eztutor:drive-folder:"

// RedisFolderCache shares folder ids across processes.
type RedisFolderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOptions configures the redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewRedisFolderCache(opts RedisOptions) *RedisFolderCache {
	return &RedisFolderCache{
		client: redis.NewClient(&redis.Options{
			Addr:        opts.Addr,
			Password:    opts.Password,
			DB:          opts.DB,
			DialTimeout: 2 * time.Second,
			ReadTimeout: time.Second,
		}),
		ttl: opts.TTL,
	}
}

// Ping checks connectivity.
func (c *RedisFolderCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisFolderCache) Get(ctx context.Context, key string) (string, bool, error) {
	id, err := c.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return id, true, nil
}

func (c *RedisFolderCache) Set(ctx context.Context, key, folderID string) error {
	if err := c.client.Set(ctx, redisKeyPrefix+key, folderID, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisFolderCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = redisKeyPrefix + k
	}
	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *RedisFolderCache) Close() error {
	return c.client.Close()
}
