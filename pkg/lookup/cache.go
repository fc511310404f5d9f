package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sol-swap/pkg/catalog"
)

// ErrCacheDisabled indicates the metadata cache is not configured
var ErrCacheDisabled = errors.New("token metadata cache disabled")

// errCacheMiss is returned by Cache.Get when the key is absent
var errCacheMiss = errors.New("token metadata not cached")

// CacheConfig represents Redis client configuration options
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether a Redis address is configured
func (c CacheConfig) Enabled() bool {
	return c.Addr != ""
}

// Cache stores token descriptors in Redis keyed by mint
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a Cache. A config without an address yields a disabled
// cache whose methods return ErrCacheDisabled.
func NewCache(cfg CacheConfig) *Cache {
	if !cfg.Enabled() {
		return &Cache{}
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: ttl,
	}
}

// NewCacheWithClient wraps an existing client
func NewCacheWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(mint string) string {
	return fmt.Sprintf("token:meta:%s", mint)
}

// Get retrieves a cached descriptor
func (c *Cache) Get(ctx context.Context, mint string) (catalog.Token, error) {
	if c == nil || c.client == nil {
		return catalog.Token{}, ErrCacheDisabled
	}

	payload, err := c.client.Get(ctx, c.key(mint)).Result()
	if errors.Is(err, redis.Nil) {
		return catalog.Token{}, errCacheMiss
	}
	if err != nil {
		return catalog.Token{}, err
	}

	var tok catalog.Token
	if err := json.Unmarshal([]byte(payload), &tok); err != nil {
		return catalog.Token{}, err
	}
	return tok, nil
}

// Set stores a descriptor with the configured TTL
func (c *Cache) Set(ctx context.Context, tok catalog.Token) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}

	payload, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(tok.Mint), payload, c.ttl).Err()
}

// Close releases the Redis connection pool
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
