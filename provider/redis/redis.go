// Package redis provides a cache driver backed by Redis. Entries of cache
// "users" live under "<prefix>users:<key>"; flushing a cache deletes its
// keys with SCAN and DEL.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Keksclan/goRawrCache/provider"
)

// DefaultKeyPrefix namespaces every key written by the driver.
const DefaultKeyPrefix = "rawrcache:"

// Config holds configuration for the Redis driver.
type Config struct {
	Addr      string // Redis address (e.g. "localhost:6379")
	Password  string // Redis password
	DB        int    // Redis database number
	KeyPrefix string // Key prefix for namespacing (default: DefaultKeyPrefix)

	// Caches restricts the accepted cache names. Empty accepts any name.
	Caches []string

	// InvalidationChannel, when set, receives the name of every cleared
	// cache so other processes can drop their local copies (see Subscribe).
	InvalidationChannel string

	// ScanCount is the COUNT hint used while flushing. Defaults to 100.
	ScanCount int64
}

// Driver stores encoded values in Redis. It implements provider.Driver.
// Unlike a best-effort L2, every Redis failure is returned so the facade
// can report it as an access error.
type Driver struct {
	client    *goredis.Client
	prefix    string
	caches    map[string]struct{}
	channel   string
	scanCount int64
}

// New creates a driver with its own client.
func New(cfg Config) *Driver {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewFromClient(client, cfg)
}

// NewFromClient creates a driver using an existing client. Connection
// fields of cfg are ignored.
func NewFromClient(client *goredis.Client, cfg Config) *Driver {
	d := &Driver{
		client:    client,
		prefix:    cfg.KeyPrefix,
		channel:   cfg.InvalidationChannel,
		scanCount: cfg.ScanCount,
	}
	if d.prefix == "" {
		d.prefix = DefaultKeyPrefix
	}
	if d.scanCount <= 0 {
		d.scanCount = 100
	}
	if len(cfg.Caches) > 0 {
		d.caches = make(map[string]struct{}, len(cfg.Caches))
		for _, c := range cfg.Caches {
			d.caches[c] = struct{}{}
		}
	}
	return d
}

func (d *Driver) key(cache, k string) string {
	return d.prefix + cache + ":" + k
}

// Name implements provider.Driver.
func (d *Driver) Name() string { return "redis" }

// StoresBytes implements provider.Driver.
func (d *Driver) StoresBytes() bool { return true }

// Has implements provider.Driver.
func (d *Driver) Has(cache string) bool {
	if d.caches == nil {
		return true
	}
	_, ok := d.caches[cache]
	return ok
}

// Get implements provider.Driver.
func (d *Driver) Get(ctx context.Context, cache, key string) (any, bool, error) {
	val, err := d.client.Get(ctx, d.key(cache, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get: %w", err)
	}
	return val, true, nil
}

// Set implements provider.Driver. A zero TTL means the entry has no
// automatic expiration.
func (d *Driver) Set(ctx context.Context, cache, key string, value any, ttl time.Duration) error {
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("redis: cannot store %T: %w", value, provider.ErrInvalidModel)
	}
	if err := d.client.Set(ctx, d.key(cache, key), b, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set: %w", err)
	}
	return nil
}

// Delete implements provider.Driver.
func (d *Driver) Delete(ctx context.Context, cache, key string) error {
	if err := d.client.Del(ctx, d.key(cache, key)).Err(); err != nil {
		return fmt.Errorf("redis: del: %w", err)
	}
	return nil
}

// Clear implements provider.Driver.
func (d *Driver) Clear(ctx context.Context, cache string) error {
	match := escapeGlob(d.prefix+cache+":") + "*"

	var cursor uint64
	for {
		keys, next, err := d.client.Scan(ctx, cursor, match, d.scanCount).Result()
		if err != nil {
			return fmt.Errorf("redis: scan: %w", err)
		}
		if len(keys) > 0 {
			if err := d.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis: del: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if d.channel != "" {
		if err := d.client.Publish(ctx, d.channel, cache).Err(); err != nil {
			return fmt.Errorf("redis: publish invalidation: %w", err)
		}
	}
	return nil
}

// Subscribe clears caches of local whenever another process flushes them
// through a driver publishing on the same invalidation channel. It blocks
// until ctx is done.
func (d *Driver) Subscribe(ctx context.Context, local provider.Driver) error {
	if d.channel == "" {
		return errors.New("redis: no invalidation channel configured")
	}

	pubsub := d.client.Subscribe(ctx, d.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			// msg.Payload is the cache name to clear.
			if local.Has(msg.Payload) {
				_ = local.Clear(ctx, msg.Payload)
			}
		}
	}
}

// Ping checks the Redis connection.
func (d *Driver) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (d *Driver) Close() error {
	return d.client.Close()
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string { return globEscaper.Replace(s) }
