// Package config loads the engine configuration from YAML with environment
// overrides and turns it into rule sources and a provider stack.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Keksclan/goRawrCache/breaker"
	"github.com/Keksclan/goRawrCache/retry"
)

// Driver names accepted in ProviderConfig.Driver.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverTiered = "tiered"
)

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// MetricsConfig holds metrics settings. An empty Addr disables the endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// MemoryConfig holds in-process driver settings.
type MemoryConfig struct {
	MaxCost int64 `yaml:"max_cost"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr                string `yaml:"addr"`
	Password            string `yaml:"password"`
	DB                  int    `yaml:"db"`
	KeyPrefix           string `yaml:"key_prefix"`
	InvalidationChannel string `yaml:"invalidation_channel"`
}

// RetryConfig holds retry settings for transient access failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Jitter      float64       `yaml:"jitter"`
}

// BreakerConfig holds circuit breaker settings. A zero FailureThreshold
// disables the breaker.
type BreakerConfig struct {
	FailureThreshold   int           `yaml:"failure_threshold"`
	OpenTimeout        time.Duration `yaml:"open_timeout"`
	HalfOpenMaxSuccess int           `yaml:"half_open_max_success"`
}

// ProviderConfig selects and configures the backing cache.
type ProviderConfig struct {
	Driver     string        `yaml:"driver"`
	Memory     MemoryConfig  `yaml:"memory"`
	Redis      RedisConfig   `yaml:"redis"`
	PromoteTTL time.Duration `yaml:"promote_ttl"`
	Retry      RetryConfig   `yaml:"retry"`
	Breaker    BreakerConfig `yaml:"breaker"`
}

// Match lists the method patterns of a group.
type Match struct {
	Exact    []string `yaml:"exact"`
	Prefix   []string `yaml:"prefix"`
	Wildcard []string `yaml:"wildcard"`
	Regex    []string `yaml:"regex"`
	Types    []string `yaml:"types"`
}

func (m Match) empty() bool {
	return len(m.Exact)+len(m.Prefix)+len(m.Wildcard)+len(m.Regex)+len(m.Types) == 0
}

// CacheGroup maps matching methods to a cache model.
type CacheGroup struct {
	Name                string        `yaml:"name"`
	Match               Match         `yaml:"match"`
	Cache               string        `yaml:"cache"`
	TTL                 time.Duration `yaml:"ttl"`
	RequireSerializable bool          `yaml:"require_serializable"`
}

// FlushGroup maps matching methods to a flush model.
type FlushGroup struct {
	Name            string   `yaml:"name"`
	Match           Match    `yaml:"match"`
	Caches          []string `yaml:"caches"`
	BeforeExecution bool     `yaml:"before_execution"`
}

// Config is the root of the YAML document.
type Config struct {
	Logging          LoggingConfig  `yaml:"logging"`
	Metrics          MetricsConfig  `yaml:"metrics"`
	Provider         ProviderConfig `yaml:"provider"`
	SingleFlight     bool           `yaml:"single_flight"`
	FlushErrorPolicy string         `yaml:"flush_error_policy"`
	Caching          []CacheGroup   `yaml:"caching"`
	Flushing         []FlushGroup   `yaml:"flushing"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Provider: ProviderConfig{
			Driver: DriverMemory,
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
			PromoteTTL: time.Minute,
			Retry: RetryConfig{
				MaxAttempts: 1,
				BaseDelay:   50 * time.Millisecond,
				MaxDelay:    time.Second,
			},
		},
		FlushErrorPolicy: "proceed",
	}
}

// Load reads the file at path, applies environment overrides and validates
// the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a YAML document on top of Default. Unknown fields are
// rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, nil
}

// ApplyEnv applies RAWRCACHE_* environment variable overrides to cfg.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("RAWRCACHE_DRIVER"); v != "" {
		cfg.Provider.Driver = v
	}
	if v := os.Getenv("RAWRCACHE_REDIS_ADDR"); v != "" {
		cfg.Provider.Redis.Addr = v
	}
	if v := os.Getenv("RAWRCACHE_REDIS_PASSWORD"); v != "" {
		cfg.Provider.Redis.Password = v
	}
	if v := os.Getenv("RAWRCACHE_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Provider.Redis.DB = db
		}
	}
	if v := os.Getenv("RAWRCACHE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RAWRCACHE_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

// Validate checks the configuration for structural errors. Whether the
// named caches exist is checked later against the built provider.
func (c *Config) Validate() error {
	var errs []error

	switch c.Provider.Driver {
	case DriverMemory, DriverRedis, DriverTiered:
	default:
		errs = append(errs, fmt.Errorf("config: unknown driver %q", c.Provider.Driver))
	}
	switch c.FlushErrorPolicy {
	case "", "proceed", "abort":
	default:
		errs = append(errs, fmt.Errorf("config: unknown flush_error_policy %q", c.FlushErrorPolicy))
	}
	if c.Provider.PromoteTTL < 0 {
		errs = append(errs, errors.New("config: promote_ttl must not be negative"))
	}

	seen := make(map[string]bool)
	group := func(kind, name string, match Match) {
		if name == "" {
			errs = append(errs, fmt.Errorf("config: %s group without name", kind))
			return
		}
		if seen[kind+"/"+name] {
			errs = append(errs, fmt.Errorf("config: duplicate %s group %q", kind, name))
		}
		seen[kind+"/"+name] = true
		if match.empty() {
			errs = append(errs, fmt.Errorf("config: %s group %q matches nothing", kind, name))
		}
		for _, re := range match.Regex {
			if _, err := regexp.Compile(re); err != nil {
				errs = append(errs, fmt.Errorf("config: %s group %q: %w", kind, name, err))
			}
		}
	}
	for _, g := range c.Caching {
		group("caching", g.Name, g.Match)
		if g.Cache == "" {
			errs = append(errs, fmt.Errorf("config: caching group %q has no cache", g.Name))
		}
		if g.TTL < 0 {
			errs = append(errs, fmt.Errorf("config: caching group %q has negative ttl", g.Name))
		}
	}
	for _, g := range c.Flushing {
		group("flushing", g.Name, g.Match)
		if len(g.Caches) == 0 {
			errs = append(errs, fmt.Errorf("config: flushing group %q has no caches", g.Name))
		}
	}
	return errors.Join(errs...)
}

// CacheNames returns every cache name the groups refer to, sorted and
// without duplicates.
func (c *Config) CacheNames() []string {
	var names []string
	for _, g := range c.Caching {
		names = append(names, g.Cache)
	}
	for _, g := range c.Flushing {
		names = append(names, g.Caches...)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// RetryPolicy converts the retry settings.
func (c *Config) RetryPolicy() retry.Config {
	r := c.Provider.Retry
	return retry.Config{
		MaxAttempts: r.MaxAttempts,
		BaseDelay:   r.BaseDelay,
		MaxDelay:    r.MaxDelay,
		Jitter:      r.Jitter,
	}
}

// Breaker builds the circuit breaker, or returns nil when disabled.
func (c *Config) Breaker() *breaker.Breaker {
	b := c.Provider.Breaker
	if b.FailureThreshold <= 0 {
		return nil
	}
	return breaker.New(breaker.Config{
		FailureThreshold:   b.FailureThreshold,
		OpenTimeout:        b.OpenTimeout,
		HalfOpenMaxSuccess: b.HalfOpenMaxSuccess,
	})
}
