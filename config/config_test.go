package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keksclan/goRawrCache/invocation"
	"github.com/Keksclan/goRawrCache/policy"
	"github.com/Keksclan/goRawrCache/provider"
)

const sample = `
logging:
  level: debug
provider:
  driver: memory
  memory:
    max_cost: 500
  retry:
    max_attempts: 3
    base_delay: 10ms
single_flight: true
flush_error_policy: abort
caching:
  - name: users
    match:
      exact: [users.Service.Get]
      prefix: [Find]
    cache: users
    ttl: 5m
  - name: catalog
    match:
      types: [catalog.Repo]
    cache: products
    require_serializable: true
flushing:
  - name: writes
    match:
      wildcard: ["users.Service.Update*"]
    caches: [users, products]
    before_execution: true
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, int64(500), cfg.Provider.Memory.MaxCost)
	assert.Equal(t, 3, cfg.Provider.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Provider.Retry.BaseDelay)
	assert.Equal(t, time.Second, cfg.Provider.Retry.MaxDelay, "defaults survive partial sections")
	assert.True(t, cfg.SingleFlight)
	assert.Equal(t, "abort", cfg.FlushErrorPolicy)

	require.Len(t, cfg.Caching, 2)
	assert.Equal(t, 5*time.Minute, cfg.Caching[0].TTL)
	assert.Equal(t, []string{"products", "users"}, cfg.CacheNames())
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("provider:\n  drvier: memory\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Provider.Driver = "memcached"
	cfg.FlushErrorPolicy = "panic"
	cfg.Caching = []CacheGroup{
		{Name: "a", Match: Match{Exact: []string{"x"}}},
		{Name: "a", Cache: "c"},
		{Name: "bad", Cache: "c", Match: Match{Regex: []string{"(unclosed"}}},
	}
	cfg.Flushing = []FlushGroup{{Match: Match{Prefix: []string{"Update"}}}}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`unknown driver "memcached"`,
		`unknown flush_error_policy "panic"`,
		`caching group "a" has no cache`,
		`duplicate caching group "a"`,
		`caching group "a" matches nothing`,
		"flushing group without name",
		`caching group "bad": error parsing regexp`,
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("RAWRCACHE_DRIVER", "tiered")
	t.Setenv("RAWRCACHE_REDIS_ADDR", "redis:6380")
	t.Setenv("RAWRCACHE_REDIS_DB", "4")
	t.Setenv("RAWRCACHE_LOG_LEVEL", "warn")
	t.Setenv("RAWRCACHE_METRICS_ADDR", ":9100")

	cfg := Default()
	ApplyEnv(cfg)

	assert.Equal(t, DriverTiered, cfg.Provider.Driver)
	assert.Equal(t, "redis:6380", cfg.Provider.Redis.Addr)
	assert.Equal(t, 4, cfg.Provider.Redis.DB)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rawrcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Flushing, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestRules(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	cache := policy.NewResolver[policy.CacheModel](cfg.CacheRules())

	m, ok := cache.Resolve(invocation.NewMethod("users.Service", "Get", "int"), "")
	require.True(t, ok)
	assert.Equal(t, "users", m.Cache)
	assert.Equal(t, 5*time.Minute, m.TTL)

	m, ok = cache.Resolve(invocation.NewMethod("orders.Repo", "FindAll"), "")
	require.True(t, ok)
	assert.Equal(t, "users", m.Cache)

	m, ok = cache.Resolve(invocation.NewMethod("catalog.Repo", "List"), "")
	require.True(t, ok)
	assert.Equal(t, "products", m.Cache)
	assert.True(t, m.RequireSerializable)

	_, ok = cache.Resolve(invocation.NewMethod("orders.Repo", "List"), "")
	assert.False(t, ok)

	flush := policy.NewResolver[policy.FlushModel](cfg.FlushRules())
	fm, ok := flush.Resolve(invocation.NewMethod("users.Service", "UpdateName"), "")
	require.True(t, ok)
	assert.Equal(t, []string{"users", "products"}, fm.Caches)
	assert.True(t, fm.FlushBeforeExecution)
}

func TestBuild_Memory(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	b, err := cfg.Build(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	assert.Equal(t, "memory", b.Driver.Name())
	assert.True(t, b.Driver.Has("users"))
	assert.True(t, b.Driver.Has("products"))
	assert.IsType(t, &provider.ResilientFacade{}, b.Facade, "max_attempts > 1 enables retries")

	for _, m := range cfg.CacheRules().Models() {
		assert.NoError(t, b.Facade.Validate(m))
	}
	require.NoError(t, b.Invalidations(t.Context()))
}

func TestBuild_Tiered(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	cfg.Provider.Driver = DriverTiered
	cfg.Provider.Retry.MaxAttempts = 1

	b, err := cfg.Build(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	assert.Equal(t, "tiered(memory+redis)", b.Driver.Name())
	assert.IsType(t, &provider.DriverFacade{}, b.Facade)
	assert.True(t, b.Driver.Has("users"))
	assert.False(t, b.Driver.Has("orders"))
}

func TestBreaker(t *testing.T) {
	cfg := Default()
	assert.Nil(t, cfg.Breaker())

	cfg.Provider.Breaker.FailureThreshold = 2
	assert.NotNil(t, cfg.Breaker())
}
