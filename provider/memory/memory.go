// Package memory provides an in-process cache driver backed by ristretto,
// with one independent ristretto cache per named region.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/Keksclan/goRawrCache/provider"
)

// DefaultMaxCost is the per-region capacity when Config.MaxCost is zero.
const DefaultMaxCost = 10_000

// Config configures the driver.
type Config struct {
	// Caches lists the regions to create up front.
	Caches []string
	// MaxCost controls the maximum cost each region can hold (each entry
	// has a cost of 1).
	MaxCost int64
}

// Driver keeps live values in ristretto regions. It implements
// provider.Driver.
type Driver struct {
	maxCost int64

	mu      sync.RWMutex
	regions map[string]*ristretto.Cache[string, any]
}

// New creates the driver and its configured regions.
func New(cfg Config) (*Driver, error) {
	d := &Driver{
		maxCost: cfg.MaxCost,
		regions: make(map[string]*ristretto.Cache[string, any]),
	}
	if d.maxCost <= 0 {
		d.maxCost = DefaultMaxCost
	}
	if err := d.Declare(cfg.Caches...); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// Declare creates the named regions. Existing regions are left untouched.
func (d *Driver) Declare(names ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, name := range names {
		if _, ok := d.regions[name]; ok {
			continue
		}
		rc, err := ristretto.NewCache(&ristretto.Config[string, any]{
			NumCounters: d.maxCost * 10,
			MaxCost:     d.maxCost,
			BufferItems: 64,
		})
		if err != nil {
			return fmt.Errorf("memory: create region %q: %w", name, err)
		}
		d.regions[name] = rc
	}
	return nil
}

func (d *Driver) region(name string) (*ristretto.Cache[string, any], error) {
	d.mu.RLock()
	rc, ok := d.regions[name]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("memory: region %q: %w", name, provider.ErrCacheNotFound)
	}
	return rc, nil
}

// Name implements provider.Driver.
func (d *Driver) Name() string { return "memory" }

// StoresBytes implements provider.Driver.
func (d *Driver) StoresBytes() bool { return false }

// Has implements provider.Driver.
func (d *Driver) Has(cache string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.regions[cache]
	return ok
}

// Get implements provider.Driver.
func (d *Driver) Get(_ context.Context, cache, key string) (any, bool, error) {
	rc, err := d.region(cache)
	if err != nil {
		return nil, false, err
	}
	v, ok := rc.Get(key)
	return v, ok, nil
}

// Set implements provider.Driver. A zero TTL means the entry has no
// automatic expiration. Once Set returns nil the write is visible to Get.
// When ristretto drops the write (buffer contention or admission) Set
// returns provider.ErrNotStored.
func (d *Driver) Set(_ context.Context, cache, key string, value any, ttl time.Duration) error {
	rc, err := d.region(cache)
	if err != nil {
		return err
	}
	if !rc.SetWithTTL(key, value, 1, ttl) {
		return provider.ErrNotStored
	}
	rc.Wait()
	if _, ok := rc.Get(key); !ok {
		return provider.ErrNotStored
	}
	return nil
}

// Delete implements provider.Driver.
func (d *Driver) Delete(_ context.Context, cache, key string) error {
	rc, err := d.region(cache)
	if err != nil {
		return err
	}
	rc.Del(key)
	return nil
}

// Clear implements provider.Driver.
func (d *Driver) Clear(_ context.Context, cache string) error {
	rc, err := d.region(cache)
	if err != nil {
		return err
	}
	rc.Clear()
	return nil
}

// Close releases every region.
func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name, rc := range d.regions {
		rc.Close()
		delete(d.regions, name)
	}
}
