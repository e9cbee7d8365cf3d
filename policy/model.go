// Package policy maps methods to caching and flushing models and memoizes
// the result of that mapping.
package policy

import (
	"fmt"
	"strings"
	"time"
)

// Model is the common shape of caching and flushing policies: both name the
// backing caches they operate on.
type Model interface {
	CacheNames() []string
}

// CacheModel says where the result of a method is stored.
type CacheModel struct {
	// Cache is the logical name of the backing cache.
	Cache string
	// TTL is a hint for the driver. Zero means the driver default.
	TTL time.Duration
	// RequireSerializable forces values through the codec even when the
	// driver could keep them as live objects, so callers never share a
	// mutable instance with the cache.
	RequireSerializable bool
}

// CacheNames implements Model.
func (m CacheModel) CacheNames() []string { return []string{m.Cache} }

func (m CacheModel) String() string {
	if m.TTL > 0 {
		return fmt.Sprintf("cache(%s, ttl=%s)", m.Cache, m.TTL)
	}
	return fmt.Sprintf("cache(%s)", m.Cache)
}

// FlushModel names the caches to invalidate around a method call.
type FlushModel struct {
	Caches []string
	// FlushBeforeExecution flushes before the target runs. Otherwise the
	// flush happens only after the target returned without error.
	FlushBeforeExecution bool
}

// CacheNames implements Model.
func (m FlushModel) CacheNames() []string { return m.Caches }

func (m FlushModel) String() string {
	when := "after"
	if m.FlushBeforeExecution {
		when = "before"
	}
	return fmt.Sprintf("flush(%s, %s)", strings.Join(m.Caches, ","), when)
}
