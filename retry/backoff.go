// Package retry provides a generic retry helper with exponential backoff and
// jitter, used around calls into a backing cache that may fail transiently.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// backoff returns the delay before retry number attempt (0-indexed). The
// result is capped at cfg.MaxDelay before jitter is applied.
func backoff(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if limit := float64(cfg.MaxDelay); limit > 0 && delay > limit {
		delay = limit
	}
	if cfg.Jitter > 0 {
		// ±Jitter fraction of the delay.
		delay += delay * cfg.Jitter * (rand.Float64()*2 - 1)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
