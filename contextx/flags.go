package contextx

import "context"

// WithRefresh marks the call as a refresh: the caching interceptor skips
// the lookup, invokes the target and overwrites the cached entry.
func WithRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, refreshKey, true)
}

// Refresh reports whether ctx was marked by WithRefresh.
func Refresh(ctx context.Context) bool {
	v, _ := ctx.Value(refreshKey).(bool)
	return v
}

// WithBypass makes the caching interceptor neither read nor write the
// cache for this call. Flushing is unaffected.
func WithBypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey, true)
}

// Bypass reports whether ctx was marked by WithBypass.
func Bypass(ctx context.Context) bool {
	v, _ := ctx.Value(bypassKey).(bool)
	return v
}
