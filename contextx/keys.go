// Package contextx carries per-call flags and identifiers through a
// context.Context.
package contextx

// contextKey is an unexported type used as context key to avoid collisions
// with keys defined in other packages.
type contextKey int

const (
	requestIDKey contextKey = iota
	refreshKey
	bypassKey
)
