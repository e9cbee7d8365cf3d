package gorawrcache

// DefaultOptions returns the recommended set of options for production use:
// panic recovery and request IDs.
func DefaultOptions() []Option {
	return []Option{
		WithRecovery(),
		WithRequestID(),
	}
}
