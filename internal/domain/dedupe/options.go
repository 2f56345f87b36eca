package dedupe

// Option applies a configuration option to the in-memory sequencer.
type Option func(*inMemorySequencer)

// WithMaxSize sets the maximum number of keys tracked at once.
// If maxSize > 0: bounded mode, the oldest key is evicted first.
// If maxSize <= 0: unbounded mode (no eviction, no size limit).
func WithMaxSize(maxSize int) Option {
	return func(s *inMemorySequencer) {
		s.maxSize = maxSize
	}
}
