package corpus

// Option configures a Store using the functional options pattern.
type Option func(*Store)

// WithScanLimit caps how many rows ListChunks reads. The default 0 reads the
// whole collection so fallback ranking stays exhaustive; set a limit once the
// collection outgrows what a linear scan should touch.
func WithScanLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.scanLimit = n
		}
	}
}
