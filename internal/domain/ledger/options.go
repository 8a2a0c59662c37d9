package ledger

// Option configures the in-memory ledger.
type Option func(*memoryLedger)

// WithMaxSize bounds the number of claims kept in memory. Zero or negative
// means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(l *memoryLedger) {
		l.maxSize = maxSize
	}
}
