package history

import "github.com/dshills/stepundo/internal/logging"

type options struct {
	maxEntries    int
	strictNesting bool
	logger        *logging.Logger
}

// Option configures a Manager.
type Option func(*options)

// WithMaxEntries limits the undo stack to max entries. Oldest entries are
// dropped first. Values <= 0 mean unlimited, which is the default.
func WithMaxEntries(max int) Option {
	return func(o *options) {
		o.maxEntries = max
	}
}

// WithStrictNesting makes WithUndo fail with ErrNestedTransaction instead of
// joining an already open transaction.
func WithStrictNesting() Option {
	return func(o *options) {
		o.strictNesting = true
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
