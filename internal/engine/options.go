package engine

import (
	"time"

	"github.com/dshills/stepundo/internal/engine/buffer"
	"github.com/dshills/stepundo/internal/logging"
)

// Default configuration values.
const (
	DefaultMaxUndoEntries = 1000
	DefaultCoalesceWindow = time.Second
)

// Option configures an Engine during creation.
type Option func(*Engine)

// WithContent sets the initial content of the engine.
func WithContent(content string) Option {
	return func(e *Engine) {
		e.initContent = content
	}
}

// WithLineEnding sets the line ending style for the engine.
func WithLineEnding(ending buffer.LineEnding) Option {
	return func(e *Engine) {
		e.lineEnding = ending
	}
}

// WithNormalization sets the Unicode normalization applied to inserted text.
func WithNormalization(n buffer.Normalization) Option {
	return func(e *Engine) {
		e.normalization = n
	}
}

// WithMaxUndoEntries sets the maximum number of undo history entries.
// Zero removes the limit.
func WithMaxUndoEntries(max int) Option {
	return func(e *Engine) {
		if max >= 0 {
			e.maxUndoEntries = max
		}
	}
}

// WithCoalesceWindow sets the longest pause between keystrokes that still
// merge into one undo entry. Zero or negative disables the time limit.
func WithCoalesceWindow(d time.Duration) Option {
	return func(e *Engine) {
		e.policy.Window = d
	}
}

// WithWordBoundaries controls whether typing after whitespace starts a new
// undo entry.
func WithWordBoundaries(enabled bool) Option {
	return func(e *Engine) {
		e.policy.WordBoundaries = enabled
	}
}

// WithStrictNesting makes nested transactions fail with
// history.ErrNestedTransaction instead of joining the outer one.
func WithStrictNesting() Option {
	return func(e *Engine) {
		e.strictNesting = true
	}
}

// WithReadOnly creates a read-only engine.
// Write operations will return ErrReadOnly.
func WithReadOnly() Option {
	return func(e *Engine) {
		e.readOnly = true
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the time source used for keystroke coalescing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.policy.Now = now
		}
	}
}
