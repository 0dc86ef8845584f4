package engine

import (
	"errors"

	"github.com/dshills/stepundo/internal/engine/buffer"
)

// Errors returned by engine operations. Buffer and history errors are passed
// through and can be matched with errors.Is.
var (
	// ErrOffsetOutOfRange indicates an offset is outside the valid buffer range.
	ErrOffsetOutOfRange = buffer.ErrOffsetOutOfRange

	// ErrRangeInvalid indicates an invalid range (e.g., end < start).
	ErrRangeInvalid = buffer.ErrRangeInvalid

	// ErrReadOnly indicates an operation was attempted on a read-only engine.
	ErrReadOnly = errors.New("engine is read-only")
)
