package history

import "errors"

// Errors returned by history operations. Errors raised by steps are returned
// unchanged and never wrapped.
var (
	// ErrNilStep indicates a nil step was recorded.
	ErrNilStep = errors.New("nil undo step")

	// ErrTransactionActive indicates Undo or Redo was called while WithUndo
	// was running.
	ErrTransactionActive = errors.New("undo transaction in progress")

	// ErrNestedTransaction is returned by WithUndo under strict nesting when
	// a transaction is already open.
	ErrNestedTransaction = errors.New("nested undo transaction")

	// ErrTransactionClosed indicates a step was recorded on a transaction
	// handle after its WithUndo call returned.
	ErrTransactionClosed = errors.New("undo transaction closed")
)
