// Package engine provides a text editing engine with undo and redo.
//
// The engine package is a facade over a text buffer and its undo history. It
// records every edit as an undo step, merges consecutive keystrokes into one
// undo entry and groups the edits of a transaction into a single entry.
//
// # Architecture
//
// The engine is built on several sub-packages:
//
//   - buffer: UTF-8 text storage with rune-boundary checked edits
//   - history: generic undo/redo manager with coalescing and transactions
//   - textstep: undo steps for buffer insertions, deletions and replacements
//   - jsondoc: the same history applied to JSON documents
//
// # Thread Safety
//
// All Engine operations are thread-safe. Writes are serialized by a mutex
// which a transaction holds for its whole callback.
//
// # Basic Usage
//
//	e := engine.New()
//
//	e.Insert(0, "Hello, World!")
//	e.Replace(7, 12, "Go") // "Hello, Go!"
//
//	e.Undo() // "Hello, World!"
//	e.Redo() // "Hello, Go!"
//
// # Keystroke Coalescing
//
// Single characters inserted one after another are merged into one undo
// entry while they arrive within the coalesce window. Typing after
// whitespace starts a new entry, so undo removes a word at a time:
//
//	e.Insert(0, "h")
//	e.Insert(1, "i")
//	e.Undo() // removes "hi"
//
// InsertUndoStop ends the current run explicitly, for example when the
// cursor moves:
//
//	e.Insert(0, "a")
//	e.InsertUndoStop()
//	e.Insert(1, "b")
//	e.Undo() // removes only "b"
//
// Backspace and forward delete coalesce the same way through DeleteBackward
// and DeleteForward, which operate on grapheme clusters.
//
// # Transactions
//
// Group multiple operations into a single undo unit:
//
//	err := e.Transaction("format code", func(tx *engine.Tx) error {
//	    if _, err := tx.Replace(0, 5, "fn"); err != nil {
//	        return err
//	    }
//	    _, err := tx.Insert(2, " main()")
//	    return err
//	})
//
//	e.Undo() // Undoes both operations at once
//
// If the callback returns an error its edits are rolled back and nothing is
// recorded. Nested transactions join the outermost one unless the engine was
// created WithStrictNesting.
//
// # Read-Only Mode
//
//	e := engine.New(
//	    engine.WithContent("read-only content"),
//	    engine.WithReadOnly(),
//	)
//
//	_, err := e.Insert(0, "text")
//	// err == engine.ErrReadOnly
package engine
