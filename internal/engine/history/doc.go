// Package history provides a generic undo/redo engine.
//
// The engine never inspects the document it edits. Callers supply steps that
// know how to reverse and reapply their own effect on a document of type T,
// and the Manager takes care of stack discipline. Key concepts:
//
// # Steps
//
// A Step reverses (Undo) and reapplies (Redo) one change. Embed Base to get
// the label, undo-stop flag and a Coalesce that never merges:
//
//	type insertStep struct {
//	    history.Base[*Doc]
//	    offset int
//	    text   string
//	}
//
// # Coalescing
//
// When a step is recorded, the step currently on top of the undo stack gets a
// chance to absorb it through Coalesce. This collapses consecutive keystrokes
// into a single undo entry. A step whose UndoStop flag is set never absorbs
// anything; InsertUndoStop sets the flag on the current top.
//
// # Transactions
//
// WithUndo groups every step recorded during a callback into one entry:
//
//	err := m.WithUndo(func(tx *history.Transaction[*Doc]) error {
//	    // ... several edits, each recorded with tx.AddUndoStep ...
//	    return nil
//	})
//
// Zero recorded steps leave the history untouched, a single step is recorded
// as itself and two or more are recorded as a Group. A WithUndo call made while
// a transaction is open joins the outer transaction.
//
// # Linear History
//
// Recording a step outside a transaction discards the redo stack.
//
// A Manager is not safe for concurrent use.
package history
