package history

// Transaction is the handle passed to a WithUndo callback. It collects the
// steps of one logical edit into a group.
type Transaction[T any] struct {
	group  *Group[T]
	closed bool
}

// AddUndoStep records step as part of the transaction. After the owning
// WithUndo call has returned it fails with ErrTransactionClosed.
func (t *Transaction[T]) AddUndoStep(step Step[T]) error {
	if t.closed {
		return ErrTransactionClosed
	}
	return t.group.AddUndoStep(step)
}

// InsertUndoStop prevents the transaction's most recent step from absorbing
// later steps.
func (t *Transaction[T]) InsertUndoStop() {
	if n := len(t.group.steps); n > 0 {
		t.group.steps[n-1].SetUndoStop(true)
	}
}

// Rollback undoes the steps collected so far, newest first, and forgets
// them. Callers use it to leave the document as it was when the transaction
// opened before returning an error from the WithUndo callback.
func (t *Transaction[T]) Rollback(doc T) error {
	if t.closed {
		return ErrTransactionClosed
	}
	err := t.group.Undo(doc)
	clear(t.group.steps)
	t.group.steps = t.group.steps[:0]
	return err
}

// Len returns the number of steps collected so far.
func (t *Transaction[T]) Len() int {
	return t.group.Len()
}

// Name returns the label the group will carry.
func (t *Transaction[T]) Name() string {
	return t.group.Label
}

// SetName relabels the group.
func (t *Transaction[T]) SetName(name string) {
	t.group.Label = name
}

// Closed returns true once the owning WithUndo call has returned.
func (t *Transaction[T]) Closed() bool {
	return t.closed
}

// Checkpoint marks a depth in the undo stack that can be returned to.
type Checkpoint struct {
	undoDepth int
}

// CreateCheckpoint records the current undo depth. It also inserts an undo
// stop so that later steps cannot merge into entries below the checkpoint.
// Entries dropped by the WithMaxEntries limit invalidate older checkpoints.
func (m *Manager[T]) CreateCheckpoint() Checkpoint {
	m.InsertUndoStop()
	return Checkpoint{undoDepth: len(m.undos)}
}

// UndoToCheckpoint undoes entries until the undo depth equals the checkpoint's.
func (m *Manager[T]) UndoToCheckpoint(cp Checkpoint, doc T) error {
	for len(m.undos) > cp.undoDepth {
		if err := m.Undo(doc); err != nil {
			return err
		}
	}
	return nil
}

// RedoToCheckpoint redoes entries until the undo depth reaches the
// checkpoint's or the redo stack runs out.
func (m *Manager[T]) RedoToCheckpoint(cp Checkpoint, doc T) error {
	for len(m.undos) < cp.undoDepth && len(m.redos) > 0 {
		if err := m.Redo(doc); err != nil {
			return err
		}
	}
	return nil
}
