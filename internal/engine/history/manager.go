package history

import (
	"slices"

	"github.com/dshills/stepundo/internal/logging"
)

// Manager owns the undo and redo stacks for one document.
//
// Steps handed to a Manager belong to it. A step lives on exactly one stack
// and moves between them as Undo and Redo are called.
type Manager[T any] struct {
	undos []Step[T]
	redos []Step[T]

	// Open transaction, nil outside WithUndo.
	tx *Transaction[T]

	maxEntries    int
	strictNesting bool
	logger        *logging.Logger
}

// New creates an empty manager.
func New[T any](opts ...Option) *Manager[T] {
	o := options{logger: logging.NullLogger}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager[T]{
		maxEntries:    o.maxEntries,
		strictNesting: o.strictNesting,
		logger:        logging.OrNull(o.logger),
	}
}

// AddUndoStep records a step that has already been applied to the document.
//
// Inside a transaction the step joins the transaction's group. Otherwise the
// current top of the undo stack may absorb it, and the redo stack is cleared.
// If the top's Coalesce fails, its error is returned and neither stack changes.
func (m *Manager[T]) AddUndoStep(step Step[T]) error {
	if step == nil {
		return ErrNilStep
	}

	if m.tx != nil {
		return m.tx.group.AddUndoStep(step)
	}

	absorbed := false
	if n := len(m.undos); n > 0 {
		ok, err := absorb(m.undos[n-1], step)
		if err != nil {
			return err
		}
		absorbed = ok
	}
	if !absorbed {
		m.push(step)
	}

	clear(m.redos)
	m.redos = m.redos[:0]
	return nil
}

// push adds step to the undo stack, dropping the oldest entries past the limit.
func (m *Manager[T]) push(step Step[T]) {
	m.undos = append(m.undos, step)

	if m.maxEntries > 0 && len(m.undos) > m.maxEntries {
		excess := len(m.undos) - m.maxEntries
		m.undos = slices.Delete(m.undos, 0, excess)
		m.logger.Debug("dropped %d oldest undo entries", excess)
	}
}

// WithUndo runs fn as one transaction. See WithNamedUndo.
func (m *Manager[T]) WithUndo(fn func(tx *Transaction[T]) error) error {
	return m.WithNamedUndo("", fn)
}

// WithNamedUndo runs fn as one transaction whose group is labelled name.
//
// Steps recorded while fn runs, through tx or through AddUndoStep, are
// collected. When fn returns nil they are recorded as nothing, as the single
// step itself, or as one Group. When fn fails the collected steps are
// discarded and fn's error is returned. The transaction slot is released on
// every exit path, panics included.
//
// If a transaction is already open, fn runs inside it and no new group is
// created; with strict nesting ErrNestedTransaction is returned instead.
func (m *Manager[T]) WithNamedUndo(name string, fn func(tx *Transaction[T]) error) error {
	if m.tx != nil {
		if m.strictNesting {
			return ErrNestedTransaction
		}
		return fn(m.tx)
	}

	tx := &Transaction[T]{group: NewGroup[T](name)}
	if err := m.run(tx, fn); err != nil {
		if n := tx.group.Len(); n > 0 {
			m.logger.Debug("discarded %d steps of failed transaction: %v", n, err)
		}
		return err
	}

	return m.commit(tx.group)
}

func (m *Manager[T]) run(tx *Transaction[T], fn func(tx *Transaction[T]) error) error {
	m.tx = tx
	defer func() {
		m.tx = nil
		tx.closed = true
	}()
	return fn(tx)
}

func (m *Manager[T]) commit(g *Group[T]) error {
	switch g.Len() {
	case 0:
		return nil
	case 1:
		return m.AddUndoStep(g.steps[0])
	default:
		return m.AddUndoStep(g)
	}
}

// InsertUndoStop prevents the current undo top from absorbing later steps.
func (m *Manager[T]) InsertUndoStop() {
	if n := len(m.undos); n > 0 {
		m.undos[n-1].SetUndoStop(true)
	}
}

// Undo reverses the most recent entry and moves it to the redo stack.
// It does nothing when there is nothing to undo.
//
// If the step fails, its error is returned unchanged and the entry is lost:
// it has left the undo stack but never reaches the redo stack. No attempt is
// made to roll back a partially applied step.
func (m *Manager[T]) Undo(doc T) error {
	if m.tx != nil {
		return ErrTransactionActive
	}

	step, ok := pop(&m.undos)
	if !ok {
		return nil
	}
	if err := step.Undo(doc); err != nil {
		m.logger.Debug("undo of %q failed: %v", step.Name(), err)
		return err
	}
	m.redos = append(m.redos, step)
	return nil
}

// Redo reapplies the most recently undone entry and moves it back to the
// undo stack. It does nothing when there is nothing to redo. Failures behave
// as in Undo.
func (m *Manager[T]) Redo(doc T) error {
	if m.tx != nil {
		return ErrTransactionActive
	}

	step, ok := pop(&m.redos)
	if !ok {
		return nil
	}
	if err := step.Redo(doc); err != nil {
		m.logger.Debug("redo of %q failed: %v", step.Name(), err)
		return err
	}
	m.undos = append(m.undos, step)
	return nil
}

func pop[T any](stack *[]Step[T]) (Step[T], bool) {
	s := *stack
	if len(s) == 0 {
		return nil, false
	}
	step := s[len(s)-1]
	s[len(s)-1] = nil
	*stack = s[:len(s)-1]
	return step, true
}

// CanUndo returns true if undo is available.
func (m *Manager[T]) CanUndo() bool {
	return len(m.undos) > 0
}

// CanRedo returns true if redo is available.
func (m *Manager[T]) CanRedo() bool {
	return len(m.redos) > 0
}

// UndoCount returns the number of undo entries.
func (m *Manager[T]) UndoCount() int {
	return len(m.undos)
}

// RedoCount returns the number of redo entries.
func (m *Manager[T]) RedoCount() int {
	return len(m.redos)
}

// InTransaction returns true while WithUndo is running.
func (m *Manager[T]) InTransaction() bool {
	return m.tx != nil
}

// PeekUndo returns the name of the next entry Undo would reverse.
func (m *Manager[T]) PeekUndo() (string, bool) {
	if len(m.undos) == 0 {
		return "", false
	}
	return m.undos[len(m.undos)-1].Name(), true
}

// PeekRedo returns the name of the next entry Redo would reapply.
func (m *Manager[T]) PeekRedo() (string, bool) {
	if len(m.redos) == 0 {
		return "", false
	}
	return m.redos[len(m.redos)-1].Name(), true
}

// UndoNames returns the names of the undo entries, oldest first.
func (m *Manager[T]) UndoNames() []string {
	return names(m.undos)
}

// RedoNames returns the names of the redo entries, oldest first.
func (m *Manager[T]) RedoNames() []string {
	return names(m.redos)
}

func names[T any](steps []Step[T]) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Name()
	}
	return out
}

// Clear removes all undo/redo history. An open transaction is unaffected.
func (m *Manager[T]) Clear() {
	clear(m.undos)
	clear(m.redos)
	m.undos = nil
	m.redos = nil
}

// SetMaxEntries changes the maximum number of undo entries.
// If the current stack is larger, oldest entries are removed.
// Values <= 0 remove the limit.
func (m *Manager[T]) SetMaxEntries(max int) {
	m.maxEntries = max
	if max > 0 && len(m.undos) > max {
		m.undos = slices.Delete(m.undos, 0, len(m.undos)-max)
	}
}

// MaxEntries returns the maximum number of undo entries, 0 meaning unlimited.
func (m *Manager[T]) MaxEntries() int {
	return m.maxEntries
}
