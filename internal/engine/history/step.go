package history

// Step is a reversible change to a document of type T.
type Step[T any] interface {
	// Name returns a display label. It may be empty.
	Name() string

	// UndoStop reports whether the step refuses to absorb later steps.
	UndoStop() bool

	// SetUndoStop sets the undo-stop flag.
	SetUndoStop(stop bool)

	// Undo reverses the step's effect on doc.
	Undo(doc T) error

	// Redo reapplies the step's effect on doc.
	Redo(doc T) error

	// Coalesce tries to merge next into the receiver. It returns true when
	// next was absorbed; the caller then drops next.
	Coalesce(next Step[T]) (bool, error)
}

// Base implements the bookkeeping half of Step. Embed it in concrete steps.
type Base[T any] struct {
	Label string
	Stop  bool
}

// Name returns the step's label.
func (b *Base[T]) Name() string { return b.Label }

// UndoStop reports whether the step is an undo stop.
func (b *Base[T]) UndoStop() bool { return b.Stop }

// SetUndoStop sets the undo-stop flag.
func (b *Base[T]) SetUndoStop(stop bool) { b.Stop = stop }

// Coalesce never merges.
func (b *Base[T]) Coalesce(Step[T]) (bool, error) { return false, nil }

// FuncStep is a leaf step backed by closures.
type FuncStep[T any] struct {
	Base[T]
	undo func(T) error
	redo func(T) error
}

// NewFuncStep creates a step that calls undo and redo. Nil functions are no-ops.
func NewFuncStep[T any](name string, undo, redo func(T) error) *FuncStep[T] {
	return &FuncStep[T]{
		Base: Base[T]{Label: name},
		undo: undo,
		redo: redo,
	}
}

// Undo calls the undo function.
func (s *FuncStep[T]) Undo(doc T) error {
	if s.undo == nil {
		return nil
	}
	return s.undo(doc)
}

// Redo calls the redo function.
func (s *FuncStep[T]) Redo(doc T) error {
	if s.redo == nil {
		return nil
	}
	return s.redo(doc)
}

// absorb applies the coalescing policy shared by Manager and Group.
func absorb[T any](last, next Step[T]) (bool, error) {
	if last.UndoStop() {
		return false, nil
	}
	return last.Coalesce(next)
}
