package history

import "fmt"

// Group is a composite step. Its children are redone in insertion order and
// undone in reverse.
type Group[T any] struct {
	Base[T]
	steps []Step[T]
}

// NewGroup creates an empty group.
func NewGroup[T any](name string, steps ...Step[T]) *Group[T] {
	return &Group[T]{
		Base:  Base[T]{Label: name},
		steps: steps,
	}
}

// AddUndoStep appends step, or lets the last child absorb it.
func (g *Group[T]) AddUndoStep(step Step[T]) error {
	if step == nil {
		return ErrNilStep
	}
	if n := len(g.steps); n > 0 {
		ok, err := absorb(g.steps[n-1], step)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	g.steps = append(g.steps, step)
	return nil
}

// Undo reverses every child, last first. It stops at the first failure.
func (g *Group[T]) Undo(doc T) error {
	for i := len(g.steps) - 1; i >= 0; i-- {
		if err := g.steps[i].Undo(doc); err != nil {
			return err
		}
	}
	return nil
}

// Redo reapplies every child, first first. It stops at the first failure.
func (g *Group[T]) Redo(doc T) error {
	for _, step := range g.steps {
		if err := step.Redo(doc); err != nil {
			return err
		}
	}
	return nil
}

// Name returns the group's label, falling back to a description of its children.
func (g *Group[T]) Name() string {
	if g.Label != "" {
		return g.Label
	}
	if len(g.steps) == 1 {
		return g.steps[0].Name()
	}
	return fmt.Sprintf("%d steps", len(g.steps))
}

// Len returns the number of children.
func (g *Group[T]) Len() int {
	return len(g.steps)
}

// IsEmpty returns true if the group has no children.
func (g *Group[T]) IsEmpty() bool {
	return len(g.steps) == 0
}

// Steps returns a copy of the children in insertion order.
func (g *Group[T]) Steps() []Step[T] {
	out := make([]Step[T], len(g.steps))
	copy(out, g.steps)
	return out
}
