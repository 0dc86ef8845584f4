package jsondoc

import (
	"fmt"
	"time"

	"github.com/dshills/stepundo/internal/engine/history"
)

// Kind is the type of a Change.
type Kind uint8

const (
	KindSet Kind = iota
	KindDelete
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSet:
		return "set"
	case KindDelete:
		return "delete"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Change records one edit to a Document as the document text before and
// after it. Storing whole snapshots keeps undo exact for array paths, whose
// indexes shift as elements are added and removed.
type Change struct {
	history.Base[*Document]
	Kind Kind
	Path string

	before string
	after  string

	at     time.Time
	window time.Duration
}

func newChange(kind Kind, path, before, after string, at time.Time, window time.Duration) *Change {
	return &Change{
		Kind:   kind,
		Path:   path,
		before: before,
		after:  after,
		at:     at,
		window: window,
	}
}

// Undo restores the document text from before the change.
func (c *Change) Undo(doc *Document) error {
	doc.raw = c.before
	return nil
}

// Redo restores the document text from after the change.
func (c *Change) Redo(doc *Document) error {
	doc.raw = c.after
	return nil
}

// Coalesce absorbs a Set to the same path made within the window, so that
// rapid updates of one field undo together.
func (c *Change) Coalesce(next history.Step[*Document]) (bool, error) {
	n, ok := next.(*Change)
	if !ok || c.Kind != KindSet || n.Kind != KindSet || n.Path != c.Path {
		return false, nil
	}
	if c.window <= 0 || n.at.Sub(c.at) > c.window {
		return false, nil
	}

	c.after = n.after
	c.at = n.at
	return true, nil
}

// Name returns a human-readable description.
func (c *Change) Name() string {
	if c.Label != "" {
		return c.Label
	}
	switch c.Kind {
	case KindDelete:
		return "Delete " + c.Path
	default:
		return "Set " + c.Path
	}
}
