package history

import (
	"errors"
	"testing"
)

// doc is a minimal string document that records the order of step callbacks.
type doc struct {
	text string
	log  []string
}

// insertStep inserts text at an offset. Mergeable steps absorb an insert
// that starts where they end.
type insertStep struct {
	Base[*doc]
	at        int
	text      string
	mergeable bool
}

func (s *insertStep) Undo(d *doc) error {
	d.text = d.text[:s.at] + d.text[s.at+len(s.text):]
	d.log = append(d.log, "undo "+s.text)
	return nil
}

func (s *insertStep) Redo(d *doc) error {
	d.text = d.text[:s.at] + s.text + d.text[s.at:]
	d.log = append(d.log, "redo "+s.text)
	return nil
}

func (s *insertStep) Coalesce(next Step[*doc]) (bool, error) {
	n, ok := next.(*insertStep)
	if !ok || !s.mergeable || n.at != s.at+len(s.text) {
		return false, nil
	}
	s.text += n.text
	return true, nil
}

// insert applies an insertion to d and returns the step describing it.
func insert(d *doc, at int, text string) *insertStep {
	s := &insertStep{Base: Base[*doc]{Label: "insert " + text}, at: at, text: text}
	d.text = d.text[:at] + text + d.text[at:]
	return s
}

// typed is insert with coalescing enabled.
func typed(d *doc, at int, text string) *insertStep {
	s := insert(d, at, text)
	s.mergeable = true
	return s
}

var errBoom = errors.New("boom")

// failingStep fails on the configured callbacks.
type failingStep struct {
	Base[*doc]
	failUndo     bool
	failRedo     bool
	failCoalesce bool
}

func (s *failingStep) Undo(*doc) error {
	if s.failUndo {
		return errBoom
	}
	return nil
}

func (s *failingStep) Redo(*doc) error {
	if s.failRedo {
		return errBoom
	}
	return nil
}

func (s *failingStep) Coalesce(Step[*doc]) (bool, error) {
	if s.failCoalesce {
		return false, errBoom
	}
	return false, nil
}

// Helper to stop a test on an unexpected error.
func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
