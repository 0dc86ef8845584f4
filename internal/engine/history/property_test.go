package history

import (
	"testing"

	"pgregory.net/rapid"
)

// drawEdits applies a random batch of inserts to d, recording each through
// m directly or inside a transaction.
func drawEdits(t *rapid.T, d *doc, m *Manager[*doc]) {
	n := rapid.IntRange(1, 12).Draw(t, "edits")
	for i := 0; i < n; i++ {
		text := rapid.StringMatching(`[a-z]{1,3}`).Draw(t, "text")
		at := rapid.IntRange(0, len(d.text)).Draw(t, "at")

		switch rapid.IntRange(0, 3).Draw(t, "mode") {
		case 0:
			if err := m.AddUndoStep(insert(d, at, text)); err != nil {
				t.Fatalf("AddUndoStep failed: %v", err)
			}
		case 1:
			if err := m.AddUndoStep(typed(d, at, text)); err != nil {
				t.Fatalf("AddUndoStep failed: %v", err)
			}
		case 2:
			m.InsertUndoStop()
			if err := m.AddUndoStep(typed(d, at, text)); err != nil {
				t.Fatalf("AddUndoStep failed: %v", err)
			}
		case 3:
			k := rapid.IntRange(0, 3).Draw(t, "grouped")
			err := m.WithUndo(func(tx *Transaction[*doc]) error {
				for j := 0; j < k; j++ {
					pos := rapid.IntRange(0, len(d.text)).Draw(t, "pos")
					if err := tx.AddUndoStep(typed(d, pos, text)); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				t.Fatalf("WithUndo failed: %v", err)
			}
		}
	}
}

func TestPropertyUndoAllRestoresDocument(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := &doc{text: rapid.StringMatching(`[A-Z]{0,5}`).Draw(t, "initial")}
		before := d.text
		m := New[*doc]()

		drawEdits(t, d, m)
		for m.CanUndo() {
			if err := m.Undo(d); err != nil {
				t.Fatalf("Undo failed: %v", err)
			}
		}

		if d.text != before {
			t.Fatalf("text after undoing everything = %q, want %q", d.text, before)
		}
	})
}

func TestPropertyRedoAllRestoresEdits(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := &doc{}
		m := New[*doc]()

		drawEdits(t, d, m)
		after := d.text
		entries := m.UndoCount()

		undos := rapid.IntRange(0, entries).Draw(t, "undos")
		for i := 0; i < undos; i++ {
			if err := m.Undo(d); err != nil {
				t.Fatalf("Undo failed: %v", err)
			}
		}
		for m.CanRedo() {
			if err := m.Redo(d); err != nil {
				t.Fatalf("Redo failed: %v", err)
			}
		}

		if d.text != after {
			t.Fatalf("text after redoing everything = %q, want %q", d.text, after)
		}
		if m.UndoCount() != entries {
			t.Fatalf("UndoCount() = %d, want %d", m.UndoCount(), entries)
		}
	})
}

func TestPropertyUndoRedoSymmetry(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := &doc{}
		m := New[*doc]()

		drawEdits(t, d, m)
		snapshot := d.text
		undoCount, redoCount := m.UndoCount(), m.RedoCount()

		if err := m.Undo(d); err != nil {
			t.Fatalf("Undo failed: %v", err)
		}
		if err := m.Redo(d); err != nil {
			t.Fatalf("Redo failed: %v", err)
		}

		if d.text != snapshot {
			t.Fatalf("text = %q, want %q", d.text, snapshot)
		}
		if m.UndoCount() != undoCount || m.RedoCount() != redoCount {
			t.Fatalf("counts = %d/%d, want %d/%d", m.UndoCount(), m.RedoCount(), undoCount, redoCount)
		}
	})
}
