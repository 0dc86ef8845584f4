package history

import (
	"errors"
	"slices"
	"testing"
)

func TestWithUndoZeroSteps(t *testing.T) {
	m := New[*doc]()

	if err := m.WithUndo(func(*Transaction[*doc]) error { return nil }); err != nil {
		t.Fatalf("WithUndo failed: %v", err)
	}

	if m.UndoCount() != 0 {
		t.Errorf("UndoCount() = %d, want 0", m.UndoCount())
	}
	if m.InTransaction() {
		t.Error("transaction should be closed")
	}
}

func TestWithUndoZeroStepsKeepsRedo(t *testing.T) {
	d := &doc{}
	m := New[*doc]()
	must(t, m.AddUndoStep(insert(d, 0, "a")))
	must(t, m.Undo(d))

	must(t, m.WithUndo(func(*Transaction[*doc]) error { return nil }))

	if m.RedoCount() != 1 {
		t.Errorf("RedoCount() = %d, want 1", m.RedoCount())
	}
}

func TestWithUndoSingleStepIsUnwrapped(t *testing.T) {
	d := &doc{}
	m := New[*doc]()
	s := insert(d, 0, "a")

	err := m.WithUndo(func(tx *Transaction[*doc]) error {
		return tx.AddUndoStep(s)
	})

	must(t, err)
	if m.UndoCount() != 1 {
		t.Fatalf("UndoCount() = %d, want 1", m.UndoCount())
	}
	if m.undos[0] != Step[*doc](s) {
		t.Errorf("single step should be recorded as is, got %T", m.undos[0])
	}
}

func TestWithUndoSingleStepCoalescesWithTop(t *testing.T) {
	d := &doc{}
	m := New[*doc]()
	a := typed(d, 0, "a")
	must(t, m.AddUndoStep(a))

	err := m.WithUndo(func(tx *Transaction[*doc]) error {
		return tx.AddUndoStep(typed(d, 1, "b"))
	})

	must(t, err)
	if m.UndoCount() != 1 {
		t.Errorf("UndoCount() = %d, want 1", m.UndoCount())
	}
	if a.text != "ab" {
		t.Errorf("merged text = %q, want %q", a.text, "ab")
	}
}

func TestWithUndoGroupsSteps(t *testing.T) {
	d := &doc{}
	m := New[*doc]()

	err := m.WithNamedUndo("two inserts", func(tx *Transaction[*doc]) error {
		if err := tx.AddUndoStep(insert(d, 0, "a")); err != nil {
			return err
		}
		return tx.AddUndoStep(insert(d, 1, "b"))
	})

	must(t, err)
	if m.UndoCount() != 1 {
		t.Fatalf("UndoCount() = %d, want 1", m.UndoCount())
	}
	g, ok := m.undos[0].(*Group[*doc])
	if !ok {
		t.Fatalf("two steps should be recorded as a group, got %T", m.undos[0])
	}
	if g.Len() != 2 || g.Name() != "two inserts" {
		t.Errorf("group = %d steps named %q", g.Len(), g.Name())
	}

	must(t, m.Undo(d))
	if d.text != "" {
		t.Errorf("text after undo = %q, want empty", d.text)
	}
	if !slices.Equal(d.log, []string{"undo b", "undo a"}) {
		t.Errorf("undo order = %v", d.log)
	}

	d.log = nil
	must(t, m.Redo(d))
	if d.text != "ab" {
		t.Errorf("text after redo = %q, want %q", d.text, "ab")
	}
	if !slices.Equal(d.log, []string{"redo a", "redo b"}) {
		t.Errorf("redo order = %v", d.log)
	}
}

func TestWithUndoCollectsDirectAddUndoStep(t *testing.T) {
	d := &doc{}
	m := New[*doc]()
	must(t, m.AddUndoStep(insert(d, 0, "x")))
	must(t, m.Undo(d))

	err := m.WithUndo(func(*Transaction[*doc]) error {
		// Deeper code that only knows the manager.
		must(t, m.AddUndoStep(insert(d, 0, "a")))
		must(t, m.AddUndoStep(insert(d, 0, "b")))
		if m.RedoCount() != 1 {
			t.Error("redo stack should be untouched while grouping")
		}
		return nil
	})

	must(t, err)
	if m.UndoCount() != 1 || m.RedoCount() != 0 {
		t.Errorf("counts = %d/%d, want 1/0", m.UndoCount(), m.RedoCount())
	}
}

func TestWithUndoErrorReleasesTransaction(t *testing.T) {
	d := &doc{}
	m := New[*doc]()
	fail := errors.New("edit failed")

	var held *Transaction[*doc]
	err := m.WithUndo(func(tx *Transaction[*doc]) error {
		held = tx
		must(t, tx.AddUndoStep(insert(d, 0, "a")))
		return fail
	})

	if err != fail {
		t.Errorf("WithUndo() = %v, want the callback error", err)
	}
	if m.InTransaction() {
		t.Error("transaction should be released")
	}
	if m.UndoCount() != 0 {
		t.Error("steps of a failed transaction should be discarded")
	}
	if !held.Closed() {
		t.Error("handle should be closed")
	}
	if err := held.AddUndoStep(insert(d, 0, "late")); !errors.Is(err, ErrTransactionClosed) {
		t.Errorf("AddUndoStep on closed handle = %v, want ErrTransactionClosed", err)
	}

	must(t, m.AddUndoStep(insert(d, 0, "b")))
	if m.UndoCount() != 1 {
		t.Errorf("later steps should reach the stack directly, UndoCount() = %d", m.UndoCount())
	}
}

func TestWithUndoPanicReleasesTransaction(t *testing.T) {
	m := New[*doc]()

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the panic to propagate")
			}
		}()
		_ = m.WithUndo(func(*Transaction[*doc]) error {
			panic("boom")
		})
	}()

	if m.InTransaction() {
		t.Error("transaction should be released after a panic")
	}
}

func TestNestedWithUndoFlattens(t *testing.T) {
	d := &doc{}
	m := New[*doc]()

	err := m.WithUndo(func(outer *Transaction[*doc]) error {
		must(t, outer.AddUndoStep(insert(d, 0, "a")))
		return m.WithNamedUndo("inner", func(inner *Transaction[*doc]) error {
			if inner != outer {
				t.Error("nested call should reuse the outer transaction")
			}
			must(t, inner.AddUndoStep(insert(d, 1, "b")))
			return inner.AddUndoStep(insert(d, 2, "c"))
		})
	})

	must(t, err)
	if m.UndoCount() != 1 {
		t.Fatalf("UndoCount() = %d, want 1", m.UndoCount())
	}
	g, ok := m.undos[0].(*Group[*doc])
	if !ok {
		t.Fatalf("expected a group, got %T", m.undos[0])
	}
	if g.Len() != 3 {
		t.Errorf("group has %d steps, want 3", g.Len())
	}
	if g.Label != "" {
		t.Errorf("inner name relabelled the outer group: %q", g.Label)
	}

	must(t, m.Undo(d))
	if d.text != "" {
		t.Errorf("text after undo = %q, want empty", d.text)
	}
}

func TestStrictNesting(t *testing.T) {
	m := New[*doc](WithStrictNesting())

	err := m.WithUndo(func(*Transaction[*doc]) error {
		return m.WithUndo(func(*Transaction[*doc]) error {
			t.Fatal("inner callback must not run")
			return nil
		})
	})

	if !errors.Is(err, ErrNestedTransaction) {
		t.Errorf("WithUndo() = %v, want ErrNestedTransaction", err)
	}
	if m.InTransaction() {
		t.Error("transaction should be released")
	}
}

func TestUndoRedoDuringTransaction(t *testing.T) {
	d := &doc{}
	m := New[*doc]()
	must(t, m.AddUndoStep(insert(d, 0, "a")))

	err := m.WithUndo(func(*Transaction[*doc]) error {
		if err := m.Undo(d); !errors.Is(err, ErrTransactionActive) {
			t.Errorf("Undo() = %v, want ErrTransactionActive", err)
		}
		if err := m.Redo(d); !errors.Is(err, ErrTransactionActive) {
			t.Errorf("Redo() = %v, want ErrTransactionActive", err)
		}
		return nil
	})

	must(t, err)
	if d.text != "a" || m.UndoCount() != 1 {
		t.Errorf("text %q with %d entries, want %q with 1", d.text, m.UndoCount(), "a")
	}
}

func TestTransactionInsertUndoStop(t *testing.T) {
	d := &doc{}
	m := New[*doc]()

	err := m.WithUndo(func(tx *Transaction[*doc]) error {
		must(t, tx.AddUndoStep(typed(d, 0, "a")))
		tx.InsertUndoStop()
		must(t, tx.AddUndoStep(typed(d, 1, "b")))
		if tx.Len() != 2 {
			t.Errorf("Len() = %d, want 2", tx.Len())
		}
		tx.SetName("typing")
		return nil
	})

	must(t, err)
	if name, _ := m.PeekUndo(); name != "typing" {
		t.Errorf("PeekUndo() = %q, want %q", name, "typing")
	}
}

func TestTransactionRollback(t *testing.T) {
	d := &doc{text: "x"}
	m := New[*doc]()

	err := m.WithUndo(func(tx *Transaction[*doc]) error {
		must(t, tx.AddUndoStep(insert(d, 1, "a")))
		must(t, tx.AddUndoStep(insert(d, 2, "b")))
		must(t, tx.Rollback(d))
		if tx.Len() != 0 {
			t.Errorf("Len() after rollback = %d, want 0", tx.Len())
		}
		return errBoom
	})

	if !errors.Is(err, errBoom) {
		t.Errorf("WithUndo() = %v, want errBoom", err)
	}
	if d.text != "x" {
		t.Errorf("text = %q, want %q", d.text, "x")
	}
	if !slices.Equal(d.log, []string{"undo b", "undo a"}) {
		t.Errorf("rollback order = %v", d.log)
	}
	if m.CanUndo() {
		t.Error("rolled back transaction should not be recorded")
	}
}

func TestTransactionRollbackAfterClose(t *testing.T) {
	m := New[*doc]()
	var handle *Transaction[*doc]
	must(t, m.WithUndo(func(tx *Transaction[*doc]) error {
		handle = tx
		return nil
	}))

	if err := handle.Rollback(&doc{}); !errors.Is(err, ErrTransactionClosed) {
		t.Errorf("Rollback() = %v, want ErrTransactionClosed", err)
	}
}
