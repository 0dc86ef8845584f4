package history

import (
	"errors"
	"slices"
	"testing"
)

func TestGroupAddCoalesces(t *testing.T) {
	d := &doc{}
	g := NewGroup[*doc]("")

	for _, s := range []Step[*doc]{typed(d, 0, "a"), typed(d, 1, "b"), insert(d, 0, "c")} {
		if err := g.AddUndoStep(s); err != nil {
			t.Fatalf("AddUndoStep failed: %v", err)
		}
	}

	if g.Len() != 2 {
		t.Errorf("Len() = %d, want 2", g.Len())
	}
	if g.Name() != "2 steps" {
		t.Errorf("Name() = %q, want %q", g.Name(), "2 steps")
	}
}

func TestGroupRespectsUndoStop(t *testing.T) {
	d := &doc{}
	g := NewGroup[*doc]("")
	a := typed(d, 0, "a")
	a.SetUndoStop(true)

	if err := g.AddUndoStep(a); err != nil {
		t.Fatal(err)
	}
	if err := g.AddUndoStep(typed(d, 1, "b")); err != nil {
		t.Fatal(err)
	}

	if g.Len() != 2 {
		t.Errorf("Len() = %d, want 2", g.Len())
	}
	if a.text != "a" {
		t.Errorf("step after an undo stop was merged: %q", a.text)
	}
}

func TestGroupOrder(t *testing.T) {
	d := &doc{}
	g := NewGroup[*doc]("")
	for i, s := range []string{"a", "b", "c"} {
		if err := g.AddUndoStep(insert(d, i, s)); err != nil {
			t.Fatal(err)
		}
	}

	if err := g.Undo(d); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if err := g.Redo(d); err != nil {
		t.Fatalf("Redo failed: %v", err)
	}

	if d.text != "abc" {
		t.Errorf("text = %q, want %q", d.text, "abc")
	}
	want := []string{"undo c", "undo b", "undo a", "redo a", "redo b", "redo c"}
	if !slices.Equal(d.log, want) {
		t.Errorf("log = %v, want %v", d.log, want)
	}
}

func TestGroupStopsAtFailure(t *testing.T) {
	d := &doc{text: "a"}
	g := NewGroup[*doc]("",
		NewFuncStep[*doc]("first", func(d *doc) error { d.log = append(d.log, "first"); return nil }, nil),
		&failingStep{failUndo: true},
		NewFuncStep[*doc]("last", func(d *doc) error { d.log = append(d.log, "last"); return nil }, nil),
	)

	if err := g.Undo(d); err != errBoom {
		t.Errorf("Undo() = %v, want errBoom", err)
	}
	if !slices.Equal(d.log, []string{"last"}) {
		t.Errorf("log = %v, want [last]", d.log)
	}
}

func TestGroupName(t *testing.T) {
	d := &doc{}
	g := NewGroup[*doc]("")
	if !g.IsEmpty() {
		t.Error("new group should be empty")
	}

	if err := g.AddUndoStep(insert(d, 0, "a")); err != nil {
		t.Fatal(err)
	}
	if g.Name() != "insert a" {
		t.Errorf("Name() = %q, want the only step's name", g.Name())
	}

	g.Label = "batch"
	if g.Name() != "batch" {
		t.Errorf("Name() = %q, want %q", g.Name(), "batch")
	}
}

func TestGroupStepsIsCopy(t *testing.T) {
	d := &doc{}
	g := NewGroup[*doc]("")
	if err := g.AddUndoStep(insert(d, 0, "a")); err != nil {
		t.Fatal(err)
	}

	steps := g.Steps()
	steps[0] = nil

	if g.Steps()[0] == nil {
		t.Error("Steps() exposed the group's slice")
	}
	if err := g.AddUndoStep(nil); !errors.Is(err, ErrNilStep) {
		t.Errorf("AddUndoStep(nil) = %v, want ErrNilStep", err)
	}
}

func TestGroupsCoalesceNever(t *testing.T) {
	d := &doc{}
	m := New[*doc]()
	for i := 0; i < 2; i++ {
		err := m.WithUndo(func(tx *Transaction[*doc]) error {
			if err := tx.AddUndoStep(insert(d, len(d.text), "x")); err != nil {
				return err
			}
			return tx.AddUndoStep(insert(d, len(d.text), "y"))
		})
		if err != nil {
			t.Fatalf("WithUndo failed: %v", err)
		}
	}
	if m.UndoCount() != 2 {
		t.Errorf("UndoCount() = %d, want 2", m.UndoCount())
	}
}
