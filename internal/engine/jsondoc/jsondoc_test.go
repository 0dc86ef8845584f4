package jsondoc

import (
	"encoding/json"
	"errors"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/dshills/stepundo/internal/engine/history"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEditor(t *testing.T, src string, opts ...Option) (*Editor, *clock) {
	t.Helper()
	doc, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewEditor(doc, append([]Option{WithClock(c.Now)}, opts...)...), c
}

// Helper to stop a test on an unexpected error.
func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// expectJSON compares the editor content to want, ignoring formatting.
func expectJSON(t *testing.T, e *Editor, want string) {
	t.Helper()
	var got, exp any
	if err := json.Unmarshal([]byte(e.String()), &got); err != nil {
		t.Fatalf("document is not valid JSON: %v: %s", err, e.String())
	}
	if err := json.Unmarshal([]byte(want), &exp); err != nil {
		t.Fatalf("bad expectation %s: %v", want, err)
	}
	if !reflect.DeepEqual(got, exp) {
		t.Errorf("document = %s, want %s", e.String(), want)
	}
}

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(`{"a":[1,2]}`))
	must(t, err)
	if got := doc.Get("a.1").Int(); got != 2 {
		t.Errorf("a.1 = %d, want 2", got)
	}
	if !doc.Exists("a") || doc.Exists("b") {
		t.Error("Exists reported the wrong paths")
	}

	if _, err := Parse([]byte(`{"a":`)); !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("Parse(truncated) = %v, want ErrInvalidJSON", err)
	}
}

func TestNewEditorNilDocument(t *testing.T) {
	e := NewEditor(nil)
	if e.String() != "{}" {
		t.Errorf("String() = %s, want {}", e.String())
	}
}

func TestSetUndoRedo(t *testing.T) {
	e, _ := newTestEditor(t, `{"name":"old"}`)

	must(t, e.Set("name", `"new"`))
	if got := e.Get("name").String(); got != "new" {
		t.Errorf("name = %q, want %q", got, "new")
	}

	must(t, e.Undo())
	expectJSON(t, e, `{"name":"old"}`)

	must(t, e.Redo())
	if got := e.Get("name").String(); got != "new" {
		t.Errorf("name after redo = %q, want %q", got, "new")
	}
}

func TestSetValueCreatesPath(t *testing.T) {
	e, _ := newTestEditor(t, `{}`)

	must(t, e.SetValue("user.tags", []string{"a", "b"}))
	if got := e.Get("user.tags.1").String(); got != "b" {
		t.Errorf("user.tags.1 = %q, want %q", got, "b")
	}

	must(t, e.Undo())
	expectJSON(t, e, `{}`)
}

func TestSetInvalid(t *testing.T) {
	e, _ := newTestEditor(t, `{}`)

	if err := e.Set("a", `{broken`); !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("Set(broken) = %v, want ErrInvalidJSON", err)
	}
	if err := e.Set("", `1`); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Set(empty path) = %v, want ErrInvalidPath", err)
	}
	if e.CanUndo() {
		t.Error("rejected edits should not be recorded")
	}
	if e.String() != "{}" {
		t.Errorf("String() = %s, want {}", e.String())
	}
}

func TestDelete(t *testing.T) {
	e, _ := newTestEditor(t, `{"a":1,"b":2}`)

	must(t, e.Delete("a"))
	expectJSON(t, e, `{"b":2}`)
	if names := e.UndoNames(); !slices.Equal(names, []string{"Delete a"}) {
		t.Errorf("UndoNames() = %v", names)
	}

	must(t, e.Undo())
	expectJSON(t, e, `{"a":1,"b":2}`)

	if err := e.Delete("missing"); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("Delete(missing) = %v, want ErrPathNotFound", err)
	}
	if e.UndoCount() != 0 {
		t.Errorf("UndoCount() = %d, want 0", e.UndoCount())
	}
}

func TestArrayAppendUndo(t *testing.T) {
	e, _ := newTestEditor(t, `{"items":[1,2]}`)

	must(t, e.SetValue("items.-1", 3))
	must(t, e.Delete("items.0"))
	expectJSON(t, e, `{"items":[2,3]}`)

	must(t, e.Undo())
	must(t, e.Undo())
	expectJSON(t, e, `{"items":[1,2]}`)
}

func TestSetCoalescesSamePath(t *testing.T) {
	e, c := newTestEditor(t, `{"n":0}`)

	for i := 1; i <= 3; i++ {
		must(t, e.SetValue("n", i))
		c.Advance(100 * time.Millisecond)
	}
	if names := e.UndoNames(); !slices.Equal(names, []string{"Set n"}) {
		t.Errorf("UndoNames() = %v, want [Set n]", names)
	}

	must(t, e.Undo())
	if got := e.Get("n").Int(); got != 0 {
		t.Errorf("n after undo = %d, want 0", got)
	}
}

func TestSetCoalesceBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		apply func(e *Editor, c *clock) error
	}{
		{"different path", func(e *Editor, c *clock) error {
			return errors.Join(e.SetValue("a", 1), e.SetValue("b", 1))
		}},
		{"outside window", func(e *Editor, c *clock) error {
			err := e.SetValue("a", 1)
			c.Advance(2 * time.Second)
			return errors.Join(err, e.SetValue("a", 2))
		}},
		{"undo stop", func(e *Editor, c *clock) error {
			err := e.SetValue("a", 1)
			e.InsertUndoStop()
			return errors.Join(err, e.SetValue("a", 2))
		}},
		{"set then delete", func(e *Editor, c *clock) error {
			return errors.Join(e.SetValue("a", 1), e.Delete("a"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, c := newTestEditor(t, `{}`)
			must(t, tt.apply(e, c))
			if e.UndoCount() != 2 {
				t.Errorf("UndoCount() = %d, want 2", e.UndoCount())
			}
		})
	}
}

func TestCoalesceDisabled(t *testing.T) {
	e, _ := newTestEditor(t, `{}`, WithCoalesceWindow(0))

	must(t, e.SetValue("a", 1))
	must(t, e.SetValue("a", 2))
	if e.UndoCount() != 2 {
		t.Errorf("UndoCount() = %d, want 2", e.UndoCount())
	}
}

func TestEditClearsRedo(t *testing.T) {
	e, _ := newTestEditor(t, `{}`)

	must(t, e.SetValue("a", 1))
	must(t, e.Undo())
	if !e.CanRedo() {
		t.Fatal("expected a redo entry")
	}

	must(t, e.SetValue("b", 1))
	if e.CanRedo() {
		t.Error("new edit should clear the redo stack")
	}
}

func TestTransaction(t *testing.T) {
	e, _ := newTestEditor(t, `{"a":1}`)

	err := e.Transaction("rename", func(tx *Tx) error {
		v := tx.Get("a").Raw
		if err := tx.Set("b", v); err != nil {
			return err
		}
		return tx.Delete("a")
	})
	must(t, err)
	expectJSON(t, e, `{"b":1}`)
	if names := e.UndoNames(); !slices.Equal(names, []string{"rename"}) {
		t.Errorf("UndoNames() = %v, want [rename]", names)
	}

	must(t, e.Undo())
	expectJSON(t, e, `{"a":1}`)
	must(t, e.Redo())
	expectJSON(t, e, `{"b":1}`)
}

func TestTransactionRollback(t *testing.T) {
	e, _ := newTestEditor(t, `{"a":1}`)
	errAbort := errors.New("abort")

	err := e.Transaction("broken", func(tx *Tx) error {
		must(t, tx.SetValue("b", 2))
		return errAbort
	})

	if !errors.Is(err, errAbort) {
		t.Errorf("Transaction() = %v, want errAbort", err)
	}
	expectJSON(t, e, `{"a":1}`)
	if e.CanUndo() {
		t.Error("failed transaction should not be recorded")
	}
}

func TestTransactionNested(t *testing.T) {
	e, _ := newTestEditor(t, `{}`)

	err := e.Transaction("outer", func(tx *Tx) error {
		if err := tx.SetValue("a", 1); err != nil {
			return err
		}
		return tx.Transaction("inner", func(inner *Tx) error {
			return inner.SetValue("b", 2)
		})
	})
	must(t, err)
	if e.UndoCount() != 1 {
		t.Errorf("UndoCount() = %d, want 1", e.UndoCount())
	}

	strict, _ := newTestEditor(t, `{}`, WithStrictNesting())
	err = strict.Transaction("outer", func(tx *Tx) error {
		return tx.Transaction("inner", func(*Tx) error { return nil })
	})
	if !errors.Is(err, history.ErrNestedTransaction) {
		t.Errorf("nested transaction = %v, want ErrNestedTransaction", err)
	}
}

func TestTxAfterClose(t *testing.T) {
	e, _ := newTestEditor(t, `{}`)

	var leaked *Tx
	must(t, e.Transaction("", func(tx *Tx) error {
		leaked = tx
		return nil
	}))

	if err := leaked.SetValue("a", 1); !errors.Is(err, history.ErrTransactionClosed) {
		t.Errorf("SetValue on closed Tx = %v, want ErrTransactionClosed", err)
	}
	if e.String() != "{}" {
		t.Errorf("String() = %s, want {}", e.String())
	}
}

func TestMaxEntries(t *testing.T) {
	e, _ := newTestEditor(t, `{}`, WithMaxEntries(2), WithCoalesceWindow(0))

	for _, p := range []string{"a", "b", "c"} {
		must(t, e.SetValue(p, true))
	}
	if names := e.UndoNames(); !slices.Equal(names, []string{"Set b", "Set c"}) {
		t.Errorf("UndoNames() = %v", names)
	}
}

func TestKindString(t *testing.T) {
	if KindSet.String() != "set" || KindDelete.String() != "delete" {
		t.Errorf("Kind strings = %q, %q", KindSet.String(), KindDelete.String())
	}
}
