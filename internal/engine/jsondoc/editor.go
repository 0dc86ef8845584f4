package jsondoc

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/stepundo/internal/engine/history"
	"github.com/dshills/stepundo/internal/logging"
)

// DefaultCoalesceWindow is the default window in which repeated sets of one
// path merge.
const DefaultCoalesceWindow = time.Second

type recorder interface {
	AddUndoStep(step history.Step[*Document]) error
}

// Editor edits a Document with undo support. All methods are thread-safe.
type Editor struct {
	mu      sync.Mutex
	doc     *Document
	history *history.Manager[*Document]
	logger  *logging.Logger

	window time.Duration
	now    func() time.Time

	histOpts []history.Option
}

// Option configures an Editor.
type Option func(*Editor)

// WithMaxEntries limits the number of undo entries. Zero means unlimited.
func WithMaxEntries(max int) Option {
	return func(e *Editor) {
		e.histOpts = append(e.histOpts, history.WithMaxEntries(max))
	}
}

// WithStrictNesting makes nested transactions fail instead of joining the
// outer one.
func WithStrictNesting() Option {
	return func(e *Editor) {
		e.histOpts = append(e.histOpts, history.WithStrictNesting())
	}
}

// WithCoalesceWindow sets the window in which sets of the same path merge.
// Zero disables merging.
func WithCoalesceWindow(d time.Duration) Option {
	return func(e *Editor) {
		e.window = d
	}
}

// WithClock sets the time source used for merging.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the editor's logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Editor) {
		e.logger = l
	}
}

// NewEditor creates an editor for doc. A nil doc starts from an empty object.
func NewEditor(doc *Document, opts ...Option) *Editor {
	if doc == nil {
		doc = New()
	}
	e := &Editor{
		doc:    doc,
		window: DefaultCoalesceWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrNull(e.logger).WithComponent("jsondoc")
	e.histOpts = append(e.histOpts, history.WithLogger(e.logger))
	e.history = history.New[*Document](e.histOpts...)
	return e
}

// Get returns the value at path.
func (e *Editor) Get(path string) gjson.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Get(path)
}

// String returns the JSON text.
func (e *Editor) String() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.String()
}

// Set stores the raw JSON value at path, creating intermediate objects.
func (e *Editor) Set(path, raw string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setLocked(e.history, path, raw)
}

// SetValue stores v at path. v is encoded the way encoding/json would.
func (e *Editor) SetValue(path string, v any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setValueLocked(e.history, path, v)
}

// Delete removes the value at path.
func (e *Editor) Delete(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deleteLocked(e.history, path)
}

func (e *Editor) setLocked(rec recorder, path, raw string) error {
	if path == "" {
		return ErrInvalidPath
	}
	if !gjson.Valid(raw) {
		return fmt.Errorf("set %s: %w", path, ErrInvalidJSON)
	}
	after, err := sjson.SetRaw(e.doc.raw, path, raw)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return e.commitLocked(rec, KindSet, path, after)
}

func (e *Editor) setValueLocked(rec recorder, path string, v any) error {
	if path == "" {
		return ErrInvalidPath
	}
	after, err := sjson.Set(e.doc.raw, path, v)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return e.commitLocked(rec, KindSet, path, after)
}

func (e *Editor) deleteLocked(rec recorder, path string) error {
	if path == "" {
		return ErrInvalidPath
	}
	if !e.doc.Exists(path) {
		return fmt.Errorf("delete %s: %w", path, ErrPathNotFound)
	}
	after, err := sjson.Delete(e.doc.raw, path)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return e.commitLocked(rec, KindDelete, path, after)
}

// commitLocked replaces the document text and records the change. Edits
// that leave the text unchanged are not recorded.
func (e *Editor) commitLocked(rec recorder, kind Kind, path, after string) error {
	before := e.doc.raw
	if before == after {
		return nil
	}

	e.doc.raw = after
	if err := rec.AddUndoStep(newChange(kind, path, before, after, e.now(), e.window)); err != nil {
		e.doc.raw = before
		return err
	}
	e.logger.Debug("%s %s", kind, path)
	return nil
}

// Undo reverses the last undo entry.
func (e *Editor) Undo() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Undo(e.doc)
}

// Redo reapplies the last undone entry.
func (e *Editor) Redo() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Redo(e.doc)
}

// InsertUndoStop keeps the next edit from merging with the previous one.
func (e *Editor) InsertUndoStop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.InsertUndoStop()
}

// CanUndo returns true if undo is available.
func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanUndo()
}

// CanRedo returns true if redo is available.
func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanRedo()
}

// UndoCount returns the number of undo entries.
func (e *Editor) UndoCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.UndoCount()
}

// RedoCount returns the number of redo entries.
func (e *Editor) RedoCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.RedoCount()
}

// UndoNames returns the descriptions of the undo entries, oldest first.
func (e *Editor) UndoNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.UndoNames()
}

// Transaction runs fn with the editor locked and records its edits as one
// undo entry labelled name. If fn returns an error the document is restored
// and nothing is recorded. fn must use tx, not the Editor.
func (e *Editor) Transaction(name string, fn func(tx *Tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.history.WithNamedUndo(name, func(htx *history.Transaction[*Document]) error {
		before := e.doc.raw
		defer func() {
			if r := recover(); r != nil {
				e.doc.raw = before
				panic(r)
			}
		}()

		if err := fn(&Tx{e: e, tx: htx}); err != nil {
			if rerr := htx.Rollback(e.doc); rerr != nil {
				return errors.Join(err, rerr)
			}
			e.doc.raw = before
			return err
		}
		return nil
	})
}

// Tx edits the document inside Editor.Transaction.
type Tx struct {
	e  *Editor
	tx *history.Transaction[*Document]
}

func (t *Tx) check() error {
	if t.tx.Closed() {
		return history.ErrTransactionClosed
	}
	return nil
}

// Get returns the value at path.
func (t *Tx) Get(path string) gjson.Result {
	return t.e.doc.Get(path)
}

// Set stores the raw JSON value at path.
func (t *Tx) Set(path, raw string) error {
	if err := t.check(); err != nil {
		return err
	}
	return t.e.setLocked(t.tx, path, raw)
}

// SetValue stores v at path.
func (t *Tx) SetValue(path string, v any) error {
	if err := t.check(); err != nil {
		return err
	}
	return t.e.setValueLocked(t.tx, path, v)
}

// Delete removes the value at path.
func (t *Tx) Delete(path string) error {
	if err := t.check(); err != nil {
		return err
	}
	return t.e.deleteLocked(t.tx, path)
}

// InsertUndoStop keeps the next edit from merging with the previous one.
func (t *Tx) InsertUndoStop() {
	t.tx.InsertUndoStop()
}

// Transaction runs fn as part of this transaction.
func (t *Tx) Transaction(name string, fn func(tx *Tx) error) error {
	if err := t.check(); err != nil {
		return err
	}
	return t.e.history.WithNamedUndo(name, func(htx *history.Transaction[*Document]) error {
		return fn(&Tx{e: t.e, tx: htx})
	})
}
