package engine

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/stepundo/internal/engine/buffer"
	"github.com/dshills/stepundo/internal/engine/history"
	"github.com/dshills/stepundo/internal/engine/textstep"
	"github.com/dshills/stepundo/internal/logging"
)

// Re-export commonly used types for convenience.
type (
	// ByteOffset is a byte position in the buffer.
	ByteOffset = buffer.ByteOffset

	// Range represents a byte range in the buffer.
	Range = buffer.Range

	// LineEnding specifies the line ending style.
	LineEnding = buffer.LineEnding

	// RevisionID uniquely identifies a buffer revision.
	RevisionID = buffer.RevisionID

	// Checkpoint marks a position in the undo history.
	Checkpoint = history.Checkpoint
)

// Re-export constants.
const (
	LineEndingLF   = buffer.LineEndingLF
	LineEndingCRLF = buffer.LineEndingCRLF
	LineEndingCR   = buffer.LineEndingCR
)

// recorder receives undo steps. The history manager and an open
// transaction both satisfy it.
type recorder interface {
	AddUndoStep(step history.Step[*buffer.Buffer]) error
}

// Engine is the main facade for the text engine.
// It combines a buffer with its undo history into a unified, thread-safe API.
//
// All operations are thread-safe and can be called from multiple goroutines.
type Engine struct {
	mu sync.RWMutex

	id uuid.UUID

	// Core components
	buf     *buffer.Buffer
	history *history.Manager[*buffer.Buffer]
	policy  textstep.Policy
	logger  *logging.Logger

	// Configuration
	lineEnding     buffer.LineEnding
	normalization  buffer.Normalization
	maxUndoEntries int
	strictNesting  bool
	readOnly       bool

	// Initialization
	initContent string
}

// New creates a new Engine with the given options.
func New(opts ...Option) *Engine {
	e := newEngine(opts)
	e.buf = buffer.NewBufferFromString(e.initContent, e.bufferOptions()...)
	return e
}

// NewFromReader creates an Engine from an io.Reader.
// WithContent is ignored.
func NewFromReader(r io.Reader, opts ...Option) (*Engine, error) {
	e := newEngine(opts)

	buf, err := buffer.NewBufferFromReader(r, e.bufferOptions()...)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	e.buf = buf
	return e, nil
}

func newEngine(opts []Option) *Engine {
	e := &Engine{
		id:             uuid.New(),
		lineEnding:     buffer.LineEndingLF,
		maxUndoEntries: DefaultMaxUndoEntries,
		policy: textstep.Policy{
			Window:         DefaultCoalesceWindow,
			WordBoundaries: true,
			Now:            time.Now,
		},
	}

	// Apply options to get configuration
	for _, opt := range opts {
		opt(e)
	}

	e.logger = logging.OrNull(e.logger).WithField("engine", e.id.String())

	histOpts := []history.Option{
		history.WithMaxEntries(e.maxUndoEntries),
		history.WithLogger(e.logger.WithComponent("history")),
	}
	if e.strictNesting {
		histOpts = append(histOpts, history.WithStrictNesting())
	}
	e.history = history.New[*buffer.Buffer](histOpts...)

	return e
}

func (e *Engine) bufferOptions() []buffer.Option {
	return []buffer.Option{
		buffer.WithLineEnding(e.lineEnding),
		buffer.WithNormalization(e.normalization),
	}
}

// ============================================================================
// Read Operations
// ============================================================================

// ID returns the engine's unique identifier.
func (e *Engine) ID() uuid.UUID {
	return e.id
}

// Text returns the full buffer content.
func (e *Engine) Text() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.Text()
}

// TextRange returns text in the given byte range.
func (e *Engine) TextRange(start, end ByteOffset) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.TextRange(start, end)
}

// Len returns the total byte length of the buffer.
func (e *Engine) Len() ByteOffset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.Len()
}

// LineCount returns the number of lines.
func (e *Engine) LineCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.LineCount()
}

// IsEmpty returns true if the buffer is empty.
func (e *Engine) IsEmpty() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.IsEmpty()
}

// RevisionID returns the current buffer revision.
func (e *Engine) RevisionID() RevisionID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.RevisionID()
}

// IsReadOnly returns true if the engine is read-only.
func (e *Engine) IsReadOnly() bool {
	return e.readOnly
}

// ============================================================================
// Write Operations
// ============================================================================

// Insert inserts text at the given offset.
// Returns the end position of the inserted text.
func (e *Engine) Insert(offset ByteOffset, text string) (ByteOffset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return 0, ErrReadOnly
	}

	return e.insertLocked(e.history, offset, text)
}

// insertLocked performs insertion without acquiring the lock.
func (e *Engine) insertLocked(rec recorder, offset ByteOffset, text string) (ByteOffset, error) {
	res, err := e.applyLocked(rec, buffer.Edit{Range: Range{Start: offset, End: offset}, NewText: text}, textstep.Forward)
	if err != nil {
		return 0, err
	}
	return res.NewRange.End, nil
}

// Delete removes text in the given range.
func (e *Engine) Delete(start, end ByteOffset) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return ErrReadOnly
	}

	return e.deleteLocked(e.history, start, end)
}

// deleteLocked performs deletion without acquiring the lock.
func (e *Engine) deleteLocked(rec recorder, start, end ByteOffset) error {
	_, err := e.applyLocked(rec, buffer.Edit{Range: Range{Start: start, End: end}}, textstep.Forward)
	return err
}

// DeleteBackward deletes n grapheme clusters before offset, like pressing
// Backspace n times. Returns the offset where the deletion started.
// Repeated single-character calls merge into one undo entry.
func (e *Engine) DeleteBackward(offset ByteOffset, n int) (ByteOffset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return 0, ErrReadOnly
	}

	return e.deleteBackwardLocked(e.history, offset, n)
}

func (e *Engine) deleteBackwardLocked(rec recorder, offset ByteOffset, n int) (ByteOffset, error) {
	if offset < 0 || offset > e.buf.Len() {
		return 0, ErrOffsetOutOfRange
	}

	start := offset
	for i := 0; i < n && start > 0; i++ {
		start = e.buf.PrevGrapheme(start)
	}
	if start == offset {
		return offset, nil
	}

	if _, err := e.applyLocked(rec, buffer.Edit{Range: Range{Start: start, End: offset}}, textstep.Backward); err != nil {
		return 0, err
	}
	return start, nil
}

// DeleteForward deletes n grapheme clusters starting at offset, like
// pressing Delete n times.
func (e *Engine) DeleteForward(offset ByteOffset, n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return ErrReadOnly
	}

	return e.deleteForwardLocked(e.history, offset, n)
}

func (e *Engine) deleteForwardLocked(rec recorder, offset ByteOffset, n int) error {
	length := e.buf.Len()
	if offset < 0 || offset > length {
		return ErrOffsetOutOfRange
	}

	end := offset
	for i := 0; i < n && end < length; i++ {
		end = e.buf.NextGrapheme(end)
	}
	if end == offset {
		return nil
	}

	_, err := e.applyLocked(rec, buffer.Edit{Range: Range{Start: offset, End: end}}, textstep.Forward)
	return err
}

// Replace replaces text in the given range with new text.
// Returns the end position of the replacement text.
func (e *Engine) Replace(start, end ByteOffset, text string) (ByteOffset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return 0, ErrReadOnly
	}

	return e.replaceLocked(e.history, start, end, text)
}

// replaceLocked performs replacement without acquiring the lock.
func (e *Engine) replaceLocked(rec recorder, start, end ByteOffset, text string) (ByteOffset, error) {
	res, err := e.applyLocked(rec, buffer.Edit{Range: Range{Start: start, End: end}, NewText: text}, textstep.Forward)
	if err != nil {
		return 0, err
	}
	return res.NewRange.End, nil
}

// applyLocked applies edit to the buffer and records the matching step with
// rec. If the step cannot be recorded the edit is reverted.
func (e *Engine) applyLocked(rec recorder, edit buffer.Edit, dir textstep.Direction) (buffer.EditResult, error) {
	res, err := e.buf.ApplyEdit(edit)
	if err != nil {
		return buffer.EditResult{}, err
	}

	// Nothing changed, nothing to undo.
	if res.OldText == res.NewText {
		return res, nil
	}

	if err := rec.AddUndoStep(e.stepFor(res, dir)); err != nil {
		if _, rerr := e.buf.ApplyEdit(buffer.Edit{Range: res.NewRange, NewText: res.OldText, Raw: true}); rerr != nil {
			e.logger.Error("revert of unrecorded edit at %v failed: %v", res.OldRange, rerr)
			return buffer.EditResult{}, errors.Join(err, rerr)
		}
		return buffer.EditResult{}, err
	}
	return res, nil
}

func (e *Engine) stepFor(res buffer.EditResult, dir textstep.Direction) textstep.Step {
	if dir == textstep.Backward && res.NewText == "" {
		return textstep.NewDelete(res.OldRange.Start, res.OldText, textstep.Backward, e.policy)
	}
	return textstep.FromEdit(res, e.policy)
}

// SetContent replaces the buffer content and clears the undo history.
func (e *Engine) SetContent(content string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return ErrReadOnly
	}
	if e.history.InTransaction() {
		return history.ErrTransactionActive
	}

	e.buf = buffer.NewBufferFromString(content, e.bufferOptions()...)
	e.history.Clear()
	return nil
}

// ============================================================================
// Undo/Redo Operations
// ============================================================================

// Undo undoes the last undo entry. It does nothing when there is nothing to
// undo.
func (e *Engine) Undo() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return ErrReadOnly
	}

	if err := e.history.Undo(e.buf); err != nil {
		e.logger.Warn("undo failed: %v", err)
		return err
	}
	return nil
}

// Redo redoes the last undone entry. It does nothing when there is nothing
// to redo.
func (e *Engine) Redo() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return ErrReadOnly
	}

	if err := e.history.Redo(e.buf); err != nil {
		e.logger.Warn("redo failed: %v", err)
		return err
	}
	return nil
}

// InsertUndoStop ends the current undo entry so that the next edit starts
// a new one.
func (e *Engine) InsertUndoStop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.InsertUndoStop()
}

// Transaction runs fn with the engine locked and records every edit made
// through tx as one undo entry labelled name.
//
// If fn returns an error or panics, its edits are undone and nothing is
// recorded. fn must not call methods on the Engine itself; it uses tx.
func (e *Engine) Transaction(name string, fn func(tx *Tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return ErrReadOnly
	}

	return e.history.WithNamedUndo(name, func(htx *history.Transaction[*buffer.Buffer]) error {
		defer func() {
			if r := recover(); r != nil {
				e.rollback(htx, name)
				panic(r)
			}
		}()

		if err := fn(&Tx{e: e, tx: htx}); err != nil {
			if rerr := e.rollback(htx, name); rerr != nil {
				return errors.Join(err, rerr)
			}
			return err
		}
		return nil
	})
}

func (e *Engine) rollback(htx *history.Transaction[*buffer.Buffer], name string) error {
	n := htx.Len()
	if err := htx.Rollback(e.buf); err != nil {
		e.logger.Error("rollback of transaction %q failed: %v", name, err)
		return err
	}
	if n > 0 {
		e.logger.Debug("rolled back %d edits of transaction %q", n, name)
	}
	return nil
}

// CanUndo returns true if undo is available.
func (e *Engine) CanUndo() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.CanUndo()
}

// CanRedo returns true if redo is available.
func (e *Engine) CanRedo() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.CanRedo()
}

// UndoCount returns the number of undo entries.
func (e *Engine) UndoCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.UndoCount()
}

// RedoCount returns the number of redo entries.
func (e *Engine) RedoCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.RedoCount()
}

// UndoNames returns the descriptions of the undo entries, oldest first.
func (e *Engine) UndoNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.UndoNames()
}

// RedoNames returns the descriptions of the redo entries, oldest first.
func (e *Engine) RedoNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.RedoNames()
}

// ClearHistory clears all undo/redo history.
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Clear()
}

// SetMaxUndoEntries changes the undo limit, dropping the oldest entries if
// needed. Zero removes the limit.
func (e *Engine) SetMaxUndoEntries(max int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maxUndoEntries = max
	e.history.SetMaxEntries(max)
}

// MaxUndoEntries returns the undo limit.
func (e *Engine) MaxUndoEntries() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.MaxEntries()
}

// CreateCheckpoint marks the current point in the undo history.
func (e *Engine) CreateCheckpoint() Checkpoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CreateCheckpoint()
}

// UndoToCheckpoint undoes entries until the history is back at cp.
func (e *Engine) UndoToCheckpoint(cp Checkpoint) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return ErrReadOnly
	}
	return e.history.UndoToCheckpoint(cp, e.buf)
}

// ============================================================================
// Transactions
// ============================================================================

// Tx performs edits inside Engine.Transaction. It is only valid until the
// callback it was passed to returns.
type Tx struct {
	e  *Engine
	tx *history.Transaction[*buffer.Buffer]
}

func (t *Tx) check() error {
	if t.tx.Closed() {
		return history.ErrTransactionClosed
	}
	return nil
}

// Insert inserts text at offset. Returns the end of the inserted text.
func (t *Tx) Insert(offset ByteOffset, text string) (ByteOffset, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	return t.e.insertLocked(t.tx, offset, text)
}

// Delete removes text in the given range.
func (t *Tx) Delete(start, end ByteOffset) error {
	if err := t.check(); err != nil {
		return err
	}
	return t.e.deleteLocked(t.tx, start, end)
}

// DeleteBackward deletes n grapheme clusters before offset.
func (t *Tx) DeleteBackward(offset ByteOffset, n int) (ByteOffset, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	return t.e.deleteBackwardLocked(t.tx, offset, n)
}

// DeleteForward deletes n grapheme clusters starting at offset.
func (t *Tx) DeleteForward(offset ByteOffset, n int) error {
	if err := t.check(); err != nil {
		return err
	}
	return t.e.deleteForwardLocked(t.tx, offset, n)
}

// Replace replaces the given range with text.
func (t *Tx) Replace(start, end ByteOffset, text string) (ByteOffset, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	return t.e.replaceLocked(t.tx, start, end, text)
}

// InsertUndoStop keeps the next edit from merging with the previous one
// inside the transaction.
func (t *Tx) InsertUndoStop() {
	t.tx.InsertUndoStop()
}

// Transaction runs fn as part of this transaction. With strict nesting it
// fails with history.ErrNestedTransaction instead.
func (t *Tx) Transaction(name string, fn func(tx *Tx) error) error {
	if err := t.check(); err != nil {
		return err
	}
	return t.e.history.WithNamedUndo(name, func(htx *history.Transaction[*buffer.Buffer]) error {
		return fn(&Tx{e: t.e, tx: htx})
	})
}

// SetName relabels the undo entry the transaction will record.
func (t *Tx) SetName(name string) {
	t.tx.SetName(name)
}

// Len returns the number of steps recorded so far.
func (t *Tx) Len() int {
	return t.tx.Len()
}

// Text returns the current buffer content.
func (t *Tx) Text() string {
	return t.e.buf.Text()
}

// Length returns the current buffer length in bytes.
func (t *Tx) Length() ByteOffset {
	return t.e.buf.Len()
}
