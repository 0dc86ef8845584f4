// Package textstep provides undo steps for edits made to a buffer.Buffer.
//
// Each step describes an edit that has already been applied. Undo reverses it
// and Redo applies it again. Insert and Delete steps coalesce consecutive
// keystrokes according to a Policy, so that typing a word or holding
// backspace undoes as one unit.
package textstep

import (
	"fmt"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/dshills/stepundo/internal/engine/buffer"
	"github.com/dshills/stepundo/internal/engine/history"
)

// ByteOffset is an alias for buffer.ByteOffset for convenience.
type ByteOffset = buffer.ByteOffset

// Step is the step type recorded for buffers.
type Step = history.Step[*buffer.Buffer]

// DefaultWindow is the default maximum pause between coalesced keystrokes.
const DefaultWindow = time.Second

// Policy controls keystroke coalescing.
type Policy struct {
	// Window is the longest pause between two keystrokes that still merge.
	// Zero or negative disables the time limit.
	Window time.Duration

	// WordBoundaries starts a new undo unit when typing resumes after whitespace.
	WordBoundaries bool

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		Window:         DefaultWindow,
		WordBoundaries: true,
		Now:            time.Now,
	}
}

func (p Policy) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p Policy) within(last, next time.Time) bool {
	return p.Window <= 0 || next.Sub(last) <= p.Window
}

// isKeystroke reports whether text looks like a single typed character.
// Newlines are excluded so that each line undoes separately.
func isKeystroke(text string) bool {
	if uniseg.GraphemeClusterCount(text) != 1 {
		return false
	}
	return text != "\n" && text != "\r\n" && text != "\r"
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

// startsWord reports whether next begins a new word after prev.
func startsWord(prev, next string) bool {
	return unicode.IsSpace(lastRune(prev)) && !unicode.IsSpace(firstRune(next))
}

// Insert records an insertion of Text at Offset.
type Insert struct {
	history.Base[*buffer.Buffer]
	Offset ByteOffset
	Text   string

	policy Policy
	last   time.Time
	typing bool
}

// NewInsert creates an insert step. text must be the text as stored in the
// buffer, i.e. after normalization.
func NewInsert(offset ByteOffset, text string, policy Policy) *Insert {
	return &Insert{
		Offset: offset,
		Text:   text,
		policy: policy,
		last:   policy.now(),
		typing: isKeystroke(text),
	}
}

// End returns the offset just past the inserted text.
func (s *Insert) End() ByteOffset {
	return s.Offset + ByteOffset(len(s.Text))
}

// Undo removes the inserted text.
func (s *Insert) Undo(buf *buffer.Buffer) error {
	if err := splice(buf, s.Offset, s.End(), ""); err != nil {
		return fmt.Errorf("undo insert at %d: %w", s.Offset, err)
	}
	return nil
}

// Redo inserts the text again.
func (s *Insert) Redo(buf *buffer.Buffer) error {
	if err := splice(buf, s.Offset, s.Offset, s.Text); err != nil {
		return fmt.Errorf("redo insert at %d: %w", s.Offset, err)
	}
	return nil
}

// Coalesce absorbs a keystroke typed right after this insertion.
func (s *Insert) Coalesce(next Step) (bool, error) {
	n, ok := next.(*Insert)
	if !ok || n.Offset != s.End() {
		return false, nil
	}
	if !s.typing || !n.typing || !s.policy.within(s.last, n.last) {
		return false, nil
	}
	if s.policy.WordBoundaries && startsWord(s.Text, n.Text) {
		return false, nil
	}

	s.Text += n.Text
	s.last = n.last
	return true, nil
}

// Name returns a human-readable description.
func (s *Insert) Name() string {
	if s.Label != "" {
		return s.Label
	}
	switch s.Text {
	case "\n", "\r\n", "\r":
		return "Insert newline"
	case "\t":
		return "Insert tab"
	}
	n := uniseg.GraphemeClusterCount(s.Text)
	if n == 1 {
		return fmt.Sprintf("Type '%s'", s.Text)
	}
	if n <= 20 {
		return fmt.Sprintf("Insert %q", s.Text)
	}
	return fmt.Sprintf("Insert %d characters", n)
}

// Direction specifies the direction of a deletion.
type Direction int

const (
	// Backward deletes before the cursor (like Backspace).
	Backward Direction = iota
	// Forward deletes after the cursor (like Delete).
	Forward
)

// Delete records the removal of Text from Start.
type Delete struct {
	history.Base[*buffer.Buffer]
	Start     ByteOffset
	Text      string
	Direction Direction

	policy Policy
	last   time.Time
	typing bool
}

// NewDelete creates a delete step for text removed at start.
func NewDelete(start ByteOffset, text string, dir Direction, policy Policy) *Delete {
	return &Delete{
		Start:     start,
		Text:      text,
		Direction: dir,
		policy:    policy,
		last:      policy.now(),
		typing:    isKeystroke(text),
	}
}

// End returns the end of the deleted range in the original text.
func (s *Delete) End() ByteOffset {
	return s.Start + ByteOffset(len(s.Text))
}

// Undo puts the deleted text back.
func (s *Delete) Undo(buf *buffer.Buffer) error {
	if err := splice(buf, s.Start, s.Start, s.Text); err != nil {
		return fmt.Errorf("undo delete at %d: %w", s.Start, err)
	}
	return nil
}

// Redo deletes the text again.
func (s *Delete) Redo(buf *buffer.Buffer) error {
	if err := splice(buf, s.Start, s.End(), ""); err != nil {
		return fmt.Errorf("redo delete at %d: %w", s.Start, err)
	}
	return nil
}

// Coalesce absorbs a contiguous single-character deletion in the same direction.
func (s *Delete) Coalesce(next Step) (bool, error) {
	n, ok := next.(*Delete)
	if !ok || n.Direction != s.Direction {
		return false, nil
	}
	if !s.typing || !n.typing || !s.policy.within(s.last, n.last) {
		return false, nil
	}

	switch s.Direction {
	case Backward:
		if n.End() != s.Start {
			return false, nil
		}
		s.Start = n.Start
		s.Text = n.Text + s.Text
	case Forward:
		if n.Start != s.Start {
			return false, nil
		}
		s.Text += n.Text
	default:
		return false, nil
	}
	s.last = n.last
	return true, nil
}

// Name returns a human-readable description.
func (s *Delete) Name() string {
	if s.Label != "" {
		return s.Label
	}
	n := uniseg.GraphemeClusterCount(s.Text)
	if n == 1 {
		if s.Direction == Backward {
			return "Backspace"
		}
		return "Delete"
	}
	if s.Direction == Backward {
		return fmt.Sprintf("Backspace %d characters", n)
	}
	return fmt.Sprintf("Delete %d characters", n)
}

// Replace records OldText at Start being replaced by NewText.
// Replacements never coalesce.
type Replace struct {
	history.Base[*buffer.Buffer]
	Start   ByteOffset
	OldText string
	NewText string
}

// NewReplace creates a replace step from an applied edit.
func NewReplace(res buffer.EditResult) *Replace {
	return &Replace{
		Start:   res.OldRange.Start,
		OldText: res.OldText,
		NewText: res.NewText,
	}
}

// Undo restores the old text.
func (s *Replace) Undo(buf *buffer.Buffer) error {
	end := s.Start + ByteOffset(len(s.NewText))
	if err := splice(buf, s.Start, end, s.OldText); err != nil {
		return fmt.Errorf("undo replace at %d: %w", s.Start, err)
	}
	return nil
}

// Redo applies the replacement again.
func (s *Replace) Redo(buf *buffer.Buffer) error {
	end := s.Start + ByteOffset(len(s.OldText))
	if err := splice(buf, s.Start, end, s.NewText); err != nil {
		return fmt.Errorf("redo replace at %d: %w", s.Start, err)
	}
	return nil
}

// Name returns a human-readable description.
func (s *Replace) Name() string {
	if s.Label != "" {
		return s.Label
	}
	oldLen := uniseg.GraphemeClusterCount(s.OldText)
	newLen := uniseg.GraphemeClusterCount(s.NewText)
	return fmt.Sprintf("Replace %d with %d characters", oldLen, newLen)
}

// FromEdit builds the step matching an applied edit: Insert for pure
// insertions, Delete for pure deletions and Replace otherwise.
func FromEdit(res buffer.EditResult, policy Policy) Step {
	switch {
	case res.OldRange.IsEmpty():
		return NewInsert(res.OldRange.Start, res.NewText, policy)
	case res.NewText == "":
		return NewDelete(res.OldRange.Start, res.OldText, Forward, policy)
	default:
		return NewReplace(res)
	}
}

// splice replaces [start, end) with text exactly as it was recorded. Recorded
// text already went through the buffer's normalization once.
func splice(buf *buffer.Buffer, start, end ByteOffset, text string) error {
	_, err := buf.ApplyEdit(buffer.Edit{Range: buffer.NewRange(start, end), NewText: text, Raw: true})
	return err
}
