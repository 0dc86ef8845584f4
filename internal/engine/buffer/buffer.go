package buffer

import (
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// Errors returned by buffer operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
	ErrNotBoundary      = errors.New("offset splits a UTF-8 sequence")
)

// ByteOffset represents a byte position in the buffer.
type ByteOffset = int64

// RevisionID identifies a buffer revision. Every edit produces a new one.
type RevisionID uint64

var revisionCounter uint64

// NewRevisionID generates a new unique revision ID.
func NewRevisionID() RevisionID {
	return RevisionID(atomic.AddUint64(&revisionCounter, 1))
}

// LineEnding specifies the line ending style.
type LineEnding uint8

const (
	LineEndingLF   LineEnding = iota // Unix: \n
	LineEndingCRLF                   // Windows: \r\n
	LineEndingCR                     // Old Mac: \r
)

// String returns the string representation of the line ending.
func (le LineEnding) String() string {
	switch le {
	case LineEndingCRLF:
		return "\\r\\n"
	case LineEndingCR:
		return "\\r"
	default:
		return "\\n"
	}
}

// Normalization selects the Unicode normalization form applied to inserted text.
type Normalization uint8

const (
	NormalizeNone Normalization = iota
	NormalizeNFC
	NormalizeNFD
)

// ParseNormalization maps "", "none", "nfc" and "nfd" to a Normalization.
func ParseNormalization(s string) (Normalization, bool) {
	switch strings.ToLower(s) {
	case "", "none":
		return NormalizeNone, true
	case "nfc":
		return NormalizeNFC, true
	case "nfd":
		return NormalizeNFD, true
	default:
		return NormalizeNone, false
	}
}

// Buffer holds UTF-8 text. All methods are thread-safe.
type Buffer struct {
	mu            sync.RWMutex
	text          string
	revisionID    RevisionID
	lineEnding    LineEnding
	normalization Normalization
}

// NewBuffer creates a new empty buffer.
func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		revisionID: NewRevisionID(),
		lineEnding: LineEndingLF,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewBufferFromString creates a buffer with initial content.
func NewBufferFromString(s string, opts ...Option) *Buffer {
	b := NewBuffer(opts...)
	b.text = b.normalize(s)
	return b
}

// NewBufferFromReader creates a buffer from an io.Reader.
func NewBufferFromReader(r io.Reader, opts ...Option) (*Buffer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return NewBufferFromString(string(data), opts...), nil
}

// Normalize returns text as the buffer would store it.
func (b *Buffer) Normalize(text string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.normalize(text)
}

func (b *Buffer) normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	switch b.lineEnding {
	case LineEndingCRLF:
		s = strings.ReplaceAll(s, "\n", "\r\n")
	case LineEndingCR:
		s = strings.ReplaceAll(s, "\n", "\r")
	}

	switch b.normalization {
	case NormalizeNFC:
		s = norm.NFC.String(s)
	case NormalizeNFD:
		s = norm.NFD.String(s)
	}
	return s
}

// Read Operations

// Text returns the full buffer content.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// TextRange returns text in the given byte range, clamped to the buffer.
func (b *Buffer) TextRange(start, end ByteOffset) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := ByteOffset(len(b.text))
	start = min(max(start, 0), n)
	end = min(max(end, start), n)
	return b.text[start:end]
}

// Len returns the buffer length in bytes.
func (b *Buffer) Len() ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return ByteOffset(len(b.text))
}

// IsEmpty returns true if the buffer has no content.
func (b *Buffer) IsEmpty() bool {
	return b.Len() == 0
}

// LineCount returns the number of lines. An empty buffer has one line.
func (b *Buffer) LineCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sep := "\n"
	if b.lineEnding == LineEndingCR {
		sep = "\r"
	}
	return strings.Count(b.text, sep) + 1
}

// RevisionID returns the current revision ID.
func (b *Buffer) RevisionID() RevisionID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revisionID
}

// Write Operations

// Insert inserts text at the given offset.
// Returns the end position of the inserted text.
func (b *Buffer) Insert(offset ByteOffset, text string) (ByteOffset, error) {
	res, err := b.ApplyEdit(Edit{Range: Range{Start: offset, End: offset}, NewText: text})
	if err != nil {
		return 0, err
	}
	return res.NewRange.End, nil
}

// Delete removes text in the given range.
func (b *Buffer) Delete(start, end ByteOffset) error {
	_, err := b.ApplyEdit(Edit{Range: Range{Start: start, End: end}})
	return err
}

// Replace replaces text in the given range with new text.
// Returns the end position of the replacement text.
func (b *Buffer) Replace(start, end ByteOffset, text string) (ByteOffset, error) {
	res, err := b.ApplyEdit(Edit{Range: Range{Start: start, End: end}, NewText: text})
	if err != nil {
		return 0, err
	}
	return res.NewRange.End, nil
}

// ApplyEdit applies a single edit to the buffer.
func (b *Buffer) ApplyEdit(edit Edit) (EditResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkRange(edit.Range); err != nil {
		return EditResult{}, err
	}

	r := edit.Range
	oldText := b.text[r.Start:r.End]
	text := edit.NewText
	if !edit.Raw {
		text = b.normalize(text)
	}
	b.text = b.text[:r.Start] + text + b.text[r.End:]
	b.revisionID = NewRevisionID()

	return EditResult{
		OldRange: r,
		NewRange: Range{Start: r.Start, End: r.Start + ByteOffset(len(text))},
		OldText:  oldText,
		NewText:  text,
	}, nil
}

func (b *Buffer) checkRange(r Range) error {
	n := ByteOffset(len(b.text))
	if r.Start < 0 || r.Start > n {
		return ErrOffsetOutOfRange
	}
	if !r.IsValid() || r.End > n {
		return ErrRangeInvalid
	}
	if !b.isBoundary(r.Start) || !b.isBoundary(r.End) {
		return ErrNotBoundary
	}
	return nil
}

func (b *Buffer) isBoundary(off ByteOffset) bool {
	return off == ByteOffset(len(b.text)) || utf8.RuneStart(b.text[off])
}

// Grapheme Navigation

// PrevGrapheme returns the start of the grapheme cluster that ends at offset.
// It returns 0 at the start of the buffer.
func (b *Buffer) PrevGrapheme(offset ByteOffset) ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()

	offset = min(max(offset, 0), ByteOffset(len(b.text)))
	var pos, prev ByteOffset
	rest := b.text[:offset]
	state := -1
	for len(rest) > 0 {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		prev = pos
		pos += ByteOffset(len(cluster))
	}
	return prev
}

// NextGrapheme returns the end of the grapheme cluster that starts at offset.
// It returns Len() at the end of the buffer.
func (b *Buffer) NextGrapheme(offset ByteOffset) ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := ByteOffset(len(b.text))
	offset = min(max(offset, 0), n)
	if offset == n {
		return n
	}
	cluster, _, _, _ := uniseg.FirstGraphemeClusterInString(b.text[offset:], -1)
	return offset + ByteOffset(len(cluster))
}

// GraphemeCount returns the number of user-perceived characters.
func (b *Buffer) GraphemeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return uniseg.GraphemeClusterCount(b.text)
}
