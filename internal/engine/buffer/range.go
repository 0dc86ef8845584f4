package buffer

import "fmt"

// Range represents a byte range in the buffer.
// Start is inclusive, End is exclusive: [Start, End).
type Range struct {
	Start ByteOffset // Inclusive start position
	End   ByteOffset // Exclusive end position
}

// NewRange creates a new Range from start and end offsets.
func NewRange(start, end ByteOffset) Range {
	return Range{Start: start, End: end}
}

// String returns a human-readable representation of the range.
func (r Range) String() string {
	return fmt.Sprintf("[%d:%d)", r.Start, r.End)
}

// Len returns the length of the range in bytes.
func (r Range) Len() ByteOffset {
	return r.End - r.Start
}

// IsEmpty returns true if the range has zero length.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// IsValid returns true if the range is valid (Start <= End).
func (r Range) IsValid() bool {
	return r.Start <= r.End
}

// Edit replaces the text in Range with NewText.
type Edit struct {
	Range   Range
	NewText string

	// Raw stores NewText exactly as given, without line-ending or Unicode
	// normalization. Undo and redo use it to put back text the buffer
	// already held.
	Raw bool
}

// EditResult describes an applied edit.
type EditResult struct {
	OldRange Range  // Range that was replaced
	NewRange Range  // Range now occupied by the inserted text
	OldText  string // Text that was replaced
	NewText  string // Text that was inserted, after normalization
}

// Delta returns the change in buffer length.
func (r EditResult) Delta() int64 {
	return r.NewRange.Len() - r.OldRange.Len()
}
