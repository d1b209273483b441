package tokenizer

import "sort"

// LineIndex maps byte offsets in a buffer to 1-indexed line/column pairs.
// Line starts are computed once; each lookup is a binary search.
type LineIndex struct {
	starts []int
	length int
}

// NewLineIndex builds the index for src.
func NewLineIndex(src string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts, length: len(src)}
}

// Position returns the position of the given byte offset. Offsets past the
// end of the buffer are clamped to it.
func (ix *LineIndex) Position(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > ix.length {
		offset = ix.length
	}

	line := sort.SearchInts(ix.starts, offset+1) - 1
	return Position{
		Line:   line + 1,
		Column: offset - ix.starts[line] + 1,
		Offset: offset,
	}
}

// LineCount returns the number of lines in the indexed buffer.
func (ix *LineIndex) LineCount() int {
	return len(ix.starts)
}

// Rebase translates a position local to an extracted sub-buffer into the
// coordinates of the original buffer, given the sub-buffer's start position.
// Columns shift only on the first line of the extracted region.
func Rebase(base, local Position) Position {
	p := Position{
		Line:   base.Line + local.Line - 1,
		Column: local.Column,
		Offset: base.Offset + local.Offset,
	}
	if local.Line == 1 {
		p.Column = base.Column + local.Column - 1
	}
	return p
}
