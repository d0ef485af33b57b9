package wave

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

const eof = -1

//  ---- Location ----

// Location is a point in an input file.  Line and Column are
// 1-based; Column counts Unicode scalar values from the start of the
// line.
type Location struct {
	Line   int
	Column int
	File   string
}

func NewLocation(line, column int) Location {
	return Location{Line: line, Column: column}
}

func (l Location) String() string {
	if l.File != "" {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

//  ---- Span ----

type Span struct {
	Start Location
	End   Location
}

func NewSpan(start, end Location) Span {
	return Span{Start: start, End: end}
}

func (s Span) String() string {
	if s.Start.Line == s.End.Line {
		if s.Start.Column == s.End.Column {
			return fmt.Sprintf("%d:%d", s.Start.Line, s.Start.Column)
		}
		return fmt.Sprintf("%d:%d..%d", s.Start.Line, s.Start.Column, s.End.Column)
	}
	return fmt.Sprintf("%d:%d..%d:%d", s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

// LineIndex allows fast conversion from byte offsets to line/column
// and recovery of source-line excerpts for diagnostics.
//
// It stores the start byte offset of each line (0-based).  Given an
// offset, it finds the line by binary searching line starts and
// computes the column as (runes since lineStart + 1).
type LineIndex struct {
	input     []byte
	lineStart []int
}

func NewLineIndex(input []byte) *LineIndex {
	lineStart := make([]int, 1, 64)
	lineStart[0] = 0
	for i, b := range input {
		if b == '\n' {
			lineStart = append(lineStart, i+1)
		}
	}
	return &LineIndex{input: input, lineStart: lineStart}
}

func (li *LineIndex) LocationAt(offset int) Location {
	if offset < 0 {
		offset = 0
	}
	if offset > len(li.input) {
		offset = len(li.input)
	}

	lineIdx := sort.Search(len(li.lineStart), func(i int) bool {
		return li.lineStart[i] > offset
	}) - 1
	if lineIdx < 0 {
		lineIdx = 0
	}

	start := li.lineStart[lineIdx]
	col := utf8.RuneCount(li.input[start:offset]) + 1

	return Location{Line: lineIdx + 1, Column: col}
}

// Line returns the text of the 1-based line n, without its trailing
// newline.  Out-of-range lines return the empty string.
func (li *LineIndex) Line(n int) string {
	if n < 1 || n > len(li.lineStart) {
		return ""
	}
	start := li.lineStart[n-1]
	end := len(li.input)
	if n < len(li.lineStart) {
		end = li.lineStart[n] - 1
	}
	if end > start && li.input[end-1] == '\r' {
		end--
	}
	return string(li.input[start:end])
}
