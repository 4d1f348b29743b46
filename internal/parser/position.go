package parser

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// LineIndex converts between byte offsets and 1-based (line, column)
// positions, where column counts characters (runes) rather than bytes.
type LineIndex struct {
	source []byte
	starts []int // byte offset of each line start
}

// NewLineIndex indexes the line starts of source. "\r\n" and "\n" both end
// a line; a lone "\r" does not.
func NewLineIndex(source []byte) *LineIndex {
	starts := []int{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{source: source, starts: starts}
}

// Lines returns the number of lines in the indexed source.
func (x *LineIndex) Lines() int { return len(x.starts) }

// Offset converts a 1-based line and character column to a byte offset.
func (x *LineIndex) Offset(line, column int) (int, error) {
	if line < 1 || line > len(x.starts) {
		return 0, fmt.Errorf("line %d out of range (1-%d)", line, len(x.starts))
	}
	if column < 1 {
		return 0, fmt.Errorf("column %d out of range", column)
	}
	off := x.starts[line-1]
	end := len(x.source)
	if line < len(x.starts) {
		end = x.starts[line] - 1
	}
	for col := 1; col < column; col++ {
		if off >= end {
			return 0, fmt.Errorf("column %d beyond end of line %d", column, line)
		}
		_, size := utf8.DecodeRune(x.source[off:end])
		off += size
	}
	return off, nil
}

// UTF16Column converts a 1-based column counted in UTF-16 code units, as
// JavaScript engines report them, to a character column on line.
func (x *LineIndex) UTF16Column(line, column int) (int, error) {
	if line < 1 || line > len(x.starts) {
		return 0, fmt.Errorf("line %d out of range (1-%d)", line, len(x.starts))
	}
	if column < 1 {
		return 0, fmt.Errorf("column %d out of range", column)
	}
	off := x.starts[line-1]
	end := len(x.source)
	if line < len(x.starts) {
		end = x.starts[line] - 1
	}
	units, runes := 1, 1
	for units < column {
		if off >= end {
			return 0, fmt.Errorf("column %d beyond end of line %d", column, line)
		}
		r, size := utf8.DecodeRune(x.source[off:end])
		off += size
		if n := utf16.RuneLen(r); n > 0 {
			units += n
		} else {
			units++
		}
		runes++
	}
	if units != column {
		return 0, fmt.Errorf("column %d splits a surrogate pair on line %d", column, line)
	}
	return runes, nil
}

// Position converts a byte offset to a 1-based line and character column.
func (x *LineIndex) Position(offset int) (line, column int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(x.source) {
		offset = len(x.source)
	}
	lo, hi := 0, len(x.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if x.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, utf8.RuneCount(x.source[x.starts[lo]:offset]) + 1
}
