package parser

import "testing"

func TestLineIndexRoundTrip(t *testing.T) {
	src := []byte("ab\r\nçd é\n\nxyz")
	x := NewLineIndex(src)
	if x.Lines() != 4 {
		t.Fatalf("Lines() = %d, want 4", x.Lines())
	}

	tests := []struct {
		line, col int
		offset    int
	}{
		{1, 1, 0},
		{1, 3, 2}, // the '\r'
		{2, 1, 4},
		{2, 2, 6}, // after 'ç' (2 bytes)
		{2, 4, 8},
		{2, 5, 10}, // the '\n' after 'é'
		{3, 1, 11},
		{4, 3, 14},
	}
	for _, tt := range tests {
		off, err := x.Offset(tt.line, tt.col)
		if err != nil {
			t.Fatalf("Offset(%d,%d): %v", tt.line, tt.col, err)
		}
		if off != tt.offset {
			t.Errorf("Offset(%d,%d) = %d, want %d", tt.line, tt.col, off, tt.offset)
		}
		line, col := x.Position(off)
		if line != tt.line || col != tt.col {
			t.Errorf("Position(%d) = %d:%d, want %d:%d", off, line, col, tt.line, tt.col)
		}
	}
}

func TestLineIndexOutOfRange(t *testing.T) {
	x := NewLineIndex([]byte("abc\ndef"))
	for _, tc := range [][2]int{{0, 1}, {3, 1}, {1, 0}, {1, 9}} {
		if _, err := x.Offset(tc[0], tc[1]); err == nil {
			t.Errorf("Offset(%d,%d) should fail", tc[0], tc[1])
		}
	}
}

func TestUTF16Column(t *testing.T) {
	x := NewLineIndex([]byte("a('😀'); b();\né c"))
	tests := []struct {
		line, col int
		want      int
		err       bool
	}{
		{1, 1, 1, false},
		{1, 4, 4, false},  // the emoji
		{1, 6, 5, false},  // closing quote, after two code units
		{1, 10, 9, false}, // 'b'
		{1, 5, 0, true},   // inside the surrogate pair
		{1, 40, 0, true},  // past the end
		{2, 3, 3, false},  // 'é' is one code unit
		{3, 1, 0, true},
	}
	for _, tt := range tests {
		got, err := x.UTF16Column(tt.line, tt.col)
		if (err != nil) != tt.err {
			t.Fatalf("UTF16Column(%d,%d) err = %v", tt.line, tt.col, err)
		}
		if got != tt.want {
			t.Errorf("UTF16Column(%d,%d) = %d, want %d", tt.line, tt.col, got, tt.want)
		}
	}
}
