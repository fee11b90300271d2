package braille

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCell is returned when a bit-string is not six "0"/"1" characters.
var ErrInvalidCell = errors.New("invalid braille cell")

const (
	Rows = 3
	Cols = 2
)

// Cell is one six-dot braille cell. Bit i holds position i of the
// bit-string, read row-major: left-to-right, top-to-bottom.
type Cell uint8

// ParseCell parses a 6-character "0"/"1" string such as "101000".
func ParseCell(bits string) (Cell, error) {
	if len(bits) != Rows*Cols {
		return 0, fmt.Errorf("%w: %q has length %d", ErrInvalidCell, bits, len(bits))
	}

	var c Cell
	for i, ch := range bits {
		switch ch {
		case '1':
			c |= 1 << i
		case '0':
		default:
			return 0, fmt.Errorf("%w: %q has %q at position %d", ErrInvalidCell, bits, ch, i)
		}
	}
	return c, nil
}

// Dot reports whether the dot at row (0-2) and col (0-1) is raised.
func (c Cell) Dot(row, col int) bool {
	if row < 0 || row >= Rows || col < 0 || col >= Cols {
		return false
	}
	return c&(1<<(row*Cols+col)) != 0
}

// Rune returns the Unicode braille pattern for the cell. Standard numbering
// puts dots 1-3 down the left column and 4-6 down the right one.
func (c Cell) Rune() rune {
	var r rune
	for row := 0; row < Rows; row++ {
		if c.Dot(row, 0) {
			r |= 1 << row
		}
		if c.Dot(row, 1) {
			r |= 1 << (row + 3)
		}
	}
	return 0x2800 + r
}

// Grid renders the cell as three text rows of filled and empty dots.
func (c Cell) Grid() []string {
	rows := make([]string, Rows)
	for row := 0; row < Rows; row++ {
		var b strings.Builder
		for col := 0; col < Cols; col++ {
			if col > 0 {
				b.WriteByte(' ')
			}
			if c.Dot(row, col) {
				b.WriteString("●")
			} else {
				b.WriteString("○")
			}
		}
		rows[row] = b.String()
	}
	return rows
}

// String returns the bit-string form, the inverse of ParseCell.
func (c Cell) String() string {
	b := make([]byte, Rows*Cols)
	for i := range b {
		if c&(1<<i) != 0 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}
