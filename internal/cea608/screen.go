package cea608

import (
	"strings"

	"github.com/zsiec/ccextract/internal/media"
)

const (
	numRows    = 15
	numColumns = 32
	defaultRow = numRows - 1
)

type cell struct {
	r     rune // 0 = empty
	style media.Style
}

// memory is one 15x32 caption buffer. Displayed and non-displayed memory
// are both memories; EOC swaps them.
type memory [numRows][numColumns]cell

func (m *memory) put(row, col int, r rune, style media.Style) {
	m[row][col] = cell{r: r, style: style}
}

func (m *memory) clearCell(row, col int) {
	m[row][col] = cell{}
}

func (m *memory) clearRow(row int) {
	m[row] = [numColumns]cell{}
}

// clearFrom deletes the cells of row from col to the end.
func (m *memory) clearFrom(row, col int) {
	for c := col; c < numColumns; c++ {
		m[row][c] = cell{}
	}
}

func (m *memory) erase() {
	*m = memory{}
}

func (m *memory) rowEmpty(row int) bool {
	for _, c := range m[row] {
		if c.r != 0 {
			return false
		}
	}
	return true
}

func (m *memory) empty() bool {
	for r := range numRows {
		if !m.rowEmpty(r) {
			return false
		}
	}
	return true
}

// rollUp scrolls the window of n rows ending at base up by one row and
// clears the base row. Rows outside the window are cleared.
func (m *memory) rollUp(base, n int) {
	top := base - n + 1
	for r := top; r < base; r++ {
		m[r] = m[r+1]
	}
	m.clearRow(base)
	m.clearOutside(top, base)
}

func (m *memory) clearOutside(top, base int) {
	for r := range numRows {
		if r < top || r > base {
			m.clearRow(r)
		}
	}
}

// moveWindow relocates the n-row window ending at from so it ends at to.
func (m *memory) moveWindow(from, to, n int) {
	var moved memory
	for i := range n {
		src, dst := from-i, to-i
		if src < 0 || dst < 0 {
			break
		}
		moved[dst] = m[src]
	}
	*m = moved
}

// Row is one non-empty line of a displayed caption.
type Row struct {
	Index int // 0-14, top to bottom
	Text  string
	Style media.Style
}

// rowText renders one row. Gaps between characters become spaces and
// leading and trailing empty cells are dropped.
func (m *memory) rowText(row int) (string, media.Style) {
	first, last := -1, -1
	for c, cl := range m[row] {
		if cl.r == 0 {
			continue
		}
		if first < 0 {
			first = c
		}
		last = c
	}
	if first < 0 {
		return "", media.Style{}
	}
	var b strings.Builder
	var style media.Style
	styled := false
	for _, cl := range m[row][first : last+1] {
		if cl.r == 0 {
			b.WriteByte(' ')
			continue
		}
		if !styled && cl.r != ' ' {
			style, styled = cl.style, true
		}
		b.WriteRune(cl.r)
	}
	return b.String(), style
}

// rows snapshots every non-empty row.
func (m *memory) rows() []Row {
	var out []Row
	for r := range numRows {
		text, style := m.rowText(r)
		if text == "" {
			continue
		}
		out = append(out, Row{Index: r, Text: text, Style: style})
	}
	return out
}
