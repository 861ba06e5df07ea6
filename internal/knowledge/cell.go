package knowledge

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Cell is a (row, col) position on the grid.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Compare orders cells row-major.
func (c Cell) Compare(o Cell) int {
	if r := cmp.Compare(c.Row, o.Row); r != 0 {
		return r
	}
	return cmp.Compare(c.Col, o.Col)
}

// Neighbors returns the in-bounds cells of the 3x3 block around c, excluding c.
func (c Cell) Neighbors(height, width int) []Cell {
	ret := make([]Cell, 0, 8)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			r, col := c.Row+dr, c.Col+dc
			if 0 <= r && r < height && 0 <= col && col < width {
				ret = append(ret, Cell{r, col})
			}
		}
	}
	return ret
}

type cellSet map[Cell]struct{}

func (s cellSet) add(c Cell) bool {
	if _, ok := s[c]; ok {
		return false
	}
	s[c] = struct{}{}
	return true
}

func (s cellSet) has(c Cell) bool {
	_, ok := s[c]
	return ok
}

func (s cellSet) sorted() []Cell {
	ret := make([]Cell, 0, len(s))
	for c := range s {
		ret = append(ret, c)
	}
	slices.SortFunc(ret, Cell.Compare)
	return ret
}

func formatCells(cells []Cell) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, c := range cells {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.String())
	}
	b.WriteByte('}')
	return b.String()
}
