package knowledge

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

/*
Statement asserts that exactly count of its cells are hazards.

Cells are kept sorted and unique so that equality and the canonical key do
not depend on insertion order. An empty statement carries no information.
*/
type Statement struct {
	cells []Cell
	count int
}

func NewStatement(cells []Cell, count int) (*Statement, error) {
	sorted := slices.Clone(cells)
	slices.SortFunc(sorted, Cell.Compare)
	if len(slices.Compact(sorted)) != len(cells) {
		return nil, fmt.Errorf("%w: duplicate cells in %s", ErrInvalidCount, formatCells(cells))
	}
	s := &Statement{cells: sorted, count: count}
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d of %d cells", ErrInvalidCount, count, len(cells))
	}
	return s, nil
}

func (s *Statement) Cells() []Cell { return slices.Clone(s.cells) }
func (s *Statement) Count() int    { return s.count }
func (s *Statement) Len() int      { return len(s.cells) }
func (s *Statement) Empty() bool   { return s.Len() == 0 }

// Valid reports whether 0 <= count <= |cells|.
func (s *Statement) Valid() bool {
	return 0 <= s.count && s.count <= s.Len()
}

func (s *Statement) index(c Cell) (int, bool) {
	return slices.BinarySearchFunc(s.cells, c, Cell.Compare)
}

func (s *Statement) Contains(c Cell) bool {
	_, ok := s.index(c)
	return ok
}

// MarkHazard removes c from the statement along with the hazard it accounts for.
func (s *Statement) MarkHazard(c Cell) bool {
	i, ok := s.index(c)
	if !ok {
		return false
	}
	s.cells = slices.Delete(s.cells, i, i+1)
	s.count--
	return true
}

// MarkSafe removes c from the statement; the count is unchanged.
func (s *Statement) MarkSafe(c Cell) bool {
	i, ok := s.index(c)
	if !ok {
		return false
	}
	s.cells = slices.Delete(s.cells, i, i+1)
	return true
}

// KnownHazards returns every cell when all of them must be hazards.
func (s *Statement) KnownHazards() []Cell {
	if len(s.cells) == s.count {
		return s.Cells()
	}
	return nil
}

// KnownSafes returns every cell when none of them can be a hazard.
func (s *Statement) KnownSafes() []Cell {
	if s.count == 0 {
		return s.Cells()
	}
	return nil
}

// IsStrictSubsetOf reports whether s.cells is a proper subset of o.cells.
func (s *Statement) IsStrictSubsetOf(o *Statement) bool {
	if len(s.cells) >= len(o.cells) {
		return false
	}
	for _, c := range s.cells {
		if !o.Contains(c) {
			return false
		}
	}
	return true
}

// Without derives {s.cells - sub.cells, s.count - sub.count}. It is only
// meaningful when sub's cells are a strict subset of s's.
func (s *Statement) Without(sub *Statement) *Statement {
	cells := make([]Cell, 0, len(s.cells))
	for _, c := range s.cells {
		if !sub.Contains(c) {
			cells = append(cells, c)
		}
	}
	return &Statement{cells: cells, count: s.count - sub.count}
}

func (s *Statement) Equal(o *Statement) bool {
	return s.count == o.count && slices.Equal(s.cells, o.cells)
}

// Key is a canonical representation: equal statements have equal keys.
func (s *Statement) Key() string {
	var b strings.Builder
	for _, c := range s.cells {
		b.WriteString(strconv.Itoa(c.Row))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(c.Col))
		b.WriteByte(';')
	}
	b.WriteByte('=')
	b.WriteString(strconv.Itoa(s.count))
	return b.String()
}

func (s *Statement) clone() *Statement {
	return &Statement{cells: slices.Clone(s.cells), count: s.count}
}

// Statement implements [fmt.Stringer]
func (s *Statement) String() string {
	return fmt.Sprintf("%s = %d", formatCells(s.cells), s.count)
}
