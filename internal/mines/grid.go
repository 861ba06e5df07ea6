package mines

import (
	"fmt"
	"strconv"
	"strings"
)

type CellState int8

/*
Each item of a player grid is one of:

  - 0 to 8: the cell is open and has that many mined neighbours.
  - Flagged: the cell is marked as a mine.
  - Unknown: the cell is still covered.
  - CorrectlyFlagged, ExplodedMine, FalselyFlagged, UnflaggedMine: set when
    the game is over and the mines are revealed.
*/
const (
	Unknown          CellState = -2
	Flagged          CellState = -1
	CorrectlyFlagged CellState = 64
	ExplodedMine     CellState = 65
	FalselyFlagged   CellState = 66
	UnflaggedMine    CellState = 67
)

func (s CellState) Open() bool {
	return 0 <= s && s <= 8
}

func (s CellState) String() string {
	switch {
	case s == Unknown:
		return "-"
	case s == Flagged:
		return "F"
	case s == 0:
		return "."
	case s.Open():
		return strconv.Itoa(int(s))
	case s == CorrectlyFlagged:
		return "*"
	case s == ExplodedMine:
		return "X"
	case s == FalselyFlagged:
		return "f"
	case s == UnflaggedMine:
		return "*"
	default:
		return "!"
	}
}

type Grid []CellState

func (g Grid) ToString(width int) string {
	var b strings.Builder
	fmt.Fprint(&b, "   ")
	for x := range width {
		fmt.Fprintf(&b, "%d ", x%10)
	}
	fmt.Fprint(&b, "\n")
	for y := range len(g) / width {
		fmt.Fprintf(&b, "%2d ", y)
		for x := range width {
			fmt.Fprint(&b, g[y*width+x].String()+" ")
		}
		fmt.Fprint(&b, "\n")
	}
	return b.String()
}
