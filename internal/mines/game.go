package mines

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper-autoplayer/internal/knowledge"
)

var Log = logrus.New()

type GameState struct {
	Dead, Won  bool
	Grid       []bool /* real mine points */
	PlayerGrid Grid   /* player knowledge */
	GameParams
}

func DecodeGameState(buf []byte) (*GameState, error) {
	var game GameState
	err := gob.NewDecoder(bytes.NewBuffer(buf)).Decode(&game)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (g GameState) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(g)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

/*
NewGame places the mines for a game whose first click is start. The start
cell is never mined, and neither are its neighbours when the grid leaves
enough room. With params.Unique set the field is also guaranteed to be
clearable from start without guessing.

No cell is opened yet.
*/
func NewGame(params *GameParams, start knowledge.Cell, r *rand.Rand) (state *GameState, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ae, ok := rec.(AssertionError)
			if !ok {
				panic(rec)
			}
			state, err = nil, ae
		}
	}()

	if err := params.Validate(); err != nil {
		return nil, err
	}
	if !params.PointInBounds(start) {
		return nil, fmt.Errorf("%w: start %s outside the grid", ErrInvalidParams, start)
	}

	grid, err := params.newGrid(start, r)
	if err != nil {
		return nil, err
	}
	state = NewGameFromGrid(*params, grid)
	if state.IsMine(start) {
		return nil, AssertionError{"mine in starting cell"}
	}
	return state, nil
}

// NewGameFromGrid wraps a known mine layout, e.g. a test fixture.
func NewGameFromGrid(params GameParams, grid []bool) *GameState {
	playerGrid := make(Grid, len(grid))
	for i := range playerGrid {
		playerGrid[i] = Unknown
	}
	mines := 0
	for _, m := range grid {
		if m {
			mines++
		}
	}
	params.MineCount = mines
	return &GameState{
		GameParams: params,
		Grid:       grid,
		PlayerGrid: playerGrid,
	}
}

func (s *GameState) IsMine(c knowledge.Cell) bool {
	return s.Grid[s.index(c)]
}

// NearbyMines counts the mines in the 3x3 block around c, excluding c.
func (s *GameState) NearbyMines(c knowledge.Cell) int {
	n := 0
	for _, nb := range c.Neighbors(s.Height, s.Width) {
		if s.IsMine(nb) {
			n++
		}
	}
	return n
}

func (s *GameState) State(c knowledge.Cell) CellState {
	return s.PlayerGrid[s.index(c)]
}

/*
OpenCell uncovers c and returns every cell opened as a result, in the order
they were opened. Opening a cell with no mined neighbours opens its covered
neighbours as well. exploded reports that c was a mine; the game is then lost.
*/
func (s *GameState) OpenCell(c knowledge.Cell) (opened []knowledge.Cell, exploded bool) {
	if s.Dead || s.Won {
		return nil, false
	}
	i := s.index(c)
	if s.PlayerGrid[i] != Unknown {
		return nil, false
	}
	if s.Grid[i] {
		/*
		 * The player has landed on a mine. Expose the mine that
		 * killed them, but not the rest.
		 */
		s.Dead = true
		s.PlayerGrid[i] = ExplodedMine
		return nil, true
	}

	queue := []knowledge.Cell{c}
	s.PlayerGrid[i] = CellState(s.NearbyMines(c))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		opened = append(opened, cur)
		if s.State(cur) != 0 {
			continue
		}
		for _, nb := range cur.Neighbors(s.Height, s.Width) {
			j := s.index(nb)
			if s.PlayerGrid[j] == Unknown {
				s.PlayerGrid[j] = CellState(s.NearbyMines(nb))
				queue = append(queue, nb)
			}
		}
	}

	/*
	 * Scan the grid and see if exactly as many squares are still
	 * covered as there are mines. If so, the game is won.
	 */
	ncovered := 0
	for _, st := range s.PlayerGrid {
		if !st.Open() {
			ncovered++
		}
	}
	if ncovered == s.MineCount {
		s.Won = true
	}

	return opened, false
}

// FlagCell toggles the flag on a covered cell.
func (s *GameState) FlagCell(c knowledge.Cell) {
	i := s.index(c)
	if s.PlayerGrid[i] == Unknown {
		s.PlayerGrid[i] = Flagged
	} else if s.PlayerGrid[i] == Flagged {
		s.PlayerGrid[i] = Unknown
	}
}

func (s *GameState) Flags() (n int) {
	for _, st := range s.PlayerGrid {
		if st == Flagged {
			n++
		}
	}
	return
}

func (s *GameState) Forfeit() {
	if !(s.Dead || s.Won) {
		s.Dead = true
	}
	s.RevealMines()
}

// RevealMines shows every mine and marks flags as right or wrong.
func (s *GameState) RevealMines() {
	for i, mine := range s.Grid {
		switch st := s.PlayerGrid[i]; {
		case st == Flagged && mine:
			s.PlayerGrid[i] = CorrectlyFlagged
		case st == Flagged:
			s.PlayerGrid[i] = FalselyFlagged
		case st == Unknown && mine:
			s.PlayerGrid[i] = UnflaggedMine
		}
	}
}

func (s *GameState) String() string {
	return s.PlayerGrid.ToString(s.Width)
}
