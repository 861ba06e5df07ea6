package mines

import (
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper-autoplayer/internal/knowledge"
)

// MaxAttempts bounds the fields tried when looking for a no-guess field.
const MaxAttempts = 1000

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func (p GameParams) newGrid(start knowledge.Cell, r *rand.Rand) ([]bool, error) {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		grid := p.placeMines(start, r)
		if !p.Unique {
			return grid, nil
		}
		if solvable(p, grid, start, r) {
			Log.WithFields(logrus.Fields{
				"params": p.Seed(), "start": start.String(), "attempts": attempt,
			}).Debug("no-guess field generated")
			return grid, nil
		}
	}
	return nil, fmt.Errorf("%w: no no-guess field for %s after %d attempts",
		ErrGenerationFailed, p.Seed(), MaxAttempts)
}

func (p GameParams) placeMines(start knowledge.Cell, r *rand.Rand) []bool {
	width, height, mineCount, _ := p.Unpack()
	grid := make([]bool, width*height)

	/*
	 * Write down the list of possible mine locations: anything more than
	 * one square away from the start, unless that leaves too little room,
	 * in which case anything but the start itself.
	 */
	candidates := make([]int, 0, width*height)
	for y := range height {
		for x := range width {
			if absDiff(start.Row, y) > 1 || absDiff(start.Col, x) > 1 {
				candidates = append(candidates, y*width+x)
			}
		}
	}
	if len(candidates) < mineCount {
		candidates = candidates[:0]
		for i := range width * height {
			if i != p.index(start) {
				candidates = append(candidates, i)
			}
		}
	}

	/*
	 * Now pick n off the list at random.
	 */
	k := len(candidates)
	for range mineCount {
		i := r.IntN(k)
		grid[candidates[i]] = true
		k--
		candidates[i] = candidates[k]
	}
	return grid
}

// solvable reports whether the inference engine clears the field from start
// without a single random move.
func solvable(p GameParams, grid []bool, start knowledge.Cell, r *rand.Rand) bool {
	state := NewGameFromGrid(p, grid)
	engine, err := knowledge.NewEngine(p.Height, p.Width, knowledge.WithRand(r))
	if err != nil {
		return false
	}
	next, ok := start, true
	for ok {
		opened, exploded := state.OpenCell(next)
		if exploded {
			panic(AssertionError{"engine proposed a mined cell"})
		}
		for _, c := range opened {
			if err := engine.AddFact(c, int(state.State(c))); err != nil {
				Log.WithError(err).Warn("inference failed while checking field")
				return false
			}
		}
		if state.Won {
			return true
		}
		next, ok = engine.ProposeSafeMove()
	}
	return false
}
