package knowledge

import (
	"math/rand/v2"
	"os"
	"slices"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	Log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	os.Exit(m.Run())
}

func newTestEngine(t *testing.T, height, width int, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	e, err := NewEngine(height, width, opts...)
	require.NoError(t, err)
	return e
}

func assertInvariants(t *testing.T, e *Engine) {
	t.Helper()
	for _, s := range e.knowledge {
		assert.True(t, s.Valid(), "statement %s breaks 0 <= count <= |cells|", s)
		assert.False(t, s.Empty(), "stale statement survived inference")
		assert.Empty(t, s.KnownHazards(), "underived hazards in %s", s)
		assert.Empty(t, s.KnownSafes(), "underived safes in %s", s)
	}
	for c := range e.hazards {
		assert.False(t, e.safes.has(c), "%s is both safe and hazardous", c)
	}
}

func TestNewEngineRejectsBadDimensions(t *testing.T) {
	_, err := NewEngine(0, 3)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
	_, err = NewEngine(3, -1)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestAddFactValidation(t *testing.T) {
	tests := []struct {
		name  string
		cell  Cell
		count int
		err   error
	}{
		{"row out of bounds", Cell{3, 0}, 0, ErrOutOfBounds},
		{"negative col", Cell{0, -1}, 0, ErrOutOfBounds},
		{"negative count", Cell{1, 1}, -1, ErrInvalidCount},
		{"corner count above neighbours", Cell{0, 0}, 4, ErrInvalidCount},
		{"center count above neighbours", Cell{1, 1}, 9, ErrInvalidCount},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := newTestEngine(t, 3, 3)
			assert.ErrorIs(t, e.AddFact(test.cell, test.count), test.err)
			assert.Empty(t, e.MovesMade())
			assert.Empty(t, e.knowledge)
		})
	}
}

func TestAddFactOnKnownHazard(t *testing.T) {
	e := newTestEngine(t, 3, 3)
	require.NoError(t, e.RecordHazard(Cell{0, 0}))
	assert.ErrorIs(t, e.AddFact(Cell{0, 0}, 0), ErrContradiction)
}

func TestAddFactDetectsInconsistentCount(t *testing.T) {
	e := newTestEngine(t, 3, 3)
	require.NoError(t, e.AddFact(Cell{1, 1}, 0))
	// every neighbour of the corner is now known safe
	before := e.Statements()
	assert.ErrorIs(t, e.AddFact(Cell{0, 0}, 1), ErrContradiction)

	assert.False(t, e.IsMoveMade(Cell{0, 0}), "a rejected fact is not a move")
	assert.True(t, e.IsMoveMade(Cell{1, 1}))
	assert.Equal(t, 1, e.Stats().Facts)
	assert.Equal(t, before, e.Statements())
	assert.Equal(t, []Cell{{1, 1}}, e.MovesMade())
}

func TestAddFactRejectedOnUnknownCellLeavesNoTrace(t *testing.T) {
	e := newTestEngine(t, 1, 3)
	require.NoError(t, e.RecordHazard(Cell{0, 0}))
	require.NoError(t, e.RecordSafe(Cell{0, 2}))
	// (0,1) sees one known hazard, so a count of zero is impossible
	assert.ErrorIs(t, e.AddFact(Cell{0, 1}, 0), ErrContradiction)

	assert.False(t, e.IsMoveMade(Cell{0, 1}))
	assert.False(t, e.IsKnownSafe(Cell{0, 1}), "a rejected fact must not resolve its cell")
	assert.Zero(t, e.Stats().Facts)
	assert.Zero(t, e.Statements())
}

func TestZeroRevealsAllNeighbours(t *testing.T) {
	e := newTestEngine(t, 3, 3)
	require.NoError(t, e.AddFact(Cell{1, 1}, 0))

	center := Cell{1, 1}
	for _, c := range center.Neighbors(3, 3) {
		assert.True(t, e.IsKnownSafe(c), "%s should be safe", c)
	}
	assert.Len(t, e.KnownSafes(), 9)
	assert.Empty(t, e.KnownHazards())
	assert.Equal(t, []Cell{center}, e.MovesMade())
	assert.Empty(t, e.Knowledge())
	assertInvariants(t, e)
}

func TestFullCountRevealsAllHazards(t *testing.T) {
	e := newTestEngine(t, 2, 2)
	require.NoError(t, e.AddFact(Cell{0, 0}, 3))
	assert.Equal(t, []Cell{{0, 1}, {1, 0}, {1, 1}}, e.KnownHazards())
	assert.Equal(t, []Cell{{0, 0}}, e.KnownSafes())
	assertInvariants(t, e)
}

func TestRecordIsIdempotent(t *testing.T) {
	e := newTestEngine(t, 3, 3)
	require.NoError(t, e.AddFact(Cell{0, 0}, 1))

	require.NoError(t, e.RecordHazard(Cell{1, 1}))
	once := e.Knowledge()
	hazards := e.KnownHazards()

	require.NoError(t, e.RecordHazard(Cell{1, 1}))
	assert.Equal(t, once, e.Knowledge())
	assert.Equal(t, hazards, e.KnownHazards())

	require.NoError(t, e.RecordSafe(Cell{2, 2}))
	safes := e.KnownSafes()
	require.NoError(t, e.RecordSafe(Cell{2, 2}))
	assert.Equal(t, safes, e.KnownSafes())
}

func TestRecordRejectsContradictions(t *testing.T) {
	e := newTestEngine(t, 3, 3)
	require.NoError(t, e.RecordSafe(Cell{0, 0}))
	assert.ErrorIs(t, e.RecordHazard(Cell{0, 0}), ErrContradiction)
	require.NoError(t, e.RecordHazard(Cell{2, 2}))
	assert.ErrorIs(t, e.RecordSafe(Cell{2, 2}), ErrContradiction)
	assert.ErrorIs(t, e.RecordSafe(Cell{5, 5}), ErrOutOfBounds)
}

func TestSubsetDerivation(t *testing.T) {
	e := newTestEngine(t, 3, 3)
	a := mustStatement(t, 1, p, q)
	b := mustStatement(t, 2, p, q, r)
	e.knowledge = append(e.knowledge, a, b)

	require.NoError(t, e.infer())

	assert.True(t, e.IsKnownHazard(r))
	assert.Equal(t, []Cell{r}, e.KnownHazards())
	knowledge := e.Knowledge()
	require.Len(t, knowledge, 1)
	assert.True(t, knowledge[0].Equal(mustStatement(t, 1, p, q)))
	assertInvariants(t, e)
}

func TestExtraction(t *testing.T) {
	t.Run("zero count", func(t *testing.T) {
		e := newTestEngine(t, 4, 4)
		e.knowledge = append(e.knowledge, mustStatement(t, 0, x, y))
		require.NoError(t, e.infer())
		assert.Equal(t, []Cell{x, y}, e.KnownSafes())
		assert.Empty(t, e.Knowledge())
	})
	t.Run("full count", func(t *testing.T) {
		e := newTestEngine(t, 4, 4)
		e.knowledge = append(e.knowledge, mustStatement(t, 2, x, y))
		require.NoError(t, e.infer())
		assert.Equal(t, []Cell{x, y}, e.KnownHazards())
		assert.Empty(t, e.Knowledge())
	})
}

// Hazards at (1,1) and (1,2) on a 2x3 grid, revealed along the top row.
func TestChainedInference(t *testing.T) {
	e := newTestEngine(t, 2, 3)

	require.NoError(t, e.AddFact(Cell{0, 0}, 1))
	assert.Empty(t, e.KnownHazards())

	require.NoError(t, e.AddFact(Cell{0, 1}, 2))
	assert.Empty(t, e.KnownHazards())
	knowledge := e.Knowledge()
	require.Len(t, knowledge, 3)
	assert.True(t, knowledge[0].Equal(mustStatement(t, 1, Cell{1, 0}, Cell{1, 1})))
	assert.True(t, knowledge[1].Equal(mustStatement(t, 2, Cell{0, 2}, Cell{1, 0}, Cell{1, 1}, Cell{1, 2})))
	assert.True(t, knowledge[2].Equal(mustStatement(t, 1, Cell{0, 2}, Cell{1, 2})), "derived by subset")

	require.NoError(t, e.AddFact(Cell{0, 2}, 2))
	assert.Equal(t, []Cell{{1, 1}, {1, 2}}, e.KnownHazards())
	assert.Equal(t, []Cell{{0, 0}, {0, 1}, {0, 2}, {1, 0}}, e.KnownSafes())
	assert.Empty(t, e.Knowledge())
	assertInvariants(t, e)

	move, ok := e.ProposeSafeMove()
	require.True(t, ok)
	assert.Equal(t, Cell{1, 0}, move)
}

func TestProposeSafeMove(t *testing.T) {
	e := newTestEngine(t, 3, 3)
	_, ok := e.ProposeSafeMove()
	assert.False(t, ok)

	require.NoError(t, e.AddFact(Cell{1, 1}, 0))
	moves := e.MovesMade()
	safes := e.KnownSafes()
	for range 20 {
		c, ok := e.ProposeSafeMove()
		require.True(t, ok)
		assert.True(t, e.IsKnownSafe(c))
		assert.NotEqual(t, Cell{1, 1}, c)
	}
	assert.Equal(t, moves, e.MovesMade(), "proposing must not mutate state")
	assert.Equal(t, safes, e.KnownSafes())
}

func TestProposeRandomMove(t *testing.T) {
	e := newTestEngine(t, 2, 2)
	require.NoError(t, e.AddFact(Cell{0, 0}, 1))
	require.NoError(t, e.RecordHazard(Cell{1, 1}))

	for range 20 {
		c, ok := e.ProposeRandomMove()
		require.True(t, ok)
		assert.Contains(t, []Cell{{0, 1}, {1, 0}}, c)
	}

	require.NoError(t, e.AddFact(Cell{0, 1}, 1))
	require.NoError(t, e.AddFact(Cell{1, 0}, 1))
	_, ok := e.ProposeRandomMove()
	assert.False(t, ok)
}

func TestPassLimitIsReported(t *testing.T) {
	e := newTestEngine(t, 3, 3, WithMaxPasses(1))
	err := e.AddFact(Cell{1, 1}, 0)
	require.ErrorIs(t, err, ErrPassLimit)

	// facts derived before the limit stay sound
	assert.Len(t, e.KnownSafes(), 9)
	assert.Empty(t, e.KnownHazards())
}

func TestDump(t *testing.T) {
	e := newTestEngine(t, 2, 3)
	require.NoError(t, e.AddFact(Cell{0, 0}, 1))
	assert.Equal(t,
		"known hazards: {}\n"+
			"known safes: {(0,0)}\n"+
			"statement 0: {(0,1) (1,0) (1,1)} = 1\n",
		e.Dump(),
	)
}

type testField struct {
	height, width int
	mines         map[Cell]bool
}

func randomField(r *rand.Rand, height, width, count int) *testField {
	f := &testField{height: height, width: width, mines: make(map[Cell]bool)}
	for len(f.mines) < count {
		f.mines[Cell{r.IntN(height), r.IntN(width)}] = true
	}
	return f
}

func (f *testField) nearby(c Cell) (n int) {
	for _, nb := range c.Neighbors(f.height, f.width) {
		if f.mines[nb] {
			n++
		}
	}
	return
}

// Feeds every safe cell of random fields to the engine and checks that
// inference stays sound, monotonic and below the pass limit.
func TestInferenceOnRandomFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                 string
		height, width, mines int
		games                int
	}{
		{"3x3(1)", 3, 3, 1, 50},
		{"5x5(5)", 5, 5, 5, 50},
		{"8x8(10)", 8, 8, 10, 20},
		{"9x9(35)", 9, 9, 35, 10},
		{"16x16(40)", 16, 16, 40, 3},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if testing.Short() && test.height*test.width > 100 {
				t.Skip()
			}
			r := rand.New(rand.NewPCG(3, 4))
			for range test.games {
				f := randomField(r, test.height, test.width, test.mines)
				e := newTestEngine(t, test.height, test.width)

				order := make([]Cell, 0, test.height*test.width)
				for row := range test.height {
					for col := range test.width {
						if c := (Cell{row, col}); !f.mines[c] {
							order = append(order, c)
						}
					}
				}
				r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

				prevHazards, prevSafes := 0, 0
				for i, c := range order {
					require.NoError(t, e.AddFact(c, f.nearby(c)))
					assertInvariants(t, e)

					hazards, safes := e.KnownHazards(), e.KnownSafes()
					assert.GreaterOrEqual(t, len(hazards), prevHazards)
					assert.GreaterOrEqual(t, len(safes), prevSafes)
					assert.Len(t, e.MovesMade(), i+1)
					prevHazards, prevSafes = len(hazards), len(safes)

					for _, h := range hazards {
						require.True(t, f.mines[h], "%s derived as hazard", h)
					}
					for _, s := range safes {
						require.False(t, f.mines[s], "%s derived as safe", s)
					}
				}
				assert.Equal(t, test.height*test.width-test.mines, len(e.KnownSafes()))
				assert.Less(t, e.Stats().Passes, e.Stats().PassLimit*len(order))
				assert.True(t, slices.IsSortedFunc(e.KnownSafes(), Cell.Compare))
			}
		})
	}
}
