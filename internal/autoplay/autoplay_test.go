package autoplay

import (
	"context"
	"math/rand/v2"
	"os"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vancomm/minesweeper-autoplayer/internal/knowledge"
	"github.com/vancomm/minesweeper-autoplayer/internal/mines"
)

func TestMain(m *testing.M) {
	for _, l := range []*logrus.Logger{Log, knowledge.Log, mines.Log} {
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
		l.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

func assertResult(t *testing.T, res *Result) {
	t.Helper()

	assert.NotEqual(t, res.Won, res.Dead, "a finished game is either won or lost")
	require.Len(t, res.Steps, res.Moves)
	require.NotEmpty(t, res.Steps)
	assert.Equal(t, MoveFirst, res.Steps[0].Kind)
	assert.False(t, res.Steps[0].Exploded, "first move is always safe")

	guesses := 0
	for i, step := range res.Steps {
		assert.Equal(t, i+1, step.N)
		if step.Kind == MoveRandom {
			guesses++
		}
		if i < len(res.Steps)-1 {
			assert.False(t, step.Exploded, "only the last move may explode")
		}
		for _, c := range step.Flagged {
			assert.True(t, res.Game.IsMine(c), "flagged %s holds no mine", c)
		}
	}
	assert.Equal(t, guesses, res.Guesses)
	assert.Equal(t, res.Dead, res.Steps[len(res.Steps)-1].Exploded)
	assert.LessOrEqual(t, res.Flags, res.Params.MineCount)
	assert.False(t, res.Capped)
}

func TestPlay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params mines.GameParams
	}{
		{"beginner", mines.GameParams{Width: 9, Height: 9, MineCount: 10}},
		{"intermediate", mines.GameParams{Width: 16, Height: 16, MineCount: 40}},
		{"narrow", mines.GameParams{Width: 1, Height: 12, MineCount: 3}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			r := rand.New(rand.NewPCG(7, 11))
			for range 10 {
				res, err := Play(context.Background(), test.params, r)
				require.NoError(t, err)
				assertResult(t, res)
			}
		})
	}
}

func TestPlayWithoutMines(t *testing.T) {
	res, err := Play(context.Background(),
		mines.GameParams{Width: 5, Height: 4}, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.True(t, res.Won)
	assert.Equal(t, 1, res.Moves)
	assert.Zero(t, res.Guesses)
	assert.Len(t, res.Steps[0].Opened, 20)
	assert.Equal(t, 20, res.Stats.Facts)
}

func TestPlayUniqueNeedsNoGuesses(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}
	t.Parallel()

	params := mines.GameParams{Width: 9, Height: 9, MineCount: 10, Unique: true}
	r := rand.New(rand.NewPCG(3, 5))
	for range 10 {
		res, err := Play(context.Background(), params, r)
		require.NoError(t, err)
		assertResult(t, res)
		assert.True(t, res.Won)
		assert.Zero(t, res.Guesses)
	}
}

func TestPlayIsDeterministic(t *testing.T) {
	params := mines.GameParams{Width: 16, Height: 16, MineCount: 40}
	a, err := Play(context.Background(), params, rand.New(rand.NewPCG(9, 9)))
	require.NoError(t, err)
	b, err := Play(context.Background(), params, rand.New(rand.NewPCG(9, 9)))
	require.NoError(t, err)

	assert.Equal(t, a.Steps, b.Steps)
	assert.Equal(t, a.Game.Grid, b.Game.Grid)
}

func TestPlayObserver(t *testing.T) {
	var calls atomic.Int32
	res, err := Play(context.Background(),
		mines.GameParams{Width: 9, Height: 9, MineCount: 10},
		rand.New(rand.NewPCG(1, 2)),
		WithObserver(func(Step) { calls.Add(1) }),
	)
	require.NoError(t, err)
	assert.EqualValues(t, res.Moves, calls.Load())
}

func TestPlayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Play(ctx, mines.GameParams{Width: 9, Height: 9, MineCount: 10},
		rand.New(rand.NewPCG(1, 2)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlayRejectsBadParams(t *testing.T) {
	_, err := Play(context.Background(),
		mines.GameParams{Width: 2, Height: 2, MineCount: 4}, rand.New(rand.NewPCG(1, 2)))
	assert.ErrorIs(t, err, mines.ErrInvalidParams)
}

func TestPlayPassLimit(t *testing.T) {
	res, err := Play(context.Background(),
		mines.GameParams{Width: 16, Height: 16, MineCount: 40},
		rand.New(rand.NewPCG(4, 4)),
		WithEngineOptions(knowledge.WithMaxPasses(1)),
	)
	require.NoError(t, err, "a capped engine keeps playing")
	assert.True(t, res.Capped)
	assert.Equal(t, 1, res.Stats.PassLimit)
}
