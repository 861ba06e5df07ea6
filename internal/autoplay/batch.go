package autoplay

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/minesweeper-autoplayer/internal/mines"
)

type BatchParams struct {
	Params  mines.GameParams
	Games   int
	Workers int
	Seed    uint64
}

type Summary struct {
	Params      mines.GameParams `json:"params"`
	Seed        uint64           `json:"seed"`
	Games       int              `json:"games"`
	Wins        int              `json:"wins"`
	Losses      int              `json:"losses"`
	WinRate     float64          `json:"win_rate"`
	Guesses     int              `json:"guesses"`
	AvgGuesses  float64          `json:"avg_guesses"`
	AvgMoves    float64          `json:"avg_moves"`
	NoGuessWins int              `json:"no_guess_wins"`
	Capped      int              `json:"capped"`
	Elapsed     time.Duration    `json:"elapsed"`

	Results []*Result `json:"-"`
}

// GameRand is the random source of game i in a batch seeded with seed.
func GameRand(seed uint64, i int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(i)))
}

// GameSeed names the game GameRand(seed, i) plays. Game 0 of a batch is
// named by the bare seed.
func GameSeed(seed uint64, i int) string {
	if i == 0 {
		return strconv.FormatUint(seed, 10)
	}
	return fmt.Sprintf("%d/%d", seed, i)
}

// PlaySeeded plays the first game of a batch seeded with seed.
func PlaySeeded(ctx context.Context, params mines.GameParams, seed uint64, opts ...Option) (*Result, error) {
	res, err := Play(ctx, params, GameRand(seed, 0), opts...)
	if err != nil {
		return nil, err
	}
	res.Seed = GameSeed(seed, 0)
	return res, nil
}

/*
Benchmark plays bp.Games independent games on up to bp.Workers goroutines.
Game i draws from GameRand(bp.Seed, i), so a summary depends only on its
params and seed. The first failing game cancels the rest.
*/
func Benchmark(ctx context.Context, bp BatchParams, opts ...Option) (*Summary, error) {
	if bp.Games <= 0 {
		return nil, fmt.Errorf("%w: %d games", mines.ErrInvalidParams, bp.Games)
	}
	if err := bp.Params.Validate(); err != nil {
		return nil, err
	}
	workers := bp.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	started := time.Now()
	results := make([]*Result, bp.Games)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range bp.Games {
		g.Go(func() error {
			res, err := Play(gCtx, bp.Params, GameRand(bp.Seed, i), opts...)
			if err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}
			res.Seed = GameSeed(bp.Seed, i)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := summarize(bp, results)
	s.Elapsed = time.Since(started)
	Log.WithFields(logrus.Fields{
		"params":   bp.Params.Seed(),
		"games":    s.Games,
		"win_rate": s.WinRate,
		"elapsed":  s.Elapsed,
	}).Info("benchmark finished")
	return s, nil
}

func summarize(bp BatchParams, results []*Result) *Summary {
	s := &Summary{
		Params:  bp.Params,
		Seed:    bp.Seed,
		Games:   len(results),
		Results: results,
	}
	moves := 0
	for _, res := range results {
		if res.Won {
			s.Wins++
			if res.Guesses == 0 {
				s.NoGuessWins++
			}
		} else {
			s.Losses++
		}
		if res.Capped {
			s.Capped++
		}
		s.Guesses += res.Guesses
		moves += res.Moves
	}
	if s.Games > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Games)
		s.AvgGuesses = float64(s.Guesses) / float64(s.Games)
		s.AvgMoves = float64(moves) / float64(s.Games)
	}
	return s
}
