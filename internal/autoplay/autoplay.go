// Package autoplay drives games with the inference engine: it asks for a
// certain move, falls back to a random one when none exists, feeds every
// revealed cell back as a fact and flags every derived hazard.
package autoplay

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper-autoplayer/internal/knowledge"
	"github.com/vancomm/minesweeper-autoplayer/internal/mines"
)

var Log = logrus.New()

var ErrNoMoves = errors.New("no move left in an unfinished game")

type MoveKind string

const (
	MoveFirst  MoveKind = "first"  // opening click, safe by construction
	MoveSafe   MoveKind = "safe"   // proven safe by the engine
	MoveRandom MoveKind = "random" // a guess
)

type Step struct {
	N            int              `json:"n"`
	Cell         knowledge.Cell   `json:"cell"`
	Kind         MoveKind         `json:"kind"`
	Opened       []knowledge.Cell `json:"opened,omitempty"`
	Flagged      []knowledge.Cell `json:"flagged,omitempty"`
	Exploded     bool             `json:"exploded"`
	KnownSafes   int              `json:"known_safes"`
	KnownHazards int              `json:"known_hazards"`
	Statements   int              `json:"statements"`
}

type Result struct {
	Params   mines.GameParams `json:"params"`
	Seed     string           `json:"seed,omitempty"`
	Won      bool             `json:"won"`
	Dead     bool             `json:"dead"`
	Moves    int              `json:"moves"`
	Guesses  int              `json:"guesses"`
	Flags    int              `json:"flags"`
	Capped   bool             `json:"capped"`
	Duration time.Duration    `json:"duration"`
	Stats    knowledge.Stats  `json:"stats"`
	Steps    []Step           `json:"steps"`

	Game *mines.GameState `json:"-"`
}

type config struct {
	observer   func(Step)
	log        *logrus.Entry
	engineOpts []knowledge.Option
}

type Option func(*config)

// WithObserver registers a callback invoked after every move. Benchmark
// calls it from several goroutines at once.
func WithObserver(f func(Step)) Option {
	return func(c *config) { c.observer = f }
}

func WithLogger(l *logrus.Entry) Option {
	return func(c *config) { c.log = l }
}

func WithEngineOptions(opts ...knowledge.Option) Option {
	return func(c *config) { c.engineOpts = append(c.engineOpts, opts...) }
}

/*
Play generates a game for params and plays it to the end.

The first click is chosen at random and the field is generated around it, so
it is always safe. Afterwards every move is a proven safe cell when the engine
knows one and a random unflagged cell otherwise. ctx is checked between moves.
*/
func Play(ctx context.Context, params mines.GameParams, r *rand.Rand, opts ...Option) (*Result, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.log == nil {
		cfg.log = logrus.NewEntry(Log)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := cfg.log.WithField("params", params.Seed())
	engine, err := knowledge.NewEngine(params.Height, params.Width, append(
		[]knowledge.Option{knowledge.WithRand(r), knowledge.WithLogger(log)},
		cfg.engineOpts...,
	)...)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	start, _ := engine.ProposeRandomMove()
	game, err := mines.NewGame(&params, start, r)
	if err != nil {
		return nil, fmt.Errorf("unable to generate a game: %w", err)
	}

	p := &player{
		game:   game,
		engine: engine,
		cfg:    cfg,
		log:    log,
		result: &Result{Params: params, Game: game},
	}
	if err := p.move(start, MoveFirst); err != nil {
		return nil, err
	}
	for !game.Won && !game.Dead {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c, ok := engine.ProposeSafeMove(); ok {
			err = p.move(c, MoveSafe)
		} else if c, ok := engine.ProposeRandomMove(); ok {
			err = p.move(c, MoveRandom)
		} else {
			return nil, ErrNoMoves
		}
		if err != nil {
			return nil, err
		}
	}

	res := p.result
	res.Won, res.Dead = game.Won, game.Dead
	res.Flags = game.Flags()
	res.Duration = time.Since(started)
	res.Stats = engine.Stats()
	log.WithFields(logrus.Fields{
		"won":      res.Won,
		"moves":    res.Moves,
		"guesses":  res.Guesses,
		"duration": res.Duration,
	}).Info("game finished")
	return res, nil
}

type player struct {
	game   *mines.GameState
	engine *knowledge.Engine
	cfg    *config
	log    *logrus.Entry
	result *Result
}

func (p *player) move(c knowledge.Cell, kind MoveKind) error {
	res := p.result
	res.Moves++
	if kind == MoveRandom {
		res.Guesses++
		p.log.WithField("cell", c.String()).Debug("no safe move known, guessing")
	}

	step := Step{N: res.Moves, Cell: c, Kind: kind}
	opened, exploded := p.game.OpenCell(c)
	step.Opened = opened
	step.Exploded = exploded

	for _, o := range opened {
		if p.engine.IsMoveMade(o) {
			continue
		}
		err := p.engine.AddFact(o, int(p.game.State(o)))
		if errors.Is(err, knowledge.ErrPassLimit) {
			p.log.WithError(err).Warn("inference cut short")
			res.Capped = true
		} else if err != nil {
			return fmt.Errorf("unable to add fact for %s: %w", o, err)
		}
	}

	if !exploded {
		for _, h := range p.engine.KnownHazards() {
			if p.game.State(h) == mines.Unknown {
				p.game.FlagCell(h)
				step.Flagged = append(step.Flagged, h)
			}
		}
	}

	step.KnownSafes = len(p.engine.KnownSafes())
	step.KnownHazards = len(p.engine.KnownHazards())
	step.Statements = p.engine.Statements()
	res.Steps = append(res.Steps, step)
	if p.cfg.observer != nil {
		p.cfg.observer(step)
	}
	return nil
}
