package knowledge

import (
	"fmt"
	"hash/maphash"
	"math/rand/v2"
	"strings"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

// Stats counts the work done by an engine over its lifetime.
type Stats struct {
	Facts     int `json:"facts"`
	Passes    int `json:"passes"`
	Derived   int `json:"derived"`
	Pruned    int `json:"pruned"`
	MaxLive   int `json:"max_live"`
	Resolved  int `json:"resolved"`
	PassLimit int `json:"pass_limit"`
}

/*
Engine is the knowledge base of one game.

It tracks the cells already played, the cells known to be safe or hazardous
and the live statements about the rest. Every fact is folded in by AddFact,
which runs inference to a fixed point before returning. An Engine is not safe
for concurrent use.
*/
type Engine struct {
	height, width int

	movesMade cellSet
	hazards   cellSet
	safes     cellSet
	knowledge []*Statement

	maxPasses int
	rnd       *rand.Rand
	log       *logrus.Entry
	stats     Stats
}

type Option func(*Engine)

func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rnd = r }
}

func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) { e.log = l }
}

// WithMaxPasses overrides the fixpoint pass limit of a single AddFact call.
func WithMaxPasses(n int) Option {
	return func(e *Engine) { e.maxPasses = n }
}

// DefaultMaxPasses bounds the passes of one AddFact call on a height x width
// grid. Every pass that changes anything resolves a cell or adds a statement
// not seen before; statements only ever cover subsets of one revealed cell's
// neighbourhood, of which there are at most 255 per cell.
func DefaultMaxPasses(height, width int) int {
	return 256*height*width + 1
}

func NewEngine(height, width int, opts ...Option) (*Engine, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, height, width)
	}
	e := &Engine{
		height:    height,
		width:     width,
		movesMade: make(cellSet),
		hazards:   make(cellSet),
		safes:     make(cellSet),
		maxPasses: DefaultMaxPasses(height, width),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rnd == nil {
		e.rnd = rand.New(rand.NewPCG(
			new(maphash.Hash).Sum64(), new(maphash.Hash).Sum64(),
		))
	}
	if e.log == nil {
		e.log = logrus.NewEntry(Log)
	}
	e.stats.PassLimit = e.maxPasses
	return e, nil
}

func (e *Engine) Stats() Stats { return e.stats }

func (e *Engine) InBounds(c Cell) bool {
	return 0 <= c.Row && c.Row < e.height && 0 <= c.Col && c.Col < e.width
}

func (e *Engine) checkBounds(c Cell) error {
	if !e.InBounds(c) {
		return fmt.Errorf("%w: %s on %dx%d grid", ErrOutOfBounds, c, e.height, e.width)
	}
	return nil
}

func (e *Engine) KnownHazards() []Cell { return e.hazards.sorted() }
func (e *Engine) KnownSafes() []Cell   { return e.safes.sorted() }
func (e *Engine) MovesMade() []Cell    { return e.movesMade.sorted() }

func (e *Engine) IsKnownHazard(c Cell) bool { return e.hazards.has(c) }
func (e *Engine) IsKnownSafe(c Cell) bool   { return e.safes.has(c) }
func (e *Engine) IsMoveMade(c Cell) bool    { return e.movesMade.has(c) }

// Knowledge returns copies of the live statements in insertion order.
func (e *Engine) Knowledge() []*Statement {
	ret := make([]*Statement, len(e.knowledge))
	for i, s := range e.knowledge {
		ret[i] = s.clone()
	}
	return ret
}

// Statements returns the number of live statements.
func (e *Engine) Statements() int { return len(e.knowledge) }

// RecordHazard marks c as a hazard and narrows every live statement.
func (e *Engine) RecordHazard(c Cell) error {
	if err := e.checkBounds(c); err != nil {
		return err
	}
	if e.safes.has(c) {
		return fmt.Errorf("%w: %s is known safe", ErrContradiction, c)
	}
	e.markHazard(c)
	return nil
}

// RecordSafe marks c as safe and narrows every live statement.
func (e *Engine) RecordSafe(c Cell) error {
	if err := e.checkBounds(c); err != nil {
		return err
	}
	if e.hazards.has(c) {
		return fmt.Errorf("%w: %s is a known hazard", ErrContradiction, c)
	}
	e.markSafe(c)
	return nil
}

func (e *Engine) markHazard(c Cell) bool {
	if !e.hazards.add(c) {
		return false
	}
	e.stats.Resolved++
	for _, s := range e.knowledge {
		s.MarkHazard(c)
	}
	return true
}

func (e *Engine) markSafe(c Cell) bool {
	if !e.safes.add(c) {
		return false
	}
	e.stats.Resolved++
	for _, s := range e.knowledge {
		s.MarkSafe(c)
	}
	return true
}

/*
AddFact records that the revealed cell c has count hazardous neighbours.

The cell becomes a move made and a known safe cell, a statement over its
unresolved neighbours joins the knowledge base, and inference runs until
nothing more follows. An error wrapping ErrPassLimit means inference was cut
short; the engine stays consistent and later facts resume it.
*/
func (e *Engine) AddFact(c Cell, count int) error {
	if err := e.checkBounds(c); err != nil {
		return err
	}
	neighbors := c.Neighbors(e.height, e.width)
	if count < 0 || count > len(neighbors) {
		return fmt.Errorf("%w: %d hazards around %s with %d neighbours",
			ErrInvalidCount, count, c, len(neighbors))
	}
	if e.hazards.has(c) {
		return fmt.Errorf("%w: %s is a known hazard", ErrContradiction, c)
	}

	s := &Statement{cells: neighbors, count: count}
	for h := range e.hazards {
		s.MarkHazard(h)
	}
	for safe := range e.safes {
		s.MarkSafe(safe)
	}
	if !s.Valid() {
		return fmt.Errorf("%w: %s leaves %s", ErrContradiction, c, s)
	}

	e.stats.Facts++
	e.movesMade.add(c)
	e.markSafe(c)
	e.knowledge = append(e.knowledge, s)
	e.log.WithFields(logrus.Fields{
		"cell": c.String(), "count": count, "statement": s.String(),
	}).Debug("fact added")

	err := e.infer()
	if e.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		e.log.Trace("knowledge after fact\n" + e.Dump())
	}
	return err
}

func (e *Engine) infer() error {
	for pass := 1; ; pass++ {
		if pass > e.maxPasses {
			e.log.WithFields(logrus.Fields{
				"passes":     e.maxPasses,
				"statements": len(e.knowledge),
			}).Warn("possible unbounded statement growth, inference stopped")
			return fmt.Errorf("%w: %d passes, %d statements",
				ErrPassLimit, e.maxPasses, len(e.knowledge))
		}
		e.stats.Passes++

		changed, err := e.extract()
		if err != nil {
			return err
		}
		if err := e.checkConsistency(); err != nil {
			return err
		}
		changed = e.prune() || changed
		changed = e.combine() || changed
		e.stats.MaxLive = max(e.stats.MaxLive, len(e.knowledge))
		if !changed {
			return nil
		}
	}
}

// extract resolves every cell some statement pins down. Resolving a cell
// narrows all statements, including the one that produced it.
func (e *Engine) extract() (changed bool, err error) {
	for _, s := range e.knowledge {
		for _, c := range s.KnownHazards() {
			if e.safes.has(c) {
				return changed, fmt.Errorf("%w: %s derived as hazard but known safe", ErrContradiction, c)
			}
			if e.markHazard(c) {
				e.log.WithField("cell", c.String()).Debug("hazard derived")
				changed = true
			}
		}
		for _, c := range s.KnownSafes() {
			if e.hazards.has(c) {
				return changed, fmt.Errorf("%w: %s derived as safe but known hazard", ErrContradiction, c)
			}
			if e.markSafe(c) {
				e.log.WithField("cell", c.String()).Debug("safe cell derived")
				changed = true
			}
		}
	}
	return
}

func (e *Engine) checkConsistency() error {
	for _, s := range e.knowledge {
		if !s.Valid() {
			return fmt.Errorf("%w: statement %s", ErrContradiction, s)
		}
	}
	return nil
}

// prune drops stale statements, and statements that narrowing turned into
// copies of an earlier one.
func (e *Engine) prune() bool {
	before := len(e.knowledge)
	e.knowledge = pruneStatements(e.knowledge)
	e.stats.Pruned += before - len(e.knowledge)
	return len(e.knowledge) != before
}

func pruneStatements(ss []*Statement) []*Statement {
	seen := make(map[string]struct{}, len(ss))
	kept := ss[:0]
	for _, s := range ss {
		if s.Empty() {
			continue
		}
		key := s.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, s)
	}
	clear(ss[len(kept):])
	return kept
}

// combine applies the subset rule to every ordered pair of live statements:
// A ⊂ B gives B - A with count B.count - A.count.
func (e *Engine) combine() (changed bool) {
	seen := make(map[string]struct{}, len(e.knowledge))
	for _, s := range e.knowledge {
		seen[s.Key()] = struct{}{}
	}
	live := len(e.knowledge)
	for i := range live {
		a := e.knowledge[i]
		for j := range live {
			b := e.knowledge[j]
			if i == j || !a.IsStrictSubsetOf(b) {
				continue
			}
			derived := b.Without(a)
			key := derived.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			e.knowledge = append(e.knowledge, derived)
			e.stats.Derived++
			e.log.WithFields(logrus.Fields{
				"from": b.String(), "minus": a.String(), "statement": derived.String(),
			}).Debug("statement inferred")
			changed = true
		}
	}
	return
}

// ProposeSafeMove picks a known safe cell that has not been played yet.
func (e *Engine) ProposeSafeMove() (Cell, bool) {
	candidates := make([]Cell, 0)
	for _, c := range e.safes.sorted() {
		if !e.movesMade.has(c) {
			candidates = append(candidates, c)
		}
	}
	return e.pick(candidates)
}

// ProposeRandomMove picks any cell that is neither played nor a known hazard.
func (e *Engine) ProposeRandomMove() (Cell, bool) {
	candidates := make([]Cell, 0, e.height*e.width-len(e.movesMade))
	for r := range e.height {
		for c := range e.width {
			cell := Cell{r, c}
			if !e.movesMade.has(cell) && !e.hazards.has(cell) {
				candidates = append(candidates, cell)
			}
		}
	}
	return e.pick(candidates)
}

func (e *Engine) pick(candidates []Cell) (Cell, bool) {
	if len(candidates) == 0 {
		return Cell{}, false
	}
	return candidates[e.rnd.IntN(len(candidates))], true
}

// Dump renders the knowledge base for debugging.
func (e *Engine) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "known hazards: %s\n", formatCells(e.hazards.sorted()))
	fmt.Fprintf(&b, "known safes: %s\n", formatCells(e.safes.sorted()))
	for i, s := range e.knowledge {
		fmt.Fprintf(&b, "statement %d: %s\n", i, s)
	}
	return b.String()
}
