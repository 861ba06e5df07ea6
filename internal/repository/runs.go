package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vancomm/minesweeper-autoplayer/internal/autoplay"
	"github.com/vancomm/minesweeper-autoplayer/internal/mines"
)

var ErrDuplicateRun = errors.New("run with these params and seed already recorded")

type Run struct {
	RunId      int64     `db:"run_id"`
	Width      int       `db:"width"`
	Height     int       `db:"height"`
	MineCount  int       `db:"mine_count"`
	Unique     bool      `db:"unique"`
	Seed       string    `db:"seed"`
	Won        bool      `db:"won"`
	Dead       bool      `db:"dead"`
	Moves      int       `db:"moves"`
	Guesses    int       `db:"guesses"`
	Flags      int       `db:"flags"`
	Capped     bool      `db:"capped"`
	DurationMs int64     `db:"duration_ms"`
	State      []byte    `db:"state"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r Run) Params() mines.GameParams {
	return mines.GameParams{
		Width: r.Width, Height: r.Height, MineCount: r.MineCount, Unique: r.Unique,
	}
}

func (r Run) Game() (*mines.GameState, error) {
	return mines.DecodeGameState(r.State)
}

type CreateRunParams struct {
	Params     mines.GameParams
	Seed       string
	Won        bool
	Dead       bool
	Moves      int
	Guesses    int
	Flags      int
	Capped     bool
	DurationMs int64
	State      []byte
}

// NewCreateRunParams snapshots a finished game. The stored grid shows every
// mine.
func NewCreateRunParams(res *autoplay.Result) (CreateRunParams, error) {
	res.Game.RevealMines()
	state, err := res.Game.Bytes()
	if err != nil {
		return CreateRunParams{}, err
	}
	return CreateRunParams{
		Params:     res.Params,
		Seed:       res.Seed,
		Won:        res.Won,
		Dead:       res.Dead,
		Moves:      res.Moves,
		Guesses:    res.Guesses,
		Flags:      res.Flags,
		Capped:     res.Capped,
		DurationMs: res.Duration.Milliseconds(),
		State:      state,
	}, nil
}

func (p CreateRunParams) Args() pgx.NamedArgs {
	return pgx.NamedArgs{
		"width":       p.Params.Width,
		"height":      p.Params.Height,
		"mine_count":  p.Params.MineCount,
		"unique":      p.Params.Unique,
		"seed":        p.Seed,
		"won":         p.Won,
		"dead":        p.Dead,
		"moves":       p.Moves,
		"guesses":     p.Guesses,
		"flags":       p.Flags,
		"capped":      p.Capped,
		"duration_ms": p.DurationMs,
		"state":       p.State,
	}
}

func (q *Queries) CreateRun(ctx context.Context, params CreateRunParams) (*Run, error) {
	rows, _ := q.db.Query(
		ctx,
		`INSERT INTO run (
			width, height, mine_count, "unique", seed,
			won, dead, moves, guesses, flags, capped, duration_ms, state
		)
		VALUES (
			@width, @height, @mine_count, @unique, @seed,
			@won, @dead, @moves, @guesses, @flags, @capped, @duration_ms, @state
		)
		RETURNING *;`,
		params.Args(),
	)
	run, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Run])
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
		return nil, ErrDuplicateRun
	}
	return run, err
}

func (q *Queries) FetchRun(ctx context.Context, runId int64) (*Run, error) {
	rows, _ := q.db.Query(ctx, "SELECT * FROM run WHERE run_id = $1", runId)
	return pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Run])
}

type Stats struct {
	Width      int     `db:"width" json:"width"`
	Height     int     `db:"height" json:"height"`
	MineCount  int     `db:"mine_count" json:"mine_count"`
	Unique     bool    `db:"unique" json:"unique"`
	Games      int64   `db:"games" json:"games"`
	Wins       int64   `db:"wins" json:"wins"`
	WinRate    float64 `db:"win_rate" json:"win_rate"`
	AvgGuesses float64 `db:"avg_guesses" json:"avg_guesses"`
	AvgMoves   float64 `db:"avg_moves" json:"avg_moves"`
	Capped     int64   `db:"capped" json:"capped"`
}

type StatsFilter struct {
	GameParams *mines.GameParams
}

func (f StatsFilter) WhereClause() (string, pgx.NamedArgs) {
	clauses := make([]string, 0)
	args := pgx.NamedArgs{}
	if f.GameParams != nil {
		clauses = append(
			clauses,
			"width = @width",
			"height = @height",
			"mine_count = @mineCount",
			`"unique" = @unique`,
		)
		args["width"] = f.GameParams.Width
		args["height"] = f.GameParams.Height
		args["mineCount"] = f.GameParams.MineCount
		args["unique"] = f.GameParams.Unique
	}
	return strings.Join(clauses, " AND "), args
}

// GetStats aggregates recorded runs per parameter set.
func (q *Queries) GetStats(ctx context.Context, filter StatsFilter) ([]Stats, error) {
	query := `
	SELECT
		width,
		height,
		mine_count,
		"unique",
		count(*) games,
		count(*) FILTER (WHERE won) wins,
		avg(won::int)::float8 win_rate,
		avg(guesses)::float8 avg_guesses,
		avg(moves)::float8 avg_moves,
		count(*) FILTER (WHERE capped) capped
	FROM run
	`

	whereClause, args := filter.WhereClause()
	if whereClause != "" {
		query += " WHERE " + whereClause
	}

	query += ` GROUP BY width, height, mine_count, "unique"
	ORDER BY width * height, mine_count, "unique";`

	rows, err := q.db.Query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Stats])
}
