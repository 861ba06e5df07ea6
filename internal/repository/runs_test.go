package repository

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"github.com/vancomm/minesweeper-autoplayer/internal/mines"
)

func TestStatsFilterWhereClause(t *testing.T) {
	clause, args := StatsFilter{}.WhereClause()
	assert.Empty(t, clause)
	assert.Empty(t, args)

	params := mines.GameParams{Width: 9, Height: 9, MineCount: 10, Unique: true}
	clause, args = StatsFilter{GameParams: &params}.WhereClause()
	assert.Equal(t,
		`width = @width AND height = @height AND mine_count = @mineCount AND "unique" = @unique`,
		clause,
	)
	assert.Equal(t, pgx.NamedArgs{
		"width": 9, "height": 9, "mineCount": 10, "unique": true,
	}, args)
}

func TestCreateRunParamsArgs(t *testing.T) {
	p := CreateRunParams{
		Params: mines.GameParams{Width: 4, Height: 3, MineCount: 2},
		Seed:   "7",
		Won:    true,
		Moves:  5,
		State:  []byte{1},
	}
	args := p.Args()
	assert.Len(t, args, 13)
	assert.Equal(t, 4, args["width"])
	assert.Equal(t, "7", args["seed"])
	assert.Equal(t, true, args["won"])
	assert.Equal(t, []byte{1}, args["state"])
}
