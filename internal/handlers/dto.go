package handlers

import (
	"strconv"

	"github.com/gorilla/schema"

	"github.com/vancomm/minesweeper-autoplayer/internal/autoplay"
	"github.com/vancomm/minesweeper-autoplayer/internal/mines"
	"github.com/vancomm/minesweeper-autoplayer/internal/repository"
)

type CreateRunDTO struct {
	Width     int     `schema:"width,required" json:"width"`
	Height    int     `schema:"height,required" json:"height"`
	MineCount int     `schema:"mine_count,required" json:"mine_count"`
	Unique    bool    `schema:"unique" json:"unique"`
	Seed      *uint64 `schema:"seed" json:"seed,omitempty"`
}

func (dto CreateRunDTO) GameParams() mines.GameParams {
	return mines.GameParams{
		Width:     dto.Width,
		Height:    dto.Height,
		MineCount: dto.MineCount,
		Unique:    dto.Unique,
	}
}

var decoder = func() *schema.Decoder {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return dec
}()

func ParseCreateRunDTO(src map[string][]string) (CreateRunDTO, error) {
	var dto CreateRunDTO
	err := decoder.Decode(&dto, src)
	return dto, err
}

type RunDTO struct {
	RunId      string          `json:"run_id,omitempty"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	MineCount  int             `json:"mine_count"`
	Unique     bool            `json:"unique"`
	Seed       string          `json:"seed"`
	Won        bool            `json:"won"`
	Dead       bool            `json:"dead"`
	Moves      int             `json:"moves"`
	Guesses    int             `json:"guesses"`
	Flags      int             `json:"flags"`
	Capped     bool            `json:"capped"`
	DurationMs int64           `json:"duration_ms"`
	Grid       mines.Grid      `json:"grid"`
	Steps      []autoplay.Step `json:"steps,omitempty"`
	CreatedAt  int64           `json:"created_at,omitempty"`
}

func NewRunDTO(run *repository.Run) (*RunDTO, error) {
	game, err := run.Game()
	if err != nil {
		return nil, err
	}
	dto := &RunDTO{
		RunId:      strconv.FormatInt(run.RunId, 10),
		Width:      run.Width,
		Height:     run.Height,
		MineCount:  run.MineCount,
		Unique:     run.Unique,
		Seed:       run.Seed,
		Won:        run.Won,
		Dead:       run.Dead,
		Moves:      run.Moves,
		Guesses:    run.Guesses,
		Flags:      run.Flags,
		Capped:     run.Capped,
		DurationMs: run.DurationMs,
		Grid:       game.PlayerGrid,
		CreatedAt:  run.CreatedAt.UnixMilli(),
	}
	return dto, nil
}

// NewResultDTO describes a game that was not stored.
func NewResultDTO(res *autoplay.Result) *RunDTO {
	return &RunDTO{
		Width:      res.Params.Width,
		Height:     res.Params.Height,
		MineCount:  res.Params.MineCount,
		Unique:     res.Params.Unique,
		Seed:       res.Seed,
		Won:        res.Won,
		Dead:       res.Dead,
		Moves:      res.Moves,
		Guesses:    res.Guesses,
		Flags:      res.Flags,
		Capped:     res.Capped,
		DurationMs: res.Duration.Milliseconds(),
		Grid:       res.Game.PlayerGrid,
		Steps:      res.Steps,
	}
}

type wsMessageType string

const (
	wsStep   wsMessageType = "step"
	wsResult wsMessageType = "result"
	wsError  wsMessageType = "error"
)

type wsMessage struct {
	Type   wsMessageType  `json:"type"`
	Step   *autoplay.Step `json:"step,omitempty"`
	Result *RunDTO        `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}
