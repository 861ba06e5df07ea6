package mines

import (
	"fmt"
	"strings"

	"github.com/vancomm/minesweeper-autoplayer/internal/knowledge"
)

type GameParams struct {
	Width     int  `json:"width"`
	Height    int  `json:"height"`
	MineCount int  `json:"mine_count"`
	Unique    bool `json:"unique"`
}

func (p GameParams) Unpack() (w int, h int, mc int, u bool) {
	return p.Width, p.Height, p.MineCount, p.Unique
}

func (p GameParams) Seed() string {
	u := 0
	if p.Unique {
		u = 1
	}
	return fmt.Sprintf("%d:%d:%d:%d", p.Width, p.Height, p.MineCount, u)
}

func ParseSeed(seed string) (*GameParams, error) {
	p := &GameParams{}
	u := 0
	sseed := strings.ReplaceAll(seed, ":", " ")
	n, err := fmt.Sscanf(
		sseed, "%d %d %d %d", &p.Width, &p.Height, &p.MineCount, &u,
	)
	if n != 4 || err != nil {
		return nil, fmt.Errorf(
			`invalid game params seed (sseed = "%s", n = %d, err = %w)`,
			sseed, n, err,
		)
	}
	p.Unique = u == 1
	return p, p.Validate()
}

// Largest grid a game may have on either side.
const (
	MaxWidth  = 100
	MaxHeight = 100
)

func (p GameParams) Validate() error {
	switch {
	case p.Width <= 0 || p.Height <= 0:
		return fmt.Errorf("%w: %dx%d grid", ErrInvalidParams, p.Width, p.Height)
	case p.Width > MaxWidth || p.Height > MaxHeight:
		return fmt.Errorf("%w: %dx%d grid exceeds %dx%d",
			ErrInvalidParams, p.Width, p.Height, MaxWidth, MaxHeight)
	case p.MineCount < 0:
		return fmt.Errorf("%w: negative mine count", ErrInvalidParams)
	case p.MineCount >= p.Width*p.Height:
		return fmt.Errorf(
			"%w: %d mines leave no safe cell on %dx%d grid",
			ErrInvalidParams, p.MineCount, p.Width, p.Height,
		)
	}
	return nil
}

func (p GameParams) PointInBounds(c knowledge.Cell) bool {
	return 0 <= c.Col && c.Col < p.Width && 0 <= c.Row && c.Row < p.Height
}

func (p GameParams) index(c knowledge.Cell) int {
	return c.Row*p.Width + c.Col
}
