package config

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// File is the JSON configuration of the autoplay command.
type File struct {
	Mode     string         `json:"mode"`
	LogFile  string         `json:"log_file"`
	Postgres PostgresConfig `json:"postgres"`
	Game     GameConfig     `json:"game"`
	Batch    BatchConfig    `json:"batch"`
}

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     uint16 `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DbName   string `json:"db_name"`
	SSLMode  string `json:"sslmode"`
}

// Empty reports that no database was configured; runs are then not recorded.
func (p PostgresConfig) Empty() bool {
	return p.Host == ""
}

func (p PostgresConfig) URL() string {
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return Database{
		Username: p.User,
		Password: p.Password,
		Host:     p.Host,
		Port:     p.Port,
		DBName:   p.DbName,
		SSLMode:  sslMode,
	}.URL()
}

// GameConfig holds default game parameters in "w:h:m:u" form.
type GameConfig struct {
	Params string `json:"params"`
	Seed   uint64 `json:"seed"`
}

type BatchConfig struct {
	Games   int      `json:"games"`
	Workers int      `json:"workers"`
	Timeout Duration `json:"timeout"`
}

type Duration struct{ time.Duration }

// [Duration] implements [json.Marshaler]
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil

	default:
		return errors.New("invalid duration")
	}
}

func DefaultFile() File {
	return File{
		Mode: "development",
		Game: GameConfig{Params: "9:9:10:0"},
		Batch: BatchConfig{
			Games:   1,
			Timeout: Duration{time.Minute},
		},
	}
}

func (c File) Fields() logrus.Fields {
	return map[string]any{
		"mode":          c.Mode,
		"log_file":      c.LogFile,
		"pg_host":       c.Postgres.Host,
		"pg_port":       c.Postgres.Port,
		"pg_user":       c.Postgres.User,
		"pg_db_name":    c.Postgres.DbName,
		"game_params":   c.Game.Params,
		"game_seed":     c.Game.Seed,
		"batch_games":   c.Batch.Games,
		"batch_workers": c.Batch.Workers,
		"batch_timeout": c.Batch.Timeout.Duration.String(),
	}
}

func (c File) Production() bool {
	return c.Mode == "production"
}

func (c File) Development() bool {
	return c.Mode != "production"
}

// ReadFile overlays the JSON file at path on top of config.
func ReadFile(path string, config *File) error {
	if b, err := os.ReadFile(path); err != nil {
		return err
	} else {
		return json.Unmarshal(b, config)
	}
}
