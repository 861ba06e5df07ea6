package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"hash/maphash"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/snowzach/rotatefilehook"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/minesweeper-autoplayer/internal/autoplay"
	"github.com/vancomm/minesweeper-autoplayer/internal/config"
	"github.com/vancomm/minesweeper-autoplayer/internal/database"
	"github.com/vancomm/minesweeper-autoplayer/internal/knowledge"
	"github.com/vancomm/minesweeper-autoplayer/internal/mines"
	"github.com/vancomm/minesweeper-autoplayer/internal/repository"
)

var (
	log = logrus.New()

	configPath string
	cfg        = config.DefaultFile()

	paramsFlag string
	seedFlag   uint64
	gamesFlag  int
	workers    int
	record     bool
	verbose    bool
)

func init() {
	const usage = "config file path"
	flag.StringVar(&configPath, "config", "", usage)
	flag.StringVar(&configPath, "c", "", usage+" (shorthand)")
	flag.StringVar(&paramsFlag, "params", "", `game params as "width:height:mines:unique"`)
	flag.Uint64Var(&seedFlag, "seed", 0, "batch seed (random when unset)")
	flag.IntVar(&gamesFlag, "n", 0, "number of games")
	flag.IntVar(&workers, "workers", 0, "games played at once (GOMAXPROCS when 0)")
	flag.BoolVar(&record, "record", false, "store every game in postgres")
	flag.BoolVar(&verbose, "v", false, "print every move and log at debug level")
}

func loggers() []*logrus.Logger {
	return []*logrus.Logger{log, autoplay.Log, knowledge.Log, mines.Log}
}

func setupLogging() {
	logLevel := logrus.InfoLevel
	if verbose || cfg.Development() {
		logLevel = logrus.DebugLevel
	}

	var hook logrus.Hook
	if cfg.LogFile != "" {
		var err error
		hook, err = rotatefilehook.NewRotateFileHook(rotatefilehook.RotateFileConfig{
			Filename:   cfg.LogFile,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     28,
			Level:      logLevel,
			Formatter:  &logrus.JSONFormatter{},
		})
		if err != nil {
			log.Fatal("unable to open log file: ", err)
		}
	}

	for _, l := range loggers() {
		l.SetLevel(logLevel)
		l.SetFormatter(&logrus.TextFormatter{ForceColors: true})
		if hook != nil {
			l.AddHook(hook)
		}
	}
}

// applyFlags lets explicitly set flags override the config file.
func applyFlags() {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "params":
			cfg.Game.Params = paramsFlag
		case "seed":
			cfg.Game.Seed = seedFlag
		case "n":
			cfg.Batch.Games = gamesFlag
		case "workers":
			cfg.Batch.Workers = workers
		}
	})
	if cfg.Game.Seed == 0 {
		cfg.Game.Seed = new(maphash.Hash).Sum64()
	}
}

func main() {
	mainCtx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	flag.Parse()

	if configPath != "" {
		if err := config.ReadFile(configPath, &cfg); err != nil {
			log.Fatalf("unable to read config %s: %s", configPath, err.Error())
		}
	}
	applyFlags()

	setupLogging()

	log.Info("starting up, mode = ", cfg.Mode)
	log.WithFields(cfg.Fields()).Debug("config")

	params, err := mines.ParseSeed(cfg.Game.Params)
	if err != nil {
		log.Fatal("invalid game params: ", err)
	}

	ctx := mainCtx
	if cfg.Batch.Timeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(mainCtx, cfg.Batch.Timeout.Duration)
		defer cancel()
	}

	var results []*autoplay.Result
	if cfg.Batch.Games <= 1 {
		res, err := playOne(ctx, *params)
		if err != nil {
			log.Fatal("game failed: ", err)
		}
		results = []*autoplay.Result{res}
	} else {
		summary, err := autoplay.Benchmark(ctx, autoplay.BatchParams{
			Params:  *params,
			Games:   cfg.Batch.Games,
			Workers: cfg.Batch.Workers,
			Seed:    cfg.Game.Seed,
		})
		if err != nil {
			log.Fatal("benchmark failed: ", err)
		}
		b, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			log.Fatal("unable to encode summary: ", err)
		}
		fmt.Println(string(b))
		results = summary.Results
	}

	if record {
		if err := recordRuns(ctx, results); err != nil {
			log.Fatal("unable to record runs: ", err)
		}
	}
}

func playOne(ctx context.Context, params mines.GameParams) (*autoplay.Result, error) {
	var opts []autoplay.Option
	if verbose {
		opts = append(opts, autoplay.WithObserver(func(s autoplay.Step) {
			fmt.Printf("#%d %s %s: opened %d, flagged %d, exploded %t\n",
				s.N, s.Kind, s.Cell, len(s.Opened), len(s.Flagged), s.Exploded)
		}))
	}
	res, err := autoplay.PlaySeeded(ctx, params, cfg.Game.Seed, opts...)
	if err != nil {
		return nil, err
	}

	outcome := "lost"
	if res.Won {
		outcome = "won"
	}
	res.Game.RevealMines()
	fmt.Print(res.Game.String())
	fmt.Printf("%s seed %s: %s after %d moves, %d guesses, %d flags in %s\n",
		params.Seed(), res.Seed, outcome, res.Moves, res.Guesses, res.Flags, res.Duration)
	return res, nil
}

func recordRuns(ctx context.Context, results []*autoplay.Result) error {
	if cfg.Postgres.Empty() {
		return errors.New("no postgres config")
	}
	db, _, err := database.ConnectAndMigrate(ctx, cfg.Postgres.URL(), database.Migrations)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("unable to ping database: %w", err)
	}
	repo := repository.New(db)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Batch.Workers, 1))
	for _, res := range results {
		g.Go(func() error {
			params, err := repository.NewCreateRunParams(res)
			if err != nil {
				return err
			}
			run, err := repo.CreateRun(gCtx, params)
			if errors.Is(err, repository.ErrDuplicateRun) {
				log.WithField("seed", res.Seed).Warn("run already recorded, skipping")
				return nil
			}
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"run_id": run.RunId, "seed": run.Seed,
			}).Debug("run recorded")
			return nil
		})
	}
	return g.Wait()
}
