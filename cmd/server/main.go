package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper-autoplayer/internal/app"
	"github.com/vancomm/minesweeper-autoplayer/internal/autoplay"
	"github.com/vancomm/minesweeper-autoplayer/internal/config"
	"github.com/vancomm/minesweeper-autoplayer/internal/knowledge"
	"github.com/vancomm/minesweeper-autoplayer/internal/mines"
)

func main() {
	var handler slog.Handler = slog.NewJSONHandler(os.Stderr, nil)
	engineLevel := logrus.WarnLevel
	if config.Development() {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level: slog.LevelDebug,
		})
		engineLevel = logrus.InfoLevel
	}
	logger := slog.New(handler)
	for _, l := range []*logrus.Logger{autoplay.Log, knowledge.Log, mines.Log} {
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetLevel(engineLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := app.New(logger)

	if err := a.Start(ctx); err != nil {
		logger.Error("failed to start server", slog.Any("error", err))
		os.Exit(1)
	}
}
