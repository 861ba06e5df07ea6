package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vancomm/minesweeper-autoplayer/internal/config"
	"github.com/vancomm/minesweeper-autoplayer/internal/database"
	"github.com/vancomm/minesweeper-autoplayer/internal/middleware"
)

type App struct {
	logger *slog.Logger
	router *http.ServeMux
	db     *pgxpool.Pool
	ws     *config.WebSocket
}

func New(logger *slog.Logger) *App {
	router := http.NewServeMux()

	app := &App{
		logger: logger,
		router: router,
	}

	return app
}

func (a *App) Start(ctx context.Context) error {
	db, migrator, err := database.ConnectAndMigrateEnv(ctx)
	if err != nil {
		return fmt.Errorf("unable to connect to db: %w", err)
	}
	defer db.Close()
	if version, dirty, err := migrator.Version(); err == nil {
		a.logger.Info("database ready", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	}

	a.db = db

	ws, err := config.NewWebSocket()
	if err != nil {
		return err
	}

	a.ws = ws

	a.loadRoutes()

	addr := config.Port()
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{
		Addr: addr,
		Handler: middleware.Wrap(
			a.router,
			middleware.Logging(a.logger),
			middleware.Recover(a.logger),
			middleware.Cors(),
		),
		ReadTimeout: time.Second * 15,
		IdleTimeout: time.Second * 60,
	}

	errCh := make(chan error, 1)
	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("unable to listen and serve: %w", err)
		}
		close(errCh)
	}()

	a.logger.Info("server listening", slog.String("addr", addr))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
