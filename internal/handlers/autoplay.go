package handlers

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/semaphore"

	"github.com/vancomm/minesweeper-autoplayer/internal/autoplay"
	"github.com/vancomm/minesweeper-autoplayer/internal/config"
	"github.com/vancomm/minesweeper-autoplayer/internal/mines"
	"github.com/vancomm/minesweeper-autoplayer/internal/repository"
)

type AutoplayHandler struct {
	logger  *slog.Logger
	repo    *repository.Queries
	ws      *config.WebSocket
	workers *semaphore.Weighted

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewAutoplayHandler(
	logger *slog.Logger,
	db *pgxpool.Pool,
	ws *config.WebSocket,
	workers int,
	rnd *rand.Rand,
) *AutoplayHandler {
	handler := &AutoplayHandler{
		logger:  logger,
		repo:    repository.New(db),
		ws:      ws,
		workers: semaphore.NewWeighted(int64(workers)),
		rnd:     rnd,
	}

	return handler
}

func (h *AutoplayHandler) seed(dto CreateRunDTO) uint64 {
	if dto.Seed != nil {
		return *dto.Seed
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rnd.Uint64()
}

// play runs one game while holding a worker slot.
func (h *AutoplayHandler) play(
	ctx context.Context, dto CreateRunDTO, opts ...autoplay.Option,
) (*autoplay.Result, error) {
	if err := h.workers.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer h.workers.Release(1)

	return autoplay.PlaySeeded(ctx, dto.GameParams(), h.seed(dto), opts...)
}

func playStatus(err error) int {
	switch {
	case errors.Is(err, mines.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, mines.ErrGenerationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *AutoplayHandler) NewRun(w http.ResponseWriter, r *http.Request) {
	dto, err := ParseCreateRunDTO(r.URL.Query())
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		sendJSONOrLog(w, h.logger, wrapError(err))
		return
	}
	if err := dto.GameParams().Validate(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		sendJSONOrLog(w, h.logger, wrapError(err))
		return
	}

	res, err := h.play(r.Context(), dto)
	if err != nil {
		status := playStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("unable to play game", slog.Any("error", err))
		}
		w.WriteHeader(status)
		sendJSONOrLog(w, h.logger, wrapError(err))
		return
	}

	params, err := repository.NewCreateRunParams(res)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.logger.Error("unable to encode game state", "error", err)
		return
	}
	run, err := h.repo.CreateRun(r.Context(), params)
	if errors.Is(err, repository.ErrDuplicateRun) {
		w.WriteHeader(http.StatusConflict)
		sendJSONOrLog(w, h.logger, wrapError(err))
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.logger.Error("unable to store run", "error", err)
		return
	}

	out, err := NewRunDTO(run)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.logger.Error("db returned invalid run.state", "error", err)
		return
	}
	out.Steps = res.Steps
	w.WriteHeader(http.StatusCreated)
	sendJSONOrLog(w, h.logger, out)
}

func (h *AutoplayHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	runId, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	run, err := h.repo.FetchRun(r.Context(), runId)
	if errors.Is(err, pgx.ErrNoRows) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.logger.Error("unable to fetch run from db", "error", err)
		return
	}

	out, err := NewRunDTO(run)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.logger.Error("db returned invalid run.state", "error", err)
		return
	}
	sendJSONOrLog(w, h.logger, out)
}

func (h *AutoplayHandler) Stats(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.StatsFilter{}

	if query.Has("params") {
		params, err := mines.ParseSeed(query.Get("params"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			sendJSONOrLog(w, h.logger, wrapError(err))
			return
		}
		filter.GameParams = params
	}

	stats, err := h.repo.GetStats(r.Context(), filter)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.logger.Error(
			"failed to fetch stats", slog.Any("error", err), slog.Any("filter", filter),
		)
		return
	}

	sendJSONOrLog(w, h.logger, stats)
}
