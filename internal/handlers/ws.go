package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vancomm/minesweeper-autoplayer/internal/autoplay"
)

/*
ConnectWS plays one game over a websocket. The client sends a single JSON
CreateRunDTO; the server answers with a "step" message per move, then a
"result" message, and closes the connection. Streamed games are not stored.
*/
func (h *AutoplayHandler) ConnectWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("unable to upgrade connection", slog.Any("error", err))
		return
	}
	defer conn.Close()

	if err := h.stream(r.Context(), conn); err != nil {
		h.logger.Debug("websocket stream ended", slog.Any("error", err))
		if err := h.write(conn, wsMessage{Type: wsError, Error: err.Error()}); err != nil {
			h.logger.Debug("unable to report stream error", slog.Any("error", err))
		}
	}

	deadline := time.Now().Add(h.ws.WriteTimeout)
	err = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline,
	)
	if err != nil {
		h.logger.Debug("unable to send close message", slog.Any("error", err))
	}
}

func (h *AutoplayHandler) write(conn *websocket.Conn, m wsMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(h.ws.WriteTimeout)); err != nil {
		return fmt.Errorf("unable to set write deadline: %w", err)
	}
	if err := conn.WriteJSON(m); err != nil {
		return fmt.Errorf("unable to write json: %w", err)
	}
	return nil
}

func (h *AutoplayHandler) stream(ctx context.Context, conn *websocket.Conn) error {
	if h.ws.ReadLimit > 0 {
		conn.SetReadLimit(h.ws.ReadLimit)
	}
	if h.ws.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(h.ws.ReadTimeout)); err != nil {
			return fmt.Errorf("unable to set read deadline: %w", err)
		}
	}

	var dto CreateRunDTO
	if err := conn.ReadJSON(&dto); err != nil {
		return fmt.Errorf("unable to read game params: %w", err)
	}
	if err := dto.GameParams().Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	res, err := h.play(ctx, dto, autoplay.WithObserver(func(step autoplay.Step) {
		if err := h.write(conn, wsMessage{Type: wsStep, Step: &step}); err != nil {
			cancel(err)
		}
	}))
	if err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return cause
		}
		return err
	}

	res.Game.RevealMines()
	return h.write(conn, wsMessage{Type: wsResult, Result: NewResultDTO(res)})
}
