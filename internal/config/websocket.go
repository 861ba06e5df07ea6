package config

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type WebSocket struct {
	Upgrader     websocket.Upgrader
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// ReadLimit caps the size of a client message in bytes.
	ReadLimit int64
}

func NewWebSocket() (*WebSocket, error) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	ws := &WebSocket{
		Upgrader:     upgrader,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ReadLimit:    4096,
	}

	return ws, nil
}
