package app

import (
	"hash/maphash"
	"math/rand/v2"

	"github.com/vancomm/minesweeper-autoplayer/internal/config"
	"github.com/vancomm/minesweeper-autoplayer/internal/handlers"
)

func createRand() *rand.Rand {
	return rand.New(rand.NewPCG(
		new(maphash.Hash).Sum64(), new(maphash.Hash).Sum64(),
	))
}

func (a *App) loadRoutes() {
	autoplay := handlers.NewAutoplayHandler(
		a.logger, a.db, a.ws, config.MaxWorkers(), createRand(),
	)

	prefix := config.BasePath()
	a.router.HandleFunc("GET "+prefix+"/status", handlers.Status)
	a.router.HandleFunc("POST "+prefix+"/autoplay", autoplay.NewRun)
	a.router.HandleFunc("GET "+prefix+"/autoplay/connect", autoplay.ConnectWS)
	a.router.HandleFunc("GET "+prefix+"/autoplay/{id}", autoplay.Fetch)
	a.router.HandleFunc("GET "+prefix+"/stats", autoplay.Stats)
}
