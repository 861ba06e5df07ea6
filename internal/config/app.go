package config

import (
	"os"
	"runtime"
	"strconv"
)

func BasePath() string {
	return os.Getenv("APP_BASE_PATH")
}

// Port is the listen address, e.g. ":8080".
func Port() string {
	return os.Getenv("APP_PORT")
}

// MaxWorkers bounds the games the server plays at once. It defaults to
// GOMAXPROCS when AUTOPLAY_MAX_WORKERS is unset or not a positive number.
func MaxWorkers() int {
	n, err := strconv.Atoi(os.Getenv("AUTOPLAY_MAX_WORKERS"))
	if err != nil || n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}
