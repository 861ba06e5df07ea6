package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// Cors lets browsers on any origin call the API. No request carries
// credentials, so none are allowed.
func Cors() Middleware {
	options := cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	}
	return cors.New(options).Handler
}
