package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000", // local dev
	"http://localhost:9292", // local theme preview
}

// CORS returns middleware allowing the storefront origins to call the
// drawer API. Extra origins come from deploy configuration.
func CORS(extraOrigins ...string) func(http.Handler) http.Handler {
	origins := append(append([]string(nil), defaultCORSOrigins...), extraOrigins...)
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
