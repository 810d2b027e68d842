package httptransport

import (
	"net/http"

	"github.com/rs/cors"
)

// WithCORS lets the browser app call the API from allowedOrigins. An empty
// list allows any origin without credentials.
func WithCORS(next http.Handler, allowedOrigins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: len(allowedOrigins) > 0,
		MaxAge:           600,
	}).Handler(next)
}
