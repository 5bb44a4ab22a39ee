package middleware

import (
	"net/http"

	"github.com/rs/zerolog"
)

// LoggerMiddleware logs each request line once the handler has finished.
// Lines go out at Info so they survive the default logger level.
func LoggerMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			log.Info().Msgf("%s %s", r.Method, r.URL.RequestURI())
		})
	}
}
