package middleware

import (
	"net/http"

	"github.com/himalai/expense-service/internal/logger"
)

// Recovery turns handler panics into 500s instead of dropped
// connections.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("Panic serving %s %s: %v", r.Method, r.URL.Path, rec)
					respondError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
