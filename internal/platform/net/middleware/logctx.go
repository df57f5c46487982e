package middleware

import (
	"net/http"

	"timeline/internal/platform/logger"
	pnet "timeline/internal/platform/net"
)

// LogContext copies the chi request id into the logger context so logger.C picks it up.
// Mount after RequestID
func LogContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := pnet.RequestID(r.Context()); id != "" {
			r = r.WithContext(logger.WithRequest(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
