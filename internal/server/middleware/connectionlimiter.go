package middleware

import (
	"log/slog"
	"net/http"
)

// ConnectionCounter reports the number of live websocket connections.
type ConnectionCounter func() int

// NewConnectionLimiter rejects upgrades once the process-wide connection cap
// is reached. Per-user multiplicity is already bounded by the registry's
// one-connection-per-user overwrite, so the limiter only guards total load.
func NewConnectionLimiter(logger *slog.Logger, counter ConnectionCounter, maxConnections int) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxConnections <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			count := counter()
			if count >= maxConnections {
				logger.Warn("Connection limit reached, rejecting upgrade",
					slog.Int("count", count),
					slog.Int("max", maxConnections),
				)
				http.Error(w, "Too Many Active Connections", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
