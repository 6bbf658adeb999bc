package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// NewRequestLogger logs every request hitting the relay's HTTP surface.
// Websocket upgrades are logged distinctly from plain requests since they
// open a long-lived relay channel rather than serve a response.
func NewRequestLogger(logger *slog.Logger) Middleware {
	reqLogger := logger.With(slog.String("component", "http"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqMeta, ok := ReqMetadataFrom(r.Context())
			var ip string
			if ok {
				ip = reqMeta.IP
			}

			msg := "Incoming HTTP request"
			if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				msg = "Incoming websocket upgrade"
			}
			reqLogger.Info(msg,
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("ip", ip),
			)
			next.ServeHTTP(w, r)
		})
	}
}
