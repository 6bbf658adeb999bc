package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// NewAuthMiddleware validates the session token and records the subject in
// the request metadata. The token comes from the Authorization header or,
// for browser clients that cannot set headers on websocket upgrades, the
// session-token cookie.
func NewAuthMiddleware(logger *slog.Logger, jwtSecret string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// couldn't extract metadata from request so something went wrong with previous middlewares
			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			var tokenString string
			if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
				tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			} else if cookie, err := r.Cookie("session-token"); err == nil {
				tokenString = cookie.Value
			}

			if tokenString == "" {
				logger.Warn("JWT token missing in request", "ip", reqMeta.IP)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Parse and validate the JWT token with HMAC signing
			token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})

			// Reject token if invalid
			if err != nil || !token.Valid {
				logger.Warn("Invalid JWT token presented", slog.String("ip", reqMeta.IP), slog.Any("error", err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(*jwt.RegisteredClaims)
			if !ok || claims.Subject == "" {
				logger.Warn("Valid token missing 'sub' claim", "ip", reqMeta.IP)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			reqMeta.UserID = claims.Subject
			next.ServeHTTP(w, r)
		})
	}
}
