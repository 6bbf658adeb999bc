package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ajayjoseph-creator/vibex-relay/internal/server/middleware"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

const testSecret = "test-secret"

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func TestAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	var gotUserID string
	handler := middleware.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqMeta, ok := middleware.ReqMetadataFrom(r.Context())
			if !ok {
				t.Fatal("request metadata missing")
			}
			gotUserID = reqMeta.UserID
		}),
		middleware.RequestMetadataMiddleware(),
		middleware.NewAuthMiddleware(newTestLogger(), testSecret),
	)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-42"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUserID != "user-42" {
		t.Errorf("expected subject user-42, got %q", gotUserID)
	}
}

func TestAuthMiddlewareAcceptsSessionCookie(t *testing.T) {
	handler := middleware.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		middleware.RequestMetadataMiddleware(),
		middleware.NewAuthMiddleware(newTestLogger(), testSecret),
	)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.AddCookie(&http.Cookie{Name: "session-token", Value: signToken(t, "user-7")})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddlewareRejectsMissingAndInvalidTokens(t *testing.T) {
	handler := middleware.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler reached without valid token")
		}),
		middleware.RequestMetadataMiddleware(),
		middleware.NewAuthMiddleware(newTestLogger(), testSecret),
	)

	// No token at all.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for missing token, got %d", rec.Code)
	}

	// Token signed with the wrong secret.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"})
	forged, err := token.SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("failed to sign forged token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for forged token, got %d", rec.Code)
	}
}

func TestRequestLoggerDistinguishesUpgrades(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	reached := false
	handler := middleware.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true }),
		middleware.RequestMetadataMiddleware(),
		middleware.NewRequestLogger(logger),
	)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !reached {
		t.Fatal("request logger did not pass the request through")
	}
	if !strings.Contains(buf.String(), "websocket upgrade") {
		t.Errorf("expected an upgrade log line, got: %s", buf.String())
	}

	buf.Reset()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if !strings.Contains(buf.String(), "Incoming HTTP request") {
		t.Errorf("expected a plain request log line, got: %s", buf.String())
	}
}

func TestConnectionLimiter(t *testing.T) {
	count := 0
	handler := middleware.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		middleware.RequestMetadataMiddleware(),
		middleware.NewConnectionLimiter(newTestLogger(), func() int { return count }, 2),
	)

	count = 1
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 below the cap, got %d", rec.Code)
	}

	count = 2
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 at the cap, got %d", rec.Code)
	}
}

func TestConnectionLimiterDisabled(t *testing.T) {
	handler := middleware.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		middleware.RequestMetadataMiddleware(),
		middleware.NewConnectionLimiter(newTestLogger(), func() int { return 1000 }, 0),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected limiter disabled with max 0, got %d", rec.Code)
	}
}
