package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/ajayjoseph-creator/vibex-relay/internal/presence"
	"github.com/ajayjoseph-creator/vibex-relay/internal/relay"
	"github.com/ajayjoseph-creator/vibex-relay/internal/server/middleware"
	"github.com/ajayjoseph-creator/vibex-relay/internal/store"
	"github.com/ajayjoseph-creator/vibex-relay/pkg/config"
	"github.com/ajayjoseph-creator/vibex-relay/pkg/transport"
)

// App is the composition root: it owns the registry, the pending-offer
// buffer and the relay, and serves the websocket channel plus the internal
// HTTP surface. No relay state lives in package-level variables, so multiple
// instances can run in one process (tests do exactly that).
type App struct {
	logger *slog.Logger
	relay  *relay.Relay
	mirror presence.Mirror
	wg     sync.WaitGroup
	http   *http.Server
	config *config.Config

	ctx context.Context
}

func NewApp(logger *slog.Logger, rootCtx context.Context, cfg *config.Config, messages store.MessageStore, mirror presence.Mirror) *App {
	registry := relay.NewRegistry(logger, mirror)
	pending := relay.NewPendingOffers(logger, cfg.PendingOffers.MaxPerTarget, cfg.PendingOffers.TTL)
	rl := relay.New(rootCtx, logger, registry, pending, messages)

	app := &App{
		logger: logger,
		relay:  rl,
		mirror: mirror,
		config: cfg,
		ctx:    rootCtx,
	}

	mux := http.NewServeMux()

	wsMiddlewares := []middleware.Middleware{
		middleware.RequestMetadataMiddleware(),
		middleware.NewRequestLogger(logger),
		middleware.NewConnectionLimiter(logger, registry.ConnCount, cfg.Server.ConnectionLimit.MaxConnections),
	}
	if cfg.Server.Auth.JWTSecret != "" {
		wsMiddlewares = append(wsMiddlewares, middleware.NewAuthMiddleware(logger, cfg.Server.Auth.JWTSecret))
	}
	mux.Handle("/ws", middleware.Chain(http.HandlerFunc(app.upgradeHandler), wsMiddlewares...))

	mux.Handle("POST /internal/notifications", middleware.Chain(
		http.HandlerFunc(app.notificationHandler),
		middleware.RequestMetadataMiddleware(),
		middleware.NewRequestLogger(logger),
	))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	app.http = &http.Server{Addr: cfg.Server.Address, Handler: mux, BaseContext: func(l net.Listener) context.Context {
		return app.ctx
	}}

	return app
}

func (a *App) Run() error {
	go func() {
		a.logger.Info("Server starting", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed", slog.Any("error", err))
		}
	}()

	<-a.ctx.Done()
	return a.Shutdown()
}

func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, _ := middleware.ReqMetadataFrom(r.Context())
	connLogger := a.logger.With(
		slog.String("remoteAddr", reqMeta.IP),
		slog.String("userID", reqMeta.UserID),
	)

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		a.logger.Error("Failed to accept websocket connection", slog.Any("error", err))
		return
	}

	conn := transport.NewConnection(
		r.Context(),
		&a.wg,
		wsConn,
		transport.ConnectionConfig{ReadTimeout: a.config.Transport.ReadTimeout},
		nil,
		nil,
		a.logger,
	)

	a.relay.Attach(conn)
	conn.SetOnMessageHandler(func(ctx context.Context, _ uuid.UUID, msg []byte) {
		a.relay.HandleMessage(ctx, conn, msg)
	})
	conn.SetOnCloseHandler(func(id uuid.UUID, err error) {
		connLogger.Info("Detaching connection due to closure", slog.String("connID", id.String()))
		a.relay.Detach(id)
	})

	connLogger.Info("Relay connection fully established")
	conn.Run()
	<-conn.Done()
}

// notificationHandler is the ingress for externally-constructed notification
// events produced by the rest of the backend after persisting them.
func (a *App) notificationHandler(w http.ResponseWriter, r *http.Request) {
	var n relay.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if n.ReceiverID == "" {
		http.Error(w, "receiverId is required", http.StatusBadRequest)
		return
	}

	a.relay.DeliverNotification(n)
	w.WriteHeader(http.StatusAccepted)
}

// Shutdown runs the graceful shutdown sequence.
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// close all active WebSocket connections.
	a.logger.Info("Closing all active connections...")
	for _, conn := range a.relay.Registry().Conns() {
		conn.Close(errors.New("graceful shutdown"))
	}

	// wait for all connection goroutines to finish their cleanup.
	a.wg.Wait()

	if err := a.mirror.Close(); err != nil {
		a.logger.Warn("Failed to close presence mirror", slog.Any("error", err))
	}
	a.logger.Info("Server shut down gracefully.")
	return nil
}
