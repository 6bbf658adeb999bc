// Package relay implements the real-time core: the connection registry with
// presence broadcasts, the pending-offer buffer, and the relays that forward
// signaling, call lifecycle, chat and notification events between users.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/ajayjoseph-creator/vibex-relay/internal/store"
)

// Relay owns the registry and pending-offer buffer and dispatches every
// inbound event to the component responsible for it. The registry and the
// buffer are the only shared mutable state; each handler is otherwise a pure
// function of the event and the current registry snapshot.
type Relay struct {
	registry *Registry
	pending  *PendingOffers
	store    store.MessageStore
	router   *Router
	logger   *slog.Logger

	// baseCtx bounds background work (the mark_read store await) so process
	// shutdown cancels it instead of the originating connection's lifetime.
	baseCtx context.Context
}

func New(baseCtx context.Context, logger *slog.Logger, registry *Registry, pending *PendingOffers, messages store.MessageStore) *Relay {
	r := &Relay{
		registry: registry,
		pending:  pending,
		store:    messages,
		router:   NewRouter(logger),
		logger:   logger.With(slog.String("component", "relay")),
		baseCtx:  baseCtx,
	}

	r.router.Register(EventJoin, r.handleJoin)
	r.router.Register(EventOffer, r.handleOffer)
	r.router.Register(EventReadyForOffer, r.handleReadyForOffer)
	r.router.Register(EventAnswer, r.handleAnswer)
	r.router.Register(EventICECandidate, r.handleICECandidate)
	r.router.Register(EventCallUser, r.handleCallUser)
	r.router.Register(EventEndCall, r.handleEndCall)
	r.router.Register(EventSendMessage, r.handleSendMessage)
	r.router.Register(EventMarkRead, r.handleMarkRead)

	return r
}

// Registry exposes the registry for the server's shutdown walk and the
// connection limiter.
func (r *Relay) Registry() *Registry {
	return r.registry
}

// Attach registers a freshly-accepted connection with the registry.
func (r *Relay) Attach(c Conn) {
	r.registry.Attach(c)
}

// Detach handles a connection's termination. The transport guarantees it is
// called exactly once per connection, even when termination races an
// in-flight event.
func (r *Relay) Detach(id uuid.UUID) {
	r.registry.Detach(id)
}

// HandleMessage is the transport's inbound entry point.
func (r *Relay) HandleMessage(ctx context.Context, conn Conn, msg []byte) {
	r.router.HandleMessage(ctx, conn, msg)
}

// handleJoin maps the announcing user to this connection and triggers the
// presence broadcast. A missing userId is ignored, never an error.
func (r *Relay) handleJoin(_ context.Context, conn Conn, payload json.RawMessage) {
	userID := gjson.GetBytes(payload, "userId").String()
	r.registry.Join(userID, conn)
}
