package relay

import (
	"context"
	"encoding/json"
	"log/slog"
)

// HandlerFunc processes one inbound event from a connection. Handlers never
// return errors to the sender; failures are logged and the event is dropped
// so one bad event cannot affect unrelated connections.
type HandlerFunc func(ctx context.Context, conn Conn, payload json.RawMessage)

// Router dispatches each inbound event by type to exactly one handler.
type Router struct {
	logger   *slog.Logger
	handlers map[string]HandlerFunc
}

func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		logger:   logger.With(slog.String("component", "event_router")),
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds an event type to its handler. Duplicate registration is a
// programming error.
func (r *Router) Register(event string, fn HandlerFunc) {
	if _, exists := r.handlers[event]; exists {
		panic("event handler already registered: " + event)
	}
	r.handlers[event] = fn
}

// HandleMessage parses the wire envelope and runs the matching handler.
// Malformed frames and unknown event types are logged and ignored.
func (r *Router) HandleMessage(ctx context.Context, conn Conn, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		r.logger.Warn("Failed to unmarshal client message",
			slog.String("connID", conn.ID().String()),
			slog.Any("error", err),
		)
		return
	}

	fn, ok := r.handlers[env.Event]
	if !ok {
		r.logger.Warn("Received unknown event",
			slog.String("event", env.Event),
			slog.String("connID", conn.ID().String()),
		)
		return
	}

	r.logger.Debug("Dispatching event",
		slog.String("event", env.Event),
		slog.String("connID", conn.ID().String()),
	)
	fn(ctx, conn, env.Payload)
}
