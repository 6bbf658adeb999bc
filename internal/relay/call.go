package relay

import (
	"context"
	"encoding/json"
	"log/slog"
)

// The call lifecycle relay holds no notion of a call in progress. It forwards
// call_user and end_call as pure messages; duplicate call_users or an
// end_call with no prior call_user are accepted without validation.

func (r *Relay) handleCallUser(_ context.Context, conn Conn, payload json.RawMessage) {
	var p callUserPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("Malformed call_user payload", slog.Any("error", err))
		return
	}

	target, ok := r.registry.Lookup(p.TargetUserID)
	if !ok {
		r.logger.Debug("call_user dropped, target offline", slog.String("targetUserID", p.TargetUserID))
		return
	}

	r.send(target, EventIncomingCall, incomingCallOut{FromUserID: p.FromUserID, Metadata: p.Metadata})
}

func (r *Relay) handleEndCall(_ context.Context, conn Conn, payload json.RawMessage) {
	var p endCallPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("Malformed end_call payload", slog.Any("error", err))
		return
	}

	target, ok := r.registry.Lookup(p.TargetUserID)
	if !ok {
		r.logger.Debug("end_call dropped, target offline", slog.String("targetUserID", p.TargetUserID))
		return
	}

	r.send(target, EventCallEnded, callEndedOut{FromUserID: p.FromUserID})
}
