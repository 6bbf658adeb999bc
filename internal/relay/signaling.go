package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tidwall/gjson"
)

// handleOffer forwards a call-setup offer to the target's live connection, or
// buffers it when the target is absent. The caller gets no acknowledgement
// either way; offers are the only signaling event that survives the target
// being unreachable.
func (r *Relay) handleOffer(_ context.Context, conn Conn, payload json.RawMessage) {
	var p offerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("Malformed offer payload", slog.Any("error", err))
		return
	}
	if p.TargetUserID == "" {
		r.logger.Warn("Offer without targetUserId, dropping", slog.String("fromUserID", p.FromUserID))
		return
	}

	target, ok := r.registry.Lookup(p.TargetUserID)
	if !ok {
		r.pending.Add(p.TargetUserID, p.FromUserID, p.Offer)
		r.logger.Debug("Offer buffered, target offline",
			slog.String("fromUserID", p.FromUserID),
			slog.String("targetUserID", p.TargetUserID),
		)
		return
	}

	r.send(target, EventOffer, offerOut{FromUserID: p.FromUserID, Offer: p.Offer})
}

// handleReadyForOffer drains buffered offers for the announcing user, in
// original arrival order. If the user is not currently connected the buffer
// is left untouched for a future readiness signal.
func (r *Relay) handleReadyForOffer(_ context.Context, conn Conn, payload json.RawMessage) {
	userID := gjson.GetBytes(payload, "userId").String()
	if userID == "" {
		return
	}

	target, ok := r.registry.Lookup(userID)
	if !ok {
		return
	}

	drained := r.pending.Drain(userID)
	for _, po := range drained {
		r.send(target, EventOffer, offerOut{FromUserID: po.fromUserID, Offer: po.offer})
	}
	if len(drained) > 0 {
		r.logger.Debug("Delivered pending offers",
			slog.String("userID", userID),
			slog.Int("count", len(drained)),
		)
	}
}

// handleAnswer forwards an answer if the target is connected. Answers are
// never buffered: they only matter inside the live negotiation window that
// follows an offer exchange.
func (r *Relay) handleAnswer(_ context.Context, conn Conn, payload json.RawMessage) {
	var p answerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("Malformed answer payload", slog.Any("error", err))
		return
	}

	target, ok := r.registry.Lookup(p.TargetUserID)
	if !ok {
		r.logger.Debug("Answer dropped, target offline", slog.String("targetUserID", p.TargetUserID))
		return
	}

	r.send(target, EventAnswer, answerOut{FromUserID: p.FromUserID, Answer: p.Answer})
}

// handleICECandidate forwards a candidate if the target is connected, same
// fire-and-forget semantics as answers.
func (r *Relay) handleICECandidate(_ context.Context, conn Conn, payload json.RawMessage) {
	var p candidatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("Malformed ice-candidate payload", slog.Any("error", err))
		return
	}

	target, ok := r.registry.Lookup(p.TargetUserID)
	if !ok {
		r.logger.Debug("ICE candidate dropped, target offline", slog.String("targetUserID", p.TargetUserID))
		return
	}

	r.send(target, EventICECandidate, candidateOut{FromUserID: p.FromUserID, Candidate: p.Candidate})
}

// send marshals and queues one outbound event, logging instead of failing.
func (r *Relay) send(target Conn, event string, payload any) {
	msg, err := marshalEvent(event, payload)
	if err != nil {
		r.logger.Error("Failed to marshal outbound event", slog.String("event", event), slog.Any("error", err))
		return
	}
	target.Send(msg)
}
