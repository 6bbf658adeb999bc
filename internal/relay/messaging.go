package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// handleSendMessage forwards a chat payload to the receiver's live connection.
// Durability is the backend's concern via its own write path; the relay only
// affects live delivery, so an offline receiver means a silent drop here.
func (r *Relay) handleSendMessage(_ context.Context, conn Conn, payload json.RawMessage) {
	var p sendMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("Malformed send_message payload", slog.Any("error", err))
		return
	}

	receiver, ok := r.registry.Lookup(p.ReceiverID)
	if !ok {
		r.logger.Debug("Message not relayed, receiver offline", slog.String("receiverID", p.ReceiverID))
		return
	}

	r.send(receiver, EventReceiveMessage, receiveMessageOut{
		SenderID:  p.SenderID,
		Message:   p.Message,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleMarkRead flips the persisted read flags for the conversation and,
// only once the store confirms the update, relays a read receipt to the
// original sender. The store await runs in its own goroutine so it never
// stalls delivery of unrelated events; a store failure is logged and
// suppresses the receipt.
func (r *Relay) handleMarkRead(_ context.Context, conn Conn, payload json.RawMessage) {
	var p markReadPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("Malformed mark_read payload", slog.Any("error", err))
		return
	}
	if p.SenderID == "" || p.ReceiverID == "" {
		r.logger.Warn("mark_read missing senderId or receiverId, dropping")
		return
	}

	go func() {
		updated, err := r.store.MarkConversationRead(r.baseCtx, p.SenderID, p.ReceiverID)
		if err != nil {
			r.logger.Error("Failed to mark conversation read",
				slog.String("senderID", p.SenderID),
				slog.String("receiverID", p.ReceiverID),
				slog.Any("error", err),
			)
			return
		}
		r.logger.Debug("Marked conversation read",
			slog.String("senderID", p.SenderID),
			slog.String("receiverID", p.ReceiverID),
			slog.Int64("updated", updated),
		)

		// Look the sender up after the await; they may have reconnected or
		// gone offline while the store update was in flight.
		sender, ok := r.registry.Lookup(p.SenderID)
		if !ok {
			return
		}
		r.send(sender, EventMessagesRead, messagesReadOut{By: p.ReceiverID})
	}()
}
