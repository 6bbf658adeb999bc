package relay

import (
	"log/slog"
	"time"
)

// DeliverNotification pushes an already-persisted notification record to the
// receiver's live connection. When the receiver is offline this is a no-op;
// the record stays queryable through the backend's own retrieval path, so the
// relay is never the sole delivery path.
func (r *Relay) DeliverNotification(n Notification) {
	if n.ReceiverID == "" {
		r.logger.Warn("Notification without receiverId, dropping")
		return
	}

	receiver, ok := r.registry.Lookup(n.ReceiverID)
	if !ok {
		r.logger.Debug("Notification not pushed, receiver offline", slog.String("receiverID", n.ReceiverID))
		return
	}

	createdAt := n.CreatedAt
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}

	r.send(receiver, EventReceiveNotification, notificationOut{
		SenderID:  n.SenderID,
		Type:      n.Type,
		Message:   n.Message,
		CreatedAt: createdAt,
	})
}
