// Package store is the relay's seam to the backend's message persistence.
// Messages are written by the backend's own CRUD path; the relay only flips
// read flags when a reader acknowledges a conversation.
package store

import "context"

// MessageStore exposes the one persistence operation the relay performs.
type MessageStore interface {
	// MarkConversationRead flips the read flag on every unread message sent
	// by senderID to receiverID and reports how many rows changed.
	MarkConversationRead(ctx context.Context, senderID, receiverID string) (int64, error)
	Close() error
}
