package relay_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ajayjoseph-creator/vibex-relay/internal/relay"
)

func TestSendMessageForwardedWithTimestamp(t *testing.T) {
	tr := newTestRelay(t)
	sender := tr.join(t, "sender")
	receiver := tr.join(t, "receiver")

	tr.dispatch(t, sender, relay.EventSendMessage, map[string]any{
		"senderId":   "sender",
		"receiverId": "receiver",
		"message":    "hey, you around?",
	})

	envs := receiver.eventsOfType(t, relay.EventReceiveMessage)
	if len(envs) != 1 {
		t.Fatalf("expected 1 receive_message, got %d", len(envs))
	}
	var out struct {
		SenderID  string          `json:"senderId"`
		Message   json.RawMessage `json:"message"`
		CreatedAt string          `json:"createdAt"`
	}
	if err := json.Unmarshal(envs[0].Payload, &out); err != nil {
		t.Fatalf("failed to decode receive_message payload: %v", err)
	}
	if out.SenderID != "sender" {
		t.Errorf("expected senderId sender, got %q", out.SenderID)
	}
	if _, err := time.Parse(time.RFC3339, out.CreatedAt); err != nil {
		t.Errorf("createdAt %q is not RFC 3339: %v", out.CreatedAt, err)
	}
}

func TestSendMessageToOfflineReceiverIsDropped(t *testing.T) {
	tr := newTestRelay(t)
	sender := tr.join(t, "sender")
	before := len(sender.events(t))

	tr.dispatch(t, sender, relay.EventSendMessage, map[string]any{
		"senderId":   "sender",
		"receiverId": "ghost",
		"message":    "anyone home?",
	})

	if got := len(sender.events(t)); got != before {
		t.Errorf("sender observed output for dropped message: %d -> %d", before, got)
	}
}

func TestMarkReadEmitsReceiptAfterStoreConfirms(t *testing.T) {
	tr := newTestRelay(t)
	sender := tr.join(t, "sender")
	reader := tr.join(t, "reader")

	tr.dispatch(t, reader, relay.EventMarkRead, map[string]string{
		"senderId":   "sender",
		"receiverId": "reader",
	})

	tr.store.waitForCall(t)
	waitFor(t, func() bool {
		return len(sender.eventsOfType(t, relay.EventMessagesRead)) == 1
	}, "sender never received messages_read receipt")

	envs := sender.eventsOfType(t, relay.EventMessagesRead)
	var out struct {
		By string `json:"by"`
	}
	if err := json.Unmarshal(envs[0].Payload, &out); err != nil {
		t.Fatalf("failed to decode messages_read payload: %v", err)
	}
	if out.By != "reader" {
		t.Errorf("expected receipt by reader, got %q", out.By)
	}
	if len(tr.store.calls) != 1 || tr.store.calls[0] != "sender->reader" {
		t.Errorf("unexpected store calls: %v", tr.store.calls)
	}
}

func TestMarkReadStoreFailureSuppressesReceipt(t *testing.T) {
	tr := newTestRelay(t)
	sender := tr.join(t, "sender")
	reader := tr.join(t, "reader")

	tr.store.failWith(errStore)
	tr.dispatch(t, reader, relay.EventMarkRead, map[string]string{
		"senderId":   "sender",
		"receiverId": "reader",
	})

	tr.store.waitForCall(t)
	// The receipt is a side effect of a confirmed state change; give the
	// async path time to (wrongly) emit before asserting absence.
	time.Sleep(50 * time.Millisecond)

	if got := len(sender.eventsOfType(t, relay.EventMessagesRead)); got != 0 {
		t.Errorf("receipt emitted despite store failure: %d", got)
	}
}

func TestMarkReadWithOfflineSenderStillUpdatesStore(t *testing.T) {
	tr := newTestRelay(t)
	reader := tr.join(t, "reader")

	tr.dispatch(t, reader, relay.EventMarkRead, map[string]string{
		"senderId":   "sender",
		"receiverId": "reader",
	})

	tr.store.waitForCall(t)
	if len(tr.store.calls) != 1 {
		t.Errorf("expected store update for offline sender, got calls %v", tr.store.calls)
	}
}

func TestMarkReadMissingFieldsIsIgnored(t *testing.T) {
	tr := newTestRelay(t)
	reader := tr.join(t, "reader")

	tr.dispatch(t, reader, relay.EventMarkRead, map[string]string{"receiverId": "reader"})

	select {
	case <-tr.store.called:
		t.Error("store called for mark_read with missing senderId")
	case <-time.After(50 * time.Millisecond):
	}
}
