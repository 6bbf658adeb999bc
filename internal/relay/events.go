package relay

import "encoding/json"

// Inbound event types, dispatched by the router.
const (
	EventJoin          = "join"
	EventOffer         = "offer"
	EventReadyForOffer = "ready-for-offer"
	EventAnswer        = "answer"
	EventICECandidate  = "ice-candidate"
	EventCallUser      = "call_user"
	EventEndCall       = "end_call"
	EventSendMessage   = "send_message"
	EventMarkRead      = "mark_read"
)

// Outbound event types.
const (
	EventOnlineUsers         = "online_users"
	EventIncomingCall        = "incoming_call"
	EventCallEnded           = "call_ended"
	EventReceiveMessage      = "receive_message"
	EventMessagesRead        = "messages_read"
	EventReceiveNotification = "receive_notification"
)

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Signaling payloads are opaque to the relay; it routes them by the addressing
// fields and never inspects offer/answer/candidate contents.

type offerPayload struct {
	TargetUserID string          `json:"targetUserId"`
	FromUserID   string          `json:"fromUserId"`
	Offer        json.RawMessage `json:"offer"`
}

type answerPayload struct {
	TargetUserID string          `json:"targetUserId"`
	FromUserID   string          `json:"fromUserId"`
	Answer       json.RawMessage `json:"answer"`
}

type candidatePayload struct {
	TargetUserID string          `json:"targetUserId"`
	FromUserID   string          `json:"fromUserId"`
	Candidate    json.RawMessage `json:"candidate"`
}

type callUserPayload struct {
	TargetUserID string          `json:"targetUserId"`
	FromUserID   string          `json:"fromUserId"`
	Metadata     json.RawMessage `json:"metadata"`
}

type endCallPayload struct {
	TargetUserID string `json:"targetUserId"`
	FromUserID   string `json:"fromUserId"`
}

type sendMessagePayload struct {
	SenderID   string          `json:"senderId"`
	ReceiverID string          `json:"receiverId"`
	Message    json.RawMessage `json:"message"`
}

type markReadPayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

type offerOut struct {
	FromUserID string          `json:"fromUserId"`
	Offer      json.RawMessage `json:"offer"`
}

type answerOut struct {
	FromUserID string          `json:"fromUserId"`
	Answer     json.RawMessage `json:"answer"`
}

type candidateOut struct {
	FromUserID string          `json:"fromUserId"`
	Candidate  json.RawMessage `json:"candidate"`
}

type incomingCallOut struct {
	FromUserID string          `json:"fromUserId"`
	Metadata   json.RawMessage `json:"metadata"`
}

type callEndedOut struct {
	FromUserID string `json:"fromUserId"`
}

type receiveMessageOut struct {
	SenderID  string          `json:"senderId"`
	Message   json.RawMessage `json:"message"`
	CreatedAt string          `json:"createdAt"`
}

type messagesReadOut struct {
	By string `json:"by"`
}

// Notification is an already-persisted notification record handed to the relay
// by the rest of the backend for live push. ReceiverID addresses it; the other
// fields are forwarded verbatim.
type Notification struct {
	ReceiverID string `json:"receiverId"`
	SenderID   string `json:"senderId"`
	Type       string `json:"type"`
	Message    string `json:"message"`
	CreatedAt  string `json:"createdAt"`
}

type notificationOut struct {
	SenderID  string `json:"senderId"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
}

func marshalEvent(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Payload: raw})
}
