package ws

import (
	"context"
	"encoding/json"

	"github.com/dkwan/marketchat/internal/models"
	"github.com/dkwan/marketchat/internal/registry"
)

// Client-to-server events.
const (
	EventJoinChat    = "join-chat"
	EventLeaveChat   = "leave-chat"
	EventSendMessage = "send-message"
	EventTypingStart = "typing-start"
	EventTypingStop  = "typing-stop"
)

// Server-to-client events.
const (
	EventNewMessage        = "new-message"
	EventUserTyping        = "user-typing"
	EventUserStoppedTyping = "user-stopped-typing"
	EventAITyping          = "ai-typing"
	EventAIStopTyping      = "ai-stop-typing"
	EventMessageError      = "message-error"
)

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TypingPayload is the payload of typing-start/typing-stop and of the
// relayed user-typing/user-stopped-typing events.
type TypingPayload struct {
	ChatID string `json:"chatId,omitempty"`
	UserID string `json:"userId"`
}

// ErrorPayload is the payload of message-error, sent only to the
// originating connection.
type ErrorPayload struct {
	Error string `json:"error"`
}

// MessageHandler processes a validated send-message event. Implementations
// may block on gateway calls; only the invoking connection's read loop is
// suspended.
type MessageHandler interface {
	SendMessage(ctx context.Context, sender registry.Conn, payload models.SendMessagePayload)
}

func marshalEvent(event string, payload any) ([]byte, error) {
	env := struct {
		Event   string `json:"event"`
		Payload any    `json:"payload,omitempty"`
	}{Event: event, Payload: payload}
	return json.Marshal(env)
}
