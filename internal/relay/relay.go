// Package relay implements the send-message flow: persist, broadcast, and —
// for two-party AI bot chats — the AI turn that follows a user's text
// message.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/dkwan/marketchat/internal/gateway"
	"github.com/dkwan/marketchat/internal/models"
	"github.com/dkwan/marketchat/internal/registry"
	"github.com/dkwan/marketchat/internal/ws"
)

// historyLimit caps the conversation history sent to the completion
// service.
const historyLimit = 10

// Broadcaster fans events out to the current members of a room.
type Broadcaster interface {
	Broadcast(roomID, event string, payload any)
}

// Service coordinates persistence, fan-out, and AI turn-taking for
// send-message events.
type Service struct {
	rooms          Broadcaster
	store          gateway.Store
	ai             gateway.Completer
	persistTimeout time.Duration
	logger         *slog.Logger
}

// New creates a relay service. persistTimeout bounds each persistence
// gateway call.
func New(rooms Broadcaster, store gateway.Store, ai gateway.Completer, persistTimeout time.Duration, logger *slog.Logger) *Service {
	return &Service{
		rooms:          rooms,
		store:          store,
		ai:             ai,
		persistTimeout: persistTimeout,
		logger:         logger,
	}
}

// SendMessage handles one send-message event from sender. The message is
// persisted before anyone sees it; a persistence failure is reported to the
// sender only and never broadcast. When the message is a non-empty text in a
// chat that currently qualifies as an AI bot chat, the AI turn runs after
// the broadcast, strictly sequentially.
func (s *Service) SendMessage(ctx context.Context, sender registry.Conn, payload models.SendMessagePayload) {
	data := payload.CreateData()

	msg, err := s.createMessage(ctx, data)
	if err != nil {
		s.logger.Error("failed to save message", "chat", payload.ChatID, "error", err)
		sender.Deliver(ws.EventMessageError, ws.ErrorPayload{Error: "Failed to save message"})
		return
	}

	s.rooms.Broadcast(payload.ChatID, ws.EventNewMessage, msg)
	s.logger.Info("message sent", "chat", payload.ChatID, "message", msg.ID, "type", msg.MessageType)

	if data.MessageType != models.TypeText || data.Content == "" {
		return
	}

	// The chat is resolved per message, never cached: renaming a chat
	// changes AI behavior on the very next message.
	chat, err := s.getChat(ctx, payload.ChatID)
	if err != nil {
		s.logger.Warn("failed to resolve chat for AI check", "chat", payload.ChatID, "error", err)
		return
	}
	if !chat.IsAIBot() {
		return
	}

	s.runAITurn(ctx, chat, msg)
}

// runAITurn drives one AI reply for a trigger message. Every failure here is
// non-fatal: logged and swallowed so one bad turn never affects other chats
// or crashes the relay.
func (s *Service) runAITurn(ctx context.Context, chat *models.Chat, trigger *models.Message) {
	botID, ok := chat.BotParticipant(trigger.Sender)
	if !ok {
		return
	}

	s.rooms.Broadcast(chat.ID, ws.EventAITyping, nil)

	history, err := s.getChatMessages(ctx, chat.ID)
	if err != nil {
		s.logger.Warn("failed to fetch history for AI turn", "chat", chat.ID, "error", err)
		history = nil
	}
	turns := models.ConversationTurns(history, trigger.Sender, historyLimit)

	reply := s.ai.Complete(ctx, trigger.Content, turns)

	// Never left stuck in "typing", success or failure.
	s.rooms.Broadcast(chat.ID, ws.EventAIStopTyping, nil)

	// Seed readBy with the trigger user so the reply is not counted as
	// unread for them.
	botMsg, err := s.createMessage(ctx, models.CreateMessageData{
		Sender:      botID,
		Content:     reply,
		Chat:        chat.ID,
		ReadBy:      []string{trigger.Sender},
		MessageType: models.TypeText,
	})
	if err != nil {
		s.logger.Error("failed to save AI reply", "chat", chat.ID, "error", err)
		return
	}

	s.rooms.Broadcast(chat.ID, ws.EventNewMessage, botMsg)
	s.logger.Info("AI reply sent", "chat", chat.ID, "message", botMsg.ID)
}

func (s *Service) createMessage(ctx context.Context, data models.CreateMessageData) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	return s.store.CreateMessage(ctx, data)
}

func (s *Service) getChat(ctx context.Context, chatID string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	return s.store.GetChat(ctx, chatID)
}

func (s *Service) getChatMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	return s.store.GetChatMessages(ctx, chatID)
}
