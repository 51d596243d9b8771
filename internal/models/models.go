package models

import (
	"strings"
	"time"
)

// Message types as stored by the marketplace app.
const (
	TypeText  = "text"
	TypeImage = "image"
	TypeMixed = "mixed"
)

// Chat is the external chat entity, fetched from the persistence service
// and never cached by the relay.
type Chat struct {
	ID          string   `json:"_id"`
	ChatName    string   `json:"chatName"`
	IsGroupChat bool     `json:"isGroupChat"`
	Users       []string `json:"users"`
}

// Message is the external message entity as persisted by the marketplace
// app, including server-assigned id and timestamps.
type Message struct {
	ID          string    `json:"_id"`
	Sender      string    `json:"sender"`
	Content     string    `json:"content"`
	Chat        string    `json:"chat"`
	ReadBy      []string  `json:"readBy"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	MessageType string    `json:"messageType"`
	ReplyTo     string    `json:"replyTo,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SendMessagePayload is the send-message event payload as emitted by chat
// clients.
type SendMessagePayload struct {
	ChatID      string   `json:"chatId"`
	Sender      string   `json:"sender"`
	Content     string   `json:"content"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	MessageType string   `json:"messageType,omitempty"`
	ReplyTo     string   `json:"replyTo,omitempty"`
	ReadBy      []string `json:"readBy"`
}

// CreateMessageData is the request body for the persistence service's
// create-message endpoint.
type CreateMessageData struct {
	Sender      string   `json:"sender"`
	Content     string   `json:"content"`
	Chat        string   `json:"chat"`
	ReadBy      []string `json:"readBy"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	MessageType string   `json:"messageType"`
	ReplyTo     string   `json:"replyTo,omitempty"`
}

// CreateData normalizes the payload into a create request: the message type
// defaults to text, and image messages always carry empty content.
func (p SendMessagePayload) CreateData() CreateMessageData {
	msgType := p.MessageType
	if msgType == "" {
		msgType = TypeText
	}
	content := p.Content
	if msgType == TypeImage {
		content = ""
	}
	return CreateMessageData{
		Sender:      p.Sender,
		Content:     content,
		Chat:        p.ChatID,
		ReadBy:      p.ReadBy,
		ImageURL:    p.ImageURL,
		MessageType: msgType,
		ReplyTo:     p.ReplyTo,
	}
}

// Turn is one entry of the conversation history sent to the completion
// service. Sender is "user" or "ai".
type Turn struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// IsAIBot reports whether the chat is a two-party AI bot conversation:
// exactly two participants, not a group chat, and a name containing
// "ai bot" or "ai" (case-insensitive). Group chats never qualify no matter
// what they are named.
func (c *Chat) IsAIBot() bool {
	if c.IsGroupChat || len(c.Users) != 2 {
		return false
	}
	name := strings.ToLower(c.ChatName)
	return strings.Contains(name, "ai bot") || strings.Contains(name, "ai")
}

// BotParticipant resolves the bot's user id as the first participant whose
// id differs from the sender's. Fails when the chat does not have exactly
// two participants.
func (c *Chat) BotParticipant(senderID string) (string, bool) {
	if len(c.Users) != 2 {
		return "", false
	}
	for _, id := range c.Users {
		if id != senderID {
			return id, true
		}
	}
	return "", false
}

// ConversationTurns maps the most recent limit messages to completion-service
// turns: messages sent by userID are tagged "user", everything else
// (including prior bot replies) is tagged "ai". Messages are assumed to be in
// creation order.
func ConversationTurns(messages []Message, userID string, limit int) []Turn {
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	turns := make([]Turn, 0, len(messages))
	for _, m := range messages {
		sender := "ai"
		if m.Sender == userID {
			sender = "user"
		}
		turns = append(turns, Turn{Sender: sender, Content: m.Content})
	}
	return turns
}

// UnreadCount returns the number of messages in a chat that userID has not
// read: sent by someone else and not in the message's reader set. Pure
// derivation, recomputed each call.
func UnreadCount(messages []Message, userID string) int {
	count := 0
	for _, m := range messages {
		if m.Sender == userID {
			continue
		}
		read := false
		for _, r := range m.ReadBy {
			if r == userID {
				read = true
				break
			}
		}
		if !read {
			count++
		}
	}
	return count
}
