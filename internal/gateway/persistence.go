// Package gateway holds the relay's clients for its external collaborators:
// the marketplace app's persistence API and its conversational-completion
// API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dkwan/marketchat/internal/models"
)

// Store is the relay's contract to the message persistence service.
type Store interface {
	CreateMessage(ctx context.Context, data models.CreateMessageData) (*models.Message, error)
	GetChat(ctx context.Context, chatID string) (*models.Chat, error)
	GetChatMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

// PersistenceClient talks to the marketplace app's JSON API.
type PersistenceClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPersistence creates a persistence client. The timeout bounds every
// call; a hung collaborator surfaces as an error instead of wedging the
// calling handler.
func NewPersistence(baseURL string, timeout time.Duration) *PersistenceClient {
	return &PersistenceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type createMessageResponse struct {
	Success bool            `json:"success"`
	Message *models.Message `json:"message"`
}

type chatResponse struct {
	Success bool         `json:"success"`
	Chat    *models.Chat `json:"chat"`
}

type messagesResponse struct {
	Success  bool             `json:"success"`
	Messages []models.Message `json:"messages"`
}

// Error envelopes reuse the "message" key for a human-readable string.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CreateMessage persists a message and returns it with the server-assigned
// id and timestamps.
func (p *PersistenceClient) CreateMessage(ctx context.Context, data models.CreateMessageData) (*models.Message, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("create message: %s: %s", resp.Status, errorDetail(raw))
	}

	var out createMessageResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if !out.Success || out.Message == nil {
		return nil, fmt.Errorf("create message: service reported failure")
	}
	return out.Message, nil
}

// GetChat fetches a chat by id: name, group flag, participant ids.
func (p *PersistenceClient) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	raw, err := p.get(ctx, "/api/chats/"+chatID)
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal chat: %w", err)
	}
	if !out.Success || out.Chat == nil {
		return nil, fmt.Errorf("get chat: service reported failure")
	}
	return out.Chat, nil
}

// GetChatMessages fetches a chat's message history in creation order.
func (p *PersistenceClient) GetChatMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	raw, err := p.get(ctx, "/api/chats/"+chatID+"/messages")
	if err != nil {
		return nil, fmt.Errorf("get chat messages: %w", err)
	}

	var out messagesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("get chat messages: service reported failure")
	}
	return out.Messages, nil
}

func (p *PersistenceClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s", resp.Status, errorDetail(raw))
	}
	return raw, nil
}

func errorDetail(raw []byte) string {
	var e errorResponse
	if err := json.Unmarshal(raw, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return "unexpected response"
}
