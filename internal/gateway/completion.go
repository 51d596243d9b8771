package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dkwan/marketchat/internal/models"
)

// Fallback is the deterministic reply used whenever the completion service
// cannot produce one. It is persisted and broadcast like any other reply so
// the user always sees some response.
const Fallback = "I'm sorry, I'm having trouble processing that right now. Please try again."

// Completer is the relay's contract to the conversational-completion
// service. Complete never fails; any internal error degrades to Fallback.
type Completer interface {
	Complete(ctx context.Context, message string, history []models.Turn) string
}

// CompletionClient talks to the marketplace app's completion endpoint.
// Single request/response, no streaming.
type CompletionClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewCompletion creates a completion client. A timeout is treated the same
// as any other failure: the caller gets Fallback.
func NewCompletion(baseURL string, timeout time.Duration, logger *slog.Logger) *CompletionClient {
	return &CompletionClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type completionRequest struct {
	Message             string        `json:"message"`
	ConversationHistory []models.Turn `json:"conversationHistory"`
}

type completionResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

// Complete requests a reply for message given the conversation history.
func (c *CompletionClient) Complete(ctx context.Context, message string, history []models.Turn) string {
	body, err := json.Marshal(completionRequest{
		Message:             message,
		ConversationHistory: history,
	})
	if err != nil {
		c.logger.Error("marshal completion request", "error", err)
		return Fallback
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai/chat", bytes.NewReader(body))
	if err != nil {
		c.logger.Error("create completion request", "error", err)
		return Fallback
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("completion call failed", "error", err)
		return Fallback
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("read completion response", "error", err)
		return Fallback
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("completion service error", "status", resp.Status)
		return Fallback
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("unmarshal completion response", "error", err)
		return Fallback
	}
	if !out.Success || out.Response == "" {
		c.logger.Warn("completion service returned no response")
		return Fallback
	}
	return out.Response
}
