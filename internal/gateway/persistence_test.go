package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkwan/marketchat/internal/models"
)

func TestCreateMessage(t *testing.T) {
	var gotBody models.CreateMessageData
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/messages" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": models.Message{
				ID:          "m1",
				Sender:      gotBody.Sender,
				Content:     gotBody.Content,
				Chat:        gotBody.Chat,
				ReadBy:      gotBody.ReadBy,
				MessageType: gotBody.MessageType,
				CreatedAt:   time.Now(),
			},
		})
	}))
	defer srv.Close()

	client := NewPersistence(srv.URL, time.Second)
	msg, err := client.CreateMessage(context.Background(), models.CreateMessageData{
		Sender:      "u1",
		Content:     "hi",
		Chat:        "chat-42",
		ReadBy:      []string{"u1"},
		MessageType: models.TypeText,
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	if msg.ID != "m1" {
		t.Errorf("id = %q, want m1", msg.ID)
	}
	if gotBody.Chat != "chat-42" || gotBody.Sender != "u1" {
		t.Errorf("request body = %+v", gotBody)
	}
}

func TestCreateMessageValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "Content is required for text messages",
		})
	}))
	defer srv.Close()

	client := NewPersistence(srv.URL, time.Second)
	_, err := client.CreateMessage(context.Background(), models.CreateMessageData{
		Sender: "u1", Chat: "c1", MessageType: models.TypeText,
	})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestCreateMessageServiceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewPersistence(srv.URL, time.Second)
	_, err := client.CreateMessage(context.Background(), models.CreateMessageData{
		Sender: "u1", Chat: "c1", Content: "hi", MessageType: models.TypeText,
	})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestCreateMessageTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewPersistence(srv.URL, 20*time.Millisecond)
	_, err := client.CreateMessage(context.Background(), models.CreateMessageData{
		Sender: "u1", Chat: "c1", Content: "hi", MessageType: models.TypeText,
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestGetChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chats/chat-42" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"chat": models.Chat{
				ID:       "chat-42",
				ChatName: "AI Bot - u1",
				Users:    []string{"u1", "bot"},
			},
		})
	}))
	defer srv.Close()

	client := NewPersistence(srv.URL, time.Second)
	chat, err := client.GetChat(context.Background(), "chat-42")
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if chat.ChatName != "AI Bot - u1" || len(chat.Users) != 2 {
		t.Errorf("chat = %+v", chat)
	}
}

func TestGetChatNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Chat not found"})
	}))
	defer srv.Close()

	client := NewPersistence(srv.URL, time.Second)
	if _, err := client.GetChat(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing chat")
	}
}

func TestGetChatMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chats/chat-42/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"messages": []models.Message{
				{ID: "m1", Sender: "u1", Content: "hello"},
				{ID: "m2", Sender: "bot", Content: "hi"},
			},
		})
	}))
	defer srv.Close()

	client := NewPersistence(srv.URL, time.Second)
	msgs, err := client.GetChatMessages(context.Background(), "chat-42")
	if err != nil {
		t.Fatalf("GetChatMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Errorf("messages = %+v", msgs)
	}
}
