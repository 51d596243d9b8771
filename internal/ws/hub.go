package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/dkwan/marketchat/internal/config"
	"github.com/dkwan/marketchat/internal/registry"
)

// Hub owns the set of live connections and their lifecycle. Room membership
// and fan-out live in the injected registry; message handling lives in the
// injected handler. The hub itself never blocks on gateway calls.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	rooms    *registry.Registry
	handler  MessageHandler
	upgrader websocket.Upgrader
	cfg      config.WebSocketConfig
	logger   *slog.Logger
}

// NewHub creates a hub wired to a registry and a message handler. Origin is
// the permitted CORS origin for websocket upgrades; "*" allows any.
func NewHub(rooms *registry.Registry, handler MessageHandler, cfg config.WebSocketConfig, origin string, logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		rooms:      rooms,
		handler:    handler,
		cfg:        cfg,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				if origin == "*" {
					return true
				}
				got := r.Header.Get("Origin")
				return got == "" || got == origin
			},
		},
	}
}

// Run processes connection lifecycle events until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("client connected", "conn", client.ID())
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.rooms.Disconnect(client)
				client.close()
				h.logger.Info("client disconnected", "conn", client.ID())
			}
		}
	}
}

// ServeWS upgrades an HTTP request to a websocket connection and starts the
// client's read and write pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(h, conn)
	h.register <- client

	go client.writePump()
	go client.readPump()
}
