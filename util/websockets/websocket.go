package websockets

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/parklistmc/parklist/internal/model"
)

const (
	writeWait     = 5 * time.Second
	broadcastSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewWebSocketManager initializes a WebSocketManager
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan slugMessage, broadcastSize),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		send:       make(chan DirectMessage),
		done:       make(chan struct{}),
	}
}

// Run owns every connection write until ctx is cancelled, then closes all
// connections.
func (manager *WebSocketManager) Run(ctx context.Context) {
	defer close(manager.done)
	for {
		select {
		case <-ctx.Done():
			manager.mu.Lock()
			for conn := range manager.clients {
				conn.Close()
				delete(manager.clients, conn)
			}
			manager.mu.Unlock()
			return

		case client := <-manager.register:
			manager.mu.Lock()
			manager.clients[client.Conn] = client
			manager.mu.Unlock()

		case conn := <-manager.unregister:
			manager.mu.Lock()
			if _, exists := manager.clients[conn]; exists {
				delete(manager.clients, conn)
				conn.Close()
			}
			manager.mu.Unlock()

		case message := <-manager.broadcast:
			manager.mu.Lock()
			for conn, client := range manager.clients {
				if client.Slug != message.slug {
					continue
				}
				if err := write(conn, message.payload); err != nil {
					conn.Close()
					delete(manager.clients, conn)
				}
			}
			manager.mu.Unlock()

		case direct := <-manager.send:
			manager.mu.Lock()
			if _, exists := manager.clients[direct.Conn]; exists {
				if err := write(direct.Conn, direct.Message); err != nil {
					direct.Conn.Close()
					delete(manager.clients, direct.Conn)
				}
			}
			manager.mu.Unlock()
		}
	}
}

func write(conn *websocket.Conn, payload []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// HandleConnections upgrades HTTP requests to WebSocket connections
func (manager *WebSocketManager) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{Conn: conn}
	select {
	case manager.register <- client:
	case <-manager.done:
		conn.Close()
		return
	}
	defer func() {
		select {
		case manager.unregister <- conn:
		case <-manager.done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var message Message
		if err := json.Unmarshal(msg, &message); err != nil {
			continue
		}

		switch message.Type {
		case MsgTypeSubscribe:
			manager.setSlug(client, message.Slug)
			ack, _ := json.Marshal(Message{Type: MsgTypeSubscribed, Slug: message.Slug})
			select {
			case manager.send <- DirectMessage{Conn: conn, Message: ack}:
			case <-manager.done:
				return
			}
		case MsgTypeUnsubscribe:
			manager.setSlug(client, "")
		}
	}
}

func (manager *WebSocketManager) setSlug(client *Client, slug string) {
	manager.mu.Lock()
	client.Slug = slug
	manager.mu.Unlock()
}

// BroadcastVoteUpdate pushes update to every client following its slug.
// Updates are dropped rather than blocking the caller when the queue is full.
func (manager *WebSocketManager) BroadcastVoteUpdate(update model.VoteUpdate) {
	if update.Type == "" {
		update.Type = MsgTypeVoteUpdate
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return
	}
	select {
	case manager.broadcast <- slugMessage{slug: update.Slug, payload: payload}:
	default:
		slog.Warn("live feed queue full, dropping update", "slug", update.Slug)
	}
}

// Subscribers counts clients following slug.
func (manager *WebSocketManager) Subscribers(slug string) int {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	n := 0
	for _, c := range manager.clients {
		if c.Slug == slug {
			n++
		}
	}
	return n
}
