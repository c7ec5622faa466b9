package websockets

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Message types
const (
	MsgTypeSubscribe   = "subscribe"
	MsgTypeUnsubscribe = "unsubscribe"
	MsgTypeSubscribed  = "subscribed"
	MsgTypeVoteUpdate  = "vote_update"
)

// Client represents a connected live feed viewer. Slug is the listing it
// follows; an empty slug receives nothing.
type Client struct {
	Conn *websocket.Conn
	Slug string
}

type WebSocketManager struct {
	clients    map[*websocket.Conn]*Client
	broadcast  chan slugMessage
	register   chan *Client
	unregister chan *websocket.Conn
	send       chan DirectMessage
	done       chan struct{}
	mu         sync.Mutex
}

type slugMessage struct {
	slug    string
	payload []byte
}

// DirectMessage is written to a single connection.
type DirectMessage struct {
	Conn    *websocket.Conn
	Message []byte
}

// Message struct for incoming WebSocket messages
type Message struct {
	Type string `json:"type"`
	Slug string `json:"slug"`
}
