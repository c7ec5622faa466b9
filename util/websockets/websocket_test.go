package websockets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/parklistmc/parklist/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func subscribe(t *testing.T, conn *websocket.Conn, slug string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(Message{Type: MsgTypeSubscribe, Slug: slug}))
	var ack Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, MsgTypeSubscribed, ack.Type)
	assert.Equal(t, slug, ack.Slug)
}

func TestBroadcastVoteUpdate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	manager := NewWebSocketManager()
	go manager.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-manager.done
	})

	srv := httptest.NewServer(http.HandlerFunc(manager.HandleConnections))
	t.Cleanup(srv.Close)

	follower := dial(t, srv)
	subscribe(t, follower, "skyline-kingdom-park")
	other := dial(t, srv)
	subscribe(t, other, "another-park")

	assert.Equal(t, 1, manager.Subscribers("skyline-kingdom-park"))

	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	manager.BroadcastVoteUpdate(model.VoteUpdate{Slug: "skyline-kingdom-park", VoteCount: 3, At: at})

	var got model.VoteUpdate
	require.NoError(t, follower.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, follower.ReadJSON(&got))
	assert.Equal(t, MsgTypeVoteUpdate, got.Type)
	assert.Equal(t, int64(3), got.VoteCount)
	assert.True(t, got.At.Equal(at))

	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "clients following another slug receive nothing")
}

func TestBroadcastDoesNotBlockWithoutRun(t *testing.T) {
	manager := NewWebSocketManager()
	for i := 0; i < broadcastSize+10; i++ {
		manager.BroadcastVoteUpdate(model.VoteUpdate{Slug: "x"})
	}
}
