package votifier

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/parklistmc/parklist/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	return priv, base64.StdEncoding.EncodeToString(der)
}

// listen starts a one-shot Votifier listener and returns the decrypted block.
func listen(t *testing.T, priv *rsa.PrivateKey, greeting string) (string, int, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte(greeting))
		buf := make([]byte, priv.Size())
		if _, err := io.ReadFull(conn, buf); err != nil {
			out <- "read error: " + err.Error()
			return
		}
		plain, err := rsa.DecryptPKCS1v15(nil, priv, buf)
		if err != nil {
			out <- "decrypt error: " + err.Error()
			return
		}
		out <- string(plain)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port, out
}

func TestParsePublicKey(t *testing.T) {
	priv, b64 := newKey(t)

	key, err := ParsePublicKey(b64)
	require.NoError(t, err)
	assert.Equal(t, priv.PublicKey.N, key.N)

	wrapped := b64[:40] + "\n" + b64[40:]
	_, err = ParsePublicKey(wrapped)
	assert.NoError(t, err, "line breaks in pasted keys are tolerated")

	der, _ := base64.StdEncoding.DecodeString(b64)
	pemKey := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	_, err = ParsePublicKey(pemKey)
	assert.NoError(t, err)

	_, err = ParsePublicKey("not-a-key!")
	assert.Error(t, err)
}

func TestSend(t *testing.T) {
	priv, b64 := newKey(t)
	key, err := ParsePublicKey(b64)
	require.NoError(t, err)

	host, port, out := listen(t, priv, "VOTIFIER 1.9\n")

	ts := time.UnixMilli(1717232400000)
	c := &Client{Timeout: 2 * time.Second}
	err = c.Send(context.Background(), host, port, key, Vote{
		ServiceName: "ParkListMc",
		Username:    "Steve",
		Address:     "203.0.113.7",
		Timestamp:   ts,
	})
	require.NoError(t, err)

	select {
	case got := <-out:
		assert.Equal(t, "VOTE\nParkListMc\nSteve\n203.0.113.7\n1717232400000\n", got)
	case <-time.After(3 * time.Second):
		t.Fatal("listener never received the vote")
	}
}

func TestSendRejectsBadGreeting(t *testing.T) {
	priv, b64 := newKey(t)
	key, _ := ParsePublicKey(b64)
	host, port, _ := listen(t, priv, "HELLO\n")

	c := &Client{Timeout: time.Second}
	err := c.Send(context.Background(), host, port, key, Vote{ServiceName: "x", Username: "Steve"})
	assert.ErrorIs(t, err, ErrBadGreeting)
}

func TestVoteBlock(t *testing.T) {
	v := Vote{ServiceName: "ParkListMc", Username: "Alex", Address: "", Timestamp: time.UnixMilli(5)}
	assert.True(t, strings.HasPrefix(string(v.block()), "VOTE\nParkListMc\nAlex\n\n5\n"))
}

func TestForwarder(t *testing.T) {
	priv, b64 := newKey(t)
	host, port, out := listen(t, priv, "VOTIFIER 2.9\n")

	f := NewForwarder("ParkListMc", nil)
	l := model.Listing{Slug: "skyline-kingdom-park", VotifierHost: &host, VotifierPort: &port, VotifierPublicKey: &b64}

	f.Go(l, "Steve", time.UnixMilli(42))
	f.Wait()

	select {
	case got := <-out:
		assert.Equal(t, "VOTE\nParkListMc\nSteve\n\n42\n", got)
	case <-time.After(3 * time.Second):
		t.Fatal("listener never received the vote")
	}

	err := f.Forward(context.Background(), model.Listing{Slug: "bare"}, "Steve", time.Now())
	assert.ErrorIs(t, err, ErrNotConfigured)
}
