// Package votifier forwards accepted votes to a Minecraft server running a
// Votifier/NuVotifier listener, using the v1 (RSA block) protocol.
package votifier

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPort    = 8192
	defaultTimeout = 5 * time.Second
	greetingPrefix = "VOTIFIER"
)

var (
	ErrBadGreeting = errors.New("votifier: unexpected greeting")
	ErrBadKey      = errors.New("votifier: public key is not an RSA key")
)

// Vote is the payload a Votifier listener hands to server plugins.
type Vote struct {
	ServiceName string
	Username    string
	Address     string
	Timestamp   time.Time
}

func (v Vote) block() []byte {
	var b strings.Builder
	b.WriteString("VOTE\n")
	b.WriteString(v.ServiceName + "\n")
	b.WriteString(v.Username + "\n")
	b.WriteString(v.Address + "\n")
	b.WriteString(strconv.FormatInt(v.Timestamp.UnixMilli(), 10) + "\n")
	return []byte(b.String())
}

// ParsePublicKey accepts the base64 DER blob Votifier writes to public.key,
// with or without PEM armour.
func ParsePublicKey(raw string) (*rsa.PublicKey, error) {
	raw = strings.TrimSpace(raw)
	var der []byte
	if block, _ := pem.Decode([]byte(raw)); block != nil {
		der = block.Bytes
	} else {
		decoded, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(raw), ""))
		if err != nil {
			return nil, fmt.Errorf("votifier: decode public key: %w", err)
		}
		der = decoded
	}

	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("votifier: parse public key: %w", err)
	}
	key, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, ErrBadKey
	}
	return key, nil
}

// Client sends votes. The zero value is usable.
type Client struct {
	Timeout time.Duration
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

// Send delivers v to the listener at host:port.
func (c *Client) Send(ctx context.Context, host string, port int, key *rsa.PublicKey, v Vote) error {
	if port == 0 {
		port = DefaultPort
	}
	payload, err := rsa.EncryptPKCS1v15(rand.Reader, key, v.block())
	if err != nil {
		return fmt.Errorf("votifier: encrypt vote: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("votifier: dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	greeting, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return fmt.Errorf("votifier: read greeting: %w", err)
	}
	if !strings.HasPrefix(greeting, greetingPrefix) {
		return ErrBadGreeting
	}

	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("votifier: write vote: %w", err)
	}
	return nil
}
