package votifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/parklistmc/parklist/internal/model"
)

var ErrNotConfigured = errors.New("votifier: listing has no votifier settings")

// Forwarder delivers accepted web votes to a listing's Votifier listener in
// the background. Delivery failures are logged and otherwise ignored.
type Forwarder struct {
	Client      *Client
	ServiceName string
	Logger      *slog.Logger

	wg sync.WaitGroup
}

func NewForwarder(serviceName string, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Forwarder{Client: &Client{}, ServiceName: serviceName, Logger: logger}
}

// Forward sends one vote for username to l synchronously. The voter address
// is left blank so client IPs never leave the service.
func (f *Forwarder) Forward(ctx context.Context, l model.Listing, username string, at time.Time) error {
	if !l.HasVotifier() {
		return ErrNotConfigured
	}
	key, err := ParsePublicKey(*l.VotifierPublicKey)
	if err != nil {
		return err
	}
	port := 0
	if l.VotifierPort != nil {
		port = *l.VotifierPort
	}
	return f.Client.Send(ctx, *l.VotifierHost, port, key, Vote{
		ServiceName: f.ServiceName,
		Username:    username,
		Timestamp:   at,
	})
}

// Go runs Forward on a new goroutine detached from the request context.
func (f *Forwarder) Go(l model.Listing, username string, at time.Time) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		if err := f.Forward(context.Background(), l, username, at); err != nil {
			f.Logger.Warn("votifier delivery failed", "slug", l.Slug, "error", err)
			return
		}
		f.Logger.Info("votifier vote delivered", "slug", l.Slug)
	}()
}

// Wait blocks until every background delivery has finished.
func (f *Forwarder) Wait() {
	f.wg.Wait()
}
