package vote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/parklistmc/parklist/internal/model"
	"github.com/parklistmc/parklist/util"
)

// Cooldown is how long an identity waits between votes for one listing.
const Cooldown = 12 * time.Hour

// Request is a single vote attempt.
type Request struct {
	ListingID string
	Voter     Identity
	UserAgent string
	// Source is the vote origin recorded on the ledger; empty means web.
	Source string
}

// Engine decides whether a vote is accepted and records accepted votes.
type Engine struct {
	directory Directory
	ledger    Ledger
	now       func() time.Time
	cooldown  time.Duration
	newID     func() string
	logger    *slog.Logger
	locks     *keyedLocker
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithCooldown overrides the 12 hour window.
func WithCooldown(d time.Duration) Option {
	return func(e *Engine) { e.cooldown = d }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func NewEngine(directory Directory, ledger Ledger, opts ...Option) *Engine {
	e := &Engine{
		directory: directory,
		ledger:    ledger,
		now:       time.Now,
		cooldown:  Cooldown,
		newID:     util.NewID,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		locks:     newKeyedLocker(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Admit runs AdmitAt with the engine clock.
func (e *Engine) Admit(ctx context.Context, req Request) (model.Vote, error) {
	return e.AdmitAt(ctx, req, e.now())
}

// AdmitAt admits req as if it arrived at now. A vote recorded at exactly
// now-cooldown has expired and does not block.
func (e *Engine) AdmitAt(ctx context.Context, req Request, now time.Time) (model.Vote, error) {
	if req.Voter.IsZero() {
		return model.Vote{}, ErrIdentityUnresolved
	}

	listing, err := e.directory.ListingByID(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, ErrListingNotFound) {
			return model.Vote{}, ErrListingNotFound
		}
		return model.Vote{}, &PersistenceError{Op: "load listing", Err: err}
	}
	if !listing.IsPublished() {
		return model.Vote{}, ErrListingNotFound
	}

	source := req.Source
	if source == "" {
		source = model.VoteSourceWeb
	}

	release := e.locks.lock(lockKeys(listing.ID, req.Voter))
	defer release()

	var accepted model.Vote
	admit := func(ledger Ledger) error {
		recent, err := ledger.FindRecentVote(ctx, RecentQuery{
			ListingID: listing.ID,
			Voter:     req.Voter,
			Source:    source,
			Since:     now.Add(-e.cooldown),
		})
		if err != nil {
			return &PersistenceError{Op: "find recent vote", Err: err}
		}
		if recent != nil {
			return ErrCooldownActive
		}

		v := model.Vote{
			ID:        e.newID(),
			ListingID: listing.ID,
			Source:    source,
			CreatedAt: now,
		}
		if id, ok := req.Voter.AccountID(); ok {
			v.UserID = &id
		}
		if h, ok := req.Voter.IPHash(); ok {
			v.IPHash = &h
		}
		if req.UserAgent != "" {
			ua := req.UserAgent
			v.UserAgent = &ua
		}
		if err := v.Validate(); err != nil {
			return ErrIdentityUnresolved
		}

		accepted, err = ledger.InsertVote(ctx, v)
		if err != nil {
			return &PersistenceError{Op: "insert vote", Err: err}
		}
		return nil
	}

	if locking, ok := e.ledger.(LockingLedger); ok {
		err = locking.WithVoterLock(ctx, listing.ID, req.Voter, admit)
		// Errors raised by the store itself (begin, lock, commit) arrive unwrapped.
		if err != nil {
			if _, ok := AsRejection(err); !ok {
				var perr *PersistenceError
				if !errors.As(err, &perr) {
					err = &PersistenceError{Op: "voter lock", Err: err}
				}
			}
		}
	} else {
		err = admit(e.ledger)
	}
	if err != nil {
		if rej, ok := AsRejection(err); ok {
			e.logger.Debug("vote rejected", "listing_id", listing.ID, "voter", req.Voter.String(), "reason", rej.Reason)
		} else {
			e.logger.Error("vote admission failed", "listing_id", listing.ID, "voter", req.Voter.String(), "error", err)
		}
		return model.Vote{}, err
	}

	e.logger.Info("vote accepted", "listing_id", listing.ID, "vote_id", accepted.ID, "voter", req.Voter.String())
	return accepted, nil
}
