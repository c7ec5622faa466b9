package vote

import (
	"context"
	"time"

	"github.com/parklistmc/parklist/internal/model"
)

// RecentQuery selects the newest vote for ListingID from Source whose voter
// matches Voter on any component and whose CreatedAt is strictly after Since.
type RecentQuery struct {
	ListingID string
	Voter     Identity
	Source    string
	Since     time.Time
}

// Ledger is the append-only vote store the engine reads and writes.
type Ledger interface {
	// FindRecentVote returns nil, nil when no vote matches.
	FindRecentVote(ctx context.Context, q RecentQuery) (*model.Vote, error)
	InsertVote(ctx context.Context, v model.Vote) (model.Vote, error)
}

// LockingLedger is implemented by stores that can serialise admissions for
// the same listing and identity across processes. fn runs inside one
// transaction and must use the Ledger it is handed.
type LockingLedger interface {
	Ledger
	WithVoterLock(ctx context.Context, listingID string, voter Identity, fn func(Ledger) error) error
}

// Directory resolves listing ids. Missing listings return ErrListingNotFound.
type Directory interface {
	ListingByID(ctx context.Context, id string) (model.Listing, error)
}
