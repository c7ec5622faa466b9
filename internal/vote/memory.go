package vote

import (
	"context"
	"sync"

	"github.com/parklistmc/parklist/internal/model"
)

// MemoryLedger keeps votes in a slice. It is safe for concurrent use but
// only serialises admissions through the engine's in-process locks.
type MemoryLedger struct {
	mu    sync.RWMutex
	votes []model.Vote
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (m *MemoryLedger) FindRecentVote(_ context.Context, q RecentQuery) (*model.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *model.Vote
	for i := range m.votes {
		v := m.votes[i]
		if v.ListingID != q.ListingID || v.Source != q.Source || !v.CreatedAt.After(q.Since) {
			continue
		}
		if !q.Voter.Matches(v.UserID, v.IPHash) {
			continue
		}
		if found == nil || v.CreatedAt.After(found.CreatedAt) {
			found = &v
		}
	}
	return found, nil
}

func (m *MemoryLedger) InsertVote(_ context.Context, v model.Vote) (model.Vote, error) {
	if err := v.Validate(); err != nil {
		return model.Vote{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes = append(m.votes, v)
	return v, nil
}

// Votes returns a copy of every recorded vote in insertion order.
func (m *MemoryLedger) Votes() []model.Vote {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Vote(nil), m.votes...)
}

// MemoryDirectory is a fixed set of listings keyed by id.
type MemoryDirectory struct {
	mu       sync.RWMutex
	listings map[string]model.Listing
}

func NewMemoryDirectory(listings ...model.Listing) *MemoryDirectory {
	d := &MemoryDirectory{listings: make(map[string]model.Listing)}
	for _, l := range listings {
		d.listings[l.ID] = l
	}
	return d
}

func (d *MemoryDirectory) Put(l model.Listing) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listings[l.ID] = l
}

func (d *MemoryDirectory) ListingByID(_ context.Context, id string) (model.Listing, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.listings[id]
	if !ok {
		return model.Listing{}, ErrListingNotFound
	}
	return l, nil
}
