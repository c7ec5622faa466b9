package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/parklistmc/parklist/internal/model"
	"github.com/parklistmc/parklist/internal/vote"
	"gorm.io/gorm"
)

type voteLedger struct {
	db *gorm.DB
}

func (s *Store) FindRecentVote(ctx context.Context, q vote.RecentQuery) (*model.Vote, error) {
	return voteLedger{db: s.db}.FindRecentVote(ctx, q)
}

func (s *Store) InsertVote(ctx context.Context, v model.Vote) (model.Vote, error) {
	return voteLedger{db: s.db}.InsertVote(ctx, v)
}

// WithVoterLock runs fn in a transaction. The store has a single connection
// so the transaction excludes every other admission until it ends.
func (s *Store) WithVoterLock(ctx context.Context, _ string, _ vote.Identity, fn func(vote.Ledger) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(voteLedger{db: tx})
	})
}

func (l voteLedger) FindRecentVote(ctx context.Context, q vote.RecentQuery) (*model.Vote, error) {
	var (
		match []string
		args  []any
	)
	if id, ok := q.Voter.AccountID(); ok {
		match = append(match, "user_id = ?")
		args = append(args, id)
	}
	if h, ok := q.Voter.IPHash(); ok {
		match = append(match, "ip_hash = ?")
		args = append(args, h)
	}
	if len(match) == 0 {
		return nil, nil
	}

	var row voteRow
	err := l.db.WithContext(ctx).
		Where("server_id = ? AND source = ? AND created_ns > ?", q.ListingID, q.Source, q.Since.UnixNano()).
		Where("("+strings.Join(match, " OR ")+")", args...).
		Order("created_ns DESC").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	v := row.toModel()
	return &v, nil
}

func (l voteLedger) InsertVote(ctx context.Context, v model.Vote) (model.Vote, error) {
	if err := v.Validate(); err != nil {
		return model.Vote{}, err
	}
	row := newVoteRow(v)
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Vote{}, fmt.Errorf("insert vote: %w", err)
	}
	return v, nil
}
