package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/parklistmc/parklist/internal/model"
	"github.com/parklistmc/parklist/internal/vote"
)

// voteLedger runs ledger queries against either the pool or an open tx.
type voteLedger struct {
	q querier
}

func (db *DB) FindRecentVote(ctx context.Context, q vote.RecentQuery) (*model.Vote, error) {
	return voteLedger{q: db.pool}.FindRecentVote(ctx, q)
}

func (db *DB) InsertVote(ctx context.Context, v model.Vote) (model.Vote, error) {
	return voteLedger{q: db.pool}.InsertVote(ctx, v)
}

// WithVoterLock takes one transaction-scoped advisory lock per identity key
// of voter on listingID, in sorted order, then runs fn inside the same
// transaction. Locks are released on commit or rollback.
func (db *DB) WithVoterLock(ctx context.Context, listingID string, voter vote.Identity, fn func(vote.Ledger) error) error {
	keys := voter.Keys()
	for i, k := range keys {
		keys[i] = listingID + "|" + k
	}
	sort.Strings(keys)

	return db.RunInTx(ctx, func(tx pgx.Tx) error {
		for _, k := range keys {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, k); err != nil {
				return fmt.Errorf("advisory lock: %w", err)
			}
		}
		return fn(voteLedger{q: tx})
	})
}

func (l voteLedger) FindRecentVote(ctx context.Context, q vote.RecentQuery) (*model.Vote, error) {
	args := []any{q.ListingID, q.Source, q.Since}
	var match []string
	if id, ok := q.Voter.AccountID(); ok {
		args = append(args, id)
		match = append(match, fmt.Sprintf("user_id = $%d::uuid", len(args)))
	}
	if h, ok := q.Voter.IPHash(); ok {
		args = append(args, h)
		match = append(match, fmt.Sprintf("ip_hash = $%d", len(args)))
	}
	if len(match) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, server_id, user_id::text, ip_hash, user_agent, source, created_at
		FROM votes
		WHERE server_id = $1 AND source = $2 AND created_at > $3
		  AND (` + strings.Join(match, " OR ") + `)
		ORDER BY created_at DESC
		LIMIT 1`

	var v model.Vote
	err := l.q.QueryRow(ctx, query, args...).Scan(
		&v.ID, &v.ListingID, &v.UserID, &v.IPHash, &v.UserAgent, &v.Source, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (l voteLedger) InsertVote(ctx context.Context, v model.Vote) (model.Vote, error) {
	if err := v.Validate(); err != nil {
		return model.Vote{}, err
	}
	stmt := `
		INSERT INTO votes (id, server_id, user_id, ip_hash, user_agent, source, created_at)
		VALUES ($1, $2, $3::uuid, $4, $5, $6, $7)`
	if _, err := l.q.Exec(ctx, stmt, v.ID, v.ListingID, v.UserID, v.IPHash, v.UserAgent, v.Source, v.CreatedAt); err != nil {
		return model.Vote{}, fmt.Errorf("insert vote: %w", err)
	}
	return v, nil
}
