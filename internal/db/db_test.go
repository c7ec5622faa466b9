package db

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/parklistmc/parklist/internal/model"
	"github.com/parklistmc/parklist/internal/vote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to the database named by PARKLIST_TEST_DSN and
// recreates the schema. Tests are skipped when it is unset.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("PARKLIST_TEST_DSN")
	if dsn == "" {
		t.Skip("PARKLIST_TEST_DSN not set")
	}
	database, err := New(dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	ctx := context.Background()
	_, err = database.pool.Exec(ctx, `
		DROP TABLE IF EXISTS votes CASCADE;
		DROP TABLE IF EXISTS servers CASCADE;
		DROP TABLE IF EXISTS password_resets CASCADE;
		DROP TABLE IF EXISTS accounts CASCADE;
		DROP TABLE IF EXISTS users CASCADE;
	`)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx))
	return database
}

func seed(t *testing.T, database *DB) (model.User, model.Listing) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	user, err := database.CreateUser(ctx, model.User{
		ID:        uuid.New(),
		Email:     "owner@parklist.test",
		Name:      "Owner",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)

	listing, err := database.CreateListing(ctx, model.Listing{
		ID:          "skyline",
		OwnerID:     user.ID,
		Name:        "Skyline Kingdom Park",
		Slug:        "skyline-kingdom-park",
		Description: "Coasters and dark rides",
		IPAddress:   "play.skyline.test",
		Tags:        []string{"coasters"},
		Status:      model.ListingPublished,
		CreatedAt:   now,
	})
	require.NoError(t, err)
	return user, listing
}

func TestListingsAndSlugs(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	user, listing := seed(t, database)

	exists, err := database.SlugExists(ctx, listing.Slug)
	require.NoError(t, err)
	assert.True(t, exists)

	dup := listing
	dup.ID = "skyline-2"
	_, err = database.CreateListing(ctx, dup)
	assert.ErrorIs(t, err, model.ErrSlugTaken)

	got, err := database.ListingBySlug(ctx, "skyline-kingdom-park")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.OwnerID)
	assert.Equal(t, []string{"coasters"}, got.Tags)

	_, err = database.ListingBySlug(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = database.ListingByID(ctx, "missing")
	assert.ErrorIs(t, err, vote.ErrListingNotFound)
}

func TestVoteLedgerOrMatching(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	user, listing := seed(t, database)

	at := time.Now().UTC().Truncate(time.Microsecond)
	uid := user.ID.String()
	hash := "hash-a"
	_, err := database.InsertVote(ctx, model.Vote{
		ID: "v1", ListingID: listing.ID, UserID: &uid, IPHash: &hash,
		Source: model.VoteSourceWeb, CreatedAt: at,
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		voter vote.Identity
		since time.Time
		found bool
	}{
		{"account only", vote.Account(uid), at.Add(-time.Hour), true},
		{"hash only", vote.Hashed("hash-a"), at.Add(-time.Hour), true},
		{"other account same hash", vote.Both(uuid.NewString(), "hash-a"), at.Add(-time.Hour), true},
		{"no overlap", vote.Both(uuid.NewString(), "hash-b"), at.Add(-time.Hour), false},
		{"boundary is exclusive", vote.Hashed("hash-a"), at, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := database.FindRecentVote(ctx, vote.RecentQuery{
				ListingID: listing.ID,
				Voter:     tt.voter,
				Source:    model.VoteSourceWeb,
				Since:     tt.since,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.found, v != nil)
		})
	}
}

func TestAdvisoryLockSerialisesAdmissions(t *testing.T) {
	database := setupTestDB(t)
	_, listing := seed(t, database)
	engine := vote.NewEngine(database, database)

	const attempts = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		cooldown int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Admit(context.Background(), vote.Request{
				ListingID: listing.ID,
				Voter:     vote.Hashed("hash-a"),
				Source:    model.VoteSourceWeb,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, vote.ErrCooldownActive):
				cooldown++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, attempts-1, cooldown)

	count, err := database.CountVotes(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestPasswordResetSingleUse(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	user, _ := seed(t, database)
	now := time.Now().UTC()

	require.NoError(t, database.CreatePasswordReset(ctx, model.PasswordReset{
		TokenHash: "token-hash",
		UserID:    user.ID,
		ExpiresAt: now.Add(time.Hour),
	}))

	id, err := database.ConsumePasswordReset(ctx, "token-hash", now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	_, err = database.ConsumePasswordReset(ctx, "token-hash", now)
	assert.ErrorIs(t, err, model.ErrResetInvalid)
}
