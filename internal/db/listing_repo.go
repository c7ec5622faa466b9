package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/parklistmc/parklist/internal/model"
	"github.com/parklistmc/parklist/internal/vote"
)

const listingColumns = `
	s.id, s.owner_id, s.name, s.slug, s.description, s.ip_address, s.port,
	s.website, s.discord, s.version, s.region, s.theme, s.tags, s.categories,
	s.banner_url, s.votifier_host, s.votifier_port, s.votifier_public_key,
	s.status, s.created_at, s.updated_at,
	(SELECT COUNT(*) FROM votes v WHERE v.server_id = s.id) AS vote_count`

func scanListing(row pgx.Row) (model.Listing, error) {
	var l model.Listing
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.Name, &l.Slug, &l.Description, &l.IPAddress, &l.Port,
		&l.Website, &l.Discord, &l.Version, &l.Region, &l.Theme, &l.Tags, &l.Categories,
		&l.BannerURL, &l.VotifierHost, &l.VotifierPort, &l.VotifierPublicKey,
		&l.Status, &l.CreatedAt, &l.UpdatedAt, &l.VoteCount,
	)
	return l, err
}

func (db *DB) queryListings(ctx context.Context, query string, args ...any) ([]model.Listing, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// ListPublishedListings returns published listings, newest first.
func (db *DB) ListPublishedListings(ctx context.Context) ([]model.Listing, error) {
	query := `SELECT ` + listingColumns + `
		FROM servers s
		WHERE s.status = 'PUBLISHED'
		ORDER BY s.created_at DESC`
	return db.queryListings(ctx, query)
}

func (db *DB) ListListingsByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Listing, error) {
	query := `SELECT ` + listingColumns + `
		FROM servers s
		WHERE s.owner_id = $1
		ORDER BY s.created_at DESC`
	return db.queryListings(ctx, query, ownerID)
}

func (db *DB) ListingBySlug(ctx context.Context, slug string) (model.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM servers s WHERE s.slug = $1`
	l, err := scanListing(db.pool.QueryRow(ctx, query, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Listing{}, model.ErrNotFound
	}
	return l, err
}

// ListingByID satisfies vote.Directory.
func (db *DB) ListingByID(ctx context.Context, id string) (model.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM servers s WHERE s.id = $1`
	l, err := scanListing(db.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Listing{}, vote.ErrListingNotFound
	}
	return l, err
}

func (db *DB) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM servers WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

// CreateListing inserts l. A concurrent insert of the same slug surfaces as
// model.ErrSlugTaken so the caller can move on to the next candidate.
func (db *DB) CreateListing(ctx context.Context, l model.Listing) (model.Listing, error) {
	stmt := `
		INSERT INTO servers (
			id, owner_id, name, slug, description, ip_address, port,
			website, discord, version, region, theme, tags, categories,
			banner_url, votifier_host, votifier_port, votifier_public_key,
			status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $20
		)`
	_, err := db.pool.Exec(ctx, stmt,
		l.ID, l.OwnerID, l.Name, l.Slug, l.Description, l.IPAddress, l.Port,
		l.Website, l.Discord, l.Version, l.Region, l.Theme, l.Tags, l.Categories,
		l.BannerURL, l.VotifierHost, l.VotifierPort, l.VotifierPublicKey,
		l.Status, l.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "servers_slug_key") {
			return model.Listing{}, model.ErrSlugTaken
		}
		return model.Listing{}, fmt.Errorf("insert server: %w", err)
	}
	l.UpdatedAt = l.CreatedAt
	return l, nil
}

// UpdateListing rewrites every mutable column of l. Slug and owner are fixed.
func (db *DB) UpdateListing(ctx context.Context, l model.Listing) (model.Listing, error) {
	stmt := `
		UPDATE servers SET
			name = $2, description = $3, ip_address = $4, port = $5,
			website = $6, discord = $7, version = $8, region = $9, theme = $10,
			tags = $11, categories = $12, banner_url = $13, votifier_host = $14,
			votifier_port = $15, votifier_public_key = $16, status = $17,
			updated_at = $18
		WHERE id = $1`
	tag, err := db.pool.Exec(ctx, stmt,
		l.ID, l.Name, l.Description, l.IPAddress, l.Port,
		l.Website, l.Discord, l.Version, l.Region, l.Theme,
		l.Tags, l.Categories, l.BannerURL, l.VotifierHost,
		l.VotifierPort, l.VotifierPublicKey, l.Status,
		l.UpdatedAt,
	)
	if err != nil {
		return model.Listing{}, fmt.Errorf("update server: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.Listing{}, model.ErrNotFound
	}
	return l, nil
}

func (db *DB) CountVotes(ctx context.Context, listingID string) (int64, error) {
	var n int64
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM votes WHERE server_id = $1`, listingID).Scan(&n)
	return n, err
}
