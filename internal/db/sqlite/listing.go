package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/parklistmc/parklist/internal/model"
	"github.com/parklistmc/parklist/internal/vote"
	"gorm.io/gorm"
)

const selectWithVoteCount = "servers.*, (SELECT COUNT(*) FROM votes WHERE votes.server_id = servers.id) AS vote_count"

func toListings(rows []serverRow) []model.Listing {
	listings := make([]model.Listing, 0, len(rows))
	for _, r := range rows {
		listings = append(listings, r.toModel())
	}
	return listings
}

func (s *Store) ListPublishedListings(ctx context.Context) ([]model.Listing, error) {
	var rows []serverRow
	err := s.db.WithContext(ctx).
		Select(selectWithVoteCount).
		Where("status = ?", model.ListingPublished).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toListings(rows), nil
}

func (s *Store) ListListingsByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Listing, error) {
	var rows []serverRow
	err := s.db.WithContext(ctx).
		Select(selectWithVoteCount).
		Where("owner_id = ?", ownerID.String()).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toListings(rows), nil
}

func (s *Store) findListing(ctx context.Context, column, value string) (model.Listing, error) {
	var row serverRow
	err := s.db.WithContext(ctx).
		Select(selectWithVoteCount).
		Where(column+" = ?", value).
		Take(&row).Error
	if err != nil {
		return model.Listing{}, err
	}
	return row.toModel(), nil
}

func (s *Store) ListingBySlug(ctx context.Context, slug string) (model.Listing, error) {
	l, err := s.findListing(ctx, "slug", slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Listing{}, model.ErrNotFound
	}
	return l, err
}

func (s *Store) ListingByID(ctx context.Context, id string) (model.Listing, error) {
	l, err := s.findListing(ctx, "id", id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Listing{}, vote.ErrListingNotFound
	}
	return l, err
}

func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&serverRow{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

func (s *Store) CreateListing(ctx context.Context, l model.Listing) (model.Listing, error) {
	l.UpdatedAt = l.CreatedAt
	row := newServerRow(l)
	if err := s.db.WithContext(ctx).Omit("VoteCount").Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return model.Listing{}, model.ErrSlugTaken
		}
		return model.Listing{}, fmt.Errorf("insert server: %w", err)
	}
	return l, nil
}

func (s *Store) UpdateListing(ctx context.Context, l model.Listing) (model.Listing, error) {
	row := newServerRow(l)
	res := s.db.WithContext(ctx).
		Model(&serverRow{}).
		Where("id = ?", l.ID).
		Select("Name", "Description", "IPAddress", "Port", "Website", "Discord",
			"Version", "Region", "Theme", "Tags", "Categories", "BannerURL",
			"VotifierHost", "VotifierPort", "VotifierPublicKey", "Status", "UpdatedAt").
		Updates(&row)
	if res.Error != nil {
		return model.Listing{}, fmt.Errorf("update server: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Listing{}, model.ErrNotFound
	}
	return l, nil
}

func (s *Store) CountVotes(ctx context.Context, listingID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&voteRow{}).Where("server_id = ?", listingID).Count(&n).Error
	return n, err
}
