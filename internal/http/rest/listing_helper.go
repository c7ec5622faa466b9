package rest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/parklistmc/parklist/internal/model"
	"github.com/parklistmc/parklist/internal/votifier"
	"github.com/parklistmc/parklist/util"
	"github.com/parklistmc/parklist/util/storage"
	"github.com/parklistmc/parklist/util/values"
)

const (
	msgRequiredListingFields = "Name, description, and IP address are required."
	msgListingNotFound       = "Server not found."
	msgNotListingOwner       = "You do not own this server."

	maxSlugAttempts = 1000
)

var (
	errRequiredListingFields = errors.New("missing required listing fields")
	errNotListingOwner       = errors.New("listing belongs to another user")
	errSlugExhausted         = errors.New("no free slug candidate")
)

func (api *API) ListPublishedHelper(ctx context.Context) ([]model.PublicListing, string, string, error) {
	listings, err := api.Deps.Store.ListPublishedListings(ctx)
	if err != nil {
		return nil, values.Error, "Unable to load servers.", err
	}
	public := make([]model.PublicListing, 0, len(listings))
	for _, l := range listings {
		public = append(public, l.Public())
	}
	return public, values.Success, "servers loaded", nil
}

func validateVotifierKey(key *string) error {
	if key == nil {
		return nil
	}
	_, err := votifier.ParsePublicKey(*key)
	return err
}

func (api *API) CreateListingHelper(ctx context.Context, ownerID uuid.UUID, req model.CreateListingRequest) (model.PublicListing, string, string, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.IPAddress = strings.TrimSpace(req.IPAddress)
	if req.Name == "" || req.Description == "" || req.IPAddress == "" {
		return model.PublicListing{}, values.InvalidPayload, msgRequiredListingFields, errRequiredListingFields
	}

	req.Website = util.TrimPtr(req.Website)
	req.Discord = util.TrimPtr(req.Discord)
	req.Version = util.TrimPtr(req.Version)
	req.Region = util.TrimPtr(req.Region)
	req.Theme = util.TrimPtr(req.Theme)
	req.BannerURL = util.TrimPtr(req.BannerURL)
	req.VotifierHost = util.TrimPtr(req.VotifierHost)
	req.VotifierPublicKey = util.TrimPtr(req.VotifierPublicKey)
	req.Tags = util.CleanList(req.Tags)
	req.Categories = util.CleanList(req.Categories)

	if err := util.ValidateStruct(req); err != nil {
		return model.PublicListing{}, values.InvalidPayload, util.ValidationMessage(err), err
	}
	if err := validateVotifierKey(req.VotifierPublicKey); err != nil {
		return model.PublicListing{}, values.InvalidPayload, "votifierPublicKey is not a valid RSA public key", err
	}

	slugSource := req.Name
	if req.Slug != nil && strings.TrimSpace(*req.Slug) != "" {
		slugSource = *req.Slug
	}
	base := util.Slugify(slugSource)
	if base == "" {
		base = util.Slugify(fmt.Sprintf("%s-%d", req.Name, api.now().UnixMilli()))
	}

	status := model.ListingPublished
	if req.Status != nil {
		status = *req.Status
	}

	now := api.now().UTC()
	listing := model.Listing{
		ID:                util.NewID(),
		OwnerID:           ownerID,
		Name:              req.Name,
		Description:       req.Description,
		IPAddress:         req.IPAddress,
		Port:              req.Port,
		Website:           req.Website,
		Discord:           req.Discord,
		Version:           req.Version,
		Region:            req.Region,
		Theme:             req.Theme,
		Tags:              req.Tags,
		Categories:        req.Categories,
		BannerURL:         req.BannerURL,
		VotifierHost:      req.VotifierHost,
		VotifierPort:      req.VotifierPort,
		VotifierPublicKey: req.VotifierPublicKey,
		Status:            status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	for n := 0; n < maxSlugAttempts; n++ {
		listing.Slug = util.SlugCandidate(base, n)
		taken, err := api.Deps.Store.SlugExists(ctx, listing.Slug)
		if err != nil {
			return model.PublicListing{}, values.Error, "Unable to create server.", err
		}
		if taken {
			continue
		}

		created, err := api.Deps.Store.CreateListing(ctx, listing)
		if errors.Is(err, model.ErrSlugTaken) {
			continue
		}
		if err != nil {
			return model.PublicListing{}, values.Error, "Unable to create server.", err
		}
		api.Logger.Info("listing created", "slug", created.Slug, "status", created.Status)
		return created.Public(), values.Created, "server created", nil
	}

	return model.PublicListing{}, values.Conflict, "Unable to find a free slug.", errSlugExhausted
}

// GetListingHelper hides drafts from everyone but their owner. Owners get
// the full record including votifier settings.
func (api *API) GetListingHelper(ctx context.Context, slug string, viewer uuid.UUID) (interface{}, string, string, error) {
	listing, err := api.Deps.Store.ListingBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, values.NotFound, msgListingNotFound, err
		}
		return nil, values.Error, "Unable to load server.", err
	}

	isOwner := viewer != uuid.Nil && viewer == listing.OwnerID
	if !listing.IsPublished() && !isOwner {
		return nil, values.NotFound, msgListingNotFound, model.ErrNotFound
	}
	if isOwner {
		return listing, values.Success, "server loaded", nil
	}
	return listing.Public(), values.Success, "server loaded", nil
}

func (api *API) ownedListing(ctx context.Context, slug string, userID uuid.UUID) (model.Listing, string, string, error) {
	listing, err := api.Deps.Store.ListingBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Listing{}, values.NotFound, msgListingNotFound, err
		}
		return model.Listing{}, values.Error, "Unable to load server.", err
	}
	if listing.OwnerID != userID {
		return model.Listing{}, values.NotAllowed, msgNotListingOwner, errNotListingOwner
	}
	return listing, values.Success, "", nil
}

func (api *API) UpdateListingHelper(ctx context.Context, slug string, userID uuid.UUID, req model.UpdateListingRequest) (model.Listing, string, string, error) {
	listing, status, message, err := api.ownedListing(ctx, slug, userID)
	if err != nil {
		return model.Listing{}, status, message, err
	}

	for _, field := range []*string{req.Name, req.Description, req.IPAddress} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
	if err := util.ValidateStruct(req); err != nil {
		return model.Listing{}, values.InvalidPayload, util.ValidationMessage(err), err
	}
	if err := validateVotifierKey(util.TrimPtr(req.VotifierPublicKey)); err != nil {
		return model.Listing{}, values.InvalidPayload, "votifierPublicKey is not a valid RSA public key", err
	}
	if req.Tags != nil {
		req.Tags = util.CleanList(req.Tags)
	}
	if req.Categories != nil {
		req.Categories = util.CleanList(req.Categories)
	}

	req.Apply(&listing)
	listing.UpdatedAt = api.now().UTC()

	updated, err := api.Deps.Store.UpdateListing(ctx, listing)
	if err != nil {
		return model.Listing{}, values.Error, "Unable to update server.", err
	}
	api.Logger.Info("listing updated", "slug", updated.Slug, "status", updated.Status)
	return updated, values.Success, "server updated", nil
}

func (api *API) UploadBannerHelper(ctx context.Context, slug string, userID uuid.UUID, req model.BannerUploadRequest) (model.Listing, string, string, error) {
	listing, status, message, err := api.ownedListing(ctx, slug, userID)
	if err != nil {
		return model.Listing{}, status, message, err
	}
	if err := util.ValidateStruct(req); err != nil {
		return model.Listing{}, values.InvalidPayload, util.ValidationMessage(err), err
	}

	url, err := api.Deps.Cloudinary.UploadBanner(ctx, req.Source, listing.Slug)
	if err != nil {
		if errors.Is(err, storage.ErrStorageDisabled) {
			return model.Listing{}, values.Unprocessable, "Image uploads are not configured.", err
		}
		return model.Listing{}, values.Error, "Unable to upload banner.", err
	}

	listing.BannerURL = &url
	listing.UpdatedAt = api.now().UTC()
	updated, err := api.Deps.Store.UpdateListing(ctx, listing)
	if err != nil {
		return model.Listing{}, values.Error, "Unable to update server.", err
	}
	return updated, values.Success, "banner uploaded", nil
}

func (api *API) MyListingsHelper(ctx context.Context, userID uuid.UUID) ([]model.Listing, string, string, error) {
	listings, err := api.Deps.Store.ListListingsByOwner(ctx, userID)
	if err != nil {
		return nil, values.Error, "Unable to load servers.", err
	}
	return listings, values.Success, "servers loaded", nil
}
