package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ListingDraft     = "DRAFT"
	ListingPublished = "PUBLISHED"
)

// Listing is a theme-park server entry owned by the account that created it.
// Slug is unique and never changes after creation.
type Listing struct {
	ID                string    `json:"id"`
	OwnerID           uuid.UUID `json:"ownerId"`
	Name              string    `json:"name"`
	Slug              string    `json:"slug"`
	Description       string    `json:"description"`
	IPAddress         string    `json:"ipAddress"`
	Port              *int      `json:"port"`
	Website           *string   `json:"website"`
	Discord           *string   `json:"discord"`
	Version           *string   `json:"version"`
	Region            *string   `json:"region"`
	Theme             *string   `json:"theme"`
	Tags              []string  `json:"tags"`
	Categories        []string  `json:"categories"`
	BannerURL         *string   `json:"bannerUrl"`
	VotifierHost      *string   `json:"votifierHost,omitempty"`
	VotifierPort      *int      `json:"votifierPort,omitempty"`
	VotifierPublicKey *string   `json:"-"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	VoteCount         int64     `json:"voteCount"`
}

func (l Listing) IsPublished() bool {
	return l.Status == ListingPublished
}

// HasVotifier reports whether accepted votes can be forwarded to the server.
func (l Listing) HasVotifier() bool {
	return l.VotifierHost != nil && *l.VotifierHost != "" && l.VotifierPublicKey != nil && *l.VotifierPublicKey != ""
}

// PublicListing is the directory shape served to anonymous visitors.
type PublicListing struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	IPAddress   string    `json:"ipAddress"`
	Port        *int      `json:"port"`
	Website     *string   `json:"website"`
	Discord     *string   `json:"discord"`
	Version     *string   `json:"version"`
	Region      *string   `json:"region"`
	Theme       *string   `json:"theme"`
	Tags        []string  `json:"tags"`
	Categories  []string  `json:"categories"`
	BannerURL   *string   `json:"bannerUrl"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	VoteCount   int64     `json:"voteCount"`
}

func (l Listing) Public() PublicListing {
	return PublicListing{
		ID:          l.ID,
		Name:        l.Name,
		Slug:        l.Slug,
		Description: l.Description,
		IPAddress:   l.IPAddress,
		Port:        l.Port,
		Website:     l.Website,
		Discord:     l.Discord,
		Version:     l.Version,
		Region:      l.Region,
		Theme:       l.Theme,
		Tags:        l.Tags,
		Categories:  l.Categories,
		BannerURL:   l.BannerURL,
		Status:      l.Status,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
		VoteCount:   l.VoteCount,
	}
}

// CreateListingRequest is the listing creation payload. Name, Description and
// IPAddress are checked after trimming.
type CreateListingRequest struct {
	Name              string   `json:"name"`
	Slug              *string  `json:"slug"`
	Description       string   `json:"description"`
	IPAddress         string   `json:"ipAddress" validate:"hostname_or_ip"`
	Port              *int     `json:"port" validate:"omitempty,min=1,max=65535"`
	Website           *string  `json:"website" validate:"omitempty,url"`
	Discord           *string  `json:"discord" validate:"omitempty,url"`
	Version           *string  `json:"version" validate:"omitempty,max=64"`
	Region            *string  `json:"region" validate:"omitempty,max=64"`
	Theme             *string  `json:"theme" validate:"omitempty,max=64"`
	Tags              []string `json:"tags" validate:"max=20,dive,max=32"`
	Categories        []string `json:"categories" validate:"max=10,dive,max=32"`
	BannerURL         *string  `json:"bannerUrl" validate:"omitempty,url"`
	VotifierHost      *string  `json:"votifierHost" validate:"omitempty,hostname_or_ip"`
	VotifierPort      *int     `json:"votifierPort" validate:"omitempty,min=1,max=65535"`
	VotifierPublicKey *string  `json:"votifierPublicKey"`
	Status            *string  `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED"`
}

// UpdateListingRequest changes a listing in place. Absent fields are left
// untouched; the slug cannot be changed.
type UpdateListingRequest struct {
	Name              *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Description       *string  `json:"description" validate:"omitempty,min=1"`
	IPAddress         *string  `json:"ipAddress" validate:"omitempty,hostname_or_ip"`
	Port              *int     `json:"port" validate:"omitempty,min=1,max=65535"`
	Website           *string  `json:"website" validate:"omitempty,url"`
	Discord           *string  `json:"discord" validate:"omitempty,url"`
	Version           *string  `json:"version" validate:"omitempty,max=64"`
	Region            *string  `json:"region" validate:"omitempty,max=64"`
	Theme             *string  `json:"theme" validate:"omitempty,max=64"`
	Tags              []string `json:"tags" validate:"omitempty,max=20,dive,max=32"`
	Categories        []string `json:"categories" validate:"omitempty,max=10,dive,max=32"`
	VotifierHost      *string  `json:"votifierHost" validate:"omitempty,hostname_or_ip"`
	VotifierPort      *int     `json:"votifierPort" validate:"omitempty,min=1,max=65535"`
	VotifierPublicKey *string  `json:"votifierPublicKey"`
	Status            *string  `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED"`
}

// Apply copies the non-nil fields of req onto l.
func (req UpdateListingRequest) Apply(l *Listing) {
	if req.Name != nil {
		l.Name = *req.Name
	}
	if req.Description != nil {
		l.Description = *req.Description
	}
	if req.IPAddress != nil {
		l.IPAddress = *req.IPAddress
	}
	if req.Port != nil {
		l.Port = req.Port
	}
	if req.Website != nil {
		l.Website = req.Website
	}
	if req.Discord != nil {
		l.Discord = req.Discord
	}
	if req.Version != nil {
		l.Version = req.Version
	}
	if req.Region != nil {
		l.Region = req.Region
	}
	if req.Theme != nil {
		l.Theme = req.Theme
	}
	if req.Tags != nil {
		l.Tags = req.Tags
	}
	if req.Categories != nil {
		l.Categories = req.Categories
	}
	if req.VotifierHost != nil {
		l.VotifierHost = req.VotifierHost
	}
	if req.VotifierPort != nil {
		l.VotifierPort = req.VotifierPort
	}
	if req.VotifierPublicKey != nil {
		l.VotifierPublicKey = req.VotifierPublicKey
	}
	if req.Status != nil {
		l.Status = *req.Status
	}
}

type BannerUploadRequest struct {
	Source string `json:"source" validate:"required,url"`
}
