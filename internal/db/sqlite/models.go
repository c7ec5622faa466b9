package sqlite

import (
	"time"

	"github.com/google/uuid"
	"github.com/parklistmc/parklist/internal/model"
)

type userRow struct {
	ID            string `gorm:"primaryKey;size:36"`
	Email         string `gorm:"uniqueIndex;not null"`
	Name          string `gorm:"not null;default:''"`
	PasswordHash  *string
	EmailVerified bool `gorm:"not null;default:false"`
	Image         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (userRow) TableName() string { return "users" }

func (r userRow) toModel() model.User {
	id, _ := uuid.Parse(r.ID)
	return model.User{
		ID:            id,
		Email:         r.Email,
		Name:          r.Name,
		PasswordHash:  r.PasswordHash,
		EmailVerified: r.EmailVerified,
		Image:         r.Image,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type accountRow struct {
	ID                string `gorm:"primaryKey"`
	UserID            string `gorm:"index;size:36;not null"`
	Provider          string `gorm:"uniqueIndex:idx_accounts_provider;not null"`
	ProviderAccountID string `gorm:"uniqueIndex:idx_accounts_provider;not null"`
	CreatedAt         time.Time
}

func (accountRow) TableName() string { return "accounts" }

type passwordResetRow struct {
	TokenHash string `gorm:"primaryKey"`
	UserID    string `gorm:"index;size:36;not null"`
	ExpiresAt time.Time
	UsedAt    *time.Time
}

func (passwordResetRow) TableName() string { return "password_resets" }

type serverRow struct {
	ID                string `gorm:"primaryKey"`
	OwnerID           string `gorm:"index;size:36;not null"`
	Name              string `gorm:"not null"`
	Slug              string `gorm:"uniqueIndex;not null"`
	Description       string `gorm:"not null"`
	IPAddress         string `gorm:"not null"`
	Port              *int
	Website           *string
	Discord           *string
	Version           *string
	Region            *string
	Theme             *string
	Tags              []string `gorm:"serializer:json"`
	Categories        []string `gorm:"serializer:json"`
	BannerURL         *string
	VotifierHost      *string
	VotifierPort      *int
	VotifierPublicKey *string
	Status            string `gorm:"index;not null;default:'PUBLISHED'"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	VoteCount         int64 `gorm:"->;-:migration"`
}

func (serverRow) TableName() string { return "servers" }

func newServerRow(l model.Listing) serverRow {
	return serverRow{
		ID:                l.ID,
		OwnerID:           l.OwnerID.String(),
		Name:              l.Name,
		Slug:              l.Slug,
		Description:       l.Description,
		IPAddress:         l.IPAddress,
		Port:              l.Port,
		Website:           l.Website,
		Discord:           l.Discord,
		Version:           l.Version,
		Region:            l.Region,
		Theme:             l.Theme,
		Tags:              l.Tags,
		Categories:        l.Categories,
		BannerURL:         l.BannerURL,
		VotifierHost:      l.VotifierHost,
		VotifierPort:      l.VotifierPort,
		VotifierPublicKey: l.VotifierPublicKey,
		Status:            l.Status,
		CreatedAt:         l.CreatedAt.UTC(),
		UpdatedAt:         l.UpdatedAt.UTC(),
	}
}

func (r serverRow) toModel() model.Listing {
	owner, _ := uuid.Parse(r.OwnerID)
	return model.Listing{
		ID:                r.ID,
		OwnerID:           owner,
		Name:              r.Name,
		Slug:              r.Slug,
		Description:       r.Description,
		IPAddress:         r.IPAddress,
		Port:              r.Port,
		Website:           r.Website,
		Discord:           r.Discord,
		Version:           r.Version,
		Region:            r.Region,
		Theme:             r.Theme,
		Tags:              r.Tags,
		Categories:        r.Categories,
		BannerURL:         r.BannerURL,
		VotifierHost:      r.VotifierHost,
		VotifierPort:      r.VotifierPort,
		VotifierPublicKey: r.VotifierPublicKey,
		Status:            r.Status,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		VoteCount:         r.VoteCount,
	}
}

// voteRow keeps the creation instant as unix nanoseconds so window
// comparisons are numeric rather than textual.
type voteRow struct {
	ID        string  `gorm:"primaryKey"`
	ServerID  string  `gorm:"index:idx_votes_server_created,priority:1;not null"`
	UserID    *string `gorm:"index;size:36"`
	IPHash    *string `gorm:"index"`
	UserAgent *string
	Source    string `gorm:"not null;default:'WEB'"`
	CreatedNs int64  `gorm:"column:created_ns;index:idx_votes_server_created,priority:2;not null"`
}

func (voteRow) TableName() string { return "votes" }

func newVoteRow(v model.Vote) voteRow {
	return voteRow{
		ID:        v.ID,
		ServerID:  v.ListingID,
		UserID:    v.UserID,
		IPHash:    v.IPHash,
		UserAgent: v.UserAgent,
		Source:    v.Source,
		CreatedNs: v.CreatedAt.UnixNano(),
	}
}

func (r voteRow) toModel() model.Vote {
	return model.Vote{
		ID:        r.ID,
		ListingID: r.ServerID,
		UserID:    r.UserID,
		IPHash:    r.IPHash,
		UserAgent: r.UserAgent,
		Source:    r.Source,
		CreatedAt: time.Unix(0, r.CreatedNs).UTC(),
	}
}

var migrateModels = []any{
	&userRow{},
	&accountRow{},
	&passwordResetRow{},
	&serverRow{},
	&voteRow{},
}
