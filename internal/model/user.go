package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	PasswordHash  *string   `json:"-"`
	EmailVerified bool      `json:"emailVerified"`
	Image         *string   `json:"image,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Account links a user to a social login provider.
type Account struct {
	ID                string    `json:"id"`
	UserID            uuid.UUID `json:"userId"`
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"providerAccountId"`
	CreatedAt         time.Time `json:"createdAt"`
}

// PasswordReset stores only the sha256 of the token that was mailed out.
type PasswordReset struct {
	TokenHash string
	UserID    uuid.UUID
	ExpiresAt time.Time
}
