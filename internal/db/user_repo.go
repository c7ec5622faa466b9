package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/parklistmc/parklist/internal/model"
)

const userColumns = `id, email, name, password_hash, email_verified, image, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.EmailVerified, &u.Image, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrNotFound
	}
	return u, err
}

func (db *DB) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	stmt := `
		INSERT INTO users (id, email, name, password_hash, email_verified, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	_, err := db.pool.Exec(ctx, stmt, u.ID, u.Email, u.Name, u.PasswordHash, u.EmailVerified, u.Image, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return model.User{}, model.ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	u.UpdatedAt = u.CreatedAt
	return u, nil
}

func (db *DB) UserByEmail(ctx context.Context, email string) (model.User, error) {
	stmt := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(db.pool.QueryRow(ctx, stmt, email))
}

func (db *DB) UserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	stmt := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(db.pool.QueryRow(ctx, stmt, id))
}

func (db *DB) UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error {
	stmt := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	tag, err := db.pool.Exec(ctx, stmt, userID, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (db *DB) AccountByProvider(ctx context.Context, provider, providerAccountID string) (model.Account, error) {
	var a model.Account
	stmt := `
		SELECT id, user_id, provider, provider_account_id, created_at
		FROM accounts WHERE provider = $1 AND provider_account_id = $2`
	err := db.pool.QueryRow(ctx, stmt, provider, providerAccountID).Scan(
		&a.ID, &a.UserID, &a.Provider, &a.ProviderAccountID, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, model.ErrNotFound
	}
	return a, err
}

func (db *DB) CreateAccount(ctx context.Context, a model.Account) error {
	stmt := `
		INSERT INTO accounts (id, user_id, provider, provider_account_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := db.pool.Exec(ctx, stmt, a.ID, a.UserID, a.Provider, a.ProviderAccountID, a.CreatedAt)
	if isUniqueViolation(err, "accounts_provider_key") {
		return model.ErrAccountLinked
	}
	return err
}

func (db *DB) CreatePasswordReset(ctx context.Context, r model.PasswordReset) error {
	stmt := `INSERT INTO password_resets (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`
	_, err := db.pool.Exec(ctx, stmt, r.TokenHash, r.UserID, r.ExpiresAt)
	return err
}

// ConsumePasswordReset marks the token used and returns its owner. Expired,
// unknown and already used tokens all return model.ErrResetInvalid.
func (db *DB) ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
	var userID uuid.UUID
	stmt := `
		UPDATE password_resets SET used_at = $2
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
		RETURNING user_id`
	err := db.pool.QueryRow(ctx, stmt, tokenHash, now).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, model.ErrResetInvalid
	}
	return userID, err
}
