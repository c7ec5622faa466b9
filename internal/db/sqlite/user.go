package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/parklistmc/parklist/internal/model"
	"gorm.io/gorm"
)

func (s *Store) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	u.UpdatedAt = u.CreatedAt
	row := userRow{
		ID:            u.ID.String(),
		Email:         u.Email,
		Name:          u.Name,
		PasswordHash:  u.PasswordHash,
		EmailVerified: u.EmailVerified,
		Image:         u.Image,
		CreatedAt:     u.CreatedAt.UTC(),
		UpdatedAt:     u.UpdatedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return model.User{}, model.ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Store) findUser(ctx context.Context, column, value string) (model.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where(column+" = ?", value).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, model.ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	return row.toModel(), nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.findUser(ctx, "email", email)
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return s.findUser(ctx, "id", id.String())
}

func (s *Store) UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error {
	res := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("id = ?", userID.String()).
		Updates(map[string]any{"password_hash": hash, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *Store) AccountByProvider(ctx context.Context, provider, providerAccountID string) (model.Account, error) {
	var row accountRow
	err := s.db.WithContext(ctx).
		Where("provider = ? AND provider_account_id = ?", provider, providerAccountID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Account{}, model.ErrNotFound
	}
	if err != nil {
		return model.Account{}, err
	}
	userID, _ := uuid.Parse(row.UserID)
	return model.Account{
		ID:                row.ID,
		UserID:            userID,
		Provider:          row.Provider,
		ProviderAccountID: row.ProviderAccountID,
		CreatedAt:         row.CreatedAt,
	}, nil
}

func (s *Store) CreateAccount(ctx context.Context, a model.Account) error {
	row := accountRow{
		ID:                a.ID,
		UserID:            a.UserID.String(),
		Provider:          a.Provider,
		ProviderAccountID: a.ProviderAccountID,
		CreatedAt:         a.CreatedAt.UTC(),
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err) {
		return model.ErrAccountLinked
	}
	return err
}

func (s *Store) CreatePasswordReset(ctx context.Context, r model.PasswordReset) error {
	row := passwordResetRow{
		TokenHash: r.TokenHash,
		UserID:    r.UserID.String(),
		ExpiresAt: r.ExpiresAt.UTC(),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row passwordResetRow
		err := tx.Where("token_hash = ? AND used_at IS NULL", tokenHash).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ErrResetInvalid
		}
		if err != nil {
			return err
		}
		if !row.ExpiresAt.After(now) {
			return model.ErrResetInvalid
		}
		used := now.UTC()
		if err := tx.Model(&passwordResetRow{}).Where("token_hash = ?", tokenHash).Update("used_at", &used).Error; err != nil {
			return err
		}
		userID, err = uuid.Parse(row.UserID)
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	return userID, nil
}
