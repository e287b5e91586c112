package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"atelier/internal/domain"
)

type AccountStore struct{ db *gorm.DB }

func (s *Store) Accounts() *AccountStore { return &AccountStore{db: s.DB} }

func (a *AccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var acc domain.Account
	if err := a.db.WithContext(ctx).First(&acc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// GetByEmail is case-insensitive: lookups lowercase the input and compare
// against the lowercased column, so it works with or without citext.
func (a *AccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var acc domain.Account
	err := a.db.WithContext(ctx).
		First(&acc, "lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// UpdatePassword persists a (re)hashed secret. Last writer wins under
// concurrent legacy migrations; both logins still succeed because each
// writes a hash of the same presented secret.
func (a *AccountStore) UpdatePassword(ctx context.Context, accountID uuid.UUID, hash string) error {
	return a.db.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{"password": hash, "updated_at": time.Now().UTC()}).Error
}

func (a *AccountStore) UpdateLastLogin(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	return a.db.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{"last_login": at, "updated_at": at}).Error
}

// UpdateTwoFactor writes the full second-factor state of an account in one
// statement. Nil pointers clear the corresponding columns.
func (a *AccountStore) UpdateTwoFactor(ctx context.Context, accountID uuid.UUID, state domain.TwoFactorState) error {
	return a.db.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"email_otp_enabled": state.EmailOTPEnabled,
			"email_otp_code":    state.EmailOTPCode,
			"email_otp_expiry":  state.EmailOTPExpiry,
			"totp_enabled":      state.TOTPEnabled,
			"totp_secret":       state.TOTPSecret,
			"updated_at":        time.Now().UTC(),
		}).Error
}
