package service

import (
	"context"

	"github.com/google/uuid"

	"atelier/internal/dto"
)

// TwoFactorService owns the enable/disable/regenerate lifecycle for both
// factor types. Verification during login goes through
// AuthService.VerifyTwoFactor, which consumes codes atomically with the
// pending attempt.
type TwoFactorService interface {
	// Enable turns a factor on. For TOTP it returns the fresh secret and
	// provisioning URI; the factor only counts as enabled after a successful
	// verification, unless asAdmin is set (support-assisted setup skips the
	// confirmation gate).
	Enable(ctx context.Context, accountID uuid.UUID, factor string, asAdmin bool) (*dto.TwoFactorProvision, error)
	// Disable clears the factor's state. Administrative disables notify the
	// account owner by email.
	Disable(ctx context.Context, accountID uuid.UUID, factor string, asAdmin bool) error
}
