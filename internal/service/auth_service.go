package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"atelier/internal/domain"
	"atelier/internal/dto"
)

// AuthService drives the login state machine: credential check, optional
// second-factor challenge, audit append, and token issuance on completion.
type AuthService interface {
	Login(ctx context.Context, r dto.LoginRequest, ip, ua string) (*dto.LoginResult, error)
	VerifyTwoFactor(ctx context.Context, r dto.VerifyTwoFactorRequest, ip, ua string) (*dto.LoginResult, error)
	History(ctx context.Context, accountID uuid.UUID) ([]domain.LoginAttempt, error)
	MarkLoggedOut(ctx context.Context, accountID uuid.UUID, at time.Time, ip string, success bool) error
}
