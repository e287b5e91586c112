package impl

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"

	"atelier/internal/domain"
	"atelier/internal/dto"
	"atelier/internal/service"
	"atelier/internal/store"
)

type TwoFactorServiceImpl struct {
	store  authStore
	mailer service.Mailer
	issuer string
	now    func() time.Time
}

func NewTwoFactorServiceImpl(st *store.Store, mailer service.Mailer, issuer string) *TwoFactorServiceImpl {
	return &TwoFactorServiceImpl{
		store:  gormStoreAdapter{store: st},
		mailer: mailer,
		issuer: issuer,
		now:    time.Now,
	}
}

func (s *TwoFactorServiceImpl) Enable(ctx context.Context, accountID uuid.UUID, factor string, asAdmin bool) (*dto.TwoFactorProvision, error) {
	acc, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(factor)) {
	case domain.FactorEmail:
		code, err := newNumericCode(6)
		if err != nil {
			return nil, err
		}
		expiry := s.now().UTC().Add(emailOTPTTL)
		state := acc.TwoFactor()
		state.EmailOTPEnabled = true
		state.EmailOTPCode, state.EmailOTPExpiry = &code, &expiry
		if err := s.store.Accounts().UpdateTwoFactor(ctx, accountID, state); err != nil {
			return nil, err
		}
		if err := s.mailer.SendOneTimeCode(ctx, acc.Email, code, expiry); err != nil {
			slog.ErrorContext(ctx, "setup code dispatch failed", "account_id", accountID, "error", err)
			return nil, ErrMailDispatch
		}
		return &dto.TwoFactorProvision{}, nil

	case domain.FactorTOTP:
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      s.issuer,
			AccountName: acc.Email,
		})
		if err != nil {
			return nil, err
		}
		secret := key.Secret()
		state := acc.TwoFactor()
		state.TOTPSecret = &secret
		// Self-service setup leaves the factor off until the owner proves
		// they can produce a code. Administrative setup trusts the secret
		// immediately (support-assisted flow).
		state.TOTPEnabled = asAdmin
		if err := s.store.Accounts().UpdateTwoFactor(ctx, accountID, state); err != nil {
			return nil, err
		}
		return &dto.TwoFactorProvision{Secret: secret, URI: key.URL()}, nil

	default:
		return nil, ErrUnknownFactor
	}
}

func (s *TwoFactorServiceImpl) Disable(ctx context.Context, accountID uuid.UUID, factor string, asAdmin bool) error {
	acc, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrAccountNotFound
		}
		return err
	}

	state := acc.TwoFactor()
	normalized := strings.ToLower(strings.TrimSpace(factor))
	switch normalized {
	case domain.FactorEmail:
		state.EmailOTPEnabled = false
		state.EmailOTPCode, state.EmailOTPExpiry = nil, nil
	case domain.FactorTOTP:
		state.TOTPEnabled = false
		state.TOTPSecret = nil
	default:
		return ErrUnknownFactor
	}
	if err := s.store.Accounts().UpdateTwoFactor(ctx, accountID, state); err != nil {
		return err
	}

	if asAdmin {
		go s.notifyDisabled(acc.Email, normalized)
	}
	return nil
}

func (s *TwoFactorServiceImpl) notifyDisabled(to, factor string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.mailer.SendTwoFactorDisabled(ctx, to, factor); err != nil {
		slog.Warn("2fa disabled notification failed", "error", err)
	}
}

// newNumericCode returns n crypto-random decimal digits.
func newNumericCode(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits), nil
}
