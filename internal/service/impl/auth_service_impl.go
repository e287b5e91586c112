package impl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"

	"atelier/internal/domain"
	"atelier/internal/dto"
	"atelier/internal/netutil"
	"atelier/internal/observability/metrics"
	"atelier/internal/service"
	"atelier/internal/store"
)

const emailOTPTTL = 10 * time.Minute

// errEmailCodeExpired distinguishes the expiry case internally so the stale
// code gets cleared outside the rolling-back transaction; clients see it as a
// plain invalid second factor.
var errEmailCodeExpired = fmt.Errorf("email code expired: %w", domain.ErrInvalidSecondFactor)

type AuthServiceImpl struct {
	store     authStore
	passwords *PasswordVerifier
	tokens    service.TokenService
	mailer    service.Mailer

	minPasswordLen int
	now            func() time.Time
}

func NewAuthServiceImpl(st *store.Store, pw *PasswordVerifier, tokens service.TokenService, mailer service.Mailer, minPasswordLen int) *AuthServiceImpl {
	return &AuthServiceImpl{
		store:          gormStoreAdapter{store: st},
		passwords:      pw,
		tokens:         tokens,
		mailer:         mailer,
		minPasswordLen: minPasswordLen,
		now:            time.Now,
	}
}

// Login runs the credential check and either completes the login or parks it
// behind a second-factor challenge. Malformed input never reaches the account
// lookup and leaves no audit entry.
func (s *AuthServiceImpl) Login(ctx context.Context, r dto.LoginRequest, ip, ua string) (*dto.LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(r.Email))
	if email == "" || !strings.Contains(email, "@") || len(r.Password) < s.minPasswordLen {
		return nil, ErrInvalidInput
	}

	var (
		result   *dto.LoginResult
		alertTo  string
		alertAt  time.Time
		alertDev string
		// Failed logins are audited even though the transaction rolls back,
		// so the append happens after WithTx returns.
		auditFail *uuid.UUID
	)
	device := netutil.DeviceLabel(ua)
	ua = netutil.TruncateUserAgent(ua)

	err := s.store.WithTx(ctx, func(tx authStore) error {
		acc, err := tx.Accounts().GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				// Indistinguishable from a wrong password; no account, no audit row.
				return domain.ErrInvalidCredentials
			}
			return err
		}

		if acc.Status != domain.StatusActive {
			auditFail = &acc.ID
			return domain.ErrAccountNotActive
		}

		if acc.Password == nil {
			auditFail = &acc.ID
			return domain.ErrInvalidCredentials
		}
		ok, migrate := s.passwords.Verify(r.Password, *acc.Password)
		if !ok {
			auditFail = &acc.ID
			return domain.ErrInvalidCredentials
		}
		if migrate {
			hash, herr := s.passwords.Hash(r.Password)
			if herr != nil {
				return herr
			}
			if uerr := tx.Accounts().UpdatePassword(ctx, acc.ID, hash); uerr != nil {
				return uerr
			}
			slog.InfoContext(ctx, "migrated legacy secret", "account_id", acc.ID)
		}

		method := acc.SecondFactorMethod()
		if method == "" {
			now := s.now().UTC()
			if aerr := s.appendAttempt(ctx, tx, acc.ID, ip, ua, device, true, nil); aerr != nil {
				return aerr
			}
			if uerr := tx.Accounts().UpdateLastLogin(ctx, acc.ID, now); uerr != nil {
				return uerr
			}
			token, terr := s.tokens.Issue(acc)
			if terr != nil {
				return terr
			}
			result = &dto.LoginResult{Token: token, UserID: acc.ID.String(), Role: string(acc.Role)}
			if acc.LoginAlerts {
				alertTo, alertAt, alertDev = acc.Email, now, device
			}
			return nil
		}

		// Second factor pending: the attempt goes in provisionally unsuccessful
		// and carries the challenge token the verify call must present.
		challenge := uuid.NewString()
		if aerr := s.appendAttempt(ctx, tx, acc.ID, ip, ua, device, false, &challenge); aerr != nil {
			return aerr
		}
		if method == domain.FactorEmail {
			if derr := s.issueEmailCode(ctx, tx, acc); derr != nil {
				// A login that cannot deliver its code must fail outright
				// rather than proceed without a second factor.
				return derr
			}
		}
		result = &dto.LoginResult{
			Requires2FA: true,
			Method:      method,
			Challenge:   challenge,
			UserID:      acc.ID.String(),
		}
		return nil
	})
	if err != nil {
		if auditFail != nil {
			if aerr := s.appendAttempt(ctx, s.store, *auditFail, ip, ua, device, false, nil); aerr != nil {
				slog.ErrorContext(ctx, "failed-login audit append failed", "account_id", *auditFail, "error", aerr)
			}
		}
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	if result.Requires2FA {
		metrics.LoginsTotal.WithLabelValues("pending_2fa").Inc()
	} else {
		metrics.LoginsTotal.WithLabelValues("success").Inc()
		if alertTo != "" {
			go s.sendLoginAlert(alertTo, alertAt, ip, alertDev)
		}
	}
	return result, nil
}

// VerifyTwoFactor finishes a pending login (challenge present) or confirms a
// factor setup (challenge absent). Code consumption and attempt completion
// happen in one transaction.
func (s *AuthServiceImpl) VerifyTwoFactor(ctx context.Context, r dto.VerifyTwoFactorRequest, ip, ua string) (*dto.LoginResult, error) {
	accountID, err := uuid.Parse(strings.TrimSpace(r.UserID))
	if err != nil {
		return nil, ErrInvalidInput
	}
	code := strings.TrimSpace(r.Data)
	if code == "" {
		return nil, ErrInvalidInput
	}

	var (
		result   *dto.LoginResult
		alertTo  string
		alertAt  time.Time
		alertDev string
	)
	device := netutil.DeviceLabel(ua)

	err = s.store.WithTx(ctx, func(tx authStore) error {
		acc, err := tx.Accounts().GetByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrAccountNotFound
			}
			return err
		}
		if acc.Status != domain.StatusActive {
			return domain.ErrAccountNotActive
		}

		switch strings.ToLower(strings.TrimSpace(r.Type)) {
		case domain.FactorTOTP:
			if err := s.verifyTOTP(ctx, tx, acc, code); err != nil {
				return err
			}
		case domain.FactorEmail:
			if err := s.verifyEmailCode(ctx, tx, acc, code); err != nil {
				return err
			}
		default:
			return ErrUnknownFactor
		}

		if r.Challenge == "" {
			// Setup confirmation: no pending attempt, no fresh token.
			result = &dto.LoginResult{UserID: acc.ID.String(), Role: string(acc.Role)}
			return nil
		}

		attempt, err := tx.Attempts().GetByChallenge(ctx, acc.ID, r.Challenge)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrChallengeMismatch
			}
			return err
		}
		now := s.now().UTC()
		if err := tx.Attempts().Complete(ctx, attempt.ID, now); err != nil {
			return err
		}
		if err := tx.Accounts().UpdateLastLogin(ctx, acc.ID, now); err != nil {
			return err
		}
		token, terr := s.tokens.Issue(acc)
		if terr != nil {
			return terr
		}
		result = &dto.LoginResult{Token: token, UserID: acc.ID.String(), Role: string(acc.Role)}
		if acc.LoginAlerts {
			alertTo, alertAt, alertDev = acc.Email, now, device
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errEmailCodeExpired) {
			// Expired codes are cleared on the spot, not left lying around.
			s.clearEmailCode(ctx, accountID)
		}
		metrics.TwoFactorTotal.WithLabelValues(r.Type, "failure").Inc()
		return nil, err
	}

	metrics.TwoFactorTotal.WithLabelValues(r.Type, "success").Inc()
	if alertTo != "" {
		go s.sendLoginAlert(alertTo, alertAt, ip, alertDev)
	}
	return result, nil
}

func (s *AuthServiceImpl) History(ctx context.Context, accountID uuid.UUID) ([]domain.LoginAttempt, error) {
	return s.store.Attempts().History(ctx, accountID)
}

func (s *AuthServiceImpl) MarkLoggedOut(ctx context.Context, accountID uuid.UUID, at time.Time, ip string, success bool) error {
	return s.store.Attempts().MarkLoggedOut(ctx, accountID, at, ip, success)
}

func (s *AuthServiceImpl) verifyTOTP(ctx context.Context, tx authStore, acc *domain.Account, code string) error {
	if acc.TOTPSecret == nil || *acc.TOTPSecret == "" {
		return domain.ErrFactorNotEnabled
	}
	if !totp.Validate(code, *acc.TOTPSecret) {
		return domain.ErrInvalidSecondFactor
	}
	if !acc.TOTPEnabled {
		// First verification against a fresh secret confirms the setup.
		state := acc.TwoFactor()
		state.TOTPEnabled = true
		if err := tx.Accounts().UpdateTwoFactor(ctx, acc.ID, state); err != nil {
			return err
		}
		acc.ApplyTwoFactor(state)
	}
	return nil
}

func (s *AuthServiceImpl) verifyEmailCode(ctx context.Context, tx authStore, acc *domain.Account, code string) error {
	if !acc.EmailOTPEnabled {
		return domain.ErrFactorNotEnabled
	}
	if acc.EmailOTPCode == nil || acc.EmailOTPExpiry == nil {
		return domain.ErrInvalidSecondFactor
	}
	state := acc.TwoFactor()
	if !s.now().Before(*acc.EmailOTPExpiry) {
		// Clearing inside this transaction would roll back with the failed
		// verification; the caller clears it in its own write.
		return errEmailCodeExpired
	}
	if *acc.EmailOTPCode != code {
		return domain.ErrInvalidSecondFactor
	}
	// Single use: clearing the code is part of the same transaction that
	// completes the pending attempt.
	state.EmailOTPCode, state.EmailOTPExpiry = nil, nil
	if err := tx.Accounts().UpdateTwoFactor(ctx, acc.ID, state); err != nil {
		return err
	}
	acc.ApplyTwoFactor(state)
	return nil
}

// issueEmailCode generates a fresh 6-digit code, overwrites any previous one,
// and dispatches it synchronously. Dispatch failure aborts the login.
func (s *AuthServiceImpl) issueEmailCode(ctx context.Context, tx authStore, acc *domain.Account) error {
	code, err := newNumericCode(6)
	if err != nil {
		return err
	}
	expiry := s.now().UTC().Add(emailOTPTTL)
	state := acc.TwoFactor()
	state.EmailOTPCode, state.EmailOTPExpiry = &code, &expiry
	if err := tx.Accounts().UpdateTwoFactor(ctx, acc.ID, state); err != nil {
		return err
	}
	acc.ApplyTwoFactor(state)
	if err := s.mailer.SendOneTimeCode(ctx, acc.Email, code, expiry); err != nil {
		slog.ErrorContext(ctx, "one-time code dispatch failed", "account_id", acc.ID, "error", err)
		return ErrMailDispatch
	}
	return nil
}

// clearEmailCode drops an expired one-time code in its own write, after the
// failed verification transaction has already rolled back.
func (s *AuthServiceImpl) clearEmailCode(ctx context.Context, accountID uuid.UUID) {
	acc, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		slog.ErrorContext(ctx, "expired code cleanup lookup failed", "account_id", accountID, "error", err)
		return
	}
	state := acc.TwoFactor()
	state.EmailOTPCode, state.EmailOTPExpiry = nil, nil
	if err := s.store.Accounts().UpdateTwoFactor(ctx, accountID, state); err != nil {
		slog.ErrorContext(ctx, "expired code cleanup failed", "account_id", accountID, "error", err)
	}
}

func (s *AuthServiceImpl) appendAttempt(ctx context.Context, tx authStore, accountID uuid.UUID, ip, ua, device string, success bool, challenge *string) error {
	return tx.Attempts().Append(ctx, &domain.LoginAttempt{
		AccountID:   accountID,
		IP:          ip,
		UserAgent:   ua,
		Device:      device,
		Success:     success,
		ChallengeID: challenge,
		CreatedAt:   s.now().UTC(),
	})
}

func (s *AuthServiceImpl) sendLoginAlert(to string, at time.Time, ip, device string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.mailer.SendLoginAlert(ctx, to, at, ip, device); err != nil {
		slog.Warn("login alert dispatch failed", "error", err)
	}
}
