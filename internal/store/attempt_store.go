package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"atelier/internal/domain"
)

type AttemptStore struct{ db *gorm.DB }

func (s *Store) Attempts() *AttemptStore { return &AttemptStore{db: s.DB} }

func (a *AttemptStore) Append(ctx context.Context, attempt *domain.LoginAttempt) error {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	return a.db.WithContext(ctx).Create(attempt).Error
}

// GetByChallenge loads the pending attempt correlated with a second-factor
// challenge token. Completed attempts drop their token, so a hit is always a
// pending one.
func (a *AttemptStore) GetByChallenge(ctx context.Context, accountID uuid.UUID, challenge string) (*domain.LoginAttempt, error) {
	var attempt domain.LoginAttempt
	err := a.db.WithContext(ctx).
		First(&attempt, "account_id = ? AND challenge_id = ?", accountID, challenge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// Complete marks a pending attempt successful, moves its timestamp to the
// verification time, and clears the challenge token so it is single-use.
func (a *AttemptStore) Complete(ctx context.Context, attemptID uuid.UUID, at time.Time) error {
	return a.db.WithContext(ctx).Model(&domain.LoginAttempt{}).
		Where("id = ?", attemptID).
		Updates(map[string]interface{}{
			"success":      true,
			"created_at":   at,
			"challenge_id": nil,
		}).Error
}

// History returns the account's attempts newest-first for display; the
// underlying storage order stays insertion order.
func (a *AttemptStore) History(ctx context.Context, accountID uuid.UUID) ([]domain.LoginAttempt, error) {
	var out []domain.LoginAttempt
	err := a.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// MarkLoggedOut sets the logged-out flag on the attempt matching the exact
// timestamp+origin+success triple. Best effort: no match is not an error.
func (a *AttemptStore) MarkLoggedOut(ctx context.Context, accountID uuid.UUID, at time.Time, ip string, success bool) error {
	return a.db.WithContext(ctx).Model(&domain.LoginAttempt{}).
		Where("account_id = ? AND created_at = ? AND ip = ? AND success = ?", accountID, at, ip, success).
		Update("logged_out", true).Error
}
