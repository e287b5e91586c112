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

type SubscriptionStore struct{ db *gorm.DB }

func (s *Store) Subscriptions() *SubscriptionStore { return &SubscriptionStore{db: s.DB} }

// LatestAllAccess returns the most recently created all-access subscription
// that is active at the given instant, matched by account id when present,
// else by email. The activity predicate belongs in the query: a newer
// cancelled row must not shadow an older still-active one.
func (s *SubscriptionStore) LatestAllAccess(ctx context.Context, accountID *uuid.UUID, email string, now time.Time) (*domain.Subscription, error) {
	q := s.db.WithContext(ctx).
		Where("plan_type = ?", domain.PlanAllAccess).
		Where("is_active = ? AND end_date > ?", true, now)
	if accountID != nil {
		q = q.Where("account_id = ?", *accountID)
	} else {
		q = q.Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email)))
	}
	var sub domain.Subscription
	if err := q.Order("created_at DESC").First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &sub, nil
}

type PurchaseStore struct{ db *gorm.DB }

func (s *Store) Purchases() *PurchaseStore { return &PurchaseStore{db: s.DB} }

// HasCompleted reports whether the identity holds a completed purchase of the
// given project.
func (p *PurchaseStore) HasCompleted(ctx context.Context, accountID *uuid.UUID, email string, projectID uuid.UUID) (bool, error) {
	q := p.db.WithContext(ctx).Model(&domain.ProjectPurchase{}).
		Where("project_id = ? AND status = ?", projectID, domain.PurchaseCompleted)
	if accountID != nil {
		q = q.Where("account_id = ?", *accountID)
	} else {
		q = q.Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email)))
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
