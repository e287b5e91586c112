package impl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"atelier/internal/domain"
	"atelier/internal/observability/metrics"
	"atelier/internal/service"
	"atelier/internal/store"
)

// AccessServiceImpl resolves entitlements against the payment store. Store
// failures deny access (fail closed).
type AccessServiceImpl struct {
	store paymentStore
	now   func() time.Time
}

func NewAccessServiceImpl(st *store.Store) *AccessServiceImpl {
	return &AccessServiceImpl{
		store: gormStoreAdapter{store: st},
		now:   time.Now,
	}
}

func (s *AccessServiceImpl) ResolveProject(ctx context.Context, idOrSlug string) (*domain.Project, error) {
	if id, err := uuid.Parse(idOrSlug); err == nil {
		proj, err := s.store.Projects().GetByID(ctx, id)
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrProjectNotFound
		}
		return proj, err
	}
	proj, err := s.store.Projects().GetBySlug(ctx, idOrSlug)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, domain.ErrProjectNotFound
	}
	return proj, err
}

// HasAccess applies the entitlement rules in order: paid items that have not
// flipped to paid-after-limit need a grant (subscription or purchase);
// everything else is served unconditionally. Price is authoritative over the
// stored IsPaid flag.
func (s *AccessServiceImpl) HasAccess(ctx context.Context, who service.Identity, project *domain.Project) (bool, error) {
	if project == nil {
		return false, domain.ErrProjectNotFound
	}
	if !project.EffectivelyPaid() || project.IsPaidAfterLimit {
		// Paid-after-limit is a billing flag, not an access gate, once the
		// content has already been served past its free quota.
		return true, nil
	}

	sub, err := s.store.Subscriptions().LatestAllAccess(ctx, who.AccountID, who.Email, s.now())
	switch {
	case err == nil:
		if sub.ActiveAt(s.now()) {
			return true, nil
		}
	case !errors.Is(err, store.ErrRecordNotFound):
		slog.ErrorContext(ctx, "subscription lookup failed", "project_id", project.ID, "error", err)
		return false, err
	}

	purchased, err := s.store.Purchases().HasCompleted(ctx, who.AccountID, who.Email, project.ID)
	if err != nil {
		slog.ErrorContext(ctx, "purchase lookup failed", "project_id", project.ID, "error", err)
		return false, err
	}
	return purchased, nil
}

// RecordDownload accounts a served download. Only originally-free items feed
// the quota counter; the paid-after-limit flip happens atomically with the
// increment and never reverts.
func (s *AccessServiceImpl) RecordDownload(ctx context.Context, project *domain.Project) error {
	if project == nil {
		return domain.ErrProjectNotFound
	}
	if !project.FreeQuotaItem() {
		return nil
	}
	if err := s.store.Projects().IncrementDownload(ctx, project.ID); err != nil {
		return err
	}
	metrics.DownloadsTotal.WithLabelValues("granted").Inc()
	return nil
}
