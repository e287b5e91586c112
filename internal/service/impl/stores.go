package impl

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"atelier/internal/domain"
	"atelier/internal/store"
)

// Narrow store interfaces so services can be tested against in-memory fakes;
// *store.Store satisfies them through the adapters below.

type accountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdatePassword(ctx context.Context, accountID uuid.UUID, hash string) error
	UpdateLastLogin(ctx context.Context, accountID uuid.UUID, at time.Time) error
	UpdateTwoFactor(ctx context.Context, accountID uuid.UUID, state domain.TwoFactorState) error
}

type attemptStore interface {
	Append(ctx context.Context, attempt *domain.LoginAttempt) error
	GetByChallenge(ctx context.Context, accountID uuid.UUID, challenge string) (*domain.LoginAttempt, error)
	Complete(ctx context.Context, attemptID uuid.UUID, at time.Time) error
	History(ctx context.Context, accountID uuid.UUID) ([]domain.LoginAttempt, error)
	MarkLoggedOut(ctx context.Context, accountID uuid.UUID, at time.Time, ip string, success bool) error
}

type subscriptionStore interface {
	LatestAllAccess(ctx context.Context, accountID *uuid.UUID, email string, now time.Time) (*domain.Subscription, error)
}

type purchaseStore interface {
	HasCompleted(ctx context.Context, accountID *uuid.UUID, email string, projectID uuid.UUID) (bool, error)
}

type projectStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Project, error)
	IncrementDownload(ctx context.Context, id uuid.UUID) error
}

type authStore interface {
	Accounts() accountStore
	Attempts() attemptStore
	WithTx(ctx context.Context, fn func(tx authStore) error) error
}

type paymentStore interface {
	Projects() projectStore
	Subscriptions() subscriptionStore
	Purchases() purchaseStore
}

type gormStoreAdapter struct {
	store *store.Store
}

func (g gormStoreAdapter) Accounts() accountStore { return g.store.Accounts() }
func (g gormStoreAdapter) Attempts() attemptStore { return g.store.Attempts() }

func (g gormStoreAdapter) Projects() projectStore           { return g.store.Projects() }
func (g gormStoreAdapter) Subscriptions() subscriptionStore { return g.store.Subscriptions() }
func (g gormStoreAdapter) Purchases() purchaseStore         { return g.store.Purchases() }

func (g gormStoreAdapter) WithTx(ctx context.Context, fn func(tx authStore) error) error {
	if g.store == nil {
		return errors.New("nil store")
	}
	return g.store.WithTx(ctx, func(tx *store.Store) error {
		return fn(gormStoreAdapter{store: tx})
	})
}
