package impl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"atelier/internal/domain"
	"atelier/internal/service"
)

func newAccessForTest(m *memoryStore) *AccessServiceImpl {
	return &AccessServiceImpl{store: m, now: time.Now}
}

func identityFor(id uuid.UUID, email string) service.Identity {
	return service.Identity{AccountID: &id, Email: email}
}

func TestResolveProjectByIDAndSlug(t *testing.T) {
	m := newMemoryStore()
	p := m.addProject(&domain.Project{Slug: "wavetable-synth", Title: "Wavetable Synth"})
	svc := newAccessForTest(m)
	ctx := context.Background()

	byID, err := svc.ResolveProject(ctx, p.ID.String())
	if err != nil || byID.ID != p.ID {
		t.Fatalf("resolve by id: %v %+v", err, byID)
	}
	bySlug, err := svc.ResolveProject(ctx, "wavetable-synth")
	if err != nil || bySlug.ID != p.ID {
		t.Fatalf("resolve by slug: %v %+v", err, bySlug)
	}
	if _, err := svc.ResolveProject(ctx, "no-such-slug"); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
	if _, err := svc.ResolveProject(ctx, uuid.NewString()); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound for unknown id, got %v", err)
	}
}

func TestFreeProjectAlwaysAccessible(t *testing.T) {
	m := newMemoryStore()
	p := m.addProject(&domain.Project{Slug: "free-kit", Price: 0, DownloadLimit: 5})
	svc := newAccessForTest(m)

	ok, err := svc.HasAccess(context.Background(), service.Identity{}, m.projects[p.ID])
	if err != nil || !ok {
		t.Fatalf("anonymous access to a free project: ok=%v err=%v", ok, err)
	}
}

func TestPaidProjectDeniedWithoutGrant(t *testing.T) {
	m := newMemoryStore()
	p := m.addProject(&domain.Project{Slug: "paid-kit", Price: 2900, IsPaid: true})
	svc := newAccessForTest(m)

	ok, err := svc.HasAccess(context.Background(), identityFor(uuid.New(), "bob@example.com"), m.projects[p.ID])
	if err != nil || ok {
		t.Fatalf("expected denial: ok=%v err=%v", ok, err)
	}
}

func TestAllAccessSubscriptionGrantsPaidProject(t *testing.T) {
	m := newMemoryStore()
	p := m.addProject(&domain.Project{Slug: "paid-kit", Price: 2900})
	accID := uuid.New()
	m.subs = append(m.subs, &domain.Subscription{
		ID:        uuid.New(),
		AccountID: &accID,
		PlanType:  domain.PlanAllAccess,
		IsActive:  true,
		EndDate:   time.Now().Add(30 * 24 * time.Hour),
		CreatedAt: time.Now(),
	})
	svc := newAccessForTest(m)

	ok, err := svc.HasAccess(context.Background(), identityFor(accID, "bob@example.com"), m.projects[p.ID])
	if err != nil || !ok {
		t.Fatalf("expected grant via subscription: ok=%v err=%v", ok, err)
	}
}

func TestLapsedSubscriptionDoesNotGrant(t *testing.T) {
	m := newMemoryStore()
	p := m.addProject(&domain.Project{Slug: "paid-kit", Price: 2900})
	accID := uuid.New()
	m.subs = append(m.subs, &domain.Subscription{
		ID:        uuid.New(),
		AccountID: &accID,
		PlanType:  domain.PlanAllAccess,
		IsActive:  true,
		EndDate:   time.Now().Add(-time.Hour), // past end date, flag not yet swept
		CreatedAt: time.Now(),
	})
	svc := newAccessForTest(m)

	ok, err := svc.HasAccess(context.Background(), identityFor(accID, "bob@example.com"), m.projects[p.ID])
	if err != nil || ok {
		t.Fatalf("expected denial for lapsed subscription: ok=%v err=%v", ok, err)
	}
}

func TestOlderActiveSubscriptionBeatsNewerCancelled(t *testing.T) {
	m := newMemoryStore()
	p := m.addProject(&domain.Project{Slug: "paid-kit", Price: 2900})
	accID := uuid.New()
	m.subs = append(m.subs,
		&domain.Subscription{
			ID:        uuid.New(),
			AccountID: &accID,
			PlanType:  domain.PlanAllAccess,
			IsActive:  true,
			EndDate:   time.Now().Add(30 * 24 * time.Hour),
			CreatedAt: time.Now().Add(-48 * time.Hour),
		},
		// A later cancelled row must not shadow the active one.
		&domain.Subscription{
			ID:        uuid.New(),
			AccountID: &accID,
			PlanType:  domain.PlanAllAccess,
			IsActive:  false,
			EndDate:   time.Now().Add(30 * 24 * time.Hour),
			CreatedAt: time.Now().Add(-time.Hour),
		},
	)
	svc := newAccessForTest(m)

	ok, err := svc.HasAccess(context.Background(), identityFor(accID, "bob@example.com"), m.projects[p.ID])
	if err != nil || !ok {
		t.Fatalf("active subscription must grant regardless of newer cancelled rows: ok=%v err=%v", ok, err)
	}
}

func TestEmailOnlySubscriptionLookup(t *testing.T) {
	m := newMemoryStore()
	p := m.addProject(&domain.Project{Slug: "paid-kit", Price: 2900})
	m.subs = append(m.subs, &domain.Subscription{
		ID:        uuid.New(),
		Email:     "Guest@Example.com",
		PlanType:  domain.PlanAllAccess,
		IsActive:  true,
		EndDate:   time.Now().Add(24 * time.Hour),
		CreatedAt: time.Now(),
	})
	svc := newAccessForTest(m)

	ok, err := svc.HasAccess(context.Background(), service.Identity{Email: "guest@example.com"}, m.projects[p.ID])
	if err != nil || !ok {
		t.Fatalf("expected grant via email subscription: ok=%v err=%v", ok, err)
	}
}

func TestCompletedPurchaseGrantsProject(t *testing.T) {
	m := newMemoryStore()
	p := m.addProject(&domain.Project{Slug: "paid-kit", Price: 2900})
	accID := uuid.New()
	m.purchases = append(m.purchases, &domain.ProjectPurchase{
		ID:        uuid.New(),
		AccountID: &accID,
		ProjectID: p.ID,
		Status:    domain.PurchaseCompleted,
	})
	svc := newAccessForTest(m)

	ok, err := svc.HasAccess(context.Background(), identityFor(accID, "bob@example.com"), m.projects[p.ID])
	if err != nil || !ok {
		t.Fatalf("expected grant via purchase: ok=%v err=%v", ok, err)
	}
}

func TestPendingPurchaseDoesNotGrant(t *testing.T) {
	m := newMemoryStore()
	p := m.addProject(&domain.Project{Slug: "paid-kit", Price: 2900})
	accID := uuid.New()
	m.purchases = append(m.purchases, &domain.ProjectPurchase{
		ID:        uuid.New(),
		AccountID: &accID,
		ProjectID: p.ID,
		Status:    domain.PurchasePending,
	})
	svc := newAccessForTest(m)

	ok, err := svc.HasAccess(context.Background(), identityFor(accID, "bob@example.com"), m.projects[p.ID])
	if err != nil || ok {
		t.Fatalf("pending purchase must not grant: ok=%v err=%v", ok, err)
	}
}

func TestStoreFailureDeniesAccess(t *testing.T) {
	m := newMemoryStore()
	p := m.addProject(&domain.Project{Slug: "paid-kit", Price: 2900})
	m.subErr = errors.New("backend down")
	svc := newAccessForTest(m)

	ok, err := svc.HasAccess(context.Background(), identityFor(uuid.New(), "bob@example.com"), m.projects[p.ID])
	if err == nil || ok {
		t.Fatalf("store failure must fail closed: ok=%v err=%v", ok, err)
	}

	m.subErr = nil
	m.purchaseErr = errors.New("backend down")
	ok, err = svc.HasAccess(context.Background(), identityFor(uuid.New(), "bob@example.com"), m.projects[p.ID])
	if err == nil || ok {
		t.Fatalf("purchase lookup failure must fail closed: ok=%v err=%v", ok, err)
	}
}

func TestDownloadQuotaFlipsFreeProjectToPaid(t *testing.T) {
	m := newMemoryStore()
	p := m.addProject(&domain.Project{Slug: "free-kit", Price: 0, DownloadLimit: 5})
	svc := newAccessForTest(m)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := svc.RecordDownload(ctx, m.projects[p.ID]); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if m.projects[p.ID].IsPaidAfterLimit {
			t.Fatalf("flip happened too early at download %d", i+1)
		}
	}
	if err := svc.RecordDownload(ctx, m.projects[p.ID]); err != nil {
		t.Fatalf("record 5th: %v", err)
	}
	stored := m.projects[p.ID]
	if stored.DownloadCount != 5 || !stored.IsPaidAfterLimit {
		t.Fatalf("expected flip at the limit, got count=%d flipped=%v", stored.DownloadCount, stored.IsPaidAfterLimit)
	}

	// The flip is a billing marker, not an access gate: the content keeps
	// being served and keeps counting.
	ok, err := svc.HasAccess(ctx, service.Identity{}, stored)
	if err != nil || !ok {
		t.Fatalf("flipped project must remain accessible: ok=%v err=%v", ok, err)
	}
	if err := svc.RecordDownload(ctx, stored); err != nil {
		t.Fatalf("record after flip: %v", err)
	}
	if m.projects[p.ID].DownloadCount != 6 {
		t.Fatalf("expected count to keep advancing, got %d", m.projects[p.ID].DownloadCount)
	}
}

func TestPaidProjectDownloadsAreNotCounted(t *testing.T) {
	m := newMemoryStore()
	p := m.addProject(&domain.Project{Slug: "paid-kit", Price: 2900, DownloadLimit: 5})
	svc := newAccessForTest(m)

	if err := svc.RecordDownload(context.Background(), m.projects[p.ID]); err != nil {
		t.Fatalf("record: %v", err)
	}
	if m.projects[p.ID].DownloadCount != 0 {
		t.Fatalf("paid project must not feed the free quota counter")
	}
}
