package impl

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"atelier/internal/domain"
	"atelier/internal/dto"
	"atelier/internal/store"
)

// In-memory store shared by the service tests. WithTx snapshots the mutable
// tables and restores them when the closure fails, mirroring a rollback.
type memoryStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account
	emailIdx map[string]uuid.UUID
	attempts []*domain.LoginAttempt

	projects  map[uuid.UUID]*domain.Project
	slugIdx   map[string]uuid.UUID
	subs      []*domain.Subscription
	purchases []*domain.ProjectPurchase

	subErr      error
	purchaseErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts: make(map[uuid.UUID]*domain.Account),
		emailIdx: make(map[string]uuid.UUID),
		projects: make(map[uuid.UUID]*domain.Project),
		slugIdx:  make(map[string]uuid.UUID),
	}
}

func (m *memoryStore) Accounts() accountStore           { return &memAccounts{m} }
func (m *memoryStore) Attempts() attemptStore           { return &memAttempts{m} }
func (m *memoryStore) Projects() projectStore           { return &memProjects{m} }
func (m *memoryStore) Subscriptions() subscriptionStore { return &memSubscriptions{m} }
func (m *memoryStore) Purchases() purchaseStore         { return &memPurchases{m} }

func (m *memoryStore) WithTx(ctx context.Context, fn func(tx authStore) error) error {
	accounts := make(map[uuid.UUID]*domain.Account, len(m.accounts))
	for id, acc := range m.accounts {
		cp := *acc
		accounts[id] = &cp
	}
	attempts := make([]*domain.LoginAttempt, len(m.attempts))
	for i, a := range m.attempts {
		cp := *a
		attempts[i] = &cp
	}
	if err := fn(m); err != nil {
		m.accounts = accounts
		m.attempts = attempts
		return err
	}
	return nil
}

func (m *memoryStore) addAccount(acc *domain.Account) *domain.Account {
	if acc.ID == uuid.Nil {
		acc.ID = uuid.New()
	}
	cp := *acc
	m.accounts[acc.ID] = &cp
	m.emailIdx[strings.ToLower(acc.Email)] = acc.ID
	return acc
}

func (m *memoryStore) addProject(p *domain.Project) *domain.Project {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	m.projects[p.ID] = &cp
	m.slugIdx[p.Slug] = p.ID
	return p
}

func (m *memoryStore) account(id uuid.UUID) domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.accounts[id]
}

func (m *memoryStore) attemptsFor(id uuid.UUID) []domain.LoginAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.LoginAttempt
	for _, a := range m.attempts {
		if a.AccountID == id {
			out = append(out, *a)
		}
	}
	return out
}

type memAccounts struct{ m *memoryStore }

func (s *memAccounts) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	acc, ok := s.m.accounts[id]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	cp := *acc
	return &cp, nil
}

func (s *memAccounts) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	id, ok := s.m.emailIdx[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *memAccounts) UpdatePassword(ctx context.Context, accountID uuid.UUID, hash string) error {
	acc, ok := s.m.accounts[accountID]
	if !ok {
		return store.ErrRecordNotFound
	}
	acc.Password = &hash
	return nil
}

func (s *memAccounts) UpdateLastLogin(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	acc, ok := s.m.accounts[accountID]
	if !ok {
		return store.ErrRecordNotFound
	}
	acc.LastLogin = &at
	return nil
}

func (s *memAccounts) UpdateTwoFactor(ctx context.Context, accountID uuid.UUID, state domain.TwoFactorState) error {
	acc, ok := s.m.accounts[accountID]
	if !ok {
		return store.ErrRecordNotFound
	}
	acc.ApplyTwoFactor(state)
	return nil
}

type memAttempts struct{ m *memoryStore }

func (s *memAttempts) Append(ctx context.Context, attempt *domain.LoginAttempt) error {
	cp := *attempt
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	s.m.attempts = append(s.m.attempts, &cp)
	return nil
}

func (s *memAttempts) GetByChallenge(ctx context.Context, accountID uuid.UUID, challenge string) (*domain.LoginAttempt, error) {
	for _, a := range s.m.attempts {
		if a.AccountID == accountID && a.ChallengeID != nil && *a.ChallengeID == challenge {
			cp := *a
			return &cp, nil
		}
	}
	return nil, store.ErrRecordNotFound
}

func (s *memAttempts) Complete(ctx context.Context, attemptID uuid.UUID, at time.Time) error {
	for _, a := range s.m.attempts {
		if a.ID == attemptID {
			a.Success = true
			a.CreatedAt = at
			a.ChallengeID = nil
			return nil
		}
	}
	return store.ErrRecordNotFound
}

func (s *memAttempts) History(ctx context.Context, accountID uuid.UUID) ([]domain.LoginAttempt, error) {
	var out []domain.LoginAttempt
	for _, a := range s.m.attempts {
		if a.AccountID == accountID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memAttempts) MarkLoggedOut(ctx context.Context, accountID uuid.UUID, at time.Time, ip string, success bool) error {
	for _, a := range s.m.attempts {
		if a.AccountID == accountID && a.CreatedAt.Equal(at) && a.IP == ip && a.Success == success {
			a.LoggedOut = true
		}
	}
	return nil
}

type memProjects struct{ m *memoryStore }

func (s *memProjects) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	p, ok := s.m.projects[id]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memProjects) GetBySlug(ctx context.Context, slug string) (*domain.Project, error) {
	id, ok := s.m.slugIdx[slug]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *memProjects) IncrementDownload(ctx context.Context, id uuid.UUID) error {
	p, ok := s.m.projects[id]
	if !ok {
		return store.ErrRecordNotFound
	}
	p.DownloadCount++
	if p.DownloadCount >= p.DownloadLimit {
		p.IsPaidAfterLimit = true
	}
	return nil
}

type memSubscriptions struct{ m *memoryStore }

func (s *memSubscriptions) LatestAllAccess(ctx context.Context, accountID *uuid.UUID, email string, now time.Time) (*domain.Subscription, error) {
	if s.m.subErr != nil {
		return nil, s.m.subErr
	}
	var latest *domain.Subscription
	for _, sub := range s.m.subs {
		if sub.PlanType != domain.PlanAllAccess {
			continue
		}
		if !sub.IsActive || !sub.EndDate.After(now) {
			continue
		}
		match := false
		if accountID != nil && sub.AccountID != nil && *sub.AccountID == *accountID {
			match = true
		} else if accountID == nil && email != "" && strings.EqualFold(sub.Email, email) {
			match = true
		}
		if !match {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) {
			latest = sub
		}
	}
	if latest == nil {
		return nil, store.ErrRecordNotFound
	}
	cp := *latest
	return &cp, nil
}

type memPurchases struct{ m *memoryStore }

func (s *memPurchases) HasCompleted(ctx context.Context, accountID *uuid.UUID, email string, projectID uuid.UUID) (bool, error) {
	if s.m.purchaseErr != nil {
		return false, s.m.purchaseErr
	}
	for _, p := range s.m.purchases {
		if p.ProjectID != projectID || p.Status != domain.PurchaseCompleted {
			continue
		}
		if accountID != nil && p.AccountID != nil && *p.AccountID == *accountID {
			return true, nil
		}
		if accountID == nil && email != "" && strings.EqualFold(p.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

type sentCode struct {
	to   string
	code string
}

type stubMailer struct {
	mu       sync.Mutex
	codeErr  error
	codes    []sentCode
	alerts   []string
	disabled []string
}

func (s *stubMailer) SendOneTimeCode(ctx context.Context, to, code string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codeErr != nil {
		return s.codeErr
	}
	s.codes = append(s.codes, sentCode{to: to, code: code})
	return nil
}

func (s *stubMailer) SendLoginAlert(ctx context.Context, to string, at time.Time, ip, device string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, to)
	return nil
}

func (s *stubMailer) SendTwoFactorDisabled(ctx context.Context, to, factor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = append(s.disabled, to)
	return nil
}

func (s *stubMailer) lastCode() (sentCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codes) == 0 {
		return sentCode{}, false
	}
	return s.codes[len(s.codes)-1], true
}

type stubTokens struct {
	issueErr error
	issued   []uuid.UUID
}

func (s *stubTokens) Issue(account *domain.Account) (string, error) {
	if s.issueErr != nil {
		return "", s.issueErr
	}
	s.issued = append(s.issued, account.ID)
	return "token-" + account.ID.String(), nil
}

func (s *stubTokens) Validate(token string) (*dto.SessionClaims, error) {
	return nil, errors.New("not implemented")
}
