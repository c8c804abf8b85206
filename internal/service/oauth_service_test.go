package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/launchsignal/api/internal/client"
	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/retry"
	"github.com/launchsignal/api/internal/store"
)

// memProviders implements ProviderRecords with a real mutual-exclusion
// refresh lock, so the single-flight behavior can be exercised without
// Redis.
type memProviders struct {
	mu        sync.Mutex
	providers map[string]*model.MailProvider
	locks     map[string]bool
}

func newMemProviders() *memProviders {
	return &memProviders{
		providers: make(map[string]*model.MailProvider),
		locks:     make(map[string]bool),
	}
}

func (m *memProviders) Put(ctx context.Context, p *model.MailProvider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.providers[p.ProviderID] = &cp
	return nil
}

func (m *memProviders) Upsert(ctx context.Context, p *model.MailProvider) error {
	return m.Put(ctx, p)
}

func (m *memProviders) Get(ctx context.Context, providerID string) (*model.MailProvider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[providerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProviders) ListByUser(ctx context.Context, userID string) ([]*model.MailProvider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.MailProvider
	for _, p := range m.providers {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memProviders) ActiveForUser(ctx context.Context, userID string) (*model.MailProvider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.providers {
		if p.UserID == userID && p.IsActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memProviders) Deactivate(ctx context.Context, providerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.providers[providerID]; ok {
		p.IsActive = false
	}
	return nil
}

func (m *memProviders) AcquireRefreshLock(ctx context.Context, providerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[providerID] {
		return false, nil
	}
	m.locks[providerID] = true
	return true, nil
}

func (m *memProviders) ReleaseRefreshLock(ctx context.Context, providerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, providerID)
	return nil
}

// refreshMailer scripts the token endpoint: one error per queued entry,
// then successes. hold simulates a slow endpoint so concurrent callers
// actually contend for the lock.
type refreshMailer struct {
	mu    sync.Mutex
	errs  []error
	hold  time.Duration
	calls int32
}

func (m *refreshMailer) refreshCalls() int { return int(atomic.LoadInt32(&m.calls)) }

func (m *refreshMailer) RefreshToken(ctx context.Context, refreshToken string) (*client.OAuthToken, error) {
	n := atomic.AddInt32(&m.calls, 1)
	if m.hold > 0 {
		time.Sleep(m.hold)
	}
	m.mu.Lock()
	var err error
	if len(m.errs) > 0 {
		err = m.errs[0]
		m.errs = m.errs[1:]
	}
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &client.OAuthToken{AccessToken: fmt.Sprintf("fresh-%d", n), ExpiresIn: 3600}, nil
}

func (m *refreshMailer) AuthCodeURL(state string) string { return "https://auth.test/?" + state }

func (m *refreshMailer) ExchangeCode(ctx context.Context, code string) (*client.OAuthToken, error) {
	return &client.OAuthToken{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600}, nil
}

func (m *refreshMailer) UserEmail(ctx context.Context, accessToken string) (string, error) {
	return "sender@mail.test", nil
}

func (m *refreshMailer) SendMail(ctx context.Context, accessToken string, msg *client.OutboundMail) (string, error) {
	return "msg-1", nil
}

func newOAuthFixture(mailer *refreshMailer) (*OAuthService, *memProviders) {
	recs := newMemProviders()
	svc := NewOAuthService(recs, nil, map[model.ProviderKind]client.OAuthMailer{
		model.ProviderGoogle: mailer,
	})
	svc.policy = retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2,
		Classify:    client.ClassifyError,
	}
	return svc, recs
}

func expiredProvider() *model.MailProvider {
	past := time.Now().UTC().Add(-time.Hour)
	return &model.MailProvider{
		ProviderID:     "prov-1",
		UserID:         "user-1",
		TenantID:       "tenant-1",
		Kind:           model.ProviderGoogle,
		Email:          "sender@mail.test",
		AccessToken:    "stale",
		RefreshToken:   "rt",
		TokenExpiresAt: &past,
		IsActive:       true,
	}
}

func TestEnsureFreshToken_FreshTokenPassesThrough(t *testing.T) {
	mailer := &refreshMailer{}
	svc, recs := newOAuthFixture(mailer)

	p := expiredProvider()
	future := time.Now().UTC().Add(time.Hour)
	p.TokenExpiresAt = &future
	recs.Put(context.Background(), p)

	got, err := svc.EnsureFreshToken(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AccessToken != "stale" {
		t.Errorf("token must pass through unchanged, got %q", got.AccessToken)
	}
	if mailer.refreshCalls() != 0 {
		t.Errorf("expected no refresh calls, got %d", mailer.refreshCalls())
	}
}

func TestEnsureFreshToken_TransientErrorIsRetried(t *testing.T) {
	mailer := &refreshMailer{
		errs: []error{&client.APIError{Service: "google oauth", StatusCode: 503, Body: "unavailable"}},
	}
	svc, recs := newOAuthFixture(mailer)

	p := expiredProvider()
	recs.Put(context.Background(), p)

	got, err := svc.EnsureFreshToken(context.Background(), p)
	if err != nil {
		t.Fatalf("a passing 503 must not surface: %v", err)
	}
	if mailer.refreshCalls() != 2 {
		t.Errorf("expected 2 refresh calls (one retry), got %d", mailer.refreshCalls())
	}
	if got.AccessToken != "fresh-2" {
		t.Errorf("expected the retried token, got %q", got.AccessToken)
	}

	stored, err := recs.Get(context.Background(), "prov-1")
	if err != nil {
		t.Fatalf("get provider: %v", err)
	}
	if stored.AccessToken != "fresh-2" || stored.TokenExpired(time.Now().UTC()) {
		t.Errorf("refreshed credential not persisted: %+v", stored)
	}

	acquired, _ := recs.AcquireRefreshLock(context.Background(), "prov-1")
	if !acquired {
		t.Error("refresh lock was not released")
	}
}

func TestEnsureFreshToken_PermanentErrorIsNotRetried(t *testing.T) {
	mailer := &refreshMailer{
		errs: []error{&client.APIError{Service: "google oauth", StatusCode: 400, Body: "invalid_grant"}},
	}
	svc, recs := newOAuthFixture(mailer)

	p := expiredProvider()
	recs.Put(context.Background(), p)

	if _, err := svc.EnsureFreshToken(context.Background(), p); err == nil {
		t.Fatal("expected a revoked grant to surface")
	}
	if mailer.refreshCalls() != 1 {
		t.Errorf("a 400 must not be retried, got %d calls", mailer.refreshCalls())
	}
}

func TestEnsureFreshToken_ExhaustedTransientSurfaces(t *testing.T) {
	unavailable := &client.APIError{Service: "google oauth", StatusCode: 503, Body: "unavailable"}
	mailer := &refreshMailer{errs: []error{unavailable, unavailable, unavailable}}
	svc, recs := newOAuthFixture(mailer)

	p := expiredProvider()
	recs.Put(context.Background(), p)

	if _, err := svc.EnsureFreshToken(context.Background(), p); err == nil {
		t.Fatal("expected the exhausted refresh to surface")
	}
	if mailer.refreshCalls() != 3 {
		t.Errorf("expected MaxAttempts refresh calls, got %d", mailer.refreshCalls())
	}
}

func TestEnsureFreshToken_ConcurrentRefreshSingleFlight(t *testing.T) {
	mailer := &refreshMailer{hold: 100 * time.Millisecond}
	svc, recs := newOAuthFixture(mailer)

	p := expiredProvider()
	recs.Put(context.Background(), p)

	var wg sync.WaitGroup
	results := make([]*model.MailProvider, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snapshot, err := recs.Get(context.Background(), "prov-1")
			if err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = svc.EnsureFreshToken(context.Background(), snapshot)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i].TokenExpired(time.Now().UTC()) {
			t.Errorf("caller %d got a stale token: %+v", i, results[i])
		}
		if results[i].AccessToken != "fresh-1" {
			t.Errorf("caller %d: expected the single refreshed token, got %q", i, results[i].AccessToken)
		}
	}
	if mailer.refreshCalls() != 1 {
		t.Errorf("expected exactly one refresh call across both callers, got %d", mailer.refreshCalls())
	}
}
