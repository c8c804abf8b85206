package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/launchsignal/api/internal/client"
	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/retry"
	"github.com/launchsignal/api/internal/store"
)

var (
	// ErrUnknownProvider is returned for provider kinds outside the
	// supported set.
	ErrUnknownProvider = errors.New("unknown mail provider")

	// ErrInvalidState is returned when a callback carries a state that
	// was never issued or was already redeemed.
	ErrInvalidState = errors.New("invalid or expired oauth state")
)

// ProviderRecords is the credential persistence surface the service
// needs. It is satisfied by store.ProviderStore and by in-memory fakes
// in tests.
type ProviderRecords interface {
	Put(ctx context.Context, p *model.MailProvider) error
	Upsert(ctx context.Context, p *model.MailProvider) error
	Get(ctx context.Context, providerID string) (*model.MailProvider, error)
	ListByUser(ctx context.Context, userID string) ([]*model.MailProvider, error)
	ActiveForUser(ctx context.Context, userID string) (*model.MailProvider, error)
	Deactivate(ctx context.Context, providerID string) error
	AcquireRefreshLock(ctx context.Context, providerID string) (bool, error)
	ReleaseRefreshLock(ctx context.Context, providerID string) error
}

// OAuthService runs the delegated-send authorization flow and keeps
// provider tokens fresh for the delivery pipeline.
type OAuthService struct {
	providers ProviderRecords
	states    *store.StateStore
	mailers   map[model.ProviderKind]client.OAuthMailer
	policy    retry.Policy
}

func NewOAuthService(providers ProviderRecords, states *store.StateStore, mailers map[model.ProviderKind]client.OAuthMailer) *OAuthService {
	return &OAuthService{
		providers: providers,
		states:    states,
		mailers:   mailers,
		policy:    retry.DefaultPolicy(client.ClassifyError),
	}
}

// AuthorizeURL issues a one-time state and builds the provider's consent
// URL.
func (s *OAuthService) AuthorizeURL(ctx context.Context, userID, tenantID string, kind model.ProviderKind) (*model.AuthorizeURLResponse, error) {
	mailer, ok := s.mailers[kind]
	if !ok {
		return nil, ErrUnknownProvider
	}

	state := uuid.New().String()
	if err := s.states.Put(ctx, state, &store.OAuthState{
		UserID:   userID,
		TenantID: tenantID,
		Kind:     kind,
	}); err != nil {
		return nil, fmt.Errorf("failed to save oauth state: %w", err)
	}

	return &model.AuthorizeURLResponse{
		AuthorizationURL: mailer.AuthCodeURL(state),
		State:            state,
	}, nil
}

// HandleCallback redeems the state, exchanges the code and stores the
// resulting credential as the user's active provider of that kind.
func (s *OAuthService) HandleCallback(ctx context.Context, state, code string) (*model.MailProviderInfo, error) {
	pending, err := s.states.Take(ctx, state)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	mailer, ok := s.mailers[pending.Kind]
	if !ok {
		return nil, ErrUnknownProvider
	}

	token, err := mailer.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	email, err := mailer.UserEmail(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mailbox address: %w", err)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(time.Duration(token.ExpiresIn) * time.Second)
	provider := &model.MailProvider{
		ProviderID:     uuid.New().String(),
		UserID:         pending.UserID,
		TenantID:       pending.TenantID,
		Kind:           pending.Kind,
		Email:          email,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: &expiresAt,
		IsActive:       true,
		CreatedAt:      now,
	}
	if err := s.providers.Upsert(ctx, provider); err != nil {
		return nil, err
	}

	log.Printf("Connected %s mail provider for user %s (%s)", pending.Kind, pending.UserID, email)
	return provider.Info(), nil
}

// List returns the user's providers without credential material.
func (s *OAuthService) List(ctx context.Context, userID string) ([]*model.MailProviderInfo, error) {
	providers, err := s.providers.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	infos := make([]*model.MailProviderInfo, 0, len(providers))
	for _, p := range providers {
		infos = append(infos, p.Info())
	}
	return infos, nil
}

// Disconnect deactivates a provider the user owns.
func (s *OAuthService) Disconnect(ctx context.Context, userID, providerID string) error {
	p, err := s.providers.Get(ctx, providerID)
	if err != nil {
		return err
	}
	if p.UserID != userID {
		return store.ErrNotFound
	}
	return s.providers.Deactivate(ctx, providerID)
}

// ActiveProvider returns the user's usable delegated-send credential, or
// store.ErrNotFound when the fallback transport should be used.
func (s *OAuthService) ActiveProvider(ctx context.Context, userID string) (*model.MailProvider, error) {
	return s.providers.ActiveForUser(ctx, userID)
}

// EnsureFreshToken returns the provider with a usable access token,
// refreshing it first if needed. Refresh runs under a per-provider lock
// so concurrent delivery tasks never race each other into the token
// endpoint; losers of the lock wait for the winner's result.
func (s *OAuthService) EnsureFreshToken(ctx context.Context, provider *model.MailProvider) (*model.MailProvider, error) {
	if !provider.TokenExpired(time.Now().UTC()) {
		return provider, nil
	}

	mailer, ok := s.mailers[provider.Kind]
	if !ok {
		return nil, ErrUnknownProvider
	}
	if provider.RefreshToken == "" {
		return nil, errors.New("no refresh token on record")
	}

	const (
		maxWaits = 30
		waitStep = time.Second
	)
	for attempt := 0; attempt < maxWaits; attempt++ {
		acquired, err := s.providers.AcquireRefreshLock(ctx, provider.ProviderID)
		if err != nil {
			return nil, err
		}

		if acquired {
			return s.refreshLocked(ctx, mailer, provider.ProviderID)
		}

		// Another task holds the lock; wait and re-read its result.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(waitStep):
		}

		current, err := s.providers.Get(ctx, provider.ProviderID)
		if err != nil {
			return nil, err
		}
		if !current.IsActive {
			return nil, errors.New("provider was deactivated during refresh")
		}
		if !current.TokenExpired(time.Now().UTC()) {
			return current, nil
		}
	}
	return nil, errors.New("timed out waiting for token refresh")
}

func (s *OAuthService) refreshLocked(ctx context.Context, mailer client.OAuthMailer, providerID string) (*model.MailProvider, error) {
	defer func() {
		if err := s.providers.ReleaseRefreshLock(ctx, providerID); err != nil {
			log.Printf("Failed to release refresh lock for provider %s: %v", providerID, err)
		}
	}()

	// Re-read under the lock: the previous holder may have refreshed
	// already.
	current, err := s.providers.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if !current.TokenExpired(time.Now().UTC()) {
		return current, nil
	}

	// Transient token-endpoint failures are retried here so a passing
	// hiccup never surfaces to the caller, which would deactivate a
	// healthy provider. Only permanent or exhausted errors escape.
	token, err := retry.Do(ctx, s.policy, func(ctx context.Context) (*client.OAuthToken, error) {
		return mailer.RefreshToken(ctx, current.RefreshToken)
	})
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(time.Duration(token.ExpiresIn) * time.Second)
	current.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		current.RefreshToken = token.RefreshToken
	}
	current.TokenExpiresAt = &expiresAt
	if err := s.providers.Put(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// DeactivateProvider is called by the delivery pipeline when a refresh
// fails irrecoverably, so later sends go straight to the fallback.
func (s *OAuthService) DeactivateProvider(ctx context.Context, providerID string) error {
	return s.providers.Deactivate(ctx, providerID)
}
