package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/launchsignal/api/internal/model"
)

// refreshLockTTL bounds how long a crashed worker can hold a provider's
// refresh lock.
const refreshLockTTL = 30 * time.Second

// ProviderStore persists delegated-send credentials. Upsert keeps at most
// one active provider per (user, kind) pair, and the SET-NX refresh lock
// serializes token refresh across concurrently running delivery tasks.
type ProviderStore struct {
	rdb *redis.Client
}

func NewProviderStore(rdb *redis.Client) *ProviderStore {
	return &ProviderStore{rdb: rdb}
}

func providerKey(id string) string { return "provider:" + id }
func userProvidersKey(userID string) string {
	return "user:" + userID + ":providers"
}
func refreshLockKey(providerID string) string {
	return "oauth:refresh:" + providerID
}

func (s *ProviderStore) Put(ctx context.Context, p *model.MailProvider) error {
	p.UpdatedAt = time.Now().UTC()
	if err := putJSON(ctx, s.rdb, providerKey(p.ProviderID), p); err != nil {
		return err
	}
	return s.rdb.SAdd(ctx, userProvidersKey(p.UserID), p.ProviderID).Err()
}

// Upsert stores a freshly connected provider and deactivates any other
// active provider of the same kind for the user.
func (s *ProviderStore) Upsert(ctx context.Context, p *model.MailProvider) error {
	existing, err := s.ListByUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ProviderID == p.ProviderID || other.Kind != p.Kind || !other.IsActive {
			continue
		}
		other.IsActive = false
		if err := s.Put(ctx, other); err != nil {
			return err
		}
	}
	return s.Put(ctx, p)
}

func (s *ProviderStore) Get(ctx context.Context, providerID string) (*model.MailProvider, error) {
	var p model.MailProvider
	if err := getJSON(ctx, s.rdb, providerKey(providerID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProviderStore) ListByUser(ctx context.Context, userID string) ([]*model.MailProvider, error) {
	ids, err := s.rdb.SMembers(ctx, userProvidersKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	return getMany(ctx, ids, s.Get)
}

// ActiveForUser returns the user's active provider of any kind, or
// ErrNotFound. Google wins over Microsoft when both are somehow active.
func (s *ProviderStore) ActiveForUser(ctx context.Context, userID string) (*model.MailProvider, error) {
	providers, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var active *model.MailProvider
	for _, p := range providers {
		if !p.IsActive {
			continue
		}
		if active == nil || p.Kind == model.ProviderGoogle {
			active = p
		}
	}
	if active == nil {
		return nil, ErrNotFound
	}
	return active, nil
}

// Deactivate marks the provider inactive (disconnect or irrecoverable
// refresh failure).
func (s *ProviderStore) Deactivate(ctx context.Context, providerID string) error {
	p, err := s.Get(ctx, providerID)
	if err != nil {
		return err
	}
	p.IsActive = false
	return s.Put(ctx, p)
}

// AcquireRefreshLock takes the per-provider refresh lock. It returns
// false when another delivery task is already refreshing this provider.
func (s *ProviderStore) AcquireRefreshLock(ctx context.Context, providerID string) (bool, error) {
	return s.rdb.SetNX(ctx, refreshLockKey(providerID), "1", refreshLockTTL).Result()
}

// ReleaseRefreshLock drops the lock after the refresh outcome is
// persisted.
func (s *ProviderStore) ReleaseRefreshLock(ctx context.Context, providerID string) error {
	return s.rdb.Del(ctx, refreshLockKey(providerID)).Err()
}
