package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/launchsignal/api/internal/model"
)

// EmailStore persists outreach emails. It enforces the sent-immutability
// contract the delivery pipeline relies on: once a record's persisted
// status is sent, any further mutation or delete is rejected.
type EmailStore struct {
	rdb *redis.Client
}

func NewEmailStore(rdb *redis.Client) *EmailStore {
	return &EmailStore{rdb: rdb}
}

func emailKey(id string) string { return "email:" + id }
func tenantEmailsKey(tenantID string) string {
	return "tenant:" + tenantID + ":emails"
}

// Create inserts a new draft.
func (s *EmailStore) Create(ctx context.Context, e *model.Email) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	if err := putJSON(ctx, s.rdb, emailKey(e.EmailID), e); err != nil {
		return err
	}
	return s.rdb.SAdd(ctx, tenantEmailsKey(e.TenantID), e.EmailID).Err()
}

// Update overwrites an existing email unless it is already sent. The
// delivery worker itself performs the draft→sent transition through this
// same guard: the check is against the persisted status, not the incoming
// value.
func (s *EmailStore) Update(ctx context.Context, e *model.Email) error {
	current, err := s.Get(ctx, e.EmailID)
	if err != nil {
		return err
	}
	if current.Status == model.EmailStatusSent {
		return ErrEmailImmutable
	}
	e.CreatedAt = current.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	return putJSON(ctx, s.rdb, emailKey(e.EmailID), e)
}

func (s *EmailStore) Get(ctx context.Context, emailID string) (*model.Email, error) {
	var e model.Email
	if err := getJSON(ctx, s.rdb, emailKey(emailID), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *EmailStore) GetOwned(ctx context.Context, tenantID, emailID string) (*model.Email, error) {
	e, err := s.Get(ctx, emailID)
	if err != nil {
		return nil, err
	}
	if e.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return e, nil
}

func (s *EmailStore) ListByTenant(ctx context.Context, tenantID string) ([]*model.Email, error) {
	ids, err := s.rdb.SMembers(ctx, tenantEmailsKey(tenantID)).Result()
	if err != nil {
		return nil, err
	}
	return getMany(ctx, ids, s.Get)
}

func (s *EmailStore) Delete(ctx context.Context, tenantID, emailID string) error {
	e, err := s.GetOwned(ctx, tenantID, emailID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if e.Status == model.EmailStatusSent {
		return ErrEmailImmutable
	}
	if err := s.rdb.Del(ctx, emailKey(emailID)).Err(); err != nil {
		return err
	}
	return s.rdb.SRem(ctx, tenantEmailsKey(tenantID), emailID).Err()
}
