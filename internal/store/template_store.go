package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/launchsignal/api/internal/model"
)

// TemplateStore persists outreach templates. Default templates live in a
// shared index visible to every tenant.
type TemplateStore struct {
	rdb *redis.Client
}

func NewTemplateStore(rdb *redis.Client) *TemplateStore {
	return &TemplateStore{rdb: rdb}
}

func templateKey(id string) string { return "template:" + id }
func tenantTemplatesKey(tenantID string) string {
	return "tenant:" + tenantID + ":templates"
}

const defaultTemplatesKey = "templates:default"

func (s *TemplateStore) Put(ctx context.Context, t *model.EmailTemplate) error {
	t.UpdatedAt = time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.UpdatedAt
	}
	if err := putJSON(ctx, s.rdb, templateKey(t.TemplateID), t); err != nil {
		return err
	}
	if t.IsDefault {
		return s.rdb.SAdd(ctx, defaultTemplatesKey, t.TemplateID).Err()
	}
	return s.rdb.SAdd(ctx, tenantTemplatesKey(t.TenantID), t.TemplateID).Err()
}

func (s *TemplateStore) Get(ctx context.Context, templateID string) (*model.EmailTemplate, error) {
	var t model.EmailTemplate
	if err := getJSON(ctx, s.rdb, templateKey(templateID), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetVisible returns the template if the tenant owns it or it is a
// shared default.
func (s *TemplateStore) GetVisible(ctx context.Context, tenantID, templateID string) (*model.EmailTemplate, error) {
	t, err := s.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !t.IsDefault && t.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return t, nil
}

// ListVisible returns the tenant's templates plus the shared defaults.
func (s *TemplateStore) ListVisible(ctx context.Context, tenantID string) ([]*model.EmailTemplate, error) {
	own, err := s.rdb.SMembers(ctx, tenantTemplatesKey(tenantID)).Result()
	if err != nil {
		return nil, err
	}
	defaults, err := s.rdb.SMembers(ctx, defaultTemplatesKey).Result()
	if err != nil {
		return nil, err
	}
	return getMany(ctx, append(own, defaults...), s.Get)
}

func (s *TemplateStore) Delete(ctx context.Context, tenantID, templateID string) error {
	t, err := s.Get(ctx, templateID)
	if err != nil {
		return err
	}
	if t.IsDefault || t.TenantID != tenantID {
		return ErrNotFound
	}
	if err := s.rdb.Del(ctx, templateKey(templateID)).Err(); err != nil {
		return err
	}
	return s.rdb.SRem(ctx, tenantTemplatesKey(tenantID), templateID).Err()
}
