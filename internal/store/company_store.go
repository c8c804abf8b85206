package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/launchsignal/api/internal/model"
)

// CompanyStore persists watched companies.
type CompanyStore struct {
	rdb *redis.Client
}

func NewCompanyStore(rdb *redis.Client) *CompanyStore {
	return &CompanyStore{rdb: rdb}
}

func companyKey(id string) string { return "company:" + id }
func tenantCompaniesKey(tenantID string) string {
	return "tenant:" + tenantID + ":companies"
}

func (s *CompanyStore) Put(ctx context.Context, c *model.Company) error {
	c.UpdatedAt = time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = c.UpdatedAt
	}
	if err := putJSON(ctx, s.rdb, companyKey(c.CompanyID), c); err != nil {
		return err
	}
	return s.rdb.SAdd(ctx, tenantCompaniesKey(c.TenantID), c.CompanyID).Err()
}

func (s *CompanyStore) Get(ctx context.Context, companyID string) (*model.Company, error) {
	var c model.Company
	if err := getJSON(ctx, s.rdb, companyKey(companyID), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CompanyStore) GetOwned(ctx context.Context, tenantID, companyID string) (*model.Company, error) {
	c, err := s.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if c.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *CompanyStore) ListByTenant(ctx context.Context, tenantID string) ([]*model.Company, error) {
	ids, err := s.rdb.SMembers(ctx, tenantCompaniesKey(tenantID)).Result()
	if err != nil {
		return nil, err
	}
	return getMany(ctx, ids, s.Get)
}
