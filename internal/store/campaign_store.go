package store

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/launchsignal/api/internal/model"
)

// CampaignStore persists outreach campaigns. The per-profile links are
// part of the campaign blob, so a campaign read always carries its full
// rollout state.
type CampaignStore struct {
	rdb *redis.Client
}

func NewCampaignStore(rdb *redis.Client) *CampaignStore {
	return &CampaignStore{rdb: rdb}
}

func campaignKey(id string) string { return "campaign:" + id }
func tenantCampaignsKey(tenantID string) string {
	return "tenant:" + tenantID + ":campaigns"
}

func (s *CampaignStore) Put(ctx context.Context, c *model.Campaign) error {
	if err := putJSON(ctx, s.rdb, campaignKey(c.CampaignID), c); err != nil {
		return err
	}
	return s.rdb.SAdd(ctx, tenantCampaignsKey(c.TenantID), c.CampaignID).Err()
}

func (s *CampaignStore) Get(ctx context.Context, campaignID string) (*model.Campaign, error) {
	var c model.Campaign
	if err := getJSON(ctx, s.rdb, campaignKey(campaignID), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CampaignStore) GetOwned(ctx context.Context, tenantID, campaignID string) (*model.Campaign, error) {
	c, err := s.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *CampaignStore) ListByTenant(ctx context.Context, tenantID string) ([]*model.Campaign, error) {
	ids, err := s.rdb.SMembers(ctx, tenantCampaignsKey(tenantID)).Result()
	if err != nil {
		return nil, err
	}
	return getMany(ctx, ids, s.Get)
}

func (s *CampaignStore) Delete(ctx context.Context, tenantID, campaignID string) error {
	if _, err := s.GetOwned(ctx, tenantID, campaignID); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, campaignKey(campaignID)).Err(); err != nil {
		return err
	}
	return s.rdb.SRem(ctx, tenantCampaignsKey(tenantID), campaignID).Err()
}
