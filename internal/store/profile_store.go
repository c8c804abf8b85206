package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/launchsignal/api/internal/model"
)

// ProfileStore persists profiles with a per-tenant URL index so scrape
// results upsert by normalized LinkedIn URL instead of duplicating.
type ProfileStore struct {
	rdb *redis.Client
}

func NewProfileStore(rdb *redis.Client) *ProfileStore {
	return &ProfileStore{rdb: rdb}
}

func profileKey(id string) string { return "profile:" + id }
func tenantProfilesKey(tenantID string) string {
	return "tenant:" + tenantID + ":profiles"
}
func profileURLKey(tenantID, url string) string {
	return "tenant:" + tenantID + ":profile_url:" + url
}

func (s *ProfileStore) Put(ctx context.Context, p *model.Profile) error {
	p.UpdatedAt = time.Now().UTC()
	if err := putJSON(ctx, s.rdb, profileKey(p.ProfileID), p); err != nil {
		return err
	}
	if err := s.rdb.SAdd(ctx, tenantProfilesKey(p.TenantID), p.ProfileID).Err(); err != nil {
		return err
	}
	return s.rdb.Set(ctx, profileURLKey(p.TenantID, p.LinkedInURL), p.ProfileID, 0).Err()
}

func (s *ProfileStore) Get(ctx context.Context, profileID string) (*model.Profile, error) {
	var p model.Profile
	if err := getJSON(ctx, s.rdb, profileKey(profileID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetOwned fetches a profile and enforces tenant ownership.
func (s *ProfileStore) GetOwned(ctx context.Context, tenantID, profileID string) (*model.Profile, error) {
	p, err := s.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if p.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return p, nil
}

// FindByURL resolves a profile through the tenant's URL index.
func (s *ProfileStore) FindByURL(ctx context.Context, tenantID, url string) (*model.Profile, error) {
	id, err := s.rdb.Get(ctx, profileURLKey(tenantID, url)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

// Upsert writes the profile, matching an existing record by URL: an
// existing profile keeps its id and creation time, so re-scraping
// overwrites rather than duplicates.
func (s *ProfileStore) Upsert(ctx context.Context, p *model.Profile) error {
	existing, err := s.FindByURL(ctx, p.TenantID, p.LinkedInURL)
	switch {
	case err == nil:
		p.ProfileID = existing.ProfileID
		p.CreatedAt = existing.CreatedAt
	case errors.Is(err, ErrNotFound):
		if p.ProfileID == "" {
			p.ProfileID = uuid.New().String()
		}
		p.CreatedAt = time.Now().UTC()
	default:
		return err
	}
	return s.Put(ctx, p)
}

func (s *ProfileStore) ListByTenant(ctx context.Context, tenantID string) ([]*model.Profile, error) {
	ids, err := s.rdb.SMembers(ctx, tenantProfilesKey(tenantID)).Result()
	if err != nil {
		return nil, err
	}
	return getMany(ctx, ids, s.Get)
}

func (s *ProfileStore) Delete(ctx context.Context, tenantID, profileID string) error {
	p, err := s.GetOwned(ctx, tenantID, profileID)
	if err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, profileKey(profileID), profileURLKey(tenantID, p.LinkedInURL)).Err(); err != nil {
		return err
	}
	return s.rdb.SRem(ctx, tenantProfilesKey(tenantID), profileID).Err()
}
