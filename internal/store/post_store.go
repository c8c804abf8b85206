package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/launchsignal/api/internal/model"
)

// PostStore persists company posts, upserted by source URL per tenant.
type PostStore struct {
	rdb *redis.Client
}

func NewPostStore(rdb *redis.Client) *PostStore {
	return &PostStore{rdb: rdb}
}

func postKey(id string) string { return "post:" + id }
func tenantPostsKey(tenantID string) string {
	return "tenant:" + tenantID + ":posts"
}
func postURLKey(tenantID, url string) string {
	return "tenant:" + tenantID + ":post_url:" + url
}

func (s *PostStore) Put(ctx context.Context, p *model.Post) error {
	p.UpdatedAt = time.Now().UTC()
	if err := putJSON(ctx, s.rdb, postKey(p.PostID), p); err != nil {
		return err
	}
	if err := s.rdb.SAdd(ctx, tenantPostsKey(p.TenantID), p.PostID).Err(); err != nil {
		return err
	}
	return s.rdb.Set(ctx, postURLKey(p.TenantID, p.SourceURL), p.PostID, 0).Err()
}

func (s *PostStore) Get(ctx context.Context, postID string) (*model.Post, error) {
	var p model.Post
	if err := getJSON(ctx, s.rdb, postKey(postID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostStore) GetOwned(ctx context.Context, tenantID, postID string) (*model.Post, error) {
	p, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *PostStore) FindByURL(ctx context.Context, tenantID, url string) (*model.Post, error) {
	id, err := s.rdb.Get(ctx, postURLKey(tenantID, url)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

// Upsert matches by source URL within the tenant; an existing post keeps
// its id, creation time and any analysis already performed.
func (s *PostStore) Upsert(ctx context.Context, p *model.Post) error {
	existing, err := s.FindByURL(ctx, p.TenantID, p.SourceURL)
	switch {
	case err == nil:
		p.PostID = existing.PostID
		p.CreatedAt = existing.CreatedAt
		if p.AnalyzedAt == nil {
			p.Score = existing.Score
			p.AIJudgement = existing.AIJudgement
			p.AnalyzedAt = existing.AnalyzedAt
		}
	case errors.Is(err, ErrNotFound):
		if p.PostID == "" {
			p.PostID = uuid.New().String()
		}
		p.CreatedAt = time.Now().UTC()
	default:
		return err
	}
	return s.Put(ctx, p)
}

func (s *PostStore) ListByTenant(ctx context.Context, tenantID string) ([]*model.Post, error) {
	ids, err := s.rdb.SMembers(ctx, tenantPostsKey(tenantID)).Result()
	if err != nil {
		return nil, err
	}
	return getMany(ctx, ids, s.Get)
}

func (s *PostStore) Delete(ctx context.Context, tenantID, postID string) error {
	p, err := s.GetOwned(ctx, tenantID, postID)
	if err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, postKey(postID), postURLKey(tenantID, p.SourceURL)).Err(); err != nil {
		return err
	}
	return s.rdb.SRem(ctx, tenantPostsKey(tenantID), postID).Err()
}
