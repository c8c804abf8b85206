package service

import (
	"context"
	"sort"
	"time"

	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/store"
)

// DashboardService aggregates the tenant's pipeline state for the
// overview screen.
type DashboardService struct {
	companies *store.CompanyStore
	posts     *store.PostStore
}

func NewDashboardService(companies *store.CompanyStore, posts *store.PostStore) *DashboardService {
	return &DashboardService{
		companies: companies,
		posts:     posts,
	}
}

// Stats counts active companies, scraped posts, detected launches and
// last-week activity, plus the five highest-scoring posts.
func (s *DashboardService) Stats(ctx context.Context, tenantID string) (*model.DashboardStats, error) {
	companies, err := s.companies.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	stats := &model.DashboardStats{}
	for _, c := range companies {
		if c.IsActive {
			stats.TotalCompanies++
		}
	}

	weekAgo := time.Now().UTC().AddDate(0, 0, -7)
	for _, p := range posts {
		stats.TotalPosts++
		if p.AIJudgement == model.JudgementProductLaunch {
			stats.ProductLaunches++
		}
		if p.CreatedAt.After(weekAgo) {
			stats.RecentActivity++
		}
	}

	sort.Slice(posts, func(i, j int) bool { return posts[i].Score > posts[j].Score })
	top := posts
	if len(top) > 5 {
		top = top[:5]
	}
	stats.TopScoringPosts = top
	return stats, nil
}
