package worker

import (
	"context"

	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/store"
)

// StoreOutreach adapts the entity stores to the OutreachContext read
// surface.
type StoreOutreach struct {
	Profiles  *store.ProfileStore
	Posts     *store.PostStore
	Companies *store.CompanyStore
	Templates *store.TemplateStore
	Users     *store.UserStore
}

func (s *StoreOutreach) GetProfile(ctx context.Context, tenantID, profileID string) (*model.Profile, error) {
	return s.Profiles.GetOwned(ctx, tenantID, profileID)
}

func (s *StoreOutreach) GetPost(ctx context.Context, tenantID, postID string) (*model.Post, error) {
	return s.Posts.GetOwned(ctx, tenantID, postID)
}

func (s *StoreOutreach) GetCompany(ctx context.Context, tenantID, companyID string) (*model.Company, error) {
	return s.Companies.GetOwned(ctx, tenantID, companyID)
}

func (s *StoreOutreach) GetTemplate(ctx context.Context, tenantID, templateID string) (*model.EmailTemplate, error) {
	return s.Templates.GetVisible(ctx, tenantID, templateID)
}

func (s *StoreOutreach) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.Users.GetUser(ctx, userID)
}
