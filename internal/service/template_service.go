package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/store"
)

// TemplateService manages outreach templates.
type TemplateService struct {
	templates *store.TemplateStore
}

func NewTemplateService(templates *store.TemplateStore) *TemplateService {
	return &TemplateService{templates: templates}
}

// defaultTemplates are seeded at startup and shared read-only across
// tenants. Fixed IDs keep the seed idempotent.
var defaultTemplates = []model.EmailTemplate{
	{
		TemplateID: "9b1c7a1e-0000-4000-8000-000000000001",
		Name:       "Launch congratulations",
		Subject:    "Congrats on the launch, {{profile_name}}!",
		Body: "Hi {{profile_name}},\n\n" +
			"Saw {{company_name}}'s announcement: \"{{post_excerpt}}\"\n\n" +
			"Congratulations on the launch! Would love to hear how it's going.\n\n" +
			"Best,\n{{sender_name}}",
		IsDefault: true,
	},
	{
		TemplateID: "9b1c7a1e-0000-4000-8000-000000000002",
		Name:       "Launch follow-up",
		Subject:    "Quick question about {{company_name}}'s new product",
		Body: "Hi {{profile_name}},\n\n" +
			"I noticed {{company_name}} just announced something new. " +
			"I work with teams at this stage and had a quick question.\n\n" +
			"Open to a short chat?\n\n{{sender_name}}",
		IsDefault: true,
	},
}

// SeedDefaults writes the shared default templates. Safe to run on every
// boot.
func (s *TemplateService) SeedDefaults(ctx context.Context) error {
	for i := range defaultTemplates {
		t := defaultTemplates[i]
		if err := s.templates.Put(ctx, &t); err != nil {
			return err
		}
	}
	return nil
}

func (s *TemplateService) Create(ctx context.Context, tenantID string, req *model.TemplateRequest) (*model.EmailTemplate, error) {
	t := &model.EmailTemplate{
		TemplateID: uuid.New().String(),
		TenantID:   tenantID,
		Name:       req.Name,
		Subject:    req.Subject,
		Body:       req.Body,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.templates.Put(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TemplateService) Update(ctx context.Context, tenantID, templateID string, req *model.TemplateRequest) (*model.EmailTemplate, error) {
	t, err := s.templates.GetVisible(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	// Defaults are shared and read-only.
	if t.IsDefault || t.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	t.Name = req.Name
	t.Subject = req.Subject
	t.Body = req.Body
	if err := s.templates.Put(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TemplateService) List(ctx context.Context, tenantID string) ([]*model.EmailTemplate, error) {
	return s.templates.ListVisible(ctx, tenantID)
}

func (s *TemplateService) Get(ctx context.Context, tenantID, templateID string) (*model.EmailTemplate, error) {
	return s.templates.GetVisible(ctx, tenantID, templateID)
}

func (s *TemplateService) Delete(ctx context.Context, tenantID, templateID string) error {
	return s.templates.Delete(ctx, tenantID, templateID)
}
