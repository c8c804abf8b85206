package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/launchsignal/api/internal/batch"
	"github.com/launchsignal/api/internal/client"
	"github.com/launchsignal/api/internal/config"
	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/retry"
	"github.com/launchsignal/api/internal/service"
	"github.com/launchsignal/api/internal/store"
	"github.com/launchsignal/api/internal/websocket"
)

// EmailRepo is the email persistence surface the email worker needs.
type EmailRepo interface {
	Create(ctx context.Context, e *model.Email) error
	GetOwned(ctx context.Context, tenantID, emailID string) (*model.Email, error)
	Update(ctx context.Context, e *model.Email) error
}

// OutreachContext is the read surface for rendering drafts.
type OutreachContext interface {
	GetProfile(ctx context.Context, tenantID, profileID string) (*model.Profile, error)
	GetPost(ctx context.Context, tenantID, postID string) (*model.Post, error)
	GetCompany(ctx context.Context, tenantID, companyID string) (*model.Company, error)
	GetTemplate(ctx context.Context, tenantID, templateID string) (*model.EmailTemplate, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// ProviderSource resolves and maintains delegated-send credentials.
// Satisfied by service.OAuthService.
type ProviderSource interface {
	ActiveProvider(ctx context.Context, userID string) (*model.MailProvider, error)
	EnsureFreshToken(ctx context.Context, p *model.MailProvider) (*model.MailProvider, error)
	DeactivateProvider(ctx context.Context, providerID string) error
}

// CampaignRepo is the campaign persistence surface the worker needs to
// move per-profile links along as drafts are generated and delivered.
type CampaignRepo interface {
	GetOwned(ctx context.Context, tenantID, campaignID string) (*model.Campaign, error)
	Put(ctx context.Context, c *model.Campaign) error
}

// EmailWorker generates outreach drafts and delivers them.
type EmailWorker struct {
	jobs      *service.JobService
	emails    EmailRepo
	outreach  OutreachContext
	providers ProviderSource
	campaigns CampaignRepo
	mailers   map[model.ProviderKind]client.OAuthMailer
	fallback  client.FallbackMailer
	hub       *websocket.Hub
	cfg       config.WorkerConfig
	policy    retry.Policy
}

// NewEmailWorker creates a new email worker
func NewEmailWorker(
	jobs *service.JobService,
	emails EmailRepo,
	outreach OutreachContext,
	providers ProviderSource,
	campaigns CampaignRepo,
	mailers map[model.ProviderKind]client.OAuthMailer,
	fallback client.FallbackMailer,
	hub *websocket.Hub,
	cfg config.WorkerConfig,
) *EmailWorker {
	return &EmailWorker{
		jobs:      jobs,
		emails:    emails,
		outreach:  outreach,
		providers: providers,
		campaigns: campaigns,
		mailers:   mailers,
		fallback:  fallback,
		hub:       hub,
		cfg:       cfg,
		policy:    retry.DefaultPolicy(client.ClassifyError),
	}
}

// ProcessGenerationTask renders one draft per profile from the template
// and the launch post.
func (w *EmailWorker) ProcessGenerationTask(ctx context.Context, t *asynq.Task) error {
	var payload model.EmailGenTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log.Printf("Starting email generation job %s (%d profiles)", payload.JobID, len(payload.ProfileIDs))
	if _, err := w.jobs.MarkRunning(ctx, payload.JobID); err != nil {
		return err
	}

	// Shared inputs fail the whole job before any per-item work.
	post, err := w.outreach.GetPost(ctx, payload.TenantID, payload.PostID)
	if err == nil && post.Text == "" {
		err = errors.New("post has no text")
	}
	var tmpl *model.EmailTemplate
	if err == nil {
		tmpl, err = w.outreach.GetTemplate(ctx, payload.TenantID, payload.TemplateID)
	}
	var sender *model.User
	if err == nil {
		sender, err = w.outreach.GetUser(ctx, payload.UserID)
	}
	if err != nil {
		job, ferr := w.jobs.Fail(ctx, payload.JobID, err.Error())
		if ferr != nil {
			return ferr
		}
		w.hub.BroadcastError(job.JobID, "GENERATION_FAILED", err.Error())
		return nil
	}

	companyName := ""
	if company, err := w.outreach.GetCompany(ctx, payload.TenantID, post.CompanyID); err == nil {
		companyName = company.Name
	}

	batch.Run(ctx, payload.ProfileIDs, w.cfg.ChunkSize,
		func(ctx context.Context, profileID string) error {
			return w.generateOne(ctx, &payload, post, tmpl, sender, companyName, profileID)
		},
		func(ctx context.Context, chunk batch.Summary) error {
			job, err := w.jobs.ApplySummary(ctx, payload.JobID, chunk)
			if err != nil {
				return err
			}
			w.hub.BroadcastProgress(job)
			return nil
		},
	)

	job, err := w.jobs.Finish(ctx, payload.JobID)
	if err != nil {
		return err
	}
	w.hub.BroadcastComplete(job)
	log.Printf("Email generation job %s finished: %s (%d/%d)", job.JobID, job.Status, job.SuccessCount, job.TargetCount)
	return nil
}

func (w *EmailWorker) generateOne(ctx context.Context, payload *model.EmailGenTaskPayload, post *model.Post, tmpl *model.EmailTemplate, sender *model.User, companyName, profileID string) error {
	profile, err := w.outreach.GetProfile(ctx, payload.TenantID, profileID)
	if err != nil {
		return fmt.Errorf("profile lookup failed: %w", err)
	}
	if profile.Email == "" {
		return fmt.Errorf("profile has no email address")
	}

	subject, body := tmpl.Render(model.TemplateVars{
		ProfileName: profile.DisplayName(),
		CompanyName: companyName,
		PostExcerpt: model.Excerpt(post.Text, 200),
		SenderName:  sender.SenderName(),
	})

	email := &model.Email{
		EmailID:   uuid.New().String(),
		TenantID:  payload.TenantID,
		PostID:    post.PostID,
		ProfileID: profile.ProfileID,
		Status:    model.EmailStatusDraft,
		Recipient: profile.Email,
		Subject:   subject,
		Body:      body,
	}
	if err := w.emails.Create(ctx, email); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	w.markCampaignProfile(ctx, payload.TenantID, payload.CampaignID, profile.ProfileID, email.EmailID, model.CampaignProfileEmailGenerated)
	return nil
}

// ProcessSendTask delivers drafts. The transport is resolved once per
// task: the sender's fresh delegated credential when one is usable, the
// platform fallback otherwise.
func (w *EmailWorker) ProcessSendTask(ctx context.Context, t *asynq.Task) error {
	var payload model.EmailSendTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log.Printf("Starting email send job %s (%d emails)", payload.JobID, len(payload.EmailIDs))
	if _, err := w.jobs.MarkRunning(ctx, payload.JobID); err != nil {
		return err
	}

	sender, err := w.outreach.GetUser(ctx, payload.UserID)
	if err != nil {
		job, ferr := w.jobs.Fail(ctx, payload.JobID, "sender lookup failed: "+err.Error())
		if ferr != nil {
			return ferr
		}
		w.hub.BroadcastError(job.JobID, "SEND_FAILED", err.Error())
		return nil
	}

	provider := w.resolveTransport(ctx, payload.UserID)

	batch.Run(ctx, payload.EmailIDs, w.cfg.ChunkSize,
		func(ctx context.Context, emailID string) error {
			return w.sendOne(ctx, &payload, emailID, sender, provider)
		},
		func(ctx context.Context, chunk batch.Summary) error {
			job, err := w.jobs.ApplySummary(ctx, payload.JobID, chunk)
			if err != nil {
				return err
			}
			w.hub.BroadcastProgress(job)
			return nil
		},
	)

	job, err := w.jobs.Finish(ctx, payload.JobID)
	if err != nil {
		return err
	}
	w.settleCampaign(ctx, payload.TenantID, payload.CampaignID)
	w.hub.BroadcastComplete(job)
	log.Printf("Email send job %s finished: %s (%d/%d)", job.JobID, job.Status, job.SuccessCount, job.TargetCount)
	return nil
}

// resolveTransport returns the user's delegated credential with a fresh
// token, or nil when delivery should use the fallback transport. A
// provider whose refresh fails is deactivated on the spot so later jobs
// skip it.
func (w *EmailWorker) resolveTransport(ctx context.Context, userID string) *model.MailProvider {
	provider, err := w.providers.ActiveProvider(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Provider lookup for user %s failed: %v", userID, err)
		}
		return nil
	}

	fresh, err := w.providers.EnsureFreshToken(ctx, provider)
	if err != nil {
		log.Printf("Token refresh for provider %s failed, deactivating: %v", provider.ProviderID, err)
		if derr := w.providers.DeactivateProvider(ctx, provider.ProviderID); derr != nil {
			log.Printf("Failed to deactivate provider %s: %v", provider.ProviderID, derr)
		}
		return nil
	}
	return fresh
}

func (w *EmailWorker) sendOne(ctx context.Context, payload *model.EmailSendTaskPayload, emailID string, sender *model.User, provider *model.MailProvider) error {
	email, err := w.emails.GetOwned(ctx, payload.TenantID, emailID)
	if err != nil {
		return fmt.Errorf("email lookup failed: %w", err)
	}
	if email.Status == model.EmailStatusSent {
		// Already delivered; re-sending would duplicate the message.
		return nil
	}

	msg := &client.OutboundMail{
		FromName: sender.SenderName(),
		To:       email.Recipient,
		Subject:  email.Subject,
		Body:     email.Body,
	}

	sentVia, messageID, err := w.deliver(ctx, msg, provider)
	if err != nil {
		w.markSendFailed(ctx, email, err)
		w.markCampaignProfile(ctx, payload.TenantID, payload.CampaignID, email.ProfileID, email.EmailID, model.CampaignProfileEmailFailed)
		return err
	}

	now := time.Now().UTC()
	email.Status = model.EmailStatusSent
	email.SentVia = sentVia
	email.MessageID = messageID
	email.SentAt = &now
	email.ErrorMessage = ""
	if err := w.emails.Update(ctx, email); err != nil {
		return fmt.Errorf("failed to record sent email: %w", err)
	}
	w.markCampaignProfile(ctx, payload.TenantID, payload.CampaignID, email.ProfileID, email.EmailID, model.CampaignProfileEmailSent)
	return nil
}

// deliver sends through the delegated provider when one is usable and
// falls back to the platform transport only after the delegated path
// definitively failed.
func (w *EmailWorker) deliver(ctx context.Context, msg *client.OutboundMail, provider *model.MailProvider) (sentVia, messageID string, err error) {
	var delegatedErr error

	if provider != nil {
		mailer, ok := w.mailers[provider.Kind]
		if !ok {
			delegatedErr = fmt.Errorf("no mailer for provider kind %s", provider.Kind)
		} else {
			delegated := *msg
			delegated.FromEmail = provider.Email
			messageID, delegatedErr = retry.Do(ctx, w.policy, func(ctx context.Context) (string, error) {
				return mailer.SendMail(ctx, provider.AccessToken, &delegated)
			})
			if delegatedErr == nil {
				return string(provider.Kind), messageID, nil
			}
			log.Printf("Delegated send via %s failed: %v", provider.Kind, delegatedErr)
		}
	}

	if w.fallback == nil || !w.fallback.IsConfigured() {
		if delegatedErr != nil {
			return "", "", delegatedErr
		}
		return "", "", errors.New("no mail transport available")
	}

	messageID, err = retry.Do(ctx, w.policy, func(ctx context.Context) (string, error) {
		return w.fallback.SendMail(ctx, msg)
	})
	if err != nil {
		if delegatedErr != nil {
			return "", "", fmt.Errorf("delegated send failed (%v); fallback failed: %w", delegatedErr, err)
		}
		return "", "", err
	}
	return "ses", messageID, nil
}

// markCampaignProfile moves one campaign link along. Link bookkeeping is
// best-effort: a failed update never fails the item, the email record
// stays the source of truth.
func (w *EmailWorker) markCampaignProfile(ctx context.Context, tenantID, campaignID, profileID, emailID string, status model.CampaignProfileStatus) {
	if w.campaigns == nil || campaignID == "" {
		return
	}
	c, err := w.campaigns.GetOwned(ctx, tenantID, campaignID)
	if err != nil {
		log.Printf("Campaign %s lookup failed: %v", campaignID, err)
		return
	}
	link := c.Link(profileID)
	if link == nil {
		return
	}
	link.Status = status
	if emailID != "" {
		link.EmailID = emailID
	}
	c.UpdatedAt = time.Now().UTC()
	if err := w.campaigns.Put(ctx, c); err != nil {
		log.Printf("Failed to update campaign %s: %v", campaignID, err)
	}
}

// settleCampaign marks the campaign completed once every linked profile
// reached a terminal outreach state.
func (w *EmailWorker) settleCampaign(ctx context.Context, tenantID, campaignID string) {
	if w.campaigns == nil || campaignID == "" {
		return
	}
	c, err := w.campaigns.GetOwned(ctx, tenantID, campaignID)
	if err != nil {
		log.Printf("Campaign %s lookup failed: %v", campaignID, err)
		return
	}
	if c.Status == model.CampaignStatusCompleted || !c.Settled() {
		return
	}
	c.Status = model.CampaignStatusCompleted
	c.UpdatedAt = time.Now().UTC()
	if err := w.campaigns.Put(ctx, c); err != nil {
		log.Printf("Failed to complete campaign %s: %v", campaignID, err)
	}
}

func (w *EmailWorker) markSendFailed(ctx context.Context, email *model.Email, cause error) {
	email.Status = model.EmailStatusFailed
	email.ErrorMessage = cause.Error()
	if err := w.emails.Update(ctx, email); err != nil {
		log.Printf("Failed to record send failure on email %s: %v", email.EmailID, err)
	}
}
