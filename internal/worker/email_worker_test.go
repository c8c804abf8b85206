package worker

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/launchsignal/api/internal/client"
	"github.com/launchsignal/api/internal/model"
)

type emailFixture struct {
	w          *EmailWorker
	emails     *memEmails
	outreach   *fakeOutreach
	providers  *fakeProviders
	campaigns  *memCampaigns
	gmail      *fakeMailer
	graph      *fakeMailer
	fallback   *fakeFallback
	campaignID string
}

func newEmailFixture() *emailFixture {
	jobs, _ := newTestJobs()
	f := &emailFixture{
		emails:    newMemEmails(),
		outreach:  newFakeOutreach(),
		providers: &fakeProviders{},
		campaigns: newMemCampaigns(),
		gmail:     &fakeMailer{},
		graph:     &fakeMailer{},
		fallback:  &fakeFallback{configured: true},
	}
	mailers := map[model.ProviderKind]client.OAuthMailer{
		model.ProviderGoogle:    f.gmail,
		model.ProviderMicrosoft: f.graph,
	}
	f.w = NewEmailWorker(jobs, f.emails, f.outreach, f.providers, f.campaigns, mailers, f.fallback, testHub(), testWorkerCfg)
	f.w.policy = fastPolicy
	return f
}

func (f *emailFixture) seedSender() {
	f.outreach.users["user-1"] = &model.User{
		UserID:    "user-1",
		TenantID:  "tenant-1",
		Email:     "sender@example.test",
		FirstName: "Sam",
		LastName:  "Sender",
	}
}

func (f *emailFixture) seedDraft(id string) {
	f.emails.seed(&model.Email{
		EmailID:   id,
		TenantID:  "tenant-1",
		PostID:    "post-1",
		ProfileID: "prof-1",
		Status:    model.EmailStatusDraft,
		Recipient: "lead@example.test",
		Subject:   "Congrats on the launch",
		Body:      "Saw the news.",
	})
}

func (f *emailFixture) activeProvider(kind model.ProviderKind) {
	exp := time.Now().Add(time.Hour)
	f.providers.provider = &model.MailProvider{
		ProviderID:     "prov-1",
		UserID:         "user-1",
		TenantID:       "tenant-1",
		Kind:           kind,
		Email:          "sender@corp.test",
		AccessToken:    "token",
		TokenExpiresAt: &exp,
		IsActive:       true,
	}
}

func (f *emailFixture) runSend(t *testing.T, emailIDs ...string) *model.Job {
	t.Helper()
	ctx := context.Background()
	job, err := f.w.jobs.Create(ctx, "tenant-1", model.JobTypeEmailSend, len(emailIDs))
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	data, _ := json.Marshal(&model.EmailSendTaskPayload{
		JobID: job.JobID, TenantID: "tenant-1", UserID: "user-1", EmailIDs: emailIDs,
		CampaignID: f.campaignID,
	})
	if err := f.w.ProcessSendTask(ctx, asynq.NewTask("email:send", data)); err != nil {
		t.Fatalf("process: %v", err)
	}
	got, err := f.w.jobs.Get(ctx, "tenant-1", job.JobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	return got
}

func TestProcessSendTask_DelegatedProvider(t *testing.T) {
	f := newEmailFixture()
	f.seedSender()
	f.seedDraft("email-1")
	f.activeProvider(model.ProviderGoogle)

	job := f.runSend(t, "email-1")
	if job.Status != model.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (%+v)", job.Status, job.Results)
	}

	if len(f.gmail.sent) != 1 {
		t.Fatalf("expected one delegated send, got %d", len(f.gmail.sent))
	}
	if f.gmail.sent[0].FromEmail != "sender@corp.test" {
		t.Errorf("delegated send must use the connected mailbox, got %q", f.gmail.sent[0].FromEmail)
	}
	if len(f.fallback.sent) != 0 {
		t.Error("fallback must stay idle when the delegated send succeeds")
	}

	e, _ := f.emails.GetOwned(context.Background(), "tenant-1", "email-1")
	if e.Status != model.EmailStatusSent || e.SentVia != "google" || e.MessageID == "" || e.SentAt == nil {
		t.Errorf("sent email not recorded: %+v", e)
	}
}

func TestProcessSendTask_RefreshFailureDeactivatesAndFallsBack(t *testing.T) {
	f := newEmailFixture()
	f.seedSender()
	f.seedDraft("email-1")
	f.activeProvider(model.ProviderGoogle)
	f.providers.refreshErr = &client.APIError{Service: "google", StatusCode: 400, Body: "invalid_grant"}

	job := f.runSend(t, "email-1")
	if job.Status != model.JobStatusCompleted {
		t.Fatalf("expected completed via fallback, got %s", job.Status)
	}

	if len(f.providers.deactivated) != 1 || f.providers.deactivated[0] != "prov-1" {
		t.Errorf("provider with a dead refresh token must be deactivated, got %v", f.providers.deactivated)
	}
	if f.gmail.calls != 0 {
		t.Error("delegated mailer must not be used after a failed refresh")
	}
	e, _ := f.emails.GetOwned(context.Background(), "tenant-1", "email-1")
	if e.SentVia != "ses" {
		t.Errorf("expected fallback delivery, got sent_via=%q", e.SentVia)
	}
}

func TestProcessSendTask_NoProviderUsesFallback(t *testing.T) {
	f := newEmailFixture()
	f.seedSender()
	f.seedDraft("email-1")

	job := f.runSend(t, "email-1")
	if job.Status != model.JobStatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if len(f.fallback.sent) != 1 {
		t.Fatalf("expected one fallback send, got %d", len(f.fallback.sent))
	}
	e, _ := f.emails.GetOwned(context.Background(), "tenant-1", "email-1")
	if e.SentVia != "ses" {
		t.Errorf("expected sent_via=ses, got %q", e.SentVia)
	}
}

func TestProcessSendTask_DelegatedFailureFallsBack(t *testing.T) {
	f := newEmailFixture()
	f.seedSender()
	f.seedDraft("email-1")
	f.activeProvider(model.ProviderMicrosoft)
	f.graph.sendErr = &client.APIError{Service: "graph", StatusCode: 403, Body: "mailbox disabled"}

	job := f.runSend(t, "email-1")
	if job.Status != model.JobStatusCompleted {
		t.Fatalf("expected completed via fallback, got %s", job.Status)
	}
	// A 403 is not retried before giving way to the fallback.
	if f.graph.calls != 1 {
		t.Errorf("expected one delegated attempt, got %d", f.graph.calls)
	}
	e, _ := f.emails.GetOwned(context.Background(), "tenant-1", "email-1")
	if e.SentVia != "ses" {
		t.Errorf("expected fallback delivery, got sent_via=%q", e.SentVia)
	}
}

func TestProcessSendTask_BothTransportsFail(t *testing.T) {
	f := newEmailFixture()
	f.seedSender()
	f.seedDraft("email-1")
	f.activeProvider(model.ProviderGoogle)
	f.gmail.sendErr = &client.APIError{Service: "gmail", StatusCode: 400, Body: "bad request"}
	f.fallback.sendErr = &client.APIError{Service: "ses", StatusCode: 400, Body: "address suppressed"}

	job := f.runSend(t, "email-1")
	if job.Status != model.JobStatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}

	e, _ := f.emails.GetOwned(context.Background(), "tenant-1", "email-1")
	if e.Status != model.EmailStatusFailed {
		t.Errorf("expected failed email, got %s", e.Status)
	}
	if !strings.Contains(e.ErrorMessage, "gmail") || !strings.Contains(e.ErrorMessage, "ses") {
		t.Errorf("error must name both transports, got %q", e.ErrorMessage)
	}
}

func TestProcessSendTask_AlreadySentIsSkipped(t *testing.T) {
	f := newEmailFixture()
	f.seedSender()

	sentAt := time.Now().Add(-time.Hour)
	f.emails.seed(&model.Email{
		EmailID:   "email-1",
		TenantID:  "tenant-1",
		Status:    model.EmailStatusSent,
		Recipient: "lead@example.test",
		SentVia:   "ses",
		MessageID: "orig-id",
		SentAt:    &sentAt,
	})

	job := f.runSend(t, "email-1")
	if job.Status != model.JobStatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if len(f.fallback.sent) != 0 || f.gmail.calls != 0 {
		t.Error("an already sent email must not be delivered again")
	}
	e, _ := f.emails.GetOwned(context.Background(), "tenant-1", "email-1")
	if e.MessageID != "orig-id" {
		t.Errorf("original delivery record must be untouched, got %+v", e)
	}
}

func (f *emailFixture) seedGenerationInputs() {
	f.seedSender()
	f.outreach.posts["post-1"] = &model.Post{
		PostID:    "post-1",
		TenantID:  "tenant-1",
		CompanyID: "comp-1",
		Text:      "We are live with our new analytics suite today!",
	}
	f.outreach.companies["comp-1"] = &model.Company{
		CompanyID: "comp-1",
		TenantID:  "tenant-1",
		Name:      "Initech",
	}
	f.outreach.templates["tmpl-1"] = &model.EmailTemplate{
		TemplateID: "tmpl-1",
		TenantID:   "tenant-1",
		Name:       "Launch outreach",
		Subject:    "Congrats {{profile_name}}",
		Body:       "Hi {{profile_name}}, saw {{company_name}} announce: {{post_excerpt}}. Best, {{sender_name}}",
	}
}

func (f *emailFixture) runGeneration(t *testing.T, profileIDs ...string) *model.Job {
	t.Helper()
	ctx := context.Background()
	job, err := f.w.jobs.Create(ctx, "tenant-1", model.JobTypeEmailGeneration, len(profileIDs))
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	data, _ := json.Marshal(&model.EmailGenTaskPayload{
		JobID:      job.JobID,
		TenantID:   "tenant-1",
		UserID:     "user-1",
		PostID:     "post-1",
		TemplateID: "tmpl-1",
		ProfileIDs: profileIDs,
		CampaignID: f.campaignID,
	})
	if err := f.w.ProcessGenerationTask(ctx, asynq.NewTask("email:generate", data)); err != nil {
		t.Fatalf("process: %v", err)
	}
	got, err := f.w.jobs.Get(ctx, "tenant-1", job.JobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	return got
}

func TestProcessGenerationTask_RendersDraftPerProfile(t *testing.T) {
	f := newEmailFixture()
	f.seedGenerationInputs()
	f.outreach.profiles["prof-1"] = &model.Profile{
		ProfileID: "prof-1",
		TenantID:  "tenant-1",
		FullName:  "Ada Example",
		Email:     "ada@example.test",
	}
	f.outreach.profiles["prof-2"] = &model.Profile{
		ProfileID: "prof-2",
		TenantID:  "tenant-1",
		FirstName: "Grace",
		LastName:  "Tester",
		// No email address: this one cannot get a draft.
	}

	job := f.runGeneration(t, "prof-1", "prof-2")
	if job.Status != model.JobStatusPartial {
		t.Fatalf("expected partial, got %s (%+v)", job.Status, job.Results)
	}
	if job.SuccessCount != 1 || job.FailureCount != 1 {
		t.Errorf("expected counters 1/1, got %d/%d", job.SuccessCount, job.FailureCount)
	}

	var draft *model.Email
	for _, e := range f.emails.emails {
		draft = e
	}
	if draft == nil || draft.Status != model.EmailStatusDraft {
		t.Fatalf("expected one draft, got %+v", draft)
	}
	if draft.Recipient != "ada@example.test" {
		t.Errorf("draft addressed to %q", draft.Recipient)
	}
	if !strings.Contains(draft.Subject, "Ada Example") {
		t.Errorf("subject placeholders not rendered: %q", draft.Subject)
	}
	if !strings.Contains(draft.Body, "Initech") || !strings.Contains(draft.Body, "Sam") {
		t.Errorf("body placeholders not rendered: %q", draft.Body)
	}
}

func (f *emailFixture) seedCampaign(links ...model.CampaignProfile) {
	f.campaignID = "camp-1"
	f.campaigns.seed(&model.Campaign{
		CampaignID: "camp-1",
		TenantID:   "tenant-1",
		PostID:     "post-1",
		Name:       "Launch push",
		Status:     model.CampaignStatusActive,
		Profiles:   links,
	})
}

func TestProcessGenerationTask_AdvancesCampaignLinks(t *testing.T) {
	f := newEmailFixture()
	f.seedGenerationInputs()
	f.outreach.profiles["prof-1"] = &model.Profile{
		ProfileID: "prof-1",
		TenantID:  "tenant-1",
		FullName:  "Ada Example",
		Email:     "ada@example.test",
	}
	f.outreach.profiles["prof-2"] = &model.Profile{
		ProfileID: "prof-2",
		TenantID:  "tenant-1",
		FullName:  "Grace Tester",
		// No email address: generation fails for this one.
	}
	f.seedCampaign(
		model.CampaignProfile{ProfileID: "prof-1", Status: model.CampaignProfilePending},
		model.CampaignProfile{ProfileID: "prof-2", Status: model.CampaignProfilePending},
	)

	f.runGeneration(t, "prof-1", "prof-2")

	c := f.campaigns.get("camp-1")
	drafted := c.Link("prof-1")
	if drafted.Status != model.CampaignProfileEmailGenerated {
		t.Errorf("drafted profile link must be email_generated, got %s", drafted.Status)
	}
	if drafted.EmailID == "" {
		t.Error("drafted profile link must record the draft's email id")
	}
	if got := c.Link("prof-2").Status; got != model.CampaignProfilePending {
		t.Errorf("profile without a draft must stay pending, got %s", got)
	}
	if c.Status != model.CampaignStatusActive {
		t.Errorf("generation must not settle the campaign, got %s", c.Status)
	}
}

func TestProcessSendTask_SettlesCampaign(t *testing.T) {
	f := newEmailFixture()
	f.seedSender()
	f.seedDraft("email-1")
	f.emails.seed(&model.Email{
		EmailID:   "email-2",
		TenantID:  "tenant-1",
		PostID:    "post-1",
		ProfileID: "prof-2",
		Status:    model.EmailStatusDraft,
		Recipient: "lead2@example.test",
		Subject:   "Congrats on the launch",
		Body:      "Saw the news.",
	})
	f.seedCampaign(
		model.CampaignProfile{ProfileID: "prof-1", Status: model.CampaignProfileEmailGenerated, EmailID: "email-1"},
		model.CampaignProfile{ProfileID: "prof-2", Status: model.CampaignProfileEmailGenerated, EmailID: "email-2"},
	)

	job := f.runSend(t, "email-1", "email-2")
	if job.Status != model.JobStatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}

	c := f.campaigns.get("camp-1")
	for _, id := range []string{"prof-1", "prof-2"} {
		if got := c.Link(id).Status; got != model.CampaignProfileEmailSent {
			t.Errorf("link %s must be email_sent, got %s", id, got)
		}
	}
	if c.Status != model.CampaignStatusCompleted {
		t.Errorf("campaign with every link settled must complete, got %s", c.Status)
	}
}

func TestProcessSendTask_FailedDeliverySettlesCampaignLink(t *testing.T) {
	f := newEmailFixture()
	f.seedSender()
	f.seedDraft("email-1")
	f.fallback.sendErr = &client.APIError{Service: "ses", StatusCode: 400, Body: "address suppressed"}
	f.seedCampaign(
		model.CampaignProfile{ProfileID: "prof-1", Status: model.CampaignProfileEmailGenerated, EmailID: "email-1"},
	)

	job := f.runSend(t, "email-1")
	if job.Status != model.JobStatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}

	c := f.campaigns.get("camp-1")
	if got := c.Link("prof-1").Status; got != model.CampaignProfileEmailFailed {
		t.Errorf("undeliverable link must be email_failed, got %s", got)
	}
	if c.Status != model.CampaignStatusCompleted {
		t.Errorf("a failed link still settles the campaign, got %s", c.Status)
	}
}

func TestProcessGenerationTask_EmptyPostFailsJob(t *testing.T) {
	f := newEmailFixture()
	f.seedGenerationInputs()
	f.outreach.posts["post-1"].Text = ""
	f.outreach.profiles["prof-1"] = &model.Profile{
		ProfileID: "prof-1", TenantID: "tenant-1", Email: "ada@example.test",
	}

	job := f.runGeneration(t, "prof-1")
	if job.Status != model.JobStatusFailed {
		t.Fatalf("a post without text must fail the whole job, got %s", job.Status)
	}
	if len(f.emails.emails) != 0 {
		t.Error("no drafts may be created when the shared inputs are unusable")
	}
}
