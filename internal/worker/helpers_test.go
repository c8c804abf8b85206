package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/launchsignal/api/internal/client"
	"github.com/launchsignal/api/internal/config"
	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/retry"
	"github.com/launchsignal/api/internal/service"
	"github.com/launchsignal/api/internal/store"
	"github.com/launchsignal/api/internal/websocket"
)

// fastPolicy avoids real backoff sleeps in tests.
var fastPolicy = retry.Policy{
	MaxAttempts: 3,
	BaseDelay:   time.Millisecond,
	MaxDelay:    5 * time.Millisecond,
	Multiplier:  2,
	Classify:    client.ClassifyError,
}

var testWorkerCfg = config.WorkerConfig{
	Concurrency:  1,
	ChunkSize:    50,
	PollInterval: time.Millisecond,
	PollTimeout:  50 * time.Millisecond,
}

func testHub() *websocket.Hub {
	hub := websocket.NewHub()
	go hub.Run()
	return hub
}

// memJobs is an in-memory store.JobStore stand-in.
type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func newMemJobs() *memJobs { return &memJobs{jobs: make(map[string]*model.Job)} }

func (m *memJobs) Put(ctx context.Context, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.JobID] = &cp
	return nil
}

func (m *memJobs) Get(ctx context.Context, jobID string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *memJobs) ListByTenant(ctx context.Context, tenantID string) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Job
	for _, job := range m.jobs {
		if job.TenantID == tenantID {
			cp := *job
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memJobs) ActiveJobIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, job := range m.jobs {
		if !job.Status.IsTerminal() {
			out = append(out, id)
		}
	}
	return out, nil
}

func newTestJobs() (*service.JobService, *memJobs) {
	mem := newMemJobs()
	return service.NewJobService(mem), mem
}

// memProfiles implements ProfileRepo.
type memProfiles struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
}

func newMemProfiles() *memProfiles {
	return &memProfiles{profiles: make(map[string]*model.Profile)}
}

func (m *memProfiles) seed(p *model.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[p.ProfileID] = &cp
}

func (m *memProfiles) GetOwned(ctx context.Context, tenantID, profileID string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[profileID]
	if !ok || p.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) Put(ctx context.Context, p *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[p.ProfileID] = &cp
	return nil
}

func (m *memProfiles) Upsert(ctx context.Context, p *model.Profile) error {
	return m.Put(ctx, p)
}

// memPosts implements PostRepo and AnalyzedPostRepo.
type memPosts struct {
	mu    sync.Mutex
	posts map[string]*model.Post
	byURL map[string]string
}

func newMemPosts() *memPosts {
	return &memPosts{posts: make(map[string]*model.Post), byURL: make(map[string]string)}
}

func (m *memPosts) seed(p *model.Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.posts[p.PostID] = &cp
	m.byURL[p.TenantID+"|"+p.SourceURL] = p.PostID
}

func (m *memPosts) GetOwned(ctx context.Context, tenantID, postID string) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok || p.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPosts) Put(ctx context.Context, p *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.posts[p.PostID] = &cp
	return nil
}

func (m *memPosts) Upsert(ctx context.Context, p *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := p.TenantID + "|" + p.SourceURL
	if existingID, ok := m.byURL[key]; ok {
		p.PostID = existingID
	} else if p.PostID == "" {
		p.PostID = fmt.Sprintf("post-%d", len(m.posts)+1)
	}
	m.byURL[key] = p.PostID
	cp := *p
	m.posts[p.PostID] = &cp
	return nil
}

func (m *memPosts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts)
}

// memCompanies implements CompanyRepo.
type memCompanies struct {
	mu        sync.Mutex
	companies map[string]*model.Company
}

func newMemCompanies() *memCompanies {
	return &memCompanies{companies: make(map[string]*model.Company)}
}

func (m *memCompanies) seed(c *model.Company) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.companies[c.CompanyID] = &cp
}

func (m *memCompanies) GetOwned(ctx context.Context, tenantID, companyID string) (*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[companyID]
	if !ok || c.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCompanies) Put(ctx context.Context, c *model.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.companies[c.CompanyID] = &cp
	return nil
}

// fakeRun scripts the outcome of one actor run.
type fakeRun struct {
	submitErr error
	pollErr   error
	records   []map[string]interface{}
}

// fakeRunner implements client.ActorRunner with scripted per-URL
// behavior.
type fakeRunner struct {
	mu       sync.Mutex
	behavior map[string]fakeRun
	submits  map[string]int
	nextRun  int
	running  map[string]fakeRun
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		behavior: make(map[string]fakeRun),
		submits:  make(map[string]int),
		running:  make(map[string]fakeRun),
	}
}

func (f *fakeRunner) script(url string, run fakeRun) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.behavior[url] = run
}

func (f *fakeRunner) submitCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits[url]
}

func (f *fakeRunner) start(url string) (*client.ActorRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits[url]++
	run := f.behavior[url]
	if run.submitErr != nil {
		return nil, run.submitErr
	}
	f.nextRun++
	runID := fmt.Sprintf("run-%d", f.nextRun)
	f.running[runID] = run
	return &client.ActorRun{ID: runID, Status: client.RunStatusRunning}, nil
}

func (f *fakeRunner) RunProfileActor(ctx context.Context, input *client.ProfileActorInput) (*client.ActorRun, error) {
	return f.start(input.ProfileURLs[0])
}

func (f *fakeRunner) RunPostActor(ctx context.Context, input *client.PostActorInput) (*client.ActorRun, error) {
	return f.start(input.CompanyURL)
}

func (f *fakeRunner) GetRun(ctx context.Context, runID string) (*client.ActorRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run := f.running[runID]
	if run.pollErr != nil {
		return nil, run.pollErr
	}
	return &client.ActorRun{ID: runID, Status: client.RunStatusSucceeded, DefaultDatasetID: runID}, nil
}

func (f *fakeRunner) PollRun(ctx context.Context, runID string, interval, maxWait time.Duration) (*client.ActorRun, error) {
	return f.GetRun(ctx, runID)
}

func (f *fakeRunner) DatasetItems(ctx context.Context, datasetID string) ([]map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[datasetID].records, nil
}

// fakeLLM implements client.TextCompleter with a scripted reply per call.
type fakeLLM struct {
	mu      sync.Mutex
	replies []func() (string, error)
	calls   int
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.replies) == 0 {
		return "", fmt.Errorf("no scripted reply")
	}
	next := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return next()
}

func reply(text string) func() (string, error) {
	return func() (string, error) { return text, nil }
}

// memEmails implements EmailRepo with the sent-immutability guard.
type memEmails struct {
	mu     sync.Mutex
	emails map[string]*model.Email
}

func newMemEmails() *memEmails {
	return &memEmails{emails: make(map[string]*model.Email)}
}

func (m *memEmails) seed(e *model.Email) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.emails[e.EmailID] = &cp
}

func (m *memEmails) Create(ctx context.Context, e *model.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.emails[e.EmailID] = &cp
	return nil
}

func (m *memEmails) GetOwned(ctx context.Context, tenantID, emailID string) (*model.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.emails[emailID]
	if !ok || e.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEmails) Update(ctx context.Context, e *model.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.emails[e.EmailID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Status == model.EmailStatusSent {
		return store.ErrEmailImmutable
	}
	cp := *e
	m.emails[e.EmailID] = &cp
	return nil
}

// fakeOutreach implements OutreachContext.
type fakeOutreach struct {
	profiles  map[string]*model.Profile
	posts     map[string]*model.Post
	companies map[string]*model.Company
	templates map[string]*model.EmailTemplate
	users     map[string]*model.User
}

func newFakeOutreach() *fakeOutreach {
	return &fakeOutreach{
		profiles:  make(map[string]*model.Profile),
		posts:     make(map[string]*model.Post),
		companies: make(map[string]*model.Company),
		templates: make(map[string]*model.EmailTemplate),
		users:     make(map[string]*model.User),
	}
}

func (f *fakeOutreach) GetProfile(ctx context.Context, tenantID, profileID string) (*model.Profile, error) {
	if p, ok := f.profiles[profileID]; ok && p.TenantID == tenantID {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeOutreach) GetPost(ctx context.Context, tenantID, postID string) (*model.Post, error) {
	if p, ok := f.posts[postID]; ok && p.TenantID == tenantID {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeOutreach) GetCompany(ctx context.Context, tenantID, companyID string) (*model.Company, error) {
	if c, ok := f.companies[companyID]; ok && c.TenantID == tenantID {
		return c, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeOutreach) GetTemplate(ctx context.Context, tenantID, templateID string) (*model.EmailTemplate, error) {
	if t, ok := f.templates[templateID]; ok {
		return t, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeOutreach) GetUser(ctx context.Context, userID string) (*model.User, error) {
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

// memCampaigns implements CampaignRepo.
type memCampaigns struct {
	mu        sync.Mutex
	campaigns map[string]*model.Campaign
}

func newMemCampaigns() *memCampaigns {
	return &memCampaigns{campaigns: make(map[string]*model.Campaign)}
}

func (m *memCampaigns) seed(c *model.Campaign) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.Profiles = append([]model.CampaignProfile(nil), c.Profiles...)
	m.campaigns[c.CampaignID] = &cp
}

func (m *memCampaigns) GetOwned(ctx context.Context, tenantID, campaignID string) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok || c.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	cp := *c
	cp.Profiles = append([]model.CampaignProfile(nil), c.Profiles...)
	return &cp, nil
}

func (m *memCampaigns) Put(ctx context.Context, c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.Profiles = append([]model.CampaignProfile(nil), c.Profiles...)
	m.campaigns[c.CampaignID] = &cp
	return nil
}

func (m *memCampaigns) get(campaignID string) *model.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.campaigns[campaignID]
}

// fakeProviders implements ProviderSource.
type fakeProviders struct {
	provider    *model.MailProvider
	refreshErr  error
	deactivated []string
}

func (f *fakeProviders) ActiveProvider(ctx context.Context, userID string) (*model.MailProvider, error) {
	if f.provider == nil || !f.provider.IsActive {
		return nil, store.ErrNotFound
	}
	return f.provider, nil
}

func (f *fakeProviders) EnsureFreshToken(ctx context.Context, p *model.MailProvider) (*model.MailProvider, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return p, nil
}

func (f *fakeProviders) DeactivateProvider(ctx context.Context, providerID string) error {
	f.deactivated = append(f.deactivated, providerID)
	if f.provider != nil && f.provider.ProviderID == providerID {
		f.provider.IsActive = false
	}
	return nil
}

// fakeMailer implements client.OAuthMailer.
type fakeMailer struct {
	sendErr error
	sent    []*client.OutboundMail
	calls   int
}

func (f *fakeMailer) AuthCodeURL(state string) string { return "https://example.test/auth?" + state }

func (f *fakeMailer) ExchangeCode(ctx context.Context, code string) (*client.OAuthToken, error) {
	return &client.OAuthToken{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600}, nil
}

func (f *fakeMailer) RefreshToken(ctx context.Context, refreshToken string) (*client.OAuthToken, error) {
	return &client.OAuthToken{AccessToken: "at2", ExpiresIn: 3600}, nil
}

func (f *fakeMailer) UserEmail(ctx context.Context, accessToken string) (string, error) {
	return "sender@example.test", nil
}

func (f *fakeMailer) SendMail(ctx context.Context, accessToken string, msg *client.OutboundMail) (string, error) {
	f.calls++
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, msg)
	return fmt.Sprintf("msg-%d", f.calls), nil
}

// fakeFallback implements client.FallbackMailer.
type fakeFallback struct {
	configured bool
	sendErr    error
	sent       []*client.OutboundMail
}

func (f *fakeFallback) SendMail(ctx context.Context, msg *client.OutboundMail) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, msg)
	return fmt.Sprintf("ses-%d", len(f.sent)), nil
}

func (f *fakeFallback) IsConfigured() bool { return f.configured }
