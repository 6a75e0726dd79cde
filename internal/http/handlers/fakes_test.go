package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"woovideo/internal/domain"
	"woovideo/internal/events"
	"woovideo/internal/infra"
	"woovideo/internal/middleware"
	"woovideo/internal/n8n"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[int64]*domain.User
}

func (m *memoryUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) GrantPoints(_ context.Context, id int64, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	u.PointsBalance = max(u.PointsBalance+amount, 0)
	return u.PointsBalance, nil
}

// memoryJobs settles jobs like the SQL repository: once, charging on completion.
type memoryJobs struct {
	mu    sync.Mutex
	jobs  map[string]*domain.GenerationJob
	users *memoryUsers
}

func (m *memoryJobs) Create(_ context.Context, job *domain.GenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.Status = domain.JobStatusPending
	job.SubmittedAt = time.Now()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memoryJobs) GetForOwner(_ context.Context, jobID string, owner int64) (*domain.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.OwnerUserID != owner {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *memoryJobs) settle(jobID string, apply func(job *domain.GenerationJob, user *domain.User)) (*domain.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return nil, domain.ErrDuplicateOperation
	}
	m.users.mu.Lock()
	defer m.users.mu.Unlock()
	user := m.users.users[job.OwnerUserID]
	apply(job, user)
	return &domain.Settlement{
		JobID:          job.ID,
		OwnerUserID:    job.OwnerUserID,
		Status:         job.Status,
		VideoURL:       job.VideoURL,
		Message:        job.ErrorMessage,
		NewBalance:     user.PointsBalance,
		PointsDeducted: job.PointsDeducted,
	}, nil
}

func (m *memoryJobs) Complete(_ context.Context, jobID, videoURL string) (*domain.Settlement, error) {
	return m.settle(jobID, func(job *domain.GenerationJob, user *domain.User) {
		job.Status = domain.JobStatusCompleted
		job.VideoURL = videoURL
		job.PointsDeducted = min(job.PointsCost, user.PointsBalance)
		user.PointsBalance -= job.PointsDeducted
	})
}

func (m *memoryJobs) Fail(_ context.Context, jobID, message string) (*domain.Settlement, error) {
	return m.settle(jobID, func(job *domain.GenerationJob, _ *domain.User) {
		job.Status = domain.JobStatusFailed
		job.ErrorMessage = message
	})
}

func (m *memoryJobs) ListStale(context.Context, time.Duration, int) ([]domain.GenerationJob, error) {
	return nil, nil
}

func (m *memoryJobs) get(jobID string) domain.GenerationJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.jobs[jobID]
}

func (m *memoryJobs) only() domain.GenerationJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		return *job
	}
	return domain.GenerationJob{}
}

type memoryPrefs struct {
	mu    sync.Mutex
	prefs map[int64]domain.Preferences
	err   error
}

func (m *memoryPrefs) Get(_ context.Context, userID int64) (*domain.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[userID]
	if !ok {
		return &domain.Preferences{UserID: userID}, nil
	}
	return &p, nil
}

func (m *memoryPrefs) Save(_ context.Context, p domain.Preferences) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p.UpdatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	m.prefs[p.UserID] = p
	return nil
}

type fakeSubmitter struct {
	mu       sync.Mutex
	requests []n8n.SubmitRequest
	urls     []string
	err      error
	execID   string
}

func (f *fakeSubmitter) Submit(_ context.Context, webhookURL string, req n8n.SubmitRequest) (n8n.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.urls = append(f.urls, webhookURL)
	if f.err != nil {
		return n8n.SubmitResult{}, f.err
	}
	return n8n.SubmitResult{JobID: req.JobID, ExecutionID: f.execID, StatusCode: http.StatusOK}, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []domain.JobMessage
	next events.Publisher
}

func (p *recordingPublisher) Publish(ctx context.Context, msg domain.JobMessage) error {
	p.mu.Lock()
	p.msgs = append(p.msgs, msg)
	p.mu.Unlock()
	if p.next != nil {
		return p.next.Publish(ctx, msg)
	}
	return nil
}

func (p *recordingPublisher) published() []domain.JobMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.JobMessage(nil), p.msgs...)
}

type testEnv struct {
	app   *App
	users *memoryUsers
	jobs  *memoryJobs
	prefs *memoryPrefs
	sub   *fakeSubmitter
	pub   *recordingPublisher
	hub   *events.Hub
}

const testCallbackSecret = "callback-secret"

func newTestEnv() *testEnv {
	users := &memoryUsers{users: map[int64]*domain.User{
		1: {ID: 1, Email: "owner@shop.test", Name: "Owner", PointsBalance: 100},
		2: {ID: 2, Email: "other@shop.test", PointsBalance: 5},
	}}
	jobs := &memoryJobs{jobs: map[string]*domain.GenerationJob{}, users: users}
	prefs := &memoryPrefs{prefs: map[int64]domain.Preferences{
		1: {UserID: 1, WebhookURL: "https://n8n.test/webhook/video"},
	}}
	hub := events.NewHub(zerolog.Nop(), 4)
	pub := &recordingPublisher{next: hub}
	sub := &fakeSubmitter{}

	cfg := &infra.Config{
		PublicBaseURL:      "https://api.woovideo.test",
		N8NCallbackSecret:  testCallbackSecret,
		VideoPointsCost:    10,
		SSEHeartbeat:       time.Hour,
		CORSAllowedOrigins: []string{"https://app.woovideo.test"},
	}
	app := NewApp(cfg, zerolog.Nop())
	app.Users = users
	app.Jobs = jobs
	app.Prefs = prefs
	app.Submitter = sub
	app.Publisher = pub
	app.Hub = hub

	return &testEnv{app: app, users: users, jobs: jobs, prefs: prefs, sub: sub, pub: pub, hub: hub}
}

func asUser(r *http.Request, userID int64) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

func withUser(userID int64, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next(w, asUser(r, userID))
	})
}
