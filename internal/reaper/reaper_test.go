package reaper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"woovideo/internal/domain"
)

type staleJobs struct {
	stale    []domain.GenerationJob
	settled  map[string]bool
	failErr  map[string]error
	olderArg time.Duration
	limitArg int
}

func (s *staleJobs) Create(context.Context, *domain.GenerationJob) error { return nil }

func (s *staleJobs) GetForOwner(context.Context, string, int64) (*domain.GenerationJob, error) {
	return nil, domain.ErrNotFound
}

func (s *staleJobs) Complete(context.Context, string, string) (*domain.Settlement, error) {
	return nil, errors.New("unexpected complete")
}

func (s *staleJobs) Fail(_ context.Context, jobID, message string) (*domain.Settlement, error) {
	if err := s.failErr[jobID]; err != nil {
		return nil, err
	}
	if message != TimeoutMessage {
		return nil, errors.New("unexpected message " + message)
	}
	s.settled[jobID] = true
	for _, job := range s.stale {
		if job.ID == jobID {
			return &domain.Settlement{JobID: jobID, OwnerUserID: job.OwnerUserID, Status: domain.JobStatusFailed, Message: message, NewBalance: 40}, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *staleJobs) ListStale(_ context.Context, olderThan time.Duration, limit int) ([]domain.GenerationJob, error) {
	s.olderArg, s.limitArg = olderThan, limit
	return s.stale, nil
}

type publisherFunc func(context.Context, domain.JobMessage) error

func (f publisherFunc) Publish(ctx context.Context, msg domain.JobMessage) error { return f(ctx, msg) }

func TestSweepFailsStaleJobs(t *testing.T) {
	jobs := &staleJobs{
		stale: []domain.GenerationJob{
			{ID: "a", OwnerUserID: 1},
			{ID: "b", OwnerUserID: 2},
			{ID: "c", OwnerUserID: 3},
		},
		settled: map[string]bool{},
		failErr: map[string]error{"b": domain.ErrDuplicateOperation},
	}
	var published []domain.JobMessage
	pub := publisherFunc(func(_ context.Context, msg domain.JobMessage) error {
		published = append(published, msg)
		if msg.JobID == "c" {
			return errors.New("notify failed")
		}
		return nil
	})

	r := New(jobs, pub, Options{StaleAfter: time.Hour, BatchSize: 10, Logger: zerolog.Nop()})
	n, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep error: %v", err)
	}
	if n != 2 {
		t.Fatalf("settled %d, want 2", n)
	}
	if jobs.olderArg != time.Hour || jobs.limitArg != 10 {
		t.Fatalf("unexpected ListStale args %s %d", jobs.olderArg, jobs.limitArg)
	}
	if len(published) != 2 {
		t.Fatalf("published %d messages, want 2", len(published))
	}
	first := published[0]
	if first.Type != domain.EventVideoFailed || first.UserID != 1 || first.Message != TimeoutMessage || *first.NewBalance != 40 {
		t.Fatalf("unexpected message: %#v", first)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	r := New(&staleJobs{}, publisherFunc(func(context.Context, domain.JobMessage) error { return nil }), Options{})
	if r.opts.StaleAfter != 30*time.Minute || r.opts.Interval != time.Minute || r.opts.BatchSize != 50 {
		t.Fatalf("unexpected defaults: %#v", r.opts)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	jobs := &staleJobs{settled: map[string]bool{}}
	r := New(jobs, publisherFunc(func(context.Context, domain.JobMessage) error { return nil }), Options{Interval: time.Millisecond, Logger: zerolog.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
