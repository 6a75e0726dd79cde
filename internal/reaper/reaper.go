// Package reaper fails video jobs whose workflow never called back.
package reaper

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"woovideo/internal/domain"
	"woovideo/internal/events"
)

// TimeoutMessage is recorded on jobs failed by the reaper.
const TimeoutMessage = "generation timed out"

// Options tunes the sweep.
type Options struct {
	StaleAfter time.Duration
	Interval   time.Duration
	BatchSize  int
	Logger     zerolog.Logger
}

// Reaper periodically settles stale pending jobs as failed and announces them.
type Reaper struct {
	jobs      domain.JobRepository
	publisher events.Publisher
	opts      Options
	logger    zerolog.Logger
}

func New(jobs domain.JobRepository, publisher events.Publisher, opts Options) *Reaper {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 30 * time.Minute
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	return &Reaper{jobs: jobs, publisher: publisher, opts: opts, logger: opts.Logger}
}

// Run sweeps immediately and then every Interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	r.logger.Info().
		Dur("stale_after", r.opts.StaleAfter).
		Dur("interval", r.opts.Interval).
		Msg("worker: started")
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()
	for {
		if _, err := r.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error().Err(err).Msg("worker: sweep failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep fails one batch of stale jobs and returns how many it settled.
// Jobs settled concurrently by a late callback are skipped.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	stale, err := r.jobs.ListStale(ctx, r.opts.StaleAfter, r.opts.BatchSize)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, job := range stale {
		if err := ctx.Err(); err != nil {
			return settled, err
		}
		s, err := r.jobs.Fail(ctx, job.ID, TimeoutMessage)
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateOperation) || errors.Is(err, domain.ErrNotFound) {
				continue
			}
			r.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: fail stale job")
			continue
		}
		settled++
		if err := r.publisher.Publish(ctx, domain.MessageFromSettlement(*s)); err != nil {
			r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("worker: publish timeout event")
		}
		r.logger.Info().
			Str("job_id", job.ID).
			Int64("user_id", job.OwnerUserID).
			Time("submitted_at", job.SubmittedAt).
			Msg("worker: stale job failed")
	}
	return settled, nil
}
