package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"woovideo/internal/domain"
	"woovideo/internal/infra"
	"woovideo/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a pending job and fills SubmittedAt.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.GenerationJob) error {
	if job == nil || job.ID == "" || job.OwnerUserID <= 0 {
		return domain.ErrInvalidJob
	}
	request, err := json.Marshal(map[string]any{
		"product_id":   job.ProductID,
		"product_name": job.ProductName,
	})
	if err != nil {
		return err
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertVideoJob,
		job.ID,
		job.OwnerUserID,
		job.ProductID,
		job.ProductName,
		job.PointsCost,
		request,
	)
	var submittedAt time.Time
	if err := row.Scan(&submittedAt); err != nil {
		return fmt.Errorf("insert video job: %w", err)
	}
	job.Status = domain.JobStatusPending
	job.SubmittedAt = submittedAt
	job.UpdatedAt = submittedAt
	return nil
}

// GetForOwner fetches a job owned by ownerUserID.
func (r *JobRepositoryPG) GetForOwner(ctx context.Context, jobID string, ownerUserID int64) (*domain.GenerationJob, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectVideoJobForOwner, jobID, ownerUserID)
	var (
		job    domain.GenerationJob
		status string
	)
	if err := row.Scan(
		&job.ID,
		&job.OwnerUserID,
		&status,
		&job.ProductID,
		&job.ProductName,
		&job.VideoURL,
		&job.ErrorMessage,
		&job.PointsCost,
		&job.PointsDeducted,
		&job.SubmittedAt,
		&job.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}

// Complete settles a pending job as completed and charges its owner.
func (r *JobRepositoryPG) Complete(ctx context.Context, jobID, videoURL string) (*domain.Settlement, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QCompleteVideoJob, jobID, videoURL)
	s := domain.Settlement{Status: domain.JobStatusCompleted, VideoURL: videoURL}
	if err := row.Scan(&s.JobID, &s.OwnerUserID, &s.PointsDeducted, &s.NewBalance); err != nil {
		if infra.IsNoRows(err) {
			return nil, r.settleMiss(ctx, jobID)
		}
		return nil, err
	}
	return &s, nil
}

// Fail settles a pending job as failed without charge.
func (r *JobRepositoryPG) Fail(ctx context.Context, jobID, message string) (*domain.Settlement, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QFailVideoJob, jobID, message)
	s := domain.Settlement{Status: domain.JobStatusFailed, Message: message}
	if err := row.Scan(&s.JobID, &s.OwnerUserID, &s.NewBalance); err != nil {
		if infra.IsNoRows(err) {
			return nil, r.settleMiss(ctx, jobID)
		}
		return nil, err
	}
	return &s, nil
}

// settleMiss tells an unknown job apart from one that is already terminal.
func (r *JobRepositoryPG) settleMiss(ctx context.Context, jobID string) error {
	var status string
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectVideoJobStatus, jobID).Scan(&status); err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrNotFound
		}
		return err
	}
	return domain.ErrDuplicateOperation
}

// ListStale returns pending jobs submitted more than olderThan ago.
func (r *JobRepositoryPG) ListStale(ctx context.Context, olderThan time.Duration, limit int) ([]domain.GenerationJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectStaleVideoJobs, olderThan.Seconds(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []domain.GenerationJob
	for rows.Next() {
		job := domain.GenerationJob{Status: domain.JobStatusPending}
		if err := rows.Scan(&job.ID, &job.OwnerUserID, &job.SubmittedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
