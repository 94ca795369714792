package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shorui-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type analysisJobRepository struct {
	db *pgxpool.Pool
}

// NewAnalysisJobRepository creates the Postgres-backed job queue the
// background worker drains.
func NewAnalysisJobRepository(db *pgxpool.Pool) domain.AnalysisJobRepository {
	return &analysisJobRepository{db: db}
}

func (r *analysisJobRepository) Enqueue(ctx context.Context, job *domain.AnalysisJob) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	job.UpdatedAt = job.CreatedAt

	payloadBytes, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO analysis_jobs (id, job_type, payload, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.Exec(ctx, query,
		job.ID,
		job.JobType,
		payloadBytes,
		job.Status,
		job.ErrorMessage,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// AcquireNext atomically claims the oldest new job and flips it to
// processing, so concurrent workers never pick up the same job.
func (r *analysisJobRepository) AcquireNext(ctx context.Context) (*domain.AnalysisJob, error) {
	cteQuery := `
		WITH next_job AS (
			SELECT id
			FROM analysis_jobs
			WHERE status = 'new'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE analysis_jobs
		SET status = 'processing', updated_at = $1
		FROM next_job
		WHERE analysis_jobs.id = next_job.id
		RETURNING analysis_jobs.id, analysis_jobs.job_type, analysis_jobs.payload, analysis_jobs.status,
		          analysis_jobs.error_message, analysis_jobs.created_at, analysis_jobs.updated_at
	`

	var job domain.AnalysisJob
	var payloadBytes []byte

	err := r.db.QueryRow(ctx, cteQuery, time.Now()).Scan(
		&job.ID,
		&job.JobType,
		&payloadBytes,
		&job.Status,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to acquire next job: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &job.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &job, nil
}

func (r *analysisJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	query := `
		UPDATE analysis_jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, status, errorMessage, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

func (r *analysisJobRepository) Get(ctx context.Context, id uuid.UUID) (*domain.AnalysisJob, error) {
	query := `
		SELECT id, job_type, payload, status, error_message, created_at, updated_at
		FROM analysis_jobs
		WHERE id = $1
	`
	var job domain.AnalysisJob
	var payloadBytes []byte

	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.JobType,
		&payloadBytes,
		&job.Status,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &job.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &job, nil
}
