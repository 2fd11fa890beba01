package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// SchedulingJobRepository persists timetable generation job metadata.
type SchedulingJobRepository struct {
	db *sqlx.DB
}

// NewSchedulingJobRepository constructs the repository.
func NewSchedulingJobRepository(db *sqlx.DB) *SchedulingJobRepository {
	return &SchedulingJobRepository{db: db}
}

// Create inserts a new job row with generated defaults.
func (r *SchedulingJobRepository) Create(ctx context.Context, job *models.SchedulingJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.SchedulingJobStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO scheduling_jobs (id, semester_id, params, status, result, created_by, created_at, finished_at, error_message)
VALUES (:id, :semester_id, :params, :status, :result, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create scheduling job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *SchedulingJobRepository) GetByID(ctx context.Context, id string) (*models.SchedulingJob, error) {
	const query = `SELECT id, semester_id, params, status, result, created_by, created_at, finished_at, error_message
FROM scheduling_jobs WHERE id = $1`
	var job models.SchedulingJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get scheduling job: %w", err)
	}
	return &job, nil
}

// UpdateSchedulingJobParams defines the mutable fields.
type UpdateSchedulingJobParams struct {
	Status       *models.SchedulingJobStatus
	Result       types.JSONText
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *SchedulingJobRepository) Update(ctx context.Context, id string, params UpdateSchedulingJobParams) error {
	set := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	argPos := 1

	if params.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}
	if len(params.Result) > 0 {
		set = append(set, fmt.Sprintf("result = $%d", argPos))
		args = append(args, params.Result)
		argPos++
	}
	if params.ErrorMessage != nil {
		set = append(set, fmt.Sprintf("error_message = $%d", argPos))
		args = append(args, *params.ErrorMessage)
		argPos++
	}
	if params.FinishedAt != nil {
		set = append(set, fmt.Sprintf("finished_at = $%d", argPos))
		args = append(args, *params.FinishedAt)
		argPos++
	}

	if len(set) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE scheduling_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update scheduling job: %w", err)
	}
	return nil
}

// ListQueued fetches queued jobs (used for cold start recovery).
func (r *SchedulingJobRepository) ListQueued(ctx context.Context, limit int) ([]models.SchedulingJob, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, semester_id, params, status, result, created_by, created_at, finished_at, error_message
FROM scheduling_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1`
	var jobs []models.SchedulingJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued scheduling jobs: %w", err)
	}
	return jobs, nil
}
