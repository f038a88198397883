package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/shared"
)

// JobRepository persists conversion jobs and their reports.
//
// Reports are stored as a JSON blob alongside the job row; they are written
// once at terminal transition and read back whole, so a normalized per-track
// table buys nothing here.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new JobRepository with the given database connection
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job with a generated ID.
func (r *JobRepository) Create(job *models.ConversionJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	if job.ID == "" {
		job.ID = shared.GenerateID()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO jobs (id, user_id, source_provider, source_playlist_id, target_provider, status, failure_reason, report, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?, NULL)
	`

	_, err := r.db.Exec(query,
		job.ID,
		job.UserID,
		string(job.SourceProvider),
		job.SourcePlaylistID,
		string(job.TargetProvider),
		string(job.Status),
		job.FailureReason,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	return nil
}

// Update persists the job's status, failure reason, report, and completion time.
func (r *JobRepository) Update(job *models.ConversionJob) error {
	var report any
	if job.Report != nil {
		data, err := json.Marshal(job.Report)
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		report = string(data)
	}

	var completedAt any
	if job.CompletedAt != nil {
		completedAt = *job.CompletedAt
	}

	query := `
		UPDATE jobs
		SET status = ?, failure_reason = ?, report = ?, completed_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, string(job.Status), job.FailureReason, report, completedAt, job.ID)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, job.ID)
	}

	return nil
}

// Get retrieves a job by ID, including its report when present.
func (r *JobRepository) Get(id string) (*models.ConversionJob, error) {
	query := `
		SELECT id, user_id, source_provider, source_playlist_id, target_provider, status, failure_reason, report, created_at, completed_at
		FROM jobs
		WHERE id = ?
	`

	return scanJob(r.db.QueryRow(query, id))
}

// ListByUser retrieves a user's jobs, newest first, bounded by limit.
func (r *JobRepository) ListByUser(userID string, limit int) ([]*models.ConversionJob, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, user_id, source_provider, source_playlist_id, target_provider, status, failure_reason, report, created_at, completed_at
		FROM jobs
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ConversionJob
	for rows.Next() {
		job, err := scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row *sql.Row) (*models.ConversionJob, error) {
	job, err := scanInto(row)
	if err == sql.ErrNoRows {
		return nil, shared.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	return job, nil
}

func scanJobRow(rows *sql.Rows) (*models.ConversionJob, error) {
	job, err := scanInto(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	return job, nil
}

func scanInto(s rowScanner) (*models.ConversionJob, error) {
	var (
		job            models.ConversionJob
		sourceProvider string
		targetProvider string
		status         string
		report         sql.NullString
		completedAt    sql.NullTime
	)

	err := s.Scan(
		&job.ID,
		&job.UserID,
		&sourceProvider,
		&job.SourcePlaylistID,
		&targetProvider,
		&status,
		&job.FailureReason,
		&report,
		&job.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.SourceProvider = models.ProviderID(sourceProvider)
	job.TargetProvider = models.ProviderID(targetProvider)
	job.Status = models.JobStatus(status)

	if report.Valid {
		var decoded models.ConversionReport
		if err := json.Unmarshal([]byte(report.String), &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode report: %w", err)
		}
		job.Report = &decoded
	}

	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}

	return &job, nil
}
