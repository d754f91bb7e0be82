package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/priyamehta/docintel/internal/models"
)

var ErrNotFound = errors.New("job not found")

// Store persists analysis jobs. Status transitions are guarded in SQL so a
// terminal job can never move back to queued or running, regardless of how
// often a retry handler fires.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, job *models.Job) error {
	input, err := json.Marshal(job.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	options, err := json.Marshal(job.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}

	err = s.db.QueryRow(ctx,
		`INSERT INTO analysis_jobs (id, user_id, use_case, status, input, options)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		job.ID, job.UserID, job.UseCase, models.JobStatusQueued, input, options,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	job.Status = models.JobStatusQueued
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var (
		job       models.Job
		input     []byte
		options   []byte
		citations []byte
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, use_case, status, input, options, result, citations, error, created_at, updated_at
		 FROM analysis_jobs WHERE id = $1`, id,
	).Scan(&job.ID, &job.UserID, &job.UseCase, &job.Status, &input, &options,
		&job.Result, &citations, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}

	if err := json.Unmarshal(input, &job.Input); err != nil {
		return nil, fmt.Errorf("unmarshal input: %w", err)
	}
	if err := json.Unmarshal(options, &job.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	if len(citations) > 0 {
		if err := json.Unmarshal(citations, &job.Citations); err != nil {
			return nil, fmt.Errorf("unmarshal citations: %w", err)
		}
	}
	return &job, nil
}

// SetRunning marks a job running. Calling it on a terminal job is a no-op:
// a late retry must not resurrect a finished job.
func (s *Store) SetRunning(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, models.JobStatusRunning,
		`UPDATE analysis_jobs SET status = $2, updated_at = now()
		 WHERE id = $1 AND status IN ('queued', 'running')`)
}

// SetQueuedRetry moves a running job back to queued ahead of a retry,
// recording what went wrong with the attempt.
func (s *Store) SetQueuedRetry(ctx context.Context, id uuid.UUID, attemptErr string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE analysis_jobs SET status = $2, error = $3, updated_at = now()
		 WHERE id = $1 AND status IN ('queued', 'running')`,
		id, models.JobStatusQueued, attemptErr,
	)
	if err != nil {
		return fmt.Errorf("update job to queued: %w", err)
	}
	return nil
}

// SetSucceeded writes the final result and citations together with the
// status flip in a single statement, so a reader can never observe a
// succeeded job without its result.
func (s *Store) SetSucceeded(ctx context.Context, id uuid.UUID, result json.RawMessage, citations []models.Citation) error {
	cites, err := json.Marshal(citations)
	if err != nil {
		return fmt.Errorf("marshal citations: %w", err)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE analysis_jobs
		 SET status = $2, result = $3, citations = $4, error = NULL, updated_at = now()
		 WHERE id = $1 AND status NOT IN ('succeeded', 'failed')`,
		id, models.JobStatusSucceeded, result, cites,
	)
	if err != nil {
		return fmt.Errorf("update job to succeeded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) SetFailed(ctx context.Context, id uuid.UUID, jobErr string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE analysis_jobs
		 SET status = $2, error = $3, updated_at = now()
		 WHERE id = $1 AND status NOT IN ('succeeded', 'failed')`,
		id, models.JobStatusFailed, jobErr,
	)
	if err != nil {
		return fmt.Errorf("update job to failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListByUser returns a user's jobs, newest first.
func (s *Store) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, use_case, status, input, options, result, citations, error, created_at, updated_at
		 FROM analysis_jobs WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var (
			job       models.Job
			input     []byte
			options   []byte
			citations []byte
		)
		if err := rows.Scan(&job.ID, &job.UserID, &job.UseCase, &job.Status, &input, &options,
			&job.Result, &citations, &job.Error, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if err := json.Unmarshal(input, &job.Input); err != nil {
			return nil, fmt.Errorf("unmarshal input: %w", err)
		}
		if err := json.Unmarshal(options, &job.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		if len(citations) > 0 {
			if err := json.Unmarshal(citations, &job.Citations); err != nil {
				return nil, fmt.Errorf("unmarshal citations: %w", err)
			}
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *Store) transition(ctx context.Context, id uuid.UUID, to models.JobStatus, query string) error {
	// Zero rows affected means the job is already terminal or missing.
	// Either way there is nothing to do for a lifecycle nudge.
	_, err := s.db.Exec(ctx, query, id, to)
	if err != nil {
		return fmt.Errorf("update job to %s: %w", to, err)
	}
	return nil
}
