package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/priyamehta/docintel/internal/contract"
	"github.com/priyamehta/docintel/internal/models"
	"github.com/priyamehta/docintel/internal/pipeline"
	"github.com/priyamehta/docintel/internal/queue"
	"github.com/priyamehta/docintel/internal/telemetry"
)

// Runner executes one job attempt. Implemented by pipeline.Orchestrator.
type Runner interface {
	Run(ctx context.Context, job *models.Job) (*pipeline.Outcome, error)
}

// JobStore is the slice of job persistence the worker needs.
type JobStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Job, error)
	SetRunning(ctx context.Context, id uuid.UUID) error
	SetQueuedRetry(ctx context.Context, id uuid.UUID, attemptErr string) error
	SetSucceeded(ctx context.Context, id uuid.UUID, result json.RawMessage, citations []models.Citation) error
	SetFailed(ctx context.Context, id uuid.UUID, jobErr string) error
}

// AnalysisWorker handles analysis:run deliveries. It races the pipeline
// against the job's wall-clock timeout and translates the outcome into
// status transitions: succeeded, queued for retry, or failed.
type AnalysisWorker struct {
	jobs             JobStore
	runner           Runner
	defaultTimeoutMs int
}

func NewAnalysisWorker(jobs JobStore, runner Runner, defaultTimeoutMs int) *AnalysisWorker {
	if defaultTimeoutMs <= 0 {
		defaultTimeoutMs = 120000
	}
	return &AnalysisWorker{jobs: jobs, runner: runner, defaultTimeoutMs: defaultTimeoutMs}
}

type runResult struct {
	outcome *pipeline.Outcome
	err     error
}

func (w *AnalysisWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.AnalysisRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	jobID, err := uuid.Parse(payload.DBJobID)
	if err != nil {
		return fmt.Errorf("parse job ID: %w", err)
	}

	job, err := w.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Status.Terminal() {
		slog.Info("skipping delivery for terminal job", "job_id", jobID, "status", job.Status)
		return nil
	}
	if payload.RuntimeInput != nil {
		job.Input = *payload.RuntimeInput
	}

	if err := w.jobs.SetRunning(ctx, jobID); err != nil {
		slog.Warn("record running status", "job_id", jobID, "error", err)
	}

	telemetry.JobsInFlight.Inc()
	defer telemetry.JobsInFlight.Dec()

	start := time.Now()
	outcome, runErr := w.runWithTimeout(ctx, job, payload.TimeoutMs)
	telemetry.PipelineDuration.Observe(time.Since(start).Seconds())
	if runErr != nil {
		return w.handleFailure(ctx, jobID, runErr)
	}

	// Persisting success is the final act of an attempt; an attempt that
	// timed out above never reaches this point, so its result is dropped.
	if err := w.jobs.SetSucceeded(ctx, jobID, outcome.Result, outcome.Citations); err != nil {
		return fmt.Errorf("persist result for job %s: %w", jobID, err)
	}

	telemetry.JobsSucceeded.Inc()
	slog.Info("job succeeded", "job_id", jobID, "citations", len(outcome.Citations))
	return nil
}

// runWithTimeout races the pipeline against the job's deadline. The
// deadline is threaded into the pipeline's ctx, so in-flight provider calls
// are cancelled rather than merely abandoned.
func (w *AnalysisWorker) runWithTimeout(ctx context.Context, job *models.Job, timeoutMs int) (*pipeline.Outcome, error) {
	if timeoutMs <= 0 {
		timeoutMs = job.Options.TimeoutMs
	}
	if timeoutMs <= 0 {
		timeoutMs = w.defaultTimeoutMs
	}
	timeout := time.Duration(timeoutMs) * time.Millisecond

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan runResult, 1)
	go func() {
		outcome, err := w.runner.Run(runCtx, job)
		done <- runResult{outcome: outcome, err: err}
	}()

	select {
	case res := <-done:
		return res.outcome, res.err
	case <-runCtx.Done():
		telemetry.JobsTimedOut.Inc()
		return nil, fmt.Errorf("analysis timed out after %s", timeout)
	}
}

// handleFailure decides between terminal failure and requeue. Validation
// failures are terminal regardless of attempts remaining; everything else
// follows the queue's attempt policy.
func (w *AnalysisWorker) handleFailure(ctx context.Context, jobID uuid.UUID, runErr error) error {
	var soErr *contract.StructuredOutputError
	if errors.As(runErr, &soErr) {
		telemetry.ValidationFailures.Inc()
		return w.fail(ctx, jobID, runErr)
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	return w.settleAttempt(ctx, jobID, runErr, retried, maxRetry)
}

// settleAttempt requeues when the queue will deliver again and fails
// terminally otherwise. The returned error is what asynq sees: plain for
// a requeue, SkipRetry-wrapped for a terminal failure.
func (w *AnalysisWorker) settleAttempt(ctx context.Context, jobID uuid.UUID, runErr error, retried, maxRetry int) error {
	if retried >= maxRetry {
		return w.fail(ctx, jobID, runErr)
	}
	msg := fmt.Sprintf("attempt %d of %d failed: %v", retried+1, maxRetry+1, runErr)
	if err := w.jobs.SetQueuedRetry(ctx, jobID, msg); err != nil {
		slog.Warn("record retry status", "job_id", jobID, "error", err)
	}
	telemetry.JobsRetried.Inc()
	slog.Warn("job attempt failed, will retry", "job_id", jobID, "attempt", retried+1, "error", runErr)
	return runErr
}

func (w *AnalysisWorker) fail(ctx context.Context, jobID uuid.UUID, runErr error) error {
	if err := w.jobs.SetFailed(ctx, jobID, runErr.Error()); err != nil {
		return fmt.Errorf("persist failure for job %s: %w", jobID, err)
	}
	telemetry.JobsFailed.Inc()
	slog.Error("job failed", "job_id", jobID, "error", runErr)
	return fmt.Errorf("%v: %w", runErr, asynq.SkipRetry)
}
