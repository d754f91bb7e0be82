package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/priyamehta/docintel/internal/config"
	"github.com/priyamehta/docintel/internal/models"
	"github.com/priyamehta/docintel/internal/telemetry"
)

type Client struct {
	client *asynq.Client
	queue  config.QueueConfig
}

func NewClient(redisCfg config.RedisConfig, queueCfg config.QueueConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		}),
		queue: queueCfg,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueAnalysis submits a job for background processing. The task id is
// the database job id, so enqueueing the same job twice is a no-op rather
// than a duplicate execution.
func (c *Client) EnqueueAnalysis(job *models.Job) error {
	timeoutMs := job.Options.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = c.queue.DefaultTimeoutMs
	}

	payload := AnalysisRunPayload{
		DBJobID:   job.ID.String(),
		TimeoutMs: timeoutMs,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeAnalysisRun, data)
	_, err = c.client.Enqueue(task,
		asynq.TaskID(job.ID.String()),
		asynq.Queue(c.queue.Name),
		asynq.MaxRetry(c.queue.MaxAttempts-1),
		// asynq's own timeout sits above the handler's deadline so the
		// handler can fail the job itself and record why.
		asynq.Timeout(time.Duration(timeoutMs)*time.Millisecond+30*time.Second),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeAnalysisRun, err)
	}

	telemetry.JobsEnqueued.Inc()
	return nil
}
