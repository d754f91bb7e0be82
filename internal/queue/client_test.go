package queue

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/priyamehta/docintel/internal/config"
	"github.com/priyamehta/docintel/internal/models"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	s := miniredis.RunT(t)
	c := NewClient(
		config.RedisConfig{Addr: s.Addr()},
		config.QueueConfig{Name: "analysis", MaxAttempts: 3, DefaultTimeoutMs: 60000},
	)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestEnqueueAnalysis(t *testing.T) {
	c := testClient(t)

	job := &models.Job{ID: uuid.New(), Status: models.JobStatusQueued}
	if err := c.EnqueueAnalysis(job); err != nil {
		t.Fatalf("EnqueueAnalysis: %v", err)
	}
}

func TestEnqueueAnalysisIdempotent(t *testing.T) {
	c := testClient(t)

	job := &models.Job{ID: uuid.New(), Status: models.JobStatusQueued}
	if err := c.EnqueueAnalysis(job); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	// Same job id again: the queue de-duplicates by key, the caller sees
	// no error.
	if err := c.EnqueueAnalysis(job); err != nil {
		t.Fatalf("duplicate enqueue: %v", err)
	}
}
