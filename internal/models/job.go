package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status can no longer change. queued and
// running may repeat across retries; succeeded and failed never move back.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

type InputType string

const (
	InputTypeText InputType = "text"
	InputTypePDF  InputType = "pdf"
)

type JobInput struct {
	Type       InputType `json:"type"`
	Text       string    `json:"text,omitempty"`
	StorageURL string    `json:"storageUrl,omitempty"`
}

type JobOptions struct {
	RAGEnabled  *bool    `json:"ragEnabled,omitempty"`
	TopK        int      `json:"topK,omitempty"`
	Providers   []string `json:"providers,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	TimeoutMs   int      `json:"timeoutMs,omitempty"`
	Locale      string   `json:"locale,omitempty"`
}

type Job struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	UseCase   string          `json:"use_case"`
	Status    JobStatus       `json:"status"`
	Input     JobInput        `json:"input"`
	Options   JobOptions      `json:"options"`
	Result    json.RawMessage `json:"result,omitempty"`
	Citations []Citation      `json:"citations,omitempty"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Citation maps a short label in the generated context (e.g. "C7") back to
// the retrieved chunk it came from, so callers can audit grounding.
type Citation struct {
	CitationID string    `json:"citation_id"`
	ChunkID    int64     `json:"chunk_id"`
	Score      float64   `json:"score"`
	Metadata   ChunkMeta `json:"metadata"`
}

type ChunkMeta struct {
	Source     string `json:"source"`
	Page       int    `json:"page,omitempty"`
	ChunkOrder int    `json:"chunk_order"`
}
