package vectorstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/priyamehta/docintel/internal/models"
)

// Document identifies an ingested source. The (user, title, source) triple
// is the upsert key: re-ingesting the same triple replaces all its chunks.
type Document struct {
	UserID uuid.UUID
	Title  string
	Source string
}

type Chunk struct {
	Content   string
	Embedding []float32
	Metadata  models.ChunkMeta
}

// Result is a chunk retrieved by similarity, scored with cosine similarity
// (higher is more relevant).
type Result struct {
	ChunkID  int64
	Content  string
	Score    float64
	Metadata models.ChunkMeta
}

type Store interface {
	// ReplaceDocument upserts the document row and replaces all of its
	// chunks (delete-then-insert, no partial diffing).
	ReplaceDocument(ctx context.Context, doc Document, chunks []Chunk) error

	// Search ranks the given user's chunks against the query vector and
	// returns the top-k. Never crosses user boundaries.
	Search(ctx context.Context, userID uuid.UUID, query []float32, topK int) ([]Result, error)
}
