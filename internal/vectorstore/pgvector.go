package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type PgVectorStore struct {
	db *pgxpool.Pool
}

func NewPgVectorStore(db *pgxpool.Pool) *PgVectorStore {
	return &PgVectorStore{db: db}
}

func (s *PgVectorStore) ReplaceDocument(ctx context.Context, doc Document, chunks []Chunk) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var docID uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO rag_documents (id, user_id, title, source)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, title, source) DO UPDATE SET updated_at = now()
		 RETURNING id`,
		uuid.New(), doc.UserID, doc.Title, doc.Source,
	).Scan(&docID)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	// Replace, not diff: all existing chunks for the document go away.
	if _, err := tx.Exec(ctx,
		"DELETE FROM rag_chunks WHERE document_id = $1", docID,
	); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}

	for _, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO rag_chunks (document_id, user_id, chunk_order, content, embedding, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			docID, doc.UserID, c.Metadata.ChunkOrder, c.Content, pgvector.NewVector(c.Embedding), meta,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Metadata.ChunkOrder, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PgVectorStore) Search(ctx context.Context, userID uuid.UUID, query []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 5
	}

	embedding := pgvector.NewVector(query)

	rows, err := s.db.Query(ctx,
		`SELECT id, content, metadata,
		        1 - (embedding <=> $1) AS score
		 FROM rag_chunks
		 WHERE user_id = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		embedding, userID, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var meta []byte
		if err := rows.Scan(&r.ChunkID, &r.Content, &meta, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal(meta, &r.Metadata); err != nil {
			return nil, fmt.Errorf("decode chunk metadata: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

var _ Store = (*PgVectorStore)(nil)
