package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/priyamehta/docintel/internal/llm"
	"github.com/priyamehta/docintel/internal/models"
	"github.com/priyamehta/docintel/internal/vectorstore"
)

// Embedder turns texts into vectors. The engine does not care which
// provider serves the request.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// ProviderEmbedder backs Embedder with the provider fallback chain.
type ProviderEmbedder struct {
	exec  *llm.FallbackExecutor
	model string
}

func NewProviderEmbedder(exec *llm.FallbackExecutor, model string) *ProviderEmbedder {
	return &ProviderEmbedder{exec: exec, model: model}
}

func (p *ProviderEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	resp, err := p.exec.Embed(ctx, p.exec.CandidateOrder(nil, ""), llm.EmbedRequest{
		Model: p.model,
		Input: inputs,
	})
	if err != nil {
		return nil, err
	}
	return resp.Vectors, nil
}

// Engine chunks and embeds text into the vector store and builds cited
// context blocks back out of it.
type Engine struct {
	store     vectorstore.Store
	embedder  Embedder
	chunkOpts ChunkOptions
	batchSize int
}

func NewEngine(store vectorstore.Store, embedder Embedder, chunkOpts ChunkOptions, batchSize int) *Engine {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Engine{
		store:     store,
		embedder:  embedder,
		chunkOpts: chunkOpts,
		batchSize: batchSize,
	}
}

// EmbedChunks batches texts through the embedding provider. Each batch must
// come back with exactly one vector per input; anything else fails loudly to
// protect against silent chunk/vector misalignment.
func (e *Engine) EmbedChunks(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		got, err := e.embedder.Embed(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d: %w", i/e.batchSize, err)
		}
		if len(got) != len(batch) {
			return nil, fmt.Errorf("embed batch %d: got %d vectors for %d inputs", i/e.batchSize, len(got), len(batch))
		}
		vectors = append(vectors, got...)
	}

	return vectors, nil
}

// StoreDocument chunks and embeds pages under the (user, title, source)
// document key, replacing any prior ingestion of the same key. Returns the
// number of chunks stored.
func (e *Engine) StoreDocument(ctx context.Context, userID uuid.UUID, title, source string, pages []Page) (int, error) {
	pieces := ChunkPages(pages, source, e.chunkOpts)
	if len(pieces) == 0 {
		return 0, fmt.Errorf("no chunks generated from content")
	}

	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Content
	}

	vectors, err := e.EmbedChunks(ctx, texts)
	if err != nil {
		return 0, err
	}

	chunks := make([]vectorstore.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = vectorstore.Chunk{
			Content:   p.Content,
			Embedding: vectors[i],
			Metadata:  p.Metadata,
		}
	}

	doc := vectorstore.Document{UserID: userID, Title: title, Source: source}
	if err := e.store.ReplaceDocument(ctx, doc, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	return len(chunks), nil
}

// Retrieve embeds the query and returns the user's top-k chunks by cosine
// similarity.
func (e *Engine) Retrieve(ctx context.Context, userID uuid.UUID, query string, topK int) ([]vectorstore.Result, error) {
	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors for 1 input", len(vectors))
	}

	return e.store.Search(ctx, userID, vectors[0], topK)
}

// BuildContext turns retrieved chunks into a prompt context string plus the
// citation list and citation-id to chunk-id map used for later audit.
func BuildContext(results []vectorstore.Result) (string, []models.Citation, map[string]int64) {
	var sb strings.Builder
	citations := make([]models.Citation, 0, len(results))
	chunkByCitation := make(map[string]int64, len(results))

	for _, r := range results {
		citationID := fmt.Sprintf("C%d", r.ChunkID)

		sb.WriteString("[" + citationID + "] source=" + r.Metadata.Source)
		if r.Metadata.Page > 0 {
			fmt.Fprintf(&sb, " page=%d", r.Metadata.Page)
		}
		fmt.Fprintf(&sb, " chunk=%d\n", r.Metadata.ChunkOrder)
		sb.WriteString(r.Content)
		sb.WriteString("\n\n")

		citations = append(citations, models.Citation{
			CitationID: citationID,
			ChunkID:    r.ChunkID,
			Score:      r.Score,
			Metadata:   r.Metadata,
		})
		chunkByCitation[citationID] = r.ChunkID
	}

	return strings.TrimRight(sb.String(), "\n"), citations, chunkByCitation
}
