package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/priyamehta/docintel/internal/models"
	"github.com/priyamehta/docintel/internal/vectorstore"
)

type fakeEmbedder struct {
	batches    [][]string
	shortByOne bool
	err        error
}

func (f *fakeEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, inputs)
	n := len(inputs)
	if f.shortByOne {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeStore struct {
	doc     vectorstore.Document
	chunks  []vectorstore.Chunk
	results []vectorstore.Result
}

func (f *fakeStore) ReplaceDocument(_ context.Context, doc vectorstore.Document, chunks []vectorstore.Chunk) error {
	f.doc = doc
	f.chunks = chunks
	return nil
}

func (f *fakeStore) Search(_ context.Context, _ uuid.UUID, _ []float32, _ int) ([]vectorstore.Result, error) {
	return f.results, nil
}

func TestEmbedChunksBatching(t *testing.T) {
	emb := &fakeEmbedder{}
	e := NewEngine(&fakeStore{}, emb, DefaultChunkOptions(), 2)

	texts := []string{"a", "b", "c", "d", "e"}
	vectors, err := e.EmbedChunks(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedChunks() error = %v", err)
	}
	if len(vectors) != len(texts) {
		t.Errorf("got %d vectors, want %d", len(vectors), len(texts))
	}
	if len(emb.batches) != 3 {
		t.Errorf("got %d batches, want 3", len(emb.batches))
	}
}

func TestEmbedChunksCountMismatchFailsLoudly(t *testing.T) {
	emb := &fakeEmbedder{shortByOne: true}
	e := NewEngine(&fakeStore{}, emb, DefaultChunkOptions(), 10)

	_, err := e.EmbedChunks(context.Background(), []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("expected error on vector count mismatch")
	}
	if !strings.Contains(err.Error(), "vectors") {
		t.Errorf("error %q does not mention vector mismatch", err)
	}
}

func TestStoreDocument(t *testing.T) {
	store := &fakeStore{}
	e := NewEngine(store, &fakeEmbedder{}, ChunkOptions{Size: 100, Overlap: 10}, 8)
	userID := uuid.New()

	n, err := e.StoreDocument(context.Background(), userID, "Contract", "contract.pdf", []Page{{Text: prose(100)}})
	if err != nil {
		t.Fatalf("StoreDocument() error = %v", err)
	}
	if n == 0 || len(store.chunks) != n {
		t.Errorf("stored %d chunks, returned %d", len(store.chunks), n)
	}
	if store.doc.UserID != userID || store.doc.Title != "Contract" || store.doc.Source != "contract.pdf" {
		t.Errorf("document key = %+v", store.doc)
	}
	for i, c := range store.chunks {
		if len(c.Embedding) == 0 {
			t.Errorf("chunk %d has no embedding", i)
		}
	}
}

func TestStoreDocumentEmptyContent(t *testing.T) {
	e := NewEngine(&fakeStore{}, &fakeEmbedder{}, DefaultChunkOptions(), 8)
	if _, err := e.StoreDocument(context.Background(), uuid.New(), "t", "s", []Page{{Text: "  "}}); err == nil {
		t.Error("expected error for empty content")
	}
}

func TestRetrievePropagatesEmbedError(t *testing.T) {
	wantErr := errors.New("embed down")
	e := NewEngine(&fakeStore{}, &fakeEmbedder{err: wantErr}, DefaultChunkOptions(), 8)
	if _, err := e.Retrieve(context.Background(), uuid.New(), "q", 5); !errors.Is(err, wantErr) {
		t.Errorf("Retrieve() error = %v, want %v", err, wantErr)
	}
}

func TestBuildContext(t *testing.T) {
	results := []vectorstore.Result{
		{ChunkID: 7, Content: "Indemnification is uncapped.", Score: 0.91,
			Metadata: models.ChunkMeta{Source: "contract.pdf", Page: 3, ChunkOrder: 2}},
		{ChunkID: 12, Content: "Term renews annually.", Score: 0.84,
			Metadata: models.ChunkMeta{Source: "contract.pdf", ChunkOrder: 5}},
	}

	ctxStr, citations, byID := BuildContext(results)

	if !strings.Contains(ctxStr, "[C7] source=contract.pdf page=3 chunk=2") {
		t.Errorf("context missing first block header:\n%s", ctxStr)
	}
	if !strings.Contains(ctxStr, "[C12] source=contract.pdf chunk=5") {
		t.Errorf("context missing second block header (page 0 must be omitted):\n%s", ctxStr)
	}
	if !strings.Contains(ctxStr, "Indemnification is uncapped.") {
		t.Error("context missing chunk text")
	}

	if len(citations) != 2 {
		t.Fatalf("got %d citations, want 2", len(citations))
	}
	if citations[0].CitationID != "C7" || citations[0].ChunkID != 7 || citations[0].Score != 0.91 {
		t.Errorf("first citation = %+v", citations[0])
	}
	if byID["C12"] != 12 {
		t.Errorf("citation map = %v", byID)
	}
}

func TestBuildContextEmpty(t *testing.T) {
	ctxStr, citations, byID := BuildContext(nil)
	if ctxStr != "" || len(citations) != 0 || len(byID) != 0 {
		t.Errorf("BuildContext(nil) = %q, %v, %v", ctxStr, citations, byID)
	}
}
