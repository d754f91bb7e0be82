package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/priyamehta/docintel/internal/cache"
	"github.com/priyamehta/docintel/internal/classifier"
	"github.com/priyamehta/docintel/internal/contract"
	"github.com/priyamehta/docintel/internal/llm"
	"github.com/priyamehta/docintel/internal/models"
	"github.com/priyamehta/docintel/internal/rag"
	"github.com/priyamehta/docintel/internal/vectorstore"
)

type scriptedProvider struct {
	name      string
	responses []string
	calls     int
	lastReq   llm.GenerateRequest
}

func (s *scriptedProvider) Name() string { return s.name }

func (s *scriptedProvider) GenerateText(_ context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	s.calls++
	s.lastReq = req
	if len(s.responses) == 0 {
		return nil, errors.New("no scripted response left")
	}
	text := s.responses[0]
	s.responses = s.responses[1:]
	return &llm.GenerateResponse{Provider: s.name, Model: "fake-model", Text: text}, nil
}

func (s *scriptedProvider) Embed(_ context.Context, req llm.EmbedRequest) (*llm.EmbedResponse, error) {
	vectors := make([][]float32, len(req.Input))
	for i := range vectors {
		vectors[i] = []float32{0.1, 0.2, 0.3}
	}
	return &llm.EmbedResponse{Provider: s.name, Vectors: vectors}, nil
}

type memStore struct {
	replaced []vectorstore.Document
	results  []vectorstore.Result
	searches int
}

func (m *memStore) ReplaceDocument(_ context.Context, doc vectorstore.Document, _ []vectorstore.Chunk) error {
	m.replaced = append(m.replaced, doc)
	return nil
}

func (m *memStore) Search(_ context.Context, _ uuid.UUID, _ []float32, _ int) ([]vectorstore.Result, error) {
	m.searches++
	return m.results, nil
}

func newTestOrchestrator(provider llm.Provider, store vectorstore.Store) *Orchestrator {
	exec := llm.NewFallbackExecutor(llm.NewRegistryWith(provider), []string{provider.Name()})
	engine := rag.NewEngine(store, rag.NewProviderEmbedder(exec, "test-embed"), rag.DefaultChunkOptions(), 16)
	cls := classifier.New(nil, cache.NewMemory())
	validator := contract.NewValidator(nil)
	return NewOrchestrator(exec, cls, engine, validator, nil, nil, 5)
}

func textJob(useCase, text string) *models.Job {
	return &models.Job{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		UseCase: useCase,
		Status:  models.JobStatusQueued,
		Input:   models.JobInput{Type: models.InputTypeText, Text: text},
	}
}

const validLegalResponse = `{"summary": "A short services agreement with conventional commercial terms.",
"key_risks": ["unlimited liability"], "obligations": ["monthly reporting"]}`

func TestRunHappyPath(t *testing.T) {
	provider := &scriptedProvider{name: "openai", responses: []string{validLegalResponse}}
	store := &memStore{results: []vectorstore.Result{
		{ChunkID: 7, Content: "clause text", Score: 0.91, Metadata: models.ChunkMeta{Source: "contract.pdf", Page: 3, ChunkOrder: 2}},
	}}
	o := newTestOrchestrator(provider, store)

	job := textJob("legal", "Both parties agree to the attached terms of service for twelve months.")
	outcome, err := o.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(outcome.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result["summary"] != "A short services agreement with conventional commercial terms." {
		t.Errorf("summary = %v", result["summary"])
	}

	if len(outcome.Citations) != 1 || outcome.Citations[0].CitationID != "C7" {
		t.Errorf("citations = %+v", outcome.Citations)
	}
	// legal stores its input as retrievable chunks before retrieving.
	if len(store.replaced) != 1 {
		t.Errorf("ReplaceDocument calls = %d, want 1", len(store.replaced))
	}
	if store.searches != 1 {
		t.Errorf("Search calls = %d, want 1", store.searches)
	}
}

func TestRunGuardrailRefusalSkipsGeneration(t *testing.T) {
	provider := &scriptedProvider{name: "openai"}
	o := newTestOrchestrator(provider, &memStore{})

	job := textJob("legal", "Please represent me in this contract dispute against my landlord.")
	outcome, err := o.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(outcome.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result["status"] != "refused" {
		t.Errorf("status = %v, want refused", result["status"])
	}
	rules, _ := result["matched_rules"].([]any)
	if len(rules) == 0 {
		t.Error("matched_rules empty")
	}

	if provider.calls != 0 {
		t.Errorf("provider called %d times, want 0 on refusal", provider.calls)
	}
	if len(outcome.Citations) != 0 {
		t.Errorf("citations = %+v, want none", outcome.Citations)
	}
}

func TestRunEmptyInputIsInputError(t *testing.T) {
	o := newTestOrchestrator(&scriptedProvider{name: "openai"}, &memStore{})

	_, err := o.Run(context.Background(), textJob("legal", "   "))
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRunUnknownInputTypeIsInputError(t *testing.T) {
	o := newTestOrchestrator(&scriptedProvider{name: "openai"}, &memStore{})

	job := textJob("legal", "text")
	job.Input.Type = models.InputType("audio")

	_, err := o.Run(context.Background(), job)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRunRAGDisabledByOptions(t *testing.T) {
	provider := &scriptedProvider{name: "openai", responses: []string{validLegalResponse}}
	store := &memStore{}
	o := newTestOrchestrator(provider, store)

	off := false
	job := textJob("legal", "Both parties agree to the attached terms of service for twelve months.")
	job.Options.RAGEnabled = &off

	outcome, err := o.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.searches != 0 || len(store.replaced) != 0 {
		t.Error("RAG ran despite being disabled by options")
	}
	if len(outcome.Citations) != 0 {
		t.Errorf("citations = %+v, want none without retrieval", outcome.Citations)
	}
}

func TestRunValidationFailurePropagates(t *testing.T) {
	provider := &scriptedProvider{name: "openai", responses: []string{
		`{"foo": "bar"}`,
		`{"still": "invalid"}`,
	}}
	o := newTestOrchestrator(provider, &memStore{})

	job := textJob("legal", "Both parties agree to the attached terms of service for twelve months.")
	_, err := o.Run(context.Background(), job)

	var soErr *contract.StructuredOutputError
	if !errors.As(err, &soErr) {
		t.Fatalf("err = %v, want *StructuredOutputError", err)
	}
	if !soErr.RetryAttempted {
		t.Error("RetryAttempted = false, want true")
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2 (original + corrective retry)", provider.calls)
	}
}

func TestRunPreferredProviderOrdering(t *testing.T) {
	// Preferred provider wins over the routed one when both are configured.
	preferred := &scriptedProvider{name: "ollama", responses: []string{validLegalResponse}}
	routed := &scriptedProvider{name: "openai"}
	exec := llm.NewFallbackExecutor(llm.NewRegistryWith(preferred, routed), []string{"openai", "ollama"})
	engine := rag.NewEngine(&memStore{}, rag.NewProviderEmbedder(exec, "test-embed"), rag.DefaultChunkOptions(), 16)
	o := NewOrchestrator(exec, classifier.New(nil, cache.NewMemory()), engine, contract.NewValidator(nil), nil, nil, 5)

	job := textJob("legal", "Both parties agree to the attached terms of service for twelve months.")
	job.Options.Providers = []string{"ollama"}

	if _, err := o.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if preferred.calls == 0 {
		t.Error("preferred provider never called")
	}
	if routed.calls != 0 {
		t.Errorf("routed provider called %d times before preferred succeeded", routed.calls)
	}
}

func TestRunStripsPIIBeforeGeneration(t *testing.T) {
	provider := &scriptedProvider{name: "openai", responses: []string{validLegalResponse}}
	o := newTestOrchestrator(provider, &memStore{})

	job := textJob("legal", "Contact alice@example.com regarding the attached terms of service agreement.")
	if _, err := o.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var userTurn string
	for _, m := range provider.lastReq.Messages {
		if m.Role == "user" {
			userTurn = m.Content
		}
	}
	if strings.Contains(userTurn, "alice@example.com") {
		t.Error("email address reached the provider unredacted")
	}
	if !strings.Contains(userTurn, "[EMAIL]") {
		t.Error("redaction placeholder missing from the prompt")
	}
}
