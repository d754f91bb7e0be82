package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/priyamehta/docintel/internal/classifier"
	"github.com/priyamehta/docintel/internal/contract"
	"github.com/priyamehta/docintel/internal/document"
	"github.com/priyamehta/docintel/internal/guardrails"
	"github.com/priyamehta/docintel/internal/llm"
	"github.com/priyamehta/docintel/internal/models"
	"github.com/priyamehta/docintel/internal/rag"
	"github.com/priyamehta/docintel/internal/telemetry"
	"github.com/priyamehta/docintel/internal/vertical"
)

// ErrInvalidInput marks faults in the job's input itself: wrong input type
// for the vertical, empty text, an unfetchable document. Retrying the same
// input cannot help.
var ErrInvalidInput = errors.New("invalid job input")

// UsageSink receives one record per successful provider call. Writes are
// best-effort.
type UsageSink interface {
	LogUsage(ctx context.Context, jobID uuid.UUID, rec llm.UsageRecord)
}

// Fetcher downloads input documents referenced by storage URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Outcome is what a successful pipeline run persists: the validated result
// payload and the citations grounding it.
type Outcome struct {
	Result    json.RawMessage
	Citations []models.Citation
}

// Orchestrator runs one job attempt end to end: guardrails, classification,
// RAG, generation, validation, enrichment. Steps run strictly in order and
// every network call inherits the attempt's deadline from ctx.
type Orchestrator struct {
	executor    *llm.FallbackExecutor
	classifier  *classifier.Classifier
	engine      *rag.Engine
	validator   *contract.Validator
	usage       UsageSink
	fetcher     Fetcher
	defaultTopK int
}

func NewOrchestrator(
	executor *llm.FallbackExecutor,
	cls *classifier.Classifier,
	engine *rag.Engine,
	validator *contract.Validator,
	usage UsageSink,
	fetcher Fetcher,
	defaultTopK int,
) *Orchestrator {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &Orchestrator{
		executor:    executor,
		classifier:  cls,
		engine:      engine,
		validator:   validator,
		usage:       usage,
		fetcher:     fetcher,
		defaultTopK: defaultTopK,
	}
}

// Run executes the pipeline for one job. It never persists anything to the
// job row itself; the worker does that after the timeout race settles.
func (o *Orchestrator) Run(ctx context.Context, job *models.Job) (*Outcome, error) {
	vert := vertical.Resolve(job.UseCase)

	if !vert.AllowsInput(job.Input.Type) {
		return nil, fmt.Errorf("%w: vertical %s does not accept %s input",
			ErrInvalidInput, vert.ID, job.Input.Type)
	}

	pages, err := o.materialize(ctx, job)
	if err != nil {
		return nil, err
	}

	// Guardrails run on the raw text, before anything leaves the process.
	eval := guardrails.Evaluate(document.Flatten(pages), vert.Guardrails)
	if eval.Refused {
		slog.Info("guardrail refusal", "job_id", job.ID, "vertical", vert.ID, "rules", eval.MatchedRules)
		return refusalOutcome(eval)
	}
	pages = redactPages(pages, vert.Guardrails)
	inputText := document.Flatten(pages)

	tier := o.classifier.Classify(ctx, inputText)
	route := classifier.RouteModel(tier)
	slog.Info("job classified", "job_id", job.ID, "tier", tier, "provider", route.Provider, "model", route.Model)

	contextStr, citations, err := o.runRAG(ctx, job, vert, pages, inputText)
	if err != nil {
		return nil, err
	}

	messages := vert.Prompt(vertical.PromptInput{
		InputText: inputText,
		Context:   contextStr,
		UseCase:   job.UseCase,
		Locale:    job.Options.Locale,
	})

	generate := o.generateFunc(job, route)

	raw, err := generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("generate analysis: %w", err)
	}

	res, err := o.validator.Process(ctx, contract.Request{
		JobID:    job.ID,
		Vertical: vert,
		Raw:      raw,
		Messages: messages,
		InputLen: len(inputText),
		Generate: generate,
	})
	if err != nil {
		return nil, err
	}
	if res.Retried {
		telemetry.ValidationRetries.Inc()
	}
	if res.Enriched {
		telemetry.EnrichmentPasses.Inc()
	}

	result, err := json.Marshal(res.Output)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &Outcome{Result: result, Citations: citations}, nil
}

// materialize turns the job input into page-structured text.
func (o *Orchestrator) materialize(ctx context.Context, job *models.Job) ([]rag.Page, error) {
	switch job.Input.Type {
	case models.InputTypeText:
		if job.Input.Text != "" {
			return wrapInputErr(document.FromText(job.Input.Text))
		}
		if job.Input.StorageURL == "" {
			return nil, fmt.Errorf("%w: text input has neither text nor storageUrl", ErrInvalidInput)
		}
		data, err := o.fetcher.Fetch(ctx, job.Input.StorageURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return wrapInputErr(document.FromText(string(data)))

	case models.InputTypePDF:
		if job.Input.StorageURL == "" {
			return nil, fmt.Errorf("%w: pdf input requires storageUrl", ErrInvalidInput)
		}
		data, err := o.fetcher.Fetch(ctx, job.Input.StorageURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return wrapInputErr(document.ExtractPDF(data))

	default:
		return nil, fmt.Errorf("%w: unknown input type %q", ErrInvalidInput, job.Input.Type)
	}
}

// runRAG stores the input as retrievable chunks when the vertical wants
// that, then retrieves context for the prompt. Returns empty context when
// RAG is off for this job.
func (o *Orchestrator) runRAG(ctx context.Context, job *models.Job, vert *vertical.Config, pages []rag.Page, inputText string) (string, []models.Citation, error) {
	enabled := vert.RAG.Enabled
	if job.Options.RAGEnabled != nil {
		enabled = enabled && *job.Options.RAGEnabled
	}
	if !enabled {
		return "", nil, nil
	}

	if vert.RAG.StoreInputAsDocs {
		title := vert.ID + " input"
		source := job.Input.StorageURL
		if source == "" {
			source = "inline:" + job.ID.String()
		}
		stored, err := o.engine.StoreDocument(ctx, job.UserID, title, source, pages)
		if err != nil {
			return "", nil, fmt.Errorf("store input document: %w", err)
		}
		telemetry.ChunksStored.Add(float64(stored))
	}

	topK := job.Options.TopK
	if topK <= 0 {
		topK = vert.RAG.TopK
	}
	if topK <= 0 {
		topK = o.defaultTopK
	}

	results, err := o.engine.Retrieve(ctx, job.UserID, retrievalQuery(inputText), topK)
	if err != nil {
		return "", nil, fmt.Errorf("retrieve context: %w", err)
	}

	contextStr, citations, _ := rag.BuildContext(results)
	return contextStr, citations, nil
}

// generateFunc builds the GenerateFunc shared by first-pass generation,
// the corrective retry, and enrichment, so all three walk the same
// provider candidate order and account usage the same way.
func (o *Orchestrator) generateFunc(job *models.Job, route classifier.Route) contract.GenerateFunc {
	candidates := o.executor.CandidateOrder(job.Options.Providers, route.Provider)

	return func(ctx context.Context, messages []llm.Message) (string, error) {
		resp, err := o.executor.GenerateText(ctx, candidates, llm.GenerateRequest{
			Model:       route.Model,
			Messages:    messages,
			Temperature: job.Options.Temperature,
			MaxTokens:   job.Options.MaxTokens,
		})
		if err != nil {
			telemetry.ProviderCalls.WithLabelValues(route.Provider, "error").Inc()
			return "", err
		}

		telemetry.ProviderCalls.WithLabelValues(resp.Provider, "success").Inc()
		telemetry.ProviderLatency.WithLabelValues(resp.Provider).Observe(float64(resp.LatencyMs) / 1000)
		if o.usage != nil {
			o.usage.LogUsage(ctx, job.ID, llm.UsageRecord{
				Provider:     resp.Provider,
				Model:        resp.Model,
				InputTokens:  resp.InputTokens,
				OutputTokens: resp.OutputTokens,
				TotalTokens:  resp.TotalTokens,
				CostUSD:      resp.CostUSD,
				LatencyMs:    resp.LatencyMs,
				Endpoint:     "generate",
				Timestamp:    time.Now(),
			})
		}
		return resp.Text, nil
	}
}

const maxQueryLen = 2000

// retrievalQuery trims very long inputs down for the query embedding. The
// head of a document is the best cheap proxy for what it is about.
func retrievalQuery(text string) string {
	runes := []rune(text)
	if len(runes) <= maxQueryLen {
		return text
	}
	return string(runes[:maxQueryLen])
}

func refusalOutcome(eval guardrails.Evaluation) (*Outcome, error) {
	payload, err := json.Marshal(map[string]any{
		"status":        "refused",
		"matched_rules": eval.MatchedRules,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal refusal payload: %w", err)
	}
	return &Outcome{Result: payload}, nil
}

func redactPages(pages []rag.Page, rs guardrails.RuleSet) []rag.Page {
	out := make([]rag.Page, len(pages))
	for i, p := range pages {
		out[i] = rag.Page{Number: p.Number, Text: guardrails.Evaluate(p.Text, rs).Redacted}
	}
	return out
}

func wrapInputErr(pages []rag.Page, err error) ([]rag.Page, error) {
	if errors.Is(err, document.ErrNoText) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return pages, err
}
