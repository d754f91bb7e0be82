package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/priyamehta/docintel/internal/llm"
	"github.com/priyamehta/docintel/internal/vertical"
)

// GenerateFunc replays a prompt against the provider chain and returns raw
// model text. The validator stays ignorant of providers and routing.
type GenerateFunc func(ctx context.Context, messages []llm.Message) (string, error)

// ValidationFailureEvent is written to the audit log for each failed
// validation attempt: once for the first failure, once for the final one.
type ValidationFailureEvent struct {
	JobID      uuid.UUID
	VerticalID string
	Stage      string
	Issues     []string
	RawPreview string
	Final      bool
}

// AuditSink receives validation failure events. Writes are best-effort.
type AuditSink interface {
	ValidationFailure(ctx context.Context, ev ValidationFailureEvent)
}

// Validator turns unreliable free-text model output into a validated,
// schema-conformant object: extraction, vertical-specific repair, schema
// validation, a one-shot corrective retry, and optional enrichment.
type Validator struct {
	audit AuditSink
}

func NewValidator(audit AuditSink) *Validator {
	return &Validator{audit: audit}
}

type Request struct {
	JobID    uuid.UUID
	Vertical *vertical.Config
	Raw      string
	Messages []llm.Message // the prompt that produced Raw
	InputLen int
	Generate GenerateFunc
}

type Result struct {
	Output   map[string]any
	Score    float64
	Retried  bool
	Enriched bool
}

// Process runs the full validation state machine over one raw response.
func (v *Validator) Process(ctx context.Context, req Request) (*Result, error) {
	out, retried, err := v.validateWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &Result{Output: out, Retried: retried}
	result.Score = Score(out, req.Vertical.Completeness)

	if NeedsEnrichment(out, req.Vertical.Completeness, req.InputLen) {
		if enriched, score, ok := v.enrich(ctx, req, out, result.Score); ok {
			result.Output = enriched
			result.Score = score
			result.Enriched = true
		}
	}

	if req.Vertical.PostProcess != nil {
		result.Output = req.Vertical.PostProcess(result.Output)
	}

	return result, nil
}

// validateWithRetry covers extraction, repair, validation, and the one-shot
// corrective retry. A second failure is terminal.
func (v *Validator) validateWithRetry(ctx context.Context, req Request) (map[string]any, bool, error) {
	out, issues := v.validateOnce(req.Vertical, req.Raw)
	if issues == nil {
		return out, false, nil
	}

	v.writeAudit(ctx, ValidationFailureEvent{
		JobID:      req.JobID,
		VerticalID: req.Vertical.ID,
		Stage:      "initial",
		Issues:     issues,
		RawPreview: Preview(req.Raw),
	})

	if req.Generate == nil {
		return nil, false, &StructuredOutputError{
			Code:       CodeSchemaValidationFailed,
			VerticalID: req.Vertical.ID,
			Stage:      "initial",
			Issues:     issues,
			RawPreview: Preview(req.Raw),
		}
	}

	retryRaw, err := req.Generate(ctx, correctiveMessages(req.Messages, req.Raw, issues))
	if err != nil {
		return nil, false, fmt.Errorf("corrective retry generation: %w", err)
	}

	out, retryIssues := v.validateOnce(req.Vertical, retryRaw)
	if retryIssues == nil {
		return out, true, nil
	}

	v.writeAudit(ctx, ValidationFailureEvent{
		JobID:      req.JobID,
		VerticalID: req.Vertical.ID,
		Stage:      "corrective_retry",
		Issues:     retryIssues,
		RawPreview: Preview(retryRaw),
		Final:      true,
	})

	return nil, false, &StructuredOutputError{
		Code:           CodeSchemaValidationFailed,
		VerticalID:     req.Vertical.ID,
		Stage:          "corrective_retry",
		Issues:         retryIssues,
		RawPreview:     Preview(retryRaw),
		RetryAttempted: true,
	}
}

// validateOnce runs extraction, vertical repair, and schema validation over
// one raw response. A nil issues slice means the returned object conforms.
func (v *Validator) validateOnce(vert *vertical.Config, raw string) (map[string]any, []string) {
	direct, parsed := ExtractJSON(raw)

	candidate := direct
	if !parsed {
		candidate = FallbackObject(raw)
	}

	repaired, changed := RepairForVertical(candidate, vert.Schema)

	issues := vert.Schema.Validate(repaired)
	if len(issues) == 0 {
		if changed {
			slog.Info("structured output renormalized during repair",
				"vertical", vert.ID,
				"fields", strings.Join(vert.Schema.RequiredKeys(), ","),
			)
		}
		return repaired, nil
	}

	// Repair made things worse or went nowhere; prefer the direct parse if
	// it validates on its own.
	if parsed && changed {
		if directIssues := vert.Schema.Validate(direct); len(directIssues) == 0 {
			return direct, nil
		}
	}

	if !parsed || !HasStructuredSignal(repaired, vert.Schema) {
		issues = append([]string{"no structured signal: none of the required keys present"}, issues...)
	}
	return nil, issues
}

// enrich runs the second, completeness-demanding pass. Failures are logged
// and swallowed: the already-valid output is kept.
func (v *Validator) enrich(ctx context.Context, req Request, sparse map[string]any, sparseScore float64) (map[string]any, float64, bool) {
	if req.Generate == nil {
		return nil, 0, false
	}

	raw, err := req.Generate(ctx, enrichmentMessages(req.Messages, req.Vertical, sparse, sparseScore))
	if err != nil {
		slog.Warn("enrichment generation failed, keeping sparse output",
			"vertical", req.Vertical.ID, "error", err)
		return nil, 0, false
	}

	out, issues := v.validateOnce(req.Vertical, raw)
	if issues != nil {
		slog.Warn("enriched output failed validation, keeping sparse output",
			"vertical", req.Vertical.ID, "issues", strings.Join(issues, "; "))
		return nil, 0, false
	}

	score := Score(out, req.Vertical.Completeness)
	if score <= sparseScore {
		slog.Info("enrichment did not improve completeness, keeping sparse output",
			"vertical", req.Vertical.ID, "sparse_score", sparseScore, "enriched_score", score)
		return nil, 0, false
	}
	return out, score, true
}

func (v *Validator) writeAudit(ctx context.Context, ev ValidationFailureEvent) {
	if v.audit != nil {
		v.audit.ValidationFailure(ctx, ev)
	}
}

func correctiveMessages(original []llm.Message, invalidRaw string, issues []string) []llm.Message {
	msgs := make([]llm.Message, 0, len(original)+2)
	msgs = append(msgs, original...)
	msgs = append(msgs, llm.Message{Role: "assistant", Content: invalidRaw})
	msgs = append(msgs, llm.Message{
		Role: "user",
		Content: fmt.Sprintf(`Your previous response did not satisfy the required JSON schema. Problems: %s.

Respond again with ONLY the corrected JSON object. No markdown, no commentary, no text outside the JSON.`,
			strings.Join(issues, "; ")),
	})
	return msgs
}

func enrichmentMessages(original []llm.Message, vert *vertical.Config, sparse map[string]any, score float64) []llm.Message {
	msgs := make([]llm.Message, 0, len(original)+2)
	msgs = append(msgs, original...)
	msgs = append(msgs, llm.Message{Role: "assistant", Content: compactJSON(sparse)})
	msgs = append(msgs, llm.Message{
		Role: "user",
		Content: fmt.Sprintf(`The analysis above is too sparse (completeness %.1f). Re-analyze the document thoroughly: populate at least %d substantive items in each of %s, and keep every other field. Respond with ONLY the full JSON object.`,
			score, max(vert.Completeness.MinArrayLen, 1), strings.Join(vert.Completeness.KeyArrays, ", ")),
	})
	return msgs
}

func compactJSON(obj map[string]any) string {
	b, err := json.Marshal(obj)
	if err != nil {
		return "{}"
	}
	return string(b)
}
