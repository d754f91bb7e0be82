// Package vertical holds the compile-time registry of analysis domains.
// Each vertical bundles a prompt template, an output schema, guardrails,
// and the knobs the pipeline needs (RAG config, completeness profile).
package vertical

import (
	"fmt"
	"strings"

	"github.com/priyamehta/docintel/internal/guardrails"
	"github.com/priyamehta/docintel/internal/llm"
	"github.com/priyamehta/docintel/internal/models"
)

type RAGConfig struct {
	Enabled          bool
	StoreInputAsDocs bool
	TopK             int
}

// CompletenessProfile tunes the heuristic score that decides whether a valid
// but sparse output deserves an enrichment pass.
type CompletenessProfile struct {
	MinInputLen   int
	Threshold     float64
	MinArrayLen   int
	KeyArrays     []string
	ArrayWeights  map[string]float64
	StringWeights map[string]float64
}

// PromptInput feeds a vertical's prompt template.
type PromptInput struct {
	InputText string
	Context   string
	UseCase   string
	Locale    string
}

type Config struct {
	ID            string
	Name          string
	AllowedInputs []models.InputType
	RAG           RAGConfig
	Schema        Schema
	Completeness  CompletenessProfile
	Guardrails    guardrails.RuleSet
	Prompt        func(in PromptInput) []llm.Message
	PostProcess   func(obj map[string]any) map[string]any
}

func (c *Config) AllowsInput(t models.InputType) bool {
	for _, allowed := range c.AllowedInputs {
		if allowed == t {
			return true
		}
	}
	return false
}

// registry is fixed at init, so per-id resolution is memoized for the
// process lifetime by construction.
var registry = map[string]*Config{
	"legal":     legalVertical,
	"medical":   medicalVertical,
	"financial": financialVertical,
	"generic":   genericVertical,
}

// Resolve returns the vertical for a normalized id; unknown ids fall back to
// the generic vertical.
func Resolve(id string) *Config {
	normalized := strings.ToLower(strings.TrimSpace(id))
	if v, ok := registry[normalized]; ok {
		return v
	}
	return genericVertical
}

// IDs lists registered vertical ids.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	return ids
}

// systemPrompt builds the JSON-only instruction shared by all verticals.
func systemPrompt(role string, schema Schema, locale string) string {
	prompt := fmt.Sprintf(`%s

You must respond with ONLY a valid JSON object matching this schema:

%s

Do not include any text outside the JSON object. No markdown, no explanation.`, role, schema.Describe())

	if locale != "" {
		prompt += fmt.Sprintf("\n\nWrite all text values in the %s locale.", locale)
	}
	return prompt
}

// userPrompt assembles the user turn, prefixing retrieved context when present.
func userPrompt(in PromptInput) string {
	var sb strings.Builder
	if in.Context != "" {
		sb.WriteString("Context (cite sources by their [Cn] labels where relevant):\n")
		sb.WriteString(in.Context)
		sb.WriteString("\n\n")
	}
	if in.UseCase != "" {
		fmt.Fprintf(&sb, "Task: %s\n\n", in.UseCase)
	}
	sb.WriteString("Document:\n")
	sb.WriteString(in.InputText)
	return sb.String()
}
