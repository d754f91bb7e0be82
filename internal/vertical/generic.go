package vertical

import (
	"github.com/priyamehta/docintel/internal/guardrails"
	"github.com/priyamehta/docintel/internal/llm"
	"github.com/priyamehta/docintel/internal/models"
)

// genericVertical is the fallback for unknown ids. Its schema matches the
// shape the extraction stage falls back to when no JSON can be recovered.
var genericVertical = &Config{
	ID:            "generic",
	Name:          "General Analysis",
	AllowedInputs: []models.InputType{models.InputTypeText, models.InputTypePDF},
	RAG: RAGConfig{
		Enabled:          true,
		StoreInputAsDocs: false,
		TopK:             5,
	},
	Schema: Schema{Fields: []Field{
		{Name: "answer", Kind: KindString, Description: "direct answer or analysis", Required: true},
		{Name: "key_points", Kind: KindArray, Description: "supporting points", Required: true},
	}},
	Completeness: CompletenessProfile{
		MinInputLen: 400,
		Threshold:   2,
		MinArrayLen: 1,
		KeyArrays:   []string{"key_points"},
		ArrayWeights: map[string]float64{
			"key_points": 1,
		},
		StringWeights: map[string]float64{
			"answer": 1,
		},
	},
	Guardrails: guardrails.RuleSet{
		PII: guardrails.BasePII(),
	},
}

func init() { genericVertical.Prompt = genericPrompt }

func genericPrompt(in PromptInput) []llm.Message {
	const role = `You are a document analyst. Answer the task directly and list the key
points that support your answer.`

	return []llm.Message{
		{Role: "system", Content: systemPrompt(role, genericVertical.Schema, in.Locale)},
		{Role: "user", Content: userPrompt(in)},
	}
}
