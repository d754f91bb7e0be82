package vertical

import (
	"regexp"

	"github.com/priyamehta/docintel/internal/guardrails"
	"github.com/priyamehta/docintel/internal/llm"
	"github.com/priyamehta/docintel/internal/models"
)

var financialVertical = &Config{
	ID:            "financial",
	Name:          "Financial Statement Analysis",
	AllowedInputs: []models.InputType{models.InputTypeText, models.InputTypePDF},
	RAG: RAGConfig{
		Enabled:          true,
		StoreInputAsDocs: true,
		TopK:             6,
	},
	Schema: Schema{Fields: []Field{
		{Name: "summary", Kind: KindString, Description: "overview of financial position", Required: true},
		{Name: "key_metrics", Kind: KindArray, Description: "material figures and ratios", Required: true},
		{Name: "risks", Kind: KindArray, Description: "financial risks and red flags"},
		{Name: "trends", Kind: KindArray, Description: "period-over-period movements"},
		{Name: "outlook", Kind: KindString, Description: "stated or implied outlook"},
	}},
	Completeness: CompletenessProfile{
		MinInputLen: 250,
		Threshold:   3.5,
		MinArrayLen: 2,
		KeyArrays:   []string{"key_metrics"},
		ArrayWeights: map[string]float64{
			"key_metrics": 1.5,
			"risks":       1,
			"trends":      1,
		},
		StringWeights: map[string]float64{
			"summary": 1,
			"outlook": 0.5,
		},
	},
	Guardrails: guardrails.RuleSet{
		PII: guardrails.BasePII(),
		Refusal: []guardrails.RefusalRule{
			{
				ID:      "financial.no_investment_advice",
				Pattern: regexp.MustCompile(`(?i)\b(should i (buy|sell|short)|guaranteed returns?)\b`),
				Reason:  "cannot provide investment advice",
			},
		},
	},
}

func init() { financialVertical.Prompt = financialPrompt }

func financialPrompt(in PromptInput) []llm.Message {
	const role = `You are a financial statement analyst. Extract metrics, risks, and trends
from the document with exact figures where available. Describe what the document
says; do not give investment advice.`

	return []llm.Message{
		{Role: "system", Content: systemPrompt(role, financialVertical.Schema, in.Locale)},
		{Role: "user", Content: userPrompt(in)},
	}
}
