package vertical

import (
	"regexp"

	"github.com/priyamehta/docintel/internal/guardrails"
	"github.com/priyamehta/docintel/internal/llm"
	"github.com/priyamehta/docintel/internal/models"
)

var medicalVertical = &Config{
	ID:            "medical",
	Name:          "Medical Record Analysis",
	AllowedInputs: []models.InputType{models.InputTypeText, models.InputTypePDF},
	RAG: RAGConfig{
		Enabled:          true,
		StoreInputAsDocs: true,
		TopK:             5,
	},
	Schema: Schema{Fields: []Field{
		{Name: "summary", Kind: KindString, Description: "clinical summary of the record", Required: true},
		{Name: "findings", Kind: KindArray, Description: "notable clinical findings", Required: true},
		{Name: "medications", Kind: KindArray, Description: "medications mentioned, with dosage if stated"},
		{Name: "follow_ups", Kind: KindArray, Description: "recommended follow-up actions"},
		{Name: "disclaimer", Kind: KindString, Description: "reminder that this is not medical advice"},
	}},
	Completeness: CompletenessProfile{
		MinInputLen: 200,
		Threshold:   3,
		MinArrayLen: 1,
		KeyArrays:   []string{"findings"},
		ArrayWeights: map[string]float64{
			"findings":    1.5,
			"medications": 1,
			"follow_ups":  1,
		},
		StringWeights: map[string]float64{
			"summary": 1,
		},
	},
	Guardrails: guardrails.RuleSet{
		PII: guardrails.BasePII(),
		Refusal: []guardrails.RefusalRule{
			{
				ID:      "medical.no_diagnosis",
				Pattern: regexp.MustCompile(`(?i)\b(diagnose me|what disease do i have|am i dying)\b`),
				Reason:  "cannot provide a diagnosis",
			},
			{
				ID:      "medical.no_prescription",
				Pattern: regexp.MustCompile(`(?i)\b(prescribe|what dosage should i take)\b`),
				Reason:  "cannot prescribe or dose medication",
			},
		},
	},
	PostProcess: func(obj map[string]any) map[string]any {
		if s, ok := obj["disclaimer"].(string); !ok || s == "" {
			obj["disclaimer"] = "This analysis is informational and is not medical advice."
		}
		return obj
	},
}

func init() { medicalVertical.Prompt = medicalPrompt }

func medicalPrompt(in PromptInput) []llm.Message {
	const role = `You are a medical records analyst. Summarize the record and surface findings,
medications, and follow-ups exactly as documented. Never offer a diagnosis or
treatment recommendation beyond what the record states.`

	return []llm.Message{
		{Role: "system", Content: systemPrompt(role, medicalVertical.Schema, in.Locale)},
		{Role: "user", Content: userPrompt(in)},
	}
}
