package vertical

import (
	"regexp"

	"github.com/priyamehta/docintel/internal/guardrails"
	"github.com/priyamehta/docintel/internal/llm"
	"github.com/priyamehta/docintel/internal/models"
)

var legalVertical = &Config{
	ID:            "legal",
	Name:          "Legal Contract Analysis",
	AllowedInputs: []models.InputType{models.InputTypeText, models.InputTypePDF},
	RAG: RAGConfig{
		Enabled:          true,
		StoreInputAsDocs: true,
		TopK:             6,
	},
	Schema: Schema{Fields: []Field{
		{Name: "summary", Kind: KindString, Description: "plain-language summary of the document", Required: true},
		{Name: "key_risks", Kind: KindArray, Description: "risks and unfavorable clauses", Required: true},
		{Name: "obligations", Kind: KindArray, Description: "obligations each party takes on", Required: true},
		{Name: "parties", Kind: KindArray, Description: "named parties and their roles"},
		{Name: "recommendations", Kind: KindArray, Description: "suggested redlines or follow-ups"},
		{Name: "governing_law", Kind: KindString, Description: "governing law and jurisdiction, if stated"},
	}},
	Completeness: CompletenessProfile{
		MinInputLen: 220,
		Threshold:   4,
		MinArrayLen: 1,
		KeyArrays:   []string{"key_risks", "obligations"},
		ArrayWeights: map[string]float64{
			"key_risks":       1.5,
			"obligations":     1.5,
			"parties":         0.5,
			"recommendations": 1,
		},
		StringWeights: map[string]float64{
			"summary":       1,
			"governing_law": 0.5,
		},
	},
	Guardrails: guardrails.RuleSet{
		PII: guardrails.BasePII(),
		Refusal: []guardrails.RefusalRule{
			{
				ID:      "legal.no_representation",
				Pattern: regexp.MustCompile(`(?i)\b(represent me|be my lawyer|file (a|the) lawsuit for me)\b`),
				Reason:  "cannot act as legal counsel",
			},
		},
	},
}

func init() { legalVertical.Prompt = legalPrompt }

func legalPrompt(in PromptInput) []llm.Message {
	const role = `You are a legal document analyst. Review the document and extract risks,
obligations, and parties. Be precise about clause references. You provide analysis,
not legal advice.`

	return []llm.Message{
		{Role: "system", Content: systemPrompt(role, legalVertical.Schema, in.Locale)},
		{Role: "user", Content: userPrompt(in)},
	}
}
