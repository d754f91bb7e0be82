package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/priyamehta/docintel/internal/llm"
)

const externalModel = "gpt-4o-mini"

// LLMExternal builds an ExternalFunc backed by the provider fallback chain.
// The callee only sees normalized text and must answer with a bare tier
// name; anything else counts as an invalid response and is swallowed by
// the caller.
func LLMExternal(exec *llm.FallbackExecutor) ExternalFunc {
	return func(ctx context.Context, text string) (Tier, error) {
		resp, err := exec.GenerateText(ctx, exec.CandidateOrder(nil, ""), llm.GenerateRequest{
			Model: externalModel,
			Messages: []llm.Message{
				{Role: "system", Content: "Classify the complexity of the user's task. Respond with exactly one word: SIMPLE, MEDIUM, or COMPLEX."},
				{Role: "user", Content: text},
			},
			MaxTokens: 4,
		})
		if err != nil {
			return "", err
		}
		tier, ok := parseTier(strings.TrimSpace(resp.Text))
		if !ok {
			return "", fmt.Errorf("unrecognized tier %q", resp.Text)
		}
		return tier, nil
	}
}
