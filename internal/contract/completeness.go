package contract

import (
	"strings"

	"github.com/priyamehta/docintel/internal/vertical"
)

// minPopulatedStringLen is the threshold below which a string field does not
// count toward completeness.
const minPopulatedStringLen = 20

// Score computes the heuristic completeness of a structured output: a
// weighted count of populated array items plus weights for non-trivially
// populated strings.
func Score(obj map[string]any, p vertical.CompletenessProfile) float64 {
	var score float64

	for field, weight := range p.ArrayWeights {
		if arr, ok := obj[field].([]any); ok {
			score += weight * float64(populatedItems(arr))
		}
	}

	for field, weight := range p.StringWeights {
		if s, ok := obj[field].(string); ok && len(strings.TrimSpace(s)) >= minPopulatedStringLen {
			score += weight
		}
	}

	return score
}

func populatedItems(arr []any) int {
	n := 0
	for _, item := range arr {
		switch v := item.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				n++
			}
		case map[string]any:
			if len(v) > 0 {
				n++
			}
		default:
			if v != nil {
				n++
			}
		}
	}
	return n
}

// NeedsEnrichment decides whether a valid output is sparse enough to
// warrant a second, completeness-demanding generation pass.
func NeedsEnrichment(obj map[string]any, p vertical.CompletenessProfile, inputLen int) bool {
	if inputLen <= p.MinInputLen {
		return false
	}
	if Score(obj, p) < p.Threshold {
		return true
	}
	for _, field := range p.KeyArrays {
		arr, ok := obj[field].([]any)
		if !ok || populatedItems(arr) < p.MinArrayLen {
			return true
		}
	}
	return false
}
