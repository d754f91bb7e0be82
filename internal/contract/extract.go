package contract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON pulls a JSON object out of raw model text. Candidates are
// tried in order: the content of a fenced code block, the raw trimmed text,
// and the substring between the first '{' and last '}'. A candidate that
// fails strict parsing is retried after escaping literal control characters
// inside its string literals.
func ExtractJSON(raw string) (map[string]any, bool) {
	for _, candidate := range extractionCandidates(raw) {
		if obj, ok := parseLoose(candidate); ok {
			return obj, true
		}
	}
	return nil, false
}

// FallbackObject is the shape used when no JSON can be recovered at all.
func FallbackObject(raw string) map[string]any {
	return map[string]any{
		"answer":     raw,
		"key_points": []any{},
	}
}

func extractionCandidates(raw string) []string {
	var candidates []string

	if m := fenceRe.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}

	trimmed := strings.TrimSpace(raw)
	candidates = append(candidates, trimmed)

	first := strings.Index(trimmed, "{")
	last := strings.LastIndex(trimmed, "}")
	if first >= 0 && last > first {
		candidates = append(candidates, trimmed[first:last+1])
	}

	return candidates
}

// parseLoose is a strict parse followed by one control-character repair
// attempt.
func parseLoose(candidate string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil && obj != nil {
		return obj, true
	}
	repaired := escapeControlChars(candidate)
	if repaired != candidate {
		if err := json.Unmarshal([]byte(repaired), &obj); err == nil && obj != nil {
			return obj, true
		}
	}
	return nil, false
}

// escapeControlChars walks the candidate and escapes literal control
// characters, but only while inside a quoted string. Models frequently emit
// raw newlines inside string values, which strict JSON rejects.
func escapeControlChars(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	inString := false
	escaped := false
	for _, r := range s {
		if escaped {
			sb.WriteRune(r)
			escaped = false
			continue
		}
		if inString && r == '\\' {
			sb.WriteRune(r)
			escaped = true
			continue
		}
		if r == '"' {
			inString = !inString
			sb.WriteRune(r)
			continue
		}
		if inString && r < 0x20 {
			switch r {
			case '\n':
				sb.WriteString(`\n`)
			case '\r':
				sb.WriteString(`\r`)
			case '\t':
				sb.WriteString(`\t`)
			default:
				sb.WriteString(fmt.Sprintf(`\u%04x`, r))
			}
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
