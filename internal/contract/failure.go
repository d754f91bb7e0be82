package contract

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// CodeSchemaValidationFailed is the stable machine-readable code surfaced
// to callers when two consecutive model responses fail schema validation.
const CodeSchemaValidationFailed = "STRUCTURED_OUTPUT_SCHEMA_VALIDATION_FAILED"

const rawPreviewLen = 240

// StructuredOutputError is terminal for a job: both the original response
// and the corrective retry failed validation. It carries a machine-readable
// payload so the API layer can map it to a stable client-facing error.
type StructuredOutputError struct {
	Code           string   `json:"code"`
	VerticalID     string   `json:"verticalId"`
	Stage          string   `json:"stage"`
	Issues         []string `json:"issues"`
	RawPreview     string   `json:"rawPreview"`
	RetryAttempted bool     `json:"retryAttempted"`
}

func (e *StructuredOutputError) Error() string {
	return fmt.Sprintf("%s: vertical=%s stage=%s issues=[%s]",
		e.Code, e.VerticalID, e.Stage, strings.Join(e.Issues, "; "))
}

// Preview truncates raw model output for audit payloads. The cut never
// splits a multi-byte rune, so the preview stays valid UTF-8.
func Preview(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) <= rawPreviewLen {
		return raw
	}
	cut := rawPreviewLen
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut] + "..."
}
