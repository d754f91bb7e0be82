package contract

import (
	"regexp"
	"strings"

	"github.com/priyamehta/docintel/internal/vertical"
)

// RepairForVertical is a best-effort text-to-structure recovery stage. When
// required top-level keys are missing it looks for a JSON-shaped payload
// nested inside a string field (models often wrap their whole answer inside
// "summary") and mines it for the missing fields. It is heuristic and
// lossy, not a general JSON parser. Mined values only fill gaps: a
// top-level value that already satisfies the schema is kept, except for the
// wrapper field itself, which is replaced by its unwrapped counterpart.
func RepairForVertical(obj map[string]any, sch vertical.Schema) (map[string]any, bool) {
	missing := missingFields(obj, sch)
	if len(missing) == 0 {
		return obj, false
	}

	for _, f := range sch.Fields {
		if f.Kind != vertical.KindString {
			continue
		}
		wrapper, ok := obj[f.Name].(string)
		if !ok || !strings.Contains(wrapper, "{") {
			continue
		}

		if out, changed := mineNestedPayload(obj, sch, f.Name, wrapper); changed {
			return out, true
		}
	}

	return obj, false
}

func mineNestedPayload(obj map[string]any, sch vertical.Schema, wrapperKey, wrapper string) (map[string]any, bool) {
	blob := innerJSON(wrapper)
	if blob == "" {
		return obj, false
	}

	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	changed := false

	if nested, ok := parseLoose(blob); ok {
		for _, f := range sch.Fields {
			v, present := nested[f.Name]
			if !present || !kindMatches(v, f.Kind) {
				continue
			}
			// Fill gaps; additionally replace the wrapper field itself,
			// whose current value is the blob, not a real answer.
			if fieldMissing(out, f) || f.Name == wrapperKey {
				out[f.Name] = v
				changed = true
			}
		}
		return out, changed
	}

	// The blob did not parse even after control-character repair: it is
	// likely truncated. Mine individual fields with tolerant regexes.
	for _, f := range sch.Fields {
		if !fieldMissing(out, f) && f.Name != wrapperKey {
			continue
		}
		switch f.Kind {
		case vertical.KindString:
			if v, ok := extractStringField(blob, f.Name); ok {
				out[f.Name] = v
				changed = true
			}
		case vertical.KindArray:
			if v, ok := extractArrayField(blob, f.Name); ok {
				out[f.Name] = v
				changed = true
			}
		}
	}
	return out, changed
}

// innerJSON strips a fence if present and slices from the first '{'. A
// missing closing brace is tolerated so truncated payloads stay minable.
func innerJSON(s string) string {
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	first := strings.Index(s, "{")
	if first < 0 {
		return ""
	}
	s = s[first:]
	if last := strings.LastIndex(s, "}"); last > 0 {
		s = s[:last+1]
	}
	return strings.TrimSpace(s)
}

// extractStringField pulls a string value for key out of a (possibly
// truncated) JSON blob. The closing quote may be missing.
func extractStringField(blob, key string) (string, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*"((?:[^"\\]|\\.)*)`)
	m := re.FindStringSubmatch(blob)
	if m == nil {
		return "", false
	}
	return unescapeJSONString(m[1]), true
}

// extractArrayField pulls an array of strings for key out of a (possibly
// truncated) JSON blob. The closing bracket may be missing.
func extractArrayField(blob, key string) ([]any, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*\[([^\]]*)(\]|$)`)
	m := re.FindStringSubmatch(blob)
	if m == nil {
		return nil, false
	}

	itemRe := regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
	var items []any
	for _, im := range itemRe.FindAllStringSubmatch(m[1], -1) {
		items = append(items, unescapeJSONString(im[1]))
	}
	if items == nil {
		items = []any{}
	}
	return items, true
}

func unescapeJSONString(s string) string {
	r := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\n`, "\n", `\r`, "\r", `\t`, "\t")
	return r.Replace(s)
}

func missingFields(obj map[string]any, sch vertical.Schema) []vertical.Field {
	var missing []vertical.Field
	for _, f := range sch.Fields {
		if !f.Required {
			continue
		}
		if fieldMissing(obj, f) {
			missing = append(missing, f)
		}
	}
	return missing
}

func fieldMissing(obj map[string]any, f vertical.Field) bool {
	v, present := obj[f.Name]
	if !present || v == nil {
		return true
	}
	return !kindMatches(v, f.Kind)
}

func kindMatches(v any, kind vertical.FieldKind) bool {
	switch kind {
	case vertical.KindString:
		_, ok := v.(string)
		return ok
	case vertical.KindArray:
		_, ok := v.([]any)
		return ok
	}
	return false
}

// HasStructuredSignal reports whether any of the vertical's required keys
// are present at all; without one, the response carries no structure worth
// repairing and goes straight to the corrective retry.
func HasStructuredSignal(obj map[string]any, sch vertical.Schema) bool {
	for _, key := range sch.RequiredKeys() {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}
