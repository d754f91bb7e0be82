package vertical

import (
	"fmt"
	"strings"
)

type FieldKind string

const (
	KindString FieldKind = "string"
	KindArray  FieldKind = "array"
)

type Field struct {
	Name        string
	Kind        FieldKind
	Description string
	Required    bool
}

// Schema is the structured-output contract a model response must satisfy
// before a job is marked succeeded.
type Schema struct {
	Fields []Field
}

// Validate checks obj against the schema and returns human-readable issues.
// An empty slice means the object conforms.
func (s Schema) Validate(obj map[string]any) []string {
	var issues []string

	for _, f := range s.Fields {
		v, present := obj[f.Name]
		if !present || v == nil {
			if f.Required {
				issues = append(issues, fmt.Sprintf("missing required field %q", f.Name))
			}
			continue
		}

		switch f.Kind {
		case KindString:
			if _, ok := v.(string); !ok {
				issues = append(issues, fmt.Sprintf("field %q must be a string", f.Name))
			}
		case KindArray:
			if _, ok := v.([]any); !ok {
				issues = append(issues, fmt.Sprintf("field %q must be an array", f.Name))
			}
		}
	}

	return issues
}

// RequiredKeys lists the top-level keys a raw response must carry for it to
// count as a structured signal at all.
func (s Schema) RequiredKeys() []string {
	var keys []string
	for _, f := range s.Fields {
		if f.Required {
			keys = append(keys, f.Name)
		}
	}
	return keys
}

func (s Schema) ArrayFields() []string {
	var keys []string
	for _, f := range s.Fields {
		if f.Kind == KindArray {
			keys = append(keys, f.Name)
		}
	}
	return keys
}

func (s Schema) StringFields() []string {
	var keys []string
	for _, f := range s.Fields {
		if f.Kind == KindString {
			keys = append(keys, f.Name)
		}
	}
	return keys
}

// Describe renders the schema as the JSON skeleton embedded in prompts.
func (s Schema) Describe() string {
	var sb strings.Builder
	sb.WriteString("{\n")
	for i, f := range s.Fields {
		required := ""
		if f.Required {
			required = " (REQUIRED)"
		}
		kind := "string"
		if f.Kind == KindArray {
			kind = "array of strings"
		}
		fmt.Fprintf(&sb, `  "%s": <%s>%s // %s`, f.Name, kind, required, f.Description)
		if i < len(s.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}
