package vertical

import (
	"strings"
	"testing"

	"github.com/priyamehta/docintel/internal/models"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"legal", "legal"},
		{"LEGAL", "legal"},
		{"  Medical ", "medical"},
		{"financial", "financial"},
		{"generic", "generic"},
		{"unknown-vertical", "generic"},
		{"", "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := Resolve(tt.id); got.ID != tt.want {
				t.Errorf("Resolve(%q).ID = %q, want %q", tt.id, got.ID, tt.want)
			}
		})
	}
}

func TestResolveMemoized(t *testing.T) {
	if Resolve("legal") != Resolve("legal") {
		t.Error("Resolve should return the same config instance per id")
	}
}

func TestSchemaValidate(t *testing.T) {
	legal := Resolve("legal")

	tests := []struct {
		name       string
		obj        map[string]any
		wantIssues int
	}{
		{
			name: "conforming object",
			obj: map[string]any{
				"summary":     "A services agreement.",
				"key_risks":   []any{"unlimited liability"},
				"obligations": []any{"monthly reporting"},
			},
			wantIssues: 0,
		},
		{
			name:       "missing required fields",
			obj:        map[string]any{"summary": "short"},
			wantIssues: 2,
		},
		{
			name: "wrong kinds",
			obj: map[string]any{
				"summary":     42,
				"key_risks":   "not an array",
				"obligations": []any{},
			},
			wantIssues: 2,
		},
		{
			name: "optional fields may be absent",
			obj: map[string]any{
				"summary":     "ok",
				"key_risks":   []any{},
				"obligations": []any{},
			},
			wantIssues: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := legal.Schema.Validate(tt.obj)
			if len(issues) != tt.wantIssues {
				t.Errorf("Validate() issues = %v, want %d", issues, tt.wantIssues)
			}
		})
	}
}

func TestPromptMessages(t *testing.T) {
	for _, id := range IDs() {
		t.Run(id, func(t *testing.T) {
			v := Resolve(id)
			msgs := v.Prompt(PromptInput{
				InputText: "some document text",
				Context:   "[C1] source=contract.pdf chunk=0\nclause text",
				UseCase:   "review",
				Locale:    "de-DE",
			})
			if len(msgs) < 1 {
				t.Fatal("prompt template must return at least one message")
			}
			joined := ""
			for _, m := range msgs {
				if m.Role == "" || m.Content == "" {
					t.Errorf("message with empty role or content: %+v", m)
				}
				joined += m.Content
			}
			if !strings.Contains(joined, "some document text") {
				t.Error("prompt does not include the input text")
			}
			if !strings.Contains(joined, "[C1]") {
				t.Error("prompt does not include the retrieval context")
			}
			if !strings.Contains(joined, "de-DE") {
				t.Error("prompt does not carry the locale instruction")
			}
		})
	}
}

func TestAllowsInput(t *testing.T) {
	legal := Resolve("legal")
	if !legal.AllowsInput(models.InputTypePDF) {
		t.Error("legal should allow pdf input")
	}
	if legal.AllowsInput(models.InputType("audio")) {
		t.Error("legal should reject unknown input types")
	}
}

func TestMedicalPostProcessAddsDisclaimer(t *testing.T) {
	medical := Resolve("medical")
	out := medical.PostProcess(map[string]any{
		"summary":  "stable",
		"findings": []any{"normal bloodwork"},
	})
	if s, ok := out["disclaimer"].(string); !ok || s == "" {
		t.Error("post-process should fill an empty disclaimer")
	}
}
