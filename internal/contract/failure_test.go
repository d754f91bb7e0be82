package contract

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "short passes through", raw: "  {\"ok\": true}  ", want: "{\"ok\": true}"},
		{
			name: "long ascii truncated with ellipsis",
			raw:  strings.Repeat("a", rawPreviewLen+50),
			want: strings.Repeat("a", rawPreviewLen) + "...",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.raw); got != tt.want {
				t.Errorf("Preview() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreviewNeverSplitsRune(t *testing.T) {
	// Pad so the byte cutoff lands in the middle of the 3-byte rune.
	raw := strings.Repeat("a", rawPreviewLen-1) + "日本語"
	got := Preview(raw)
	if !utf8.ValidString(got) {
		t.Fatalf("Preview() produced invalid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("Preview() = %q, want truncation suffix", got)
	}
	if strings.ContainsRune(got, utf8.RuneError) {
		t.Fatalf("Preview() contains replacement rune: %q", got)
	}
}
