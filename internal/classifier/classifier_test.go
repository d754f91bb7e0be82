package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/priyamehta/docintel/internal/cache"
)

func TestClassifySignals(t *testing.T) {
	c := New(nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		text string
		want Tier
	}{
		{"basic question", "What is DNS?", TierSimple},
		{"system design", "Design a system for a globally distributed chat application with 10M DAU.", TierComplex},
		{"threat model", "Build a threat model for our payment flow", TierComplex},
		{"legal signal", "Review this legal indemnification clause", TierComplex},
		{"translate", "Translate this sentence to French", TierSimple},
		{"capital of", "capital of Austria", TierSimple},
		{"proofread", "Please proofread my cover letter", TierSimple},
		{"summarize", "Summarize the attached meeting notes for the team", TierMedium},
		{"draft email", "Draft an email to the vendor about the delayed shipment", TierMedium},
		{"explain", "Explain how garbage collection works in this runtime", TierMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(ctx, tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyHeuristicFallback(t *testing.T) {
	c := New(nil, nil)
	ctx := context.Background()

	short := "walk the dog tomorrow morning"
	if got := c.Classify(ctx, short); got != TierSimple {
		t.Errorf("Classify(short neutral) = %v, want SIMPLE", got)
	}

	long := strings.Repeat("word ", 50) + "finish"
	if got := c.Classify(ctx, long); got != TierComplex {
		t.Errorf("Classify(>45 words) = %v, want COMPLEX", got)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := New(nil, nil)
	ctx := context.Background()
	input := "Tell me about the weather patterns over the Atlantic in autumn months please"

	first := c.Classify(ctx, input)
	for i := 0; i < 10; i++ {
		if got := c.Classify(ctx, input); got != first {
			t.Fatalf("Classify() not deterministic: got %v then %v", first, got)
		}
	}
}

func TestClassifyExternalLayer(t *testing.T) {
	t.Run("valid response used", func(t *testing.T) {
		external := func(_ context.Context, _ string) (Tier, error) { return TierMedium, nil }
		c := New(external, nil)
		// Neutral text that abstains in layer 1 and would be SIMPLE in layer 3.
		if got := c.Classify(context.Background(), "walk the dog tomorrow"); got != TierMedium {
			t.Errorf("Classify() = %v, want external MEDIUM", got)
		}
	})

	t.Run("error swallowed, heuristic used", func(t *testing.T) {
		external := func(_ context.Context, _ string) (Tier, error) { return "", errors.New("boom") }
		c := New(external, nil)
		if got := c.Classify(context.Background(), "walk the dog tomorrow"); got != TierSimple {
			t.Errorf("Classify() = %v, want heuristic SIMPLE", got)
		}
	})

	t.Run("invalid response swallowed", func(t *testing.T) {
		external := func(_ context.Context, _ string) (Tier, error) { return Tier("BANANAS"), nil }
		c := New(external, nil)
		if got := c.Classify(context.Background(), "walk the dog tomorrow"); got != TierSimple {
			t.Errorf("Classify() = %v, want heuristic SIMPLE", got)
		}
	})

	t.Run("result cached across calls", func(t *testing.T) {
		calls := 0
		external := func(_ context.Context, _ string) (Tier, error) {
			calls++
			return TierMedium, nil
		}
		c := New(external, cache.NewMemory())
		ctx := context.Background()
		c.Classify(ctx, "walk the dog tomorrow")
		c.Classify(ctx, "walk the dog tomorrow")
		if calls != 1 {
			t.Errorf("external called %d times, want 1", calls)
		}
	})
}

func TestRouteModelStable(t *testing.T) {
	for _, tier := range []Tier{TierSimple, TierMedium, TierComplex, TierLocal} {
		first := RouteModel(tier)
		if first.Provider == "" || first.Model == "" {
			t.Fatalf("RouteModel(%v) returned empty route", tier)
		}
		for i := 0; i < 5; i++ {
			if got := RouteModel(tier); got != first {
				t.Errorf("RouteModel(%v) unstable: %v then %v", tier, first, got)
			}
		}
	}
}
