package llm

import (
	"context"
	"errors"
	"log/slog"
)

// FallbackExecutor issues an action against an ordered list of provider
// candidates, moving to the next candidate on failure. Unconfigured
// candidates are skipped; the first success wins.
type FallbackExecutor struct {
	registry      *Registry
	fallbackOrder []string
}

func NewFallbackExecutor(registry *Registry, fallbackOrder []string) *FallbackExecutor {
	return &FallbackExecutor{
		registry:      registry,
		fallbackOrder: fallbackOrder,
	}
}

// CandidateOrder builds the provider attempt order: user-preferred providers
// first, then the task-routed provider, then the global fallback order, with
// duplicates removed preserving first occurrence.
func (e *FallbackExecutor) CandidateOrder(preferred []string, routed string) []string {
	seen := make(map[string]bool)
	var order []string

	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		order = append(order, name)
	}

	for _, name := range preferred {
		add(name)
	}
	add(routed)
	for _, name := range e.fallbackOrder {
		add(name)
	}

	return order
}

func (e *FallbackExecutor) GenerateText(ctx context.Context, candidates []string, req GenerateRequest) (*GenerateResponse, error) {
	var lastErr error
	attempted := false

	for _, name := range candidates {
		p, ok := e.registry.Provider(name)
		if !ok {
			continue
		}
		attempted = true

		resp, err := p.GenerateText(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		status, msg := NormalizeError(err)
		slog.Warn("provider generate failed, trying next candidate",
			"provider", name,
			"model", req.Model,
			"status", status,
			"message", msg,
		)
	}

	if !attempted {
		return nil, ErrNoProvider
	}
	return nil, lastErr
}

func (e *FallbackExecutor) Embed(ctx context.Context, candidates []string, req EmbedRequest) (*EmbedResponse, error) {
	var lastErr error
	attempted := false

	for _, name := range candidates {
		p, ok := e.registry.Provider(name)
		if !ok {
			continue
		}

		resp, err := p.Embed(ctx, req)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, ErrUnsupportedAction) {
			// Providers without an embedding endpoint don't count as an
			// attempt; the chain simply moves past them.
			continue
		}
		attempted = true
		lastErr = err

		status, msg := NormalizeError(err)
		slog.Warn("provider embed failed, trying next candidate",
			"provider", name,
			"model", req.Model,
			"status", status,
			"message", msg,
		)
	}

	if !attempted {
		return nil, ErrNoProvider
	}
	return nil, lastErr
}
