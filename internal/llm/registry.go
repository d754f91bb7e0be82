package llm

import "github.com/priyamehta/docintel/internal/config"

// Registry holds the providers configured at startup. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(cfg config.LLMConfig) *Registry {
	r := &Registry{providers: make(map[string]Provider)}

	if cfg.OpenAIKey != "" {
		r.providers["openai"] = NewOpenAIProvider(cfg.OpenAIKey)
	}
	if cfg.AnthropicKey != "" {
		r.providers["anthropic"] = NewAnthropicProvider(cfg.AnthropicKey)
	}
	if cfg.OllamaURL != "" {
		r.providers["ollama"] = NewOllamaProvider(cfg.OllamaURL)
	}

	return r
}

// NewRegistryWith builds a registry from explicit providers. Used by tests
// and anywhere the env-driven constructor is unsuitable.
func NewRegistryWith(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

func (r *Registry) Provider(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
