package classifier

// Route names the provider and model a tier should be served with.
type Route struct {
	Provider string
	Model    string
}

var tierRoutes = map[Tier]Route{
	TierSimple:  {Provider: "openai", Model: "gpt-4o-mini"},
	TierMedium:  {Provider: "openai", Model: "gpt-4o"},
	TierComplex: {Provider: "anthropic", Model: "claude-sonnet-4-20250514"},
	TierLocal:   {Provider: "ollama", Model: "llama3"},
}

// RouteModel maps a tier to its provider/model route. Pure: a fixed tier
// always yields the same route.
func RouteModel(tier Tier) Route {
	if r, ok := tierRoutes[tier]; ok {
		return r
	}
	return tierRoutes[TierMedium]
}
