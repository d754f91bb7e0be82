package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/priyamehta/docintel/internal/cache"
)

// Tier buckets input complexity for model routing. TierLocal is a routing
// target only; the classifier never emits it.
type Tier string

const (
	TierSimple  Tier = "SIMPLE"
	TierMedium  Tier = "MEDIUM"
	TierComplex Tier = "COMPLEX"
	TierLocal   Tier = "LOCAL"
)

// ExternalFunc is an optional second-layer classifier (typically an LLM
// call). Failures and invalid responses are swallowed by Classify.
type ExternalFunc func(ctx context.Context, text string) (Tier, error)

var complexSignals = []*regexp.Regexp{
	regexp.MustCompile(`\barchitect(ure|ural)?\b`),
	regexp.MustCompile(`\bsystem design\b`),
	regexp.MustCompile(`\bdesign an? (system|platform|architecture|pipeline)\b`),
	regexp.MustCompile(`\bthreat model(ing)?\b`),
	regexp.MustCompile(`\bcompliance\b`),
	regexp.MustCompile(`\bmulti[- ]step\b`),
	regexp.MustCompile(`\btrade[- ]?offs?\b`),
	regexp.MustCompile(`\bdistributed\b`),
	regexp.MustCompile(`\bscalab(le|ility)\b`),
	regexp.MustCompile(`\bmicroservices?\b`),
	regexp.MustCompile(`\blegal\b`),
	regexp.MustCompile(`\bmedical\b`),
	regexp.MustCompile(`\bregulatory\b`),
	regexp.MustCompile(`\bmigration plan\b`),
	regexp.MustCompile(`\bend[- ]to[- ]end\b`),
}

var simpleSignals = []*regexp.Regexp{
	regexp.MustCompile(`\btranslate\b`),
	regexp.MustCompile(`\bspell[- ]?check\b`),
	regexp.MustCompile(`\bgrammar\b`),
	regexp.MustCompile(`\bproofread\b`),
	regexp.MustCompile(`\brephrase\b`),
	regexp.MustCompile(`\breword\b`),
	regexp.MustCompile(`\bformat\b`),
	regexp.MustCompile(`\bdefine\b`),
	regexp.MustCompile(`\bcapital of\b`),
}

var mediumSignals = []*regexp.Regexp{
	regexp.MustCompile(`\bsummar(y|ize|ise)\b`),
	regexp.MustCompile(`\bcompare\b`),
	regexp.MustCompile(`\boutline\b`),
	regexp.MustCompile(`\bdraft\b`),
	regexp.MustCompile(`\bemail\b`),
	regexp.MustCompile(`\bextract\b`),
	regexp.MustCompile(`\bclassif(y|ication)\b`),
	regexp.MustCompile(`\bexplain\b`),
	regexp.MustCompile(`\brefactor\b`),
}

var basicQuestionPrefixes = []string{"what", "who", "when", "where", "which", "define"}

var planningWords = []*regexp.Regexp{
	regexp.MustCompile(`\bplan(ning)?\b`),
	regexp.MustCompile(`\bdesign\b`),
	regexp.MustCompile(`\bcompare\b`),
	regexp.MustCompile(`\bversus\b`),
	regexp.MustCompile(`\bvs\.?\b`),
	regexp.MustCompile(`\bstrategy\b`),
	regexp.MustCompile(`\btrade[- ]?offs?\b`),
}

// Classifier buckets free text into a complexity tier using three layers:
// regex signals, an optional external classifier, and a deterministic
// word-count heuristic of last resort.
type Classifier struct {
	external    ExternalFunc
	cache       cache.Cache
	externalTTL time.Duration
}

func New(external ExternalFunc, c cache.Cache) *Classifier {
	return &Classifier{
		external:    external,
		cache:       c,
		externalTTL: 15 * time.Minute,
	}
}

func (c *Classifier) Classify(ctx context.Context, text string) Tier {
	normalized := normalize(text)

	if tier, ok := classifyBySignals(normalized); ok {
		return tier
	}

	if c.external != nil {
		if tier, ok := c.classifyExternal(ctx, normalized); ok {
			return tier
		}
	}

	return classifyHeuristic(normalized)
}

// classifyBySignals is the first layer. Complex signals take precedence;
// it abstains (ok=false) when no pattern set matches.
func classifyBySignals(text string) (Tier, bool) {
	for _, re := range complexSignals {
		if re.MatchString(text) {
			return TierComplex, true
		}
	}

	if looksLikeBasicQuestion(text) {
		return TierSimple, true
	}
	for _, re := range simpleSignals {
		if re.MatchString(text) {
			return TierSimple, true
		}
	}

	for _, re := range mediumSignals {
		if re.MatchString(text) {
			return TierMedium, true
		}
	}

	return "", false
}

func looksLikeBasicQuestion(text string) bool {
	words := strings.Fields(text)
	if len(words) == 0 || len(words) > 14 {
		return false
	}

	first := strings.TrimLeft(words[0], `"'(`)
	prefixed := false
	for _, p := range basicQuestionPrefixes {
		if strings.HasPrefix(first, p) {
			prefixed = true
			break
		}
	}
	if !prefixed {
		return false
	}

	for _, re := range planningWords {
		if re.MatchString(text) {
			return false
		}
	}
	return true
}

func (c *Classifier) classifyExternal(ctx context.Context, text string) (Tier, bool) {
	key := "classify:" + hashText(text)

	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, key); err == nil {
			if tier, ok := parseTier(cached); ok {
				return tier, true
			}
		}
	}

	tier, err := c.external(ctx, text)
	if err != nil {
		slog.Debug("external classifier failed, falling through", "error", err)
		return "", false
	}
	tier, ok := parseTier(string(tier))
	if !ok {
		slog.Debug("external classifier returned invalid tier", "tier", tier)
		return "", false
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, string(tier), c.externalTTL); err != nil {
			slog.Debug("classifier cache write failed", "error", err)
		}
	}
	return tier, true
}

// classifyHeuristic is the deterministic layer of last resort; it always
// returns a tier.
func classifyHeuristic(text string) Tier {
	words := len(strings.Fields(text))

	complexHits := 0
	for _, re := range complexSignals {
		if re.MatchString(text) {
			complexHits++
		}
	}
	mediumHits := 0
	for _, re := range mediumSignals {
		if re.MatchString(text) {
			mediumHits++
		}
	}

	switch {
	case words > 45 || complexHits >= 2:
		return TierComplex
	case words <= 12 && mediumHits == 0:
		return TierSimple
	case mediumHits >= 1 || words <= 35:
		return TierMedium
	default:
		return TierComplex
	}
}

func parseTier(s string) (Tier, bool) {
	switch Tier(strings.ToUpper(strings.TrimSpace(s))) {
	case TierSimple:
		return TierSimple, true
	case TierMedium:
		return TierMedium, true
	case TierComplex:
		return TierComplex, true
	}
	return "", false
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:8])
}
