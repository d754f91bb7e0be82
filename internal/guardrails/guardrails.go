package guardrails

import "regexp"

// PIIRule redacts matches of Pattern with Replacement before the text is
// ever sent to a provider.
type PIIRule struct {
	ID          string
	Pattern     *regexp.Regexp
	Replacement string
}

// RefusalRule short-circuits generation entirely when its pattern matches.
type RefusalRule struct {
	ID      string
	Pattern *regexp.Regexp
	Reason  string
}

// RuleSet is a vertical's guardrail configuration.
type RuleSet struct {
	PII     []PIIRule
	Refusal []RefusalRule
}

// Evaluation is the outcome of running a rule set against input text.
type Evaluation struct {
	Refused      bool
	MatchedRules []string
	Redacted     string
}

// Evaluate applies refusal rules first, then PII redaction. A refusal is not
// an error: the job succeeds with a refusal payload.
func Evaluate(text string, rs RuleSet) Evaluation {
	ev := Evaluation{Redacted: text}

	for _, rule := range rs.Refusal {
		if rule.Pattern.MatchString(text) {
			ev.Refused = true
			ev.MatchedRules = append(ev.MatchedRules, rule.ID)
		}
	}
	if ev.Refused {
		return ev
	}

	for _, rule := range rs.PII {
		if rule.Pattern.MatchString(ev.Redacted) {
			ev.MatchedRules = append(ev.MatchedRules, rule.ID)
			ev.Redacted = rule.Pattern.ReplaceAllString(ev.Redacted, rule.Replacement)
		}
	}
	return ev
}

// Common PII rules shared across verticals.
var (
	ruleEmail = PIIRule{
		ID:          "pii.email",
		Pattern:     regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
		Replacement: "[EMAIL]",
	}
	ruleSSN = PIIRule{
		ID:          "pii.ssn",
		Pattern:     regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		Replacement: "[SSN]",
	}
	rulePhone = PIIRule{
		ID:          "pii.phone",
		Pattern:     regexp.MustCompile(`\b(?:\+?1[-. ]?)?\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}\b`),
		Replacement: "[PHONE]",
	}
	ruleCreditCard = PIIRule{
		ID:          "pii.credit_card",
		Pattern:     regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`),
		Replacement: "[CARD]",
	}
)

// BasePII is the redaction set every vertical starts from.
func BasePII() []PIIRule {
	return []PIIRule{ruleEmail, ruleSSN, rulePhone, ruleCreditCard}
}
