// Package classify holds the risk classification stages: the deterministic
// gate, the escalation predicate and the tiered remote chain.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"RiskScanner/internal/domain"
	"RiskScanner/internal/textnorm"
)

// Outcome is the gate's answer. When Ambiguous is set, Result is not terminal.
type Outcome struct {
	Result    domain.ClassificationResult
	Ambiguous bool
}

type compiledGroup struct {
	category domain.RiskCategory
	expr     *regexp.Regexp
}

type compiledTier struct {
	level      domain.RiskLevel
	confidence float64
	groups     []compiledGroup
}

// Gate is the fast-path classifier. It is immutable after construction and
// safe for concurrent use.
type Gate struct {
	codes    map[string]domain.RiskCategory
	negative *regexp.Regexp
	tiers    []compiledTier
	minBody  int
}

// NewGate precompiles every pattern set in rules.
func NewGate(rules Rules) (*Gate, error) {
	g := &Gate{
		codes:   make(map[string]domain.RiskCategory, len(rules.CodeAllowlist)),
		minBody: rules.MinBodyLength,
	}
	for code, cat := range rules.CodeAllowlist {
		g.codes[strings.ToUpper(strings.TrimSpace(code))] = cat
	}

	neg, err := compileSet(rules.Negative)
	if err != nil {
		return nil, fmt.Errorf("negative patterns: %w", err)
	}
	g.negative = neg

	for _, tier := range rules.Tiers {
		ct := compiledTier{level: tier.Level, confidence: tier.Confidence}
		for _, group := range tier.Groups {
			expr, err := compileSet(group.Patterns)
			if err != nil {
				return nil, fmt.Errorf("%s %s patterns: %w", tier.Level, group.Category, err)
			}
			if expr == nil {
				continue
			}
			ct.groups = append(ct.groups, compiledGroup{category: group.Category, expr: expr})
		}
		g.tiers = append(g.tiers, ct)
	}

	return g, nil
}

// MustDefaultGate builds the gate from DefaultRules and panics on a bad pattern.
func MustDefaultGate() *Gate {
	g, err := NewGate(DefaultRules())
	if err != nil {
		panic(err)
	}
	return g
}

// Classify evaluates the ordered rule list; the first matching rule wins.
// It never consults the clock, the network or any mutable state.
func (g *Gate) Classify(doc domain.Document) Outcome {
	if code := strings.ToUpper(strings.TrimSpace(doc.CategoryCode)); code != "" {
		if cat, ok := g.codes[code]; ok {
			return resolved(domain.RiskHigh, cat, ConfidenceCode, domain.MethodGateCode,
				fmt.Sprintf("category code %s is allowlisted", code))
		}
	}

	text := textnorm.Fold(doc.Text())

	if g.negative != nil {
		if m := g.negative.FindString(text); m != "" {
			return resolved(domain.RiskNo, domain.CategoryOperational, ConfidenceNegative, domain.MethodGatePattern,
				fmt.Sprintf("non-risk indicator %q", m))
		}
	}

	for _, tier := range g.tiers {
		for _, group := range tier.groups {
			if m := group.expr.FindString(text); m != "" {
				return resolved(tier.level, group.category, tier.confidence, domain.MethodGatePattern,
					fmt.Sprintf("%s %s indicator %q", strings.ToLower(tier.level.String()), strings.ToLower(string(group.category)), m))
			}
		}
	}

	if textnorm.RuneLen(strings.TrimSpace(doc.Body)) < g.minBody {
		return resolved(domain.RiskNo, domain.CategoryOperational, ConfidenceShortText, domain.MethodGateShortText,
			"short text without risk indicators")
	}

	return Outcome{Ambiguous: true}
}

// Fallback is the verdict for an ambiguous document the escalation policy
// declined to send to the remote tiers.
func Fallback() domain.ClassificationResult {
	return domain.ClassificationResult{
		RiskLevel:    domain.RiskNo,
		RiskCategory: domain.CategoryOperational,
		Confidence:   ConfidenceFallback,
		Method:       domain.MethodGateFallback,
		Rationale:    "ambiguous at gate, not escalated",
	}
}

func resolved(level domain.RiskLevel, cat domain.RiskCategory, conf float64, method domain.Method, why string) Outcome {
	return Outcome{Result: domain.ClassificationResult{
		RiskLevel:    level,
		RiskCategory: cat,
		Confidence:   conf,
		Method:       method,
		Rationale:    why,
	}}
}

// compileSet joins fragments into one word-bounded alternation.
func compileSet(patterns []string) (*regexp.Regexp, error) {
	parts := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, "(?:"+p+")")
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return regexp.Compile(`\b(?:` + strings.Join(parts, "|") + `)\b`)
}
