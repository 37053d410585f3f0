package classify

import (
	"fmt"
	"regexp"
	"strings"

	"RiskScanner/internal/config"
	"RiskScanner/internal/domain"
	"RiskScanner/internal/textnorm"
)

// EscalationPolicy decides whether a gate-ambiguous document is worth a
// remote call. Terms match at word starts, so "sancion" covers "sanciones".
type EscalationPolicy struct {
	indicators *regexp.Regexp
	exclusions *regexp.Regexp
	minLength  int
}

// NewEscalationPolicy compiles the configured term lists.
func NewEscalationPolicy(cfg config.EscalationConfig) (*EscalationPolicy, error) {
	ind, err := compileTerms(cfg.Indicators)
	if err != nil {
		return nil, fmt.Errorf("indicators: %w", err)
	}
	exc, err := compileTerms(cfg.Exclusions)
	if err != nil {
		return nil, fmt.Errorf("exclusions: %w", err)
	}
	return &EscalationPolicy{indicators: ind, exclusions: exc, minLength: cfg.MinLength}, nil
}

// ShouldEscalate requires an indicator term, a body longer than the minimum
// and no routine-administrative exclusion phrase.
func (p *EscalationPolicy) ShouldEscalate(doc domain.Document) bool {
	if p == nil || p.indicators == nil {
		return false
	}
	if textnorm.RuneLen(strings.TrimSpace(doc.Body)) <= p.minLength {
		return false
	}
	text := textnorm.Fold(doc.Text())
	if !p.indicators.MatchString(text) {
		return false
	}
	if p.exclusions != nil && p.exclusions.MatchString(text) {
		return false
	}
	return true
}

func compileTerms(terms []string) (*regexp.Regexp, error) {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		if f := textnorm.Fold(t); f != "" {
			parts = append(parts, regexp.QuoteMeta(f))
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return regexp.Compile(`\b(?:` + strings.Join(parts, "|") + `)`)
}
