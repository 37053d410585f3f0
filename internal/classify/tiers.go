package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"RiskScanner/internal/domain"
	"RiskScanner/internal/logging"
	"RiskScanner/internal/ports"
)

// Tier is one named remote strategy. The chain is just an ordered slice of
// these, so adding or reordering tiers is a config change.
type Tier struct {
	Name       string
	Method     domain.Method
	Timeout    time.Duration
	Classifier ports.SemanticClassifier
}

// Attempt records how a tier fared for one document.
type Attempt struct {
	Tier    string
	Method  domain.Method
	Elapsed time.Duration
	Err     error
}

// ChainOptions fixes the confidence blend between remote verdict and gate prior.
type ChainOptions struct {
	RemoteWeight float64
	GatePrior    float64
	Logger       *slog.Logger
}

// Chain tries tiers in order until one answers, ending in a static default.
type Chain struct {
	tiers  []Tier
	weight float64
	prior  float64
	logger *slog.Logger
}

// NewChain validates the weights and keeps tiers in the given order.
func NewChain(tiers []Tier, opts ChainOptions) *Chain {
	w := opts.RemoteWeight
	if w <= 0 || w > 1 {
		w = 0.7
	}
	prior := opts.GatePrior
	if prior < 0 || prior > 1 {
		prior = 0.5
	}
	return &Chain{
		tiers:  append([]Tier(nil), tiers...),
		weight: w,
		prior:  prior,
		logger: logging.OrDiscard(opts.Logger),
	}
}

// Tiers returns the configured tier names in order.
func (c *Chain) Tiers() []string {
	names := make([]string, len(c.tiers))
	for i, t := range c.tiers {
		names[i] = t.Name
	}
	return names
}

// Combine blends a remote confidence with the gate prior using the chain's
// fixed weight: w*remote + (1-w)*prior.
func (c *Chain) Combine(remote float64) float64 {
	return Combine(c.weight, remote, c.prior)
}

// Combine is the documented blend formula, clamped to [0,1].
func Combine(weight, remote, prior float64) float64 {
	return domain.ClampConfidence(weight*domain.ClampConfidence(remote) + (1-weight)*domain.ClampConfidence(prior))
}

// Classify walks TryPrimary, TrySecondary, ... and finally UseDefault. It
// never fails; a cancelled ctx short-circuits straight to the default.
func (c *Chain) Classify(ctx context.Context, doc domain.Document) (domain.ClassificationResult, []Attempt) {
	attempts := make([]Attempt, 0, len(c.tiers))

	for _, tier := range c.tiers {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Tier: tier.Name, Method: tier.Method, Err: fmt.Errorf("skipped: %w", err)})
			continue
		}

		start := time.Now()
		verdict, err := c.try(ctx, tier, doc)
		attempt := Attempt{Tier: tier.Name, Method: tier.Method, Elapsed: time.Since(start), Err: err}
		attempts = append(attempts, attempt)

		if err != nil {
			c.logger.Debug("tier failed", "tier", tier.Name, "url", doc.URL, "error", err)
			continue
		}

		level, perr := domain.ParseRiskLevel(verdict.Label)
		if perr != nil {
			attempts[len(attempts)-1].Err = perr
			continue
		}

		return domain.ClassificationResult{
			RiskLevel:    level,
			RiskCategory: domain.ParseRiskCategory(verdict.Category),
			Confidence:   c.Combine(verdict.Confidence),
			Method:       tier.Method,
			Rationale:    auditTrail(attempts, verdict.Reason),
		}, attempts
	}

	return Default(auditTrail(attempts, "")), attempts
}

// Default is the always-available terminal state.
func Default(rationale string) domain.ClassificationResult {
	if rationale == "" {
		rationale = "no remote tier available"
	}
	return domain.ClassificationResult{
		RiskLevel:    domain.RiskNo,
		RiskCategory: domain.CategoryOperational,
		Confidence:   ConfidenceDefault,
		Method:       domain.MethodDefault,
		Rationale:    rationale,
	}
}

// try wraps one tier call with its timeout, error mapping and panic capture.
func (c *Chain) try(ctx context.Context, tier Tier, doc domain.Document) (v ports.Verdict, err error) {
	if tier.Classifier == nil {
		return ports.Verdict{}, fmt.Errorf("tier %s: %w", tier.Name, domain.ErrServiceUnavailable)
	}

	tctx := ctx
	if tier.Timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, tier.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tier %s panicked: %v: %w", tier.Name, r, domain.ErrServiceUnavailable)
		}
	}()

	v, err = tier.Classifier.Classify(tctx, doc)
	if err == nil {
		return v, nil
	}
	if errors.Is(err, domain.ErrClassifierTimeout) || errors.Is(err, domain.ErrServiceUnavailable) {
		return ports.Verdict{}, err
	}
	if errors.Is(tctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return ports.Verdict{}, fmt.Errorf("tier %s: %w: %v", tier.Name, domain.ErrClassifierTimeout, err)
	}
	return ports.Verdict{}, fmt.Errorf("tier %s: %w: %v", tier.Name, domain.ErrServiceUnavailable, err)
}

func auditTrail(attempts []Attempt, reason string) string {
	var parts []string
	for i, a := range attempts {
		last := i == len(attempts)-1
		switch {
		case a.Err != nil:
			parts = append(parts, fmt.Sprintf("%s failed (%v)", a.Tier, a.Err))
		case last:
			parts = append(parts, fmt.Sprintf("resolved by %s", a.Tier))
		}
	}
	trail := strings.Join(parts, "; ")
	if reason = strings.TrimSpace(reason); reason != "" {
		if trail == "" {
			return reason
		}
		return trail + ": " + reason
	}
	if trail != "" && (len(attempts) == 0 || attempts[len(attempts)-1].Err != nil) {
		return trail + "; fell back to static default"
	}
	return trail
}
