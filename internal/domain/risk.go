package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RiskLevel is an ordinal severity; the numeric order is meaningful.
type RiskLevel int

const (
	RiskNo RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
)

var riskLevelNames = [...]string{"No", "Low", "Medium", "High"}

func (r RiskLevel) String() string {
	if r < RiskNo || r > RiskHigh {
		return fmt.Sprintf("RiskLevel(%d)", int(r))
	}
	return riskLevelNames[r]
}

// Valid reports whether r is one of the four defined levels.
func (r RiskLevel) Valid() bool {
	return r >= RiskNo && r <= RiskHigh
}

// ParseRiskLevel accepts level names case-insensitively, plus the common
// Spanish labels returned by remote classifiers.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "no", "none", "ninguno", "sin riesgo":
		return RiskNo, nil
	case "low", "bajo":
		return RiskLow, nil
	case "medium", "medio":
		return RiskMedium, nil
	case "high", "alto":
		return RiskHigh, nil
	}
	return RiskNo, fmt.Errorf("unknown risk level %q", s)
}

func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RiskCategory groups the kind of exposure a document signals.
type RiskCategory string

const (
	CategoryLegal       RiskCategory = "Legal"
	CategoryFinancial   RiskCategory = "Financial"
	CategoryRegulatory  RiskCategory = "Regulatory"
	CategoryOperational RiskCategory = "Operational"
)

// Categories lists every category in reporting order.
var Categories = []RiskCategory{CategoryLegal, CategoryFinancial, CategoryRegulatory, CategoryOperational}

// ParseRiskCategory maps a free-form label onto a category, defaulting to Operational.
func ParseRiskCategory(s string) RiskCategory {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "legal":
		return CategoryLegal
	case "financial", "financiero", "financiera":
		return CategoryFinancial
	case "regulatory", "regulatorio", "regulatoria":
		return CategoryRegulatory
	}
	return CategoryOperational
}

// Method records which stage produced a classification.
type Method string

const (
	MethodGateCode        Method = "gate_code"
	MethodGatePattern     Method = "gate_pattern"
	MethodGateShortText   Method = "gate_short_text"
	MethodGateFallback    Method = "gate_fallback"
	MethodRemotePrimary   Method = "remote_primary"
	MethodRemoteSecondary Method = "remote_secondary"
	MethodDefault         Method = "default"
)

// ResolvedByGate reports whether the method belongs to the fast path.
func (m Method) ResolvedByGate() bool {
	switch m {
	case MethodGateCode, MethodGatePattern, MethodGateShortText, MethodGateFallback:
		return true
	}
	return false
}

// ClassificationResult is the verdict for one document.
type ClassificationResult struct {
	RiskLevel    RiskLevel     `json:"risk_level"`
	RiskCategory RiskCategory  `json:"risk_category"`
	Confidence   float64       `json:"confidence"`
	Method       Method        `json:"method"`
	Rationale    string        `json:"rationale,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
}

// ClassifiedDocument pairs a document with its verdict.
type ClassifiedDocument struct {
	Document
	Classification ClassificationResult `json:"classification"`
}

// ClampConfidence bounds c to [0,1].
func ClampConfidence(c float64) float64 {
	switch {
	case c != c: // NaN
		return 0
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
