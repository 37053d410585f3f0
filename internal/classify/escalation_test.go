package classify

import (
	"strings"
	"testing"

	"RiskScanner/internal/config"
	"RiskScanner/internal/domain"
)

func testPolicy(t *testing.T) *EscalationPolicy {
	t.Helper()
	p, err := NewEscalationPolicy(config.EscalationConfig{
		Indicators: []string{"tribunal", "juzgado", "demanda", "denuncia", "sanción", "regulador"},
		Exclusions: []string{"nombramiento", "dimisión", "junta general"},
		MinLength:  200,
	})
	if err != nil {
		t.Fatalf("NewEscalationPolicy: %v", err)
	}
	return p
}

func TestShouldEscalate(t *testing.T) {
	t.Parallel()

	p := testPolicy(t)
	long := strings.Repeat("Texto de relleno sobre la actividad de la empresa. ", 6)

	cases := map[string]struct {
		doc  domain.Document
		want bool
	}{
		"indicator and long body": {domain.Document{Body: "Acme ha sido citada por el Tribunal. " + long}, true},
		"accent-insensitive":      {domain.Document{Body: "Posible SANCIONES para Acme. " + long}, true},
		"short body":              {domain.Document{Body: "Acme ante el tribunal."}, false},
		"no indicator":            {domain.Document{Body: long}, false},
		"excluded phrasing":       {domain.Document{Body: "Nombramiento tras decisión del tribunal. " + long}, false},
		"indicator in title only": {domain.Document{Title: "Demanda a Acme", Body: long}, true},
	}

	for name, tc := range cases {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := p.ShouldEscalate(tc.doc); got != tc.want {
				t.Fatalf("ShouldEscalate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEscalationFractionOnReferenceCorpus(t *testing.T) {
	t.Parallel()

	g := MustDefaultGate()
	p, err := NewEscalationPolicy(config.EscalationConfig{
		Indicators: []string{"tribunal", "juzgado", "demanda", "denuncia", "sancion", "multa", "expediente", "investigacion", "regulador", "litigio"},
		Exclusions: []string{"nombramiento", "dimision", "cese de", "junta general"},
		MinLength:  200,
	})
	if err != nil {
		t.Fatalf("NewEscalationPolicy: %v", err)
	}

	corpus := referenceCorpus()
	escalated := 0
	for _, doc := range corpus {
		out := g.Classify(doc)
		if out.Ambiguous && p.ShouldEscalate(doc) {
			escalated++
		}
	}

	frac := float64(escalated) / float64(len(corpus))
	if frac >= 0.15 {
		t.Fatalf("escalated %d of %d (%.2f), expected below 0.15", escalated, len(corpus), frac)
	}
	if escalated == 0 {
		t.Fatal("corpus should exercise at least one escalation")
	}
}

func TestNilPolicyNeverEscalates(t *testing.T) {
	t.Parallel()

	var p *EscalationPolicy
	if p.ShouldEscalate(domain.Document{Body: strings.Repeat("tribunal ", 100)}) {
		t.Fatal("nil policy must not escalate")
	}
}
