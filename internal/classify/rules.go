package classify

import "RiskScanner/internal/domain"

// Fixed confidences per gate rule.
const (
	ConfidenceCode      = 0.95
	ConfidenceNegative  = 0.90
	ConfidenceHigh      = 0.90
	ConfidenceMedium    = 0.80
	ConfidenceLow       = 0.70
	ConfidenceShortText = 0.60
	ConfidenceFallback  = 0.30
	ConfidenceDefault   = 0.0

	// MinBodyLength is the rune count under which an indicator-free body is
	// considered too thin to carry risk.
	MinBodyLength = 80
)

// PatternGroup is a set of regex fragments for one risk category. Fragments
// are written against folded text: lower case, no accents.
type PatternGroup struct {
	Category domain.RiskCategory
	Patterns []string
}

// SeverityTier is one severity level with its pattern groups, checked in order.
type SeverityTier struct {
	Level      domain.RiskLevel
	Confidence float64
	Groups     []PatternGroup
}

// Rules is the full gate configuration.
type Rules struct {
	CodeAllowlist map[string]domain.RiskCategory
	Negative      []string
	Tiers         []SeverityTier
	MinBodyLength int
}

// DefaultRules returns the built-in Spanish/English rule set.
func DefaultRules() Rules {
	return Rules{
		CodeAllowlist: map[string]domain.RiskCategory{
			"JUS":  domain.CategoryLegal,
			"TS":   domain.CategoryLegal,
			"BDE":  domain.CategoryFinancial,
			"CNMV": domain.CategoryRegulatory,
			"CNMC": domain.CategoryRegulatory,
			"AEPD": domain.CategoryRegulatory,
		},
		Negative: []string{
			// sports
			`gana el partido`, `gano el partido`, `la liga`, `champions league`, `goles?`, `fichaje`,
			`jornada de liga`, `final de copa`, `entrenador`,
			// entertainment
			`estreno`, `pelicula`, `concierto`, `festival de musica`, `serie de television`, `alfombra roja`,
			// routine growth
			`record de beneficios`, `beneficios record`, `crecimiento de (?:las )?ventas`, `inaugura`,
			`nueva tienda`, `lanza (?:un|una) nuev[oa]`, `expansion internacional`, `reparte un dividendo`,
			`premio a la mejor`, `record revenue`, `opens new store`,
		},
		Tiers: []SeverityTier{
			{
				Level:      domain.RiskHigh,
				Confidence: ConfidenceHigh,
				Groups: []PatternGroup{
					{Category: domain.CategoryFinancial, Patterns: []string{
						`concurso de acreedores`, `preconcurso`, `quiebra`, `insolvencia`, `liquidacion concursal`,
						`suspension de pagos`, `bankruptcy`, `insolvency`, `chapter 11`,
					}},
					{Category: domain.CategoryLegal, Patterns: []string{
						`imputad[oa]s?`, `blanqueo de capitales`, `fraude fiscal`, `condenad[oa]s?`,
						`detenid[oa]s?`, `registro policial`, `organizacion criminal`, `money laundering`, `indicted`,
					}},
					{Category: domain.CategoryRegulatory, Patterns: []string{
						`sancion (?:muy )?grave`, `expediente sancionador`, `multa de \d+(?:[.,]\d+)? millones`,
						`revocacion de (?:la )?licencia`, `intervencion del banco de espana`,
						`suspension de (?:la )?cotizacion`, `license revoked`,
					}},
				},
			},
			{
				Level:      domain.RiskMedium,
				Confidence: ConfidenceMedium,
				Groups: []PatternGroup{
					{Category: domain.CategoryLegal, Patterns: []string{
						`demanda colectiva`, `querella`, `juicio oral`, `recurso contencioso`, `class action`,
					}},
					{Category: domain.CategoryFinancial, Patterns: []string{
						`perdidas millonarias`, `profit warning`, `rebaja (?:de )?(?:la )?calificacion`, `rebaja de rating`,
						`expediente de regulacion de empleo`, `reestructuracion de (?:la )?deuda`, `deuda impagada`,
						`impago`, `downgrade`,
					}},
					{Category: domain.CategoryRegulatory, Patterns: []string{
						`investigacion de la cnmv`, `requerimiento de la cnmv`, `apertura de expediente`,
						`inspeccion de trabajo`, `incumplimiento normativo`,
					}},
					{Category: domain.CategoryOperational, Patterns: []string{
						`huelga`, `ciberataque`, `brecha de seguridad`, `retirada de producto`, `data breach`, `cyberattack`,
					}},
				},
			},
			{
				Level:      domain.RiskLow,
				Confidence: ConfidenceLow,
				Groups: []PatternGroup{
					{Category: domain.CategoryFinancial, Patterns: []string{
						`caida en bolsa`, `cae en bolsa`, `se desploma`, `revision a la baja`, `perdidas`,
					}},
					{Category: domain.CategoryRegulatory, Patterns: []string{
						`advertencia de la cnmv`, `consulta publica`, `recomendacion del regulador`,
					}},
					{Category: domain.CategoryLegal, Patterns: []string{
						`reclamacion judicial`, `reclamaciones de clientes`,
					}},
					{Category: domain.CategoryOperational, Patterns: []string{
						`averia`, `interrupcion del servicio`, `retrasos`,
					}},
				},
			},
		},
		MinBodyLength: MinBodyLength,
	}
}
