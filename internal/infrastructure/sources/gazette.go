package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"RiskScanner/internal/config"
	"RiskScanner/internal/domain"
	"RiskScanner/internal/scanner"
	"RiskScanner/internal/textnorm"
)

// KindGazette is the official-gazette daily summary adapter.
const KindGazette = "gazette"

// Issuing bodies whose folded department name maps onto a gazette code.
var departmentCodes = []struct {
	prefix string
	code   string
}{
	{"ministerio de justicia", "JUS"},
	{"ministerio de la presidencia, justicia", "JUS"},
	{"tribunal supremo", "TS"},
	{"tribunal constitucional", "TS"},
	{"banco de espana", "BDE"},
	{"comision nacional del mercado de valores", "CNMV"},
	{"comision nacional de los mercados y la competencia", "CNMC"},
	{"agencia espanola de proteccion de datos", "AEPD"},
}

// Gazette walks the daily summary of an official gazette and keeps the
// entries whose title names the company.
type Gazette struct {
	name     string
	baseURL  string
	maxDays  int
	lookback int
	holidays scanner.Holidays
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time
}

// NewGazette builds the adapter from its source config.
func NewGazette(cfg config.SourceConfig, deps Deps) (*Gazette, error) {
	deps = deps.withDefaults()
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("gazette: baseUrl is required")
	}
	return &Gazette{
		name:     cfg.Name,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		maxDays:  optInt(cfg.Options, "maxDays", 31),
		lookback: cfg.MaxLookbackDays,
		holidays: scanner.ParseHolidays(cfg.Options["holidays"]),
		client:   deps.Client,
		logger:   deps.Logger.With("component", "gazette", "source", cfg.Name),
		now:      deps.Now,
	}, nil
}

func (g *Gazette) Name() domain.SourceID { return g.name }

// Fetch requests one summary per publication day. Days without an issue
// (404) are skipped; the call fails only when no day could be read.
func (g *Gazette) Fetch(ctx context.Context, q domain.ResolvedQuery) (domain.FetchResult, error) {
	var result domain.FetchResult

	window, note, ok := scanner.ClampLookback(q.Window, g.lookback, g.now())
	if note != "" {
		result.Adjustments = append(result.Adjustments, note)
	}
	if !ok {
		return result, nil
	}
	days := scanner.PublicationDays(window, g.holidays, 0)
	if len(days) == 0 {
		return result, nil
	}
	if g.maxDays > 0 && len(days) > g.maxDays {
		result.Adjustments = append(result.Adjustments,
			fmt.Sprintf("only the latest %d of %d publication days were read", g.maxDays, len(days)))
		days = days[:g.maxDays]
	}

	var (
		readDays int
		lastErr  error
	)
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return domain.FetchResult{}, failure(ctx, g.name, "", err)
		}
		entries, err := g.fetchDay(ctx, day)
		if isNotFound(err) {
			readDays++
			continue
		}
		if err != nil {
			g.logger.Warn("gazette day failed", "day", day.Format(time.DateOnly), "error", err)
			lastErr = err
			continue
		}
		readDays++
		for _, e := range entries {
			if textnorm.Contains(e.Title, q.CompanyName) {
				result.Documents = append(result.Documents, e)
			}
		}
	}

	if readDays == 0 && lastErr != nil {
		kind := domain.AdapterHTTP
		var syntax *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(lastErr, &syntax) || errors.As(lastErr, &typeErr) {
			kind = domain.AdapterDecode
		}
		return domain.FetchResult{}, failure(ctx, g.name, kind, lastErr)
	}
	if lastErr != nil {
		result.Adjustments = append(result.Adjustments,
			fmt.Sprintf("%d of %d days could not be read", len(days)-readDays, len(days)))
	}
	return result, nil
}

func (g *Gazette) fetchDay(ctx context.Context, day time.Time) ([]domain.Document, error) {
	url := g.baseURL + "/" + day.Format("20060102")
	body, err := get(ctx, g.client, url, http.Header{"Accept": []string{"application/json"}})
	if err != nil {
		return nil, err
	}

	var summary gazetteSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("decode summary %s: %w", day.Format(time.DateOnly), err)
	}

	fetched := g.now().UTC()
	var docs []domain.Document
	for _, issue := range summary.Data.Sumario.Diario {
		for _, section := range issue.Seccion {
			for _, dept := range section.Departamento {
				code := departmentCode(dept.Nombre)
				emit := func(heading string, items oneOrMany[gazetteItem]) {
					for _, it := range items {
						docs = append(docs, domain.Document{
							SourceID:     g.name,
							Title:        strings.TrimSpace(it.Titulo),
							Body:         gazetteBody(section.Nombre, dept.Nombre, heading),
							CategoryCode: code,
							PublishedAt:  day,
							URL:          it.URLHTML,
							FetchedAt:    fetched,
						})
					}
				}
				emit("", dept.Item)
				for _, ep := range dept.Epigrafe {
					emit(ep.Nombre, ep.Item)
				}
			}
		}
	}
	return docs, nil
}

func gazetteBody(section, dept, heading string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{section, dept, heading} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ". ")
}

func departmentCode(name string) string {
	folded := textnorm.Fold(name)
	for _, d := range departmentCodes {
		if strings.HasPrefix(folded, d.prefix) {
			return d.code
		}
	}
	return ""
}

type gazetteSummary struct {
	Data struct {
		Sumario struct {
			Diario oneOrMany[gazetteIssue] `json:"diario"`
		} `json:"sumario"`
	} `json:"data"`
}

type gazetteIssue struct {
	Seccion oneOrMany[gazetteSection] `json:"seccion"`
}

type gazetteSection struct {
	Codigo       string                       `json:"codigo"`
	Nombre       string                       `json:"nombre"`
	Departamento oneOrMany[gazetteDepartment] `json:"departamento"`
}

type gazetteDepartment struct {
	Codigo   string                    `json:"codigo"`
	Nombre   string                    `json:"nombre"`
	Epigrafe oneOrMany[gazetteHeading] `json:"epigrafe"`
	Item     oneOrMany[gazetteItem]    `json:"item"`
}

type gazetteHeading struct {
	Nombre string                 `json:"nombre"`
	Item   oneOrMany[gazetteItem] `json:"item"`
}

type gazetteItem struct {
	Identificador string `json:"identificador"`
	Titulo        string `json:"titulo"`
	URLHTML       string `json:"url_html"`
}

// oneOrMany decodes a JSON value that is either a single object or an array.
type oneOrMany[T any] []T

func (m *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}
	if data[0] == '[' {
		var many []T
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*m = many
		return nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*m = oneOrMany[T]{one}
	return nil
}
