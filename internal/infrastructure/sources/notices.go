package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"RiskScanner/internal/config"
	"RiskScanner/internal/domain"
	"RiskScanner/internal/scanner"
	"RiskScanner/internal/textnorm"
)

// KindNotices scrapes a paginated HTML listing of regulatory notices.
const KindNotices = "notices"

type noticeSelectors struct {
	item, title, date, link, summary, code string
}

// Notices pages through a listing ordered newest first, stopping once entries
// predate the window.
type Notices struct {
	name       string
	baseURL    *url.URL
	queryParam string
	pageSize   int
	maxPages   int
	dateLayout string
	lookback   int
	sel        noticeSelectors
	client     *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

func NewNotices(cfg config.SourceConfig, deps Deps) (*Notices, error) {
	deps = deps.withDefaults()
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || base.Host == "" {
		return nil, errors.New("notices: baseUrl must be an absolute URL")
	}
	o := cfg.Options
	return &Notices{
		name:       cfg.Name,
		baseURL:    base,
		queryParam: optString(o, "queryParam", "q"),
		pageSize:   optInt(o, "pageSize", 50),
		maxPages:   optInt(o, "maxPages", 5),
		dateLayout: optString(o, "dateLayout", "02/01/2006"),
		lookback:   cfg.MaxLookbackDays,
		sel: noticeSelectors{
			item:    optString(o, "item", ".notice"),
			title:   optString(o, "title", ".title"),
			date:    optString(o, "date", ".date"),
			link:    optString(o, "link", "a"),
			summary: optString(o, "summary", ".summary"),
			code:    optString(o, "code", ".code"),
		},
		client: deps.Client,
		logger: deps.Logger.With("component", "notices", "source", cfg.Name),
		now:    deps.Now,
	}, nil
}

func (n *Notices) Name() domain.SourceID { return n.name }

func (n *Notices) Fetch(ctx context.Context, q domain.ResolvedQuery) (domain.FetchResult, error) {
	var result domain.FetchResult
	window, note, ok := scanner.ClampLookback(q.Window, n.lookback, n.now())
	if note != "" {
		result.Adjustments = append(result.Adjustments, note)
	}
	if !ok {
		return result, nil
	}

	fetched := n.now().UTC()
	for page := 0; page < n.maxPages; page++ {
		entries, err := n.fetchPage(ctx, q.CompanyName, page)
		if err != nil {
			if page == 0 {
				return domain.FetchResult{}, err
			}
			result.Adjustments = append(result.Adjustments, fmt.Sprintf("stopped after page %d: %v", page, err))
			break
		}

		older := false
		for _, e := range entries {
			if e.PublishedAt.IsZero() {
				continue
			}
			if e.PublishedAt.Before(window.From) {
				older = true
				continue
			}
			if !window.Contains(e.PublishedAt) || !textnorm.Contains(e.Text(), q.CompanyName) {
				continue
			}
			e.SourceID, e.FetchedAt = n.name, fetched
			result.Documents = append(result.Documents, e)
		}
		if older || len(entries) < n.pageSize {
			return result, nil
		}
	}
	if n.maxPages > 0 {
		n.logger.Debug("notices page limit reached", "pages", n.maxPages)
	}
	return result, nil
}

func (n *Notices) fetchPage(ctx context.Context, company string, page int) ([]domain.Document, error) {
	u := *n.baseURL
	params := u.Query()
	params.Set(n.queryParam, company)
	params.Set("skip", strconv.Itoa(page*n.pageSize))
	params.Set("show", strconv.Itoa(n.pageSize))
	u.RawQuery = params.Encode()

	body, err := get(ctx, n.client, u.String(), http.Header{"Accept": []string{"text/html"}})
	if err != nil {
		return nil, failure(ctx, n.name, domain.AdapterHTTP, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, failure(ctx, n.name, domain.AdapterDecode, fmt.Errorf("parse page %d: %w", page, err))
	}

	var entries []domain.Document
	doc.Find(n.sel.item).Each(func(_ int, s *goquery.Selection) {
		title := strings.Join(strings.Fields(s.Find(n.sel.title).First().Text()), " ")
		if title == "" {
			return
		}
		var published time.Time
		if raw := strings.TrimSpace(s.Find(n.sel.date).First().Text()); raw != "" {
			if t, perr := time.Parse(n.dateLayout, raw); perr == nil {
				published = domain.Day(t)
			}
		}
		link, _ := s.Find(n.sel.link).First().Attr("href")
		entries = append(entries, domain.Document{
			Title:        title,
			Body:         strings.Join(strings.Fields(s.Find(n.sel.summary).First().Text()), " "),
			CategoryCode: strings.ToUpper(strings.TrimSpace(s.Find(n.sel.code).First().Text())),
			PublishedAt:  published,
			URL:          n.resolve(link),
		})
	})
	return entries, nil
}

func (n *Notices) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return n.baseURL.ResolveReference(ref).String()
}
