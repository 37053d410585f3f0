package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"RiskScanner/internal/config"
	"RiskScanner/internal/domain"
	"RiskScanner/internal/scanner"
)

// KindNewsAPI is the keyword news-search adapter.
const KindNewsAPI = "newsapi"

const newsPageSize = 100

var truncatedSuffix = regexp.MustCompile(`\s*\[\+\d+ chars\]\s*$`)

// NewsAPI queries a keyword news index for articles mentioning the company.
type NewsAPI struct {
	name     string
	endpoint string
	apiKey   string
	language string
	maxPages int
	lookback int
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time
}

// NewNewsAPI builds the adapter. A missing key is reported per call rather
// than at construction so the remaining sources keep working.
func NewNewsAPI(cfg config.SourceConfig, deps Deps) (*NewsAPI, error) {
	deps = deps.withDefaults()
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("newsapi: baseUrl is required")
	}
	return &NewsAPI{
		name:     cfg.Name,
		endpoint: cfg.BaseURL,
		apiKey:   cfg.APIKey,
		language: optString(cfg.Options, "language", ""),
		maxPages: optInt(cfg.Options, "maxPages", 1),
		lookback: cfg.MaxLookbackDays,
		client:   deps.Client,
		logger:   deps.Logger.With("component", "newsapi", "source", cfg.Name),
		now:      deps.Now,
	}, nil
}

func (n *NewsAPI) Name() domain.SourceID { return n.name }

func (n *NewsAPI) Fetch(ctx context.Context, q domain.ResolvedQuery) (domain.FetchResult, error) {
	if n.apiKey == "" {
		return domain.FetchResult{}, domain.NewAdapterError(n.name, domain.AdapterConfig, errors.New("api key is not configured"))
	}

	var result domain.FetchResult
	window, note, ok := scanner.ClampLookback(q.Window, n.lookback, n.now())
	if note != "" {
		result.Adjustments = append(result.Adjustments, note)
	}
	if !ok {
		return result, nil
	}

	fetched := n.now().UTC()
	for page := 1; page <= n.maxPages; page++ {
		resp, err := n.fetchPage(ctx, q.CompanyName, window, page)
		if err != nil {
			if page == 1 {
				return domain.FetchResult{}, err
			}
			n.logger.Warn("newsapi page failed", "page", page, "error", err)
			result.Adjustments = append(result.Adjustments, fmt.Sprintf("stopped after page %d: %v", page-1, err))
			break
		}
		for _, a := range resp.Articles {
			published, perr := time.Parse(time.RFC3339, a.PublishedAt)
			if perr != nil || !window.Contains(published) {
				continue
			}
			result.Documents = append(result.Documents, domain.Document{
				SourceID:    n.name,
				Title:       strings.TrimSpace(a.Title),
				Body:        articleBody(a.Description, a.Content),
				PublishedAt: published.UTC(),
				URL:         a.URL,
				FetchedAt:   fetched,
			})
		}
		if len(resp.Articles) < newsPageSize || page*newsPageSize >= resp.TotalResults {
			break
		}
	}
	return result, nil
}

func (n *NewsAPI) fetchPage(ctx context.Context, company string, w domain.Window, page int) (newsResponse, error) {
	params := url.Values{}
	params.Set("q", strconv.Quote(company))
	params.Set("from", w.From.Format(time.DateOnly))
	params.Set("to", w.To.Format(time.DateOnly))
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(newsPageSize))
	params.Set("page", strconv.Itoa(page))
	if n.language != "" {
		params.Set("language", n.language)
	}

	body, err := get(ctx, n.client, n.endpoint+"?"+params.Encode(), http.Header{"X-Api-Key": []string{n.apiKey}})
	if err != nil {
		return newsResponse{}, failure(ctx, n.name, domain.AdapterHTTP, err)
	}

	var resp newsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return newsResponse{}, failure(ctx, n.name, domain.AdapterDecode, fmt.Errorf("decode page %d: %w", page, err))
	}
	if resp.Status != "ok" {
		return newsResponse{}, domain.NewAdapterError(n.name, domain.AdapterHTTP, fmt.Errorf("%s: %s", resp.Code, resp.Message))
	}
	return resp, nil
}

func articleBody(description, content string) string {
	description = plainText(description)
	content = plainText(truncatedSuffix.ReplaceAllString(content, ""))
	switch {
	case content == "" || strings.HasPrefix(description, content):
		return description
	case description == "" || strings.HasPrefix(content, description):
		return content
	default:
		return description + "\n" + content
	}
}

type newsResponse struct {
	Status       string        `json:"status"`
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	TotalResults int           `json:"totalResults"`
	Articles     []newsArticle `json:"articles"`
}

type newsArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}
