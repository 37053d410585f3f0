package sources

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"RiskScanner/internal/config"
	"RiskScanner/internal/domain"
	"RiskScanner/internal/textnorm"
)

// KindRSS reads a fixed list of RSS 2.0 feeds.
const KindRSS = "rss"

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC3339,
}

// RSS keeps feed items that mention the company and fall inside the window.
type RSS struct {
	name   string
	feeds  []string
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewRSS(cfg config.SourceConfig, deps Deps) (*RSS, error) {
	deps = deps.withDefaults()
	feeds := make([]string, 0, len(cfg.Feeds)+1)
	for _, f := range append([]string{cfg.BaseURL}, cfg.Feeds...) {
		if f = strings.TrimSpace(f); f != "" {
			feeds = append(feeds, f)
		}
	}
	if len(feeds) == 0 {
		return nil, errors.New("rss: at least one feed is required")
	}
	return &RSS{
		name:   cfg.Name,
		feeds:  feeds,
		client: deps.Client,
		logger: deps.Logger.With("component", "rss", "source", cfg.Name),
		now:    deps.Now,
	}, nil
}

func (r *RSS) Name() domain.SourceID { return r.name }

// Fetch reads feeds in order. A failing feed is skipped with a note; the
// source fails only when every feed does.
func (r *RSS) Fetch(ctx context.Context, q domain.ResolvedQuery) (domain.FetchResult, error) {
	var (
		result  domain.FetchResult
		failed  int
		lastErr error
		kind    domain.AdapterErrorKind
	)
	fetched := r.now().UTC()
	seen := map[string]struct{}{}

	for _, feed := range r.feeds {
		if err := ctx.Err(); err != nil {
			return domain.FetchResult{}, failure(ctx, r.name, "", err)
		}
		items, k, err := r.readFeed(ctx, feed)
		if err != nil {
			r.logger.Warn("feed failed", "feed", feed, "error", err)
			failed++
			lastErr, kind = err, k
			result.Adjustments = append(result.Adjustments, fmt.Sprintf("feed %s skipped: %v", feed, err))
			continue
		}
		for _, it := range items {
			published, ok := parsePubDate(it.PubDate)
			if !ok || !q.Window.Contains(published) {
				continue
			}
			title := plainText(it.Title)
			body := plainText(it.Description)
			if !textnorm.Contains(title+"\n"+body, q.CompanyName) {
				continue
			}
			key := strings.TrimSpace(it.Link)
			if key == "" {
				key = title
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			result.Documents = append(result.Documents, domain.Document{
				SourceID:    r.name,
				Title:       title,
				Body:        body,
				PublishedAt: published.UTC(),
				URL:         strings.TrimSpace(it.Link),
				FetchedAt:   fetched,
			})
		}
	}

	if failed == len(r.feeds) {
		return domain.FetchResult{}, failure(ctx, r.name, kind, lastErr)
	}
	return result, nil
}

func (r *RSS) readFeed(ctx context.Context, feed string) ([]rssItem, domain.AdapterErrorKind, error) {
	body, err := get(ctx, r.client, feed, http.Header{"Accept": []string{"application/rss+xml, application/xml;q=0.9"}})
	if err != nil {
		return nil, domain.AdapterHTTP, err
	}
	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, domain.AdapterDecode, fmt.Errorf("decode feed: %w", err)
	}
	return doc.Channel.Items, "", nil
}

func parsePubDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}
