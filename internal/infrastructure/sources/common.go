// Package sources holds the concrete SourceAdapter implementations and the
// registry wiring that maps config kinds onto them.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"RiskScanner/internal/config"
	"RiskScanner/internal/domain"
	"RiskScanner/internal/logging"
	"RiskScanner/internal/ports"
	"RiskScanner/internal/scanner"
)

const (
	userAgent      = "RiskScanner/1.0"
	defaultTimeout = 20 * time.Second
	maxBodyBytes   = 8 << 20
)

// Deps are shared by every adapter constructor.
type Deps struct {
	Client *http.Client
	Logger *slog.Logger
	Now    func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Client == nil {
		d.Client = &http.Client{Timeout: defaultTimeout}
	}
	d.Logger = logging.OrDiscard(d.Logger)
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Register installs every built-in adapter kind into reg.
func Register(reg *scanner.Registry, deps Deps) {
	deps = deps.withDefaults()
	reg.Register(KindGazette, func(cfg config.SourceConfig) (ports.SourceAdapter, error) {
		return NewGazette(cfg, deps)
	})
	reg.Register(KindNewsAPI, func(cfg config.SourceConfig) (ports.SourceAdapter, error) {
		return NewNewsAPI(cfg, deps)
	})
	reg.Register(KindRSS, func(cfg config.SourceConfig) (ports.SourceAdapter, error) {
		return NewRSS(cfg, deps)
	})
	reg.Register(KindNotices, func(cfg config.SourceConfig) (ports.SourceAdapter, error) {
		return NewNotices(cfg, deps)
	})
}

// statusError keeps the HTTP status so callers can treat 404 as "no data".
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string { return "unexpected status " + e.status }

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

// get performs a GET and returns the body, capped at maxBodyBytes.
func get(ctx context.Context, client *http.Client, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// failure turns a fetch error into the adapter's structured error, preferring
// the context's own verdict when it has expired.
func failure(ctx context.Context, source string, kind domain.AdapterErrorKind, err error) *domain.AdapterError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.NewAdapterError(source, "", errors.Join(err, ctxErr))
	}
	return domain.NewAdapterError(source, kind, err)
}

// plainText strips markup from an HTML fragment and collapses whitespace.
func plainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func optInt(opts map[string]string, key string, def int) int {
	if v, ok := opts[key]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func optString(opts map[string]string, key, def string) string {
	if v := strings.TrimSpace(opts[key]); v != "" {
		return v
	}
	return def
}
