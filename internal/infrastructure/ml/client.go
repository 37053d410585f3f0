package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"RiskScanner/internal/domain"
	"RiskScanner/internal/ports"
)

// Client talks to a semantic classification service over the
// {text,title,source,category_code} -> {label,confidence,reason} contract.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.SemanticClassifier = (*Client)(nil)

// NewClient creates a reusable HTTP client. The per-call deadline comes from
// ctx; timeout is only a transport ceiling.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type classifyRequest struct {
	Text         string `json:"text"`
	Title        string `json:"title"`
	Source       string `json:"source"`
	CategoryCode string `json:"category_code,omitempty"`
}

type classifyResponse struct {
	Label      string  `json:"label"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Classify posts the document and decodes the verdict.
func (c *Client) Classify(ctx context.Context, doc domain.Document) (ports.Verdict, error) {
	if c == nil || c.endpoint == "" {
		return ports.Verdict{}, fmt.Errorf("classify endpoint not configured: %w", domain.ErrServiceUnavailable)
	}

	payload := classifyRequest{
		Text:         doc.Body,
		Title:        doc.Title,
		Source:       doc.SourceID,
		CategoryCode: doc.CategoryCode,
	}

	var resp classifyResponse
	if err := c.post(ctx, payload, &resp); err != nil {
		return ports.Verdict{}, err
	}
	if strings.TrimSpace(resp.Label) == "" {
		return ports.Verdict{}, fmt.Errorf("empty label in response: %w", domain.ErrServiceUnavailable)
	}

	return ports.Verdict{
		Label:      resp.Label,
		Category:   resp.Category,
		Confidence: resp.Confidence,
		Reason:     resp.Reason,
	}, nil
}

func (c *Client) post(ctx context.Context, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("do request: %w: %v", domain.ErrClassifierTimeout, err)
		}
		return fmt.Errorf("do request: %w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s: %w", resp.Status, strings.TrimSpace(string(snippet)), domain.ErrServiceUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w: %v", domain.ErrServiceUnavailable, err)
	}

	return nil
}
