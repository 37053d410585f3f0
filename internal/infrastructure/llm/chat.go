package llm

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

	"RiskScanner/internal/config"
	"RiskScanner/internal/domain"
	"RiskScanner/internal/ports"
)

const maxPromptRunes = 4000

const defaultSystemPrompt = `You are a corporate risk analyst. Classify the document for the company it mentions.
Answer with a single JSON object and nothing else:
{"label":"No|Low|Medium|High","category":"Legal|Financial|Regulatory|Operational","confidence":0.0-1.0,"reason":"short justification"}`

// ChatClient implements ports.SemanticClassifier on top of an
// OpenAI-compatible chat completions API (cloud or a local runtime).
type ChatClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.SemanticClassifier = (*ChatClient)(nil)

// NewChatClient builds a client from tier configuration.
func NewChatClient(cfg config.TierConfig) *ChatClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type verdictPayload struct {
	Label      string  `json:"label"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Classify sends the document as the user message and parses the JSON verdict
// out of the first choice.
func (c *ChatClient) Classify(ctx context.Context, doc domain.Document) (ports.Verdict, error) {
	if c == nil {
		return ports.Verdict{}, fmt.Errorf("chat client is nil: %w", domain.ErrServiceUnavailable)
	}
	if c.endpoint == "" || c.model == "" {
		return ports.Verdict{}, fmt.Errorf("chat client misconfigured: %w", domain.ErrServiceUnavailable)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: safePrompt(c.systemPrompt)},
			{Role: "user", Content: userPrompt(doc)},
		},
	})
	if err != nil {
		return ports.Verdict{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return ports.Verdict{}, fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ports.Verdict{}, fmt.Errorf("send chat: %w: %v", domain.ErrClassifierTimeout, err)
		}
		return ports.Verdict{}, fmt.Errorf("send chat: %w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return ports.Verdict{}, fmt.Errorf("chat error %s: %s: %w", resp.Status, strings.TrimSpace(string(payload)), domain.ErrServiceUnavailable)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ports.Verdict{}, fmt.Errorf("decode chat response: %w: %v", domain.ErrServiceUnavailable, err)
	}
	if len(out.Choices) == 0 {
		return ports.Verdict{}, fmt.Errorf("chat response without choices: %w", domain.ErrServiceUnavailable)
	}

	v, err := parseVerdict(out.Choices[0].Message.Content)
	if err != nil {
		return ports.Verdict{}, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	return v, nil
}

// parseVerdict tolerates prose or code fences around the JSON object.
func parseVerdict(content string) (ports.Verdict, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ports.Verdict{}, fmt.Errorf("no JSON object in reply %q", truncate(content, 120))
	}

	var p verdictPayload
	if err := json.Unmarshal([]byte(content[start:end+1]), &p); err != nil {
		return ports.Verdict{}, fmt.Errorf("parse verdict: %w", err)
	}
	if strings.TrimSpace(p.Label) == "" {
		return ports.Verdict{}, fmt.Errorf("verdict without label")
	}
	return ports.Verdict{Label: p.Label, Category: p.Category, Confidence: p.Confidence, Reason: p.Reason}, nil
}

func userPrompt(doc domain.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s\n", doc.SourceID)
	if doc.CategoryCode != "" {
		fmt.Fprintf(&b, "Category code: %s\n", doc.CategoryCode)
	}
	fmt.Fprintf(&b, "Title: %s\n\n", doc.Title)
	b.WriteString(truncate(doc.Body, maxPromptRunes))
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultSystemPrompt
	}
	return prompt
}
