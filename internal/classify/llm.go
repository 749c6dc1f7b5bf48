package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/guestpulse/guestpulse/internal/config"
	"github.com/guestpulse/guestpulse/pkg/models"
)

var systemPrompt = "You are a hospitality guest-experience analyst. " +
	"Return STRICT JSON (no extra text). For each item, output: " +
	"id, language, sentiment (positive|neutral|negative), topics (from: " + strings.Join(models.TopicTaxonomy, ",") + "), " +
	"severity (1-5), reply_en (<=220 chars), reply_id (<=220 chars). " +
	"Decide SENTIMENT primarily from the review TEXT; treat rating as a weak prior. " +
	"If text and rating conflict, follow the TEXT. " +
	"Always return at least one topic from the taxonomy."

// LLM classifies review batches through an OpenAI-compatible chat-completions
// endpoint. Each Classify call sends one request per batch and retries failed
// attempts with linearly increasing backoff before giving up with
// ErrBatchFailed.
type LLM struct {
	cfg    config.LLMConfig
	client *http.Client
	sleep  func(time.Duration)
}

func NewLLM(cfg config.LLMConfig) *LLM {
	return &LLM{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		sleep:  time.Sleep,
	}
}

func (l *LLM) Name() string { return "llm" }

// batchItem is the per-review payload sent to the model.
type batchItem struct {
	ID       string  `json:"id"`
	Outlet   string  `json:"outlet"`
	Brand    string  `json:"brand"`
	Platform string  `json:"platform"`
	Rating   *int    `json:"rating"`
	Text     string  `json:"text"`
	Language *string `json:"language"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (l *LLM) Classify(ctx context.Context, voice models.BrandVoice, reviews []models.Review) ([]models.AnalysisCandidate, error) {
	items := make([]batchItem, 0, len(reviews))
	for _, r := range reviews {
		items = append(items, batchItem{
			ID:       r.ID,
			Outlet:   r.Outlet,
			Brand:    r.Brand,
			Platform: r.Platform,
			Rating:   r.Rating,
			Text:     r.Text,
			Language: r.Language,
		})
	}

	userContent, err := json.Marshal(map[string]any{
		"brand_voice": voice,
		"items":       items,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding batch: %w", err)
	}

	req := chatRequest{
		Model: l.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(userContent)},
		},
		Temperature: 0.2,
	}
	if l.cfg.JSONMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			l.sleep(time.Duration(attempt) * l.cfg.Backoff)
		}
		candidates, err := l.attempt(ctx, payload)
		if err == nil {
			return candidates, nil
		}
		lastErr = err
		slog.Warn("classification attempt failed",
			"attempt", attempt+1,
			"max_attempts", l.cfg.MaxRetries+1,
			"error", err,
		)
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrBatchFailed, l.cfg.MaxRetries+1, lastErr)
}

func (l *LLM) attempt(ctx context.Context, payload []byte) ([]models.AnalysisCandidate, error) {
	u := fmt.Sprintf("%s/chat/completions", strings.TrimRight(l.cfg.BaseURL, "/"))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if l.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+l.cfg.APIKey)
	}

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("%w: decoding body: %v", ErrInvalidResponse, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrInvalidResponse)
	}

	return parseCandidates(chat.Choices[0].Message.Content)
}

// parseCandidates decodes the model content into candidates. The model is
// asked for a JSON array; JSON-object mode wraps it in {"items": [...]}, so
// both shapes are accepted. Individual malformed elements are skipped; the
// client only fails when the content as a whole is unusable.
func parseCandidates(content string) ([]models.AnalysisCandidate, error) {
	raw := []byte(strings.TrimSpace(content))

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		var wrapper struct {
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil || wrapper.Items == nil {
			return nil, fmt.Errorf("%w: content is not a candidate array", ErrInvalidResponse)
		}
		elems = wrapper.Items
	}

	candidates := make([]models.AnalysisCandidate, 0, len(elems))
	for i, e := range elems {
		var c models.AnalysisCandidate
		if err := json.Unmarshal(e, &c); err != nil {
			slog.Warn("skipping malformed candidate element", "index", i, "error", err)
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// classifyTransportError maps transport-level errors to sentinel errors.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
}

// Compile-time check that LLM implements Classifier.
var _ models.Classifier = (*LLM)(nil)
