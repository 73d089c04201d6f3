package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClassifier talks to a classifier service over JSON.
type HTTPClassifier struct {
	endpoint     string
	apiKey       string
	modelVersion string
	http         *http.Client
}

var _ Classifier = (*HTTPClassifier)(nil)

// NewHTTPClassifier creates a reusable HTTP client. The per-call deadline
// comes from the context; timeout is a backstop for the transport.
func NewHTTPClassifier(endpoint, apiKey, modelVersion string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint:     strings.TrimRight(endpoint, "/"),
		apiKey:       apiKey,
		modelVersion: modelVersion,
		http:         &http.Client{Timeout: timeout},
	}
}

// Score sends the article text to /predict.
func (c *HTTPClassifier) Score(ctx context.Context, input ScoreInput) (Prediction, error) {
	payload := map[string]any{
		"article_id": input.ArticleID,
		"title":      input.Title,
		"content":    input.Content,
		"source":     input.Source,
	}

	var raw rawPrediction
	if err := c.post(ctx, "/predict", payload, &raw); err != nil {
		return Prediction{}, err
	}
	return raw.validate(c.modelVersion)
}

func (c *HTTPClassifier) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
