package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vcscsvcscs/carepath/pkg/model"
	"go.uber.org/zap"
)

// maxErrorBody caps how much of a failed response is kept
const maxErrorBody = 64 << 10

// TransportError reports a failed call to the classification service.
// StatusCode is zero when the request never got a response.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: classification service returned %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPClient talks to the remote classification service over HTTP
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPClient creates a client for the service at baseURL
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid baseURL %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}

	return &HTTPClient{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Classify submits a payload and returns the classification
func (c *HTTPClient) Classify(ctx context.Context, req model.TriageRequest) (*model.TriageResult, error) {
	const op = "classify"

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode triage request: %w", err)
	}

	c.logger.Info("sending triage request",
		zap.String("main_symptom", req.MainSymptom),
		zap.String("severity", req.Severity),
		zap.Int("red_flags", len(req.RedFlags)),
	)

	var result model.TriageResult
	if err := c.do(ctx, op, http.MethodPost, "triage", bytes.NewReader(body), &result); err != nil {
		return nil, err
	}

	c.logger.Info("triage classification received",
		zap.String("category", result.Category),
		zap.Int("reasons", len(result.Reasons)),
	)

	return &result, nil
}

// History returns past classifications, most recent first
func (c *HTTPClient) History(ctx context.Context) (*model.History, error) {
	var history model.History
	if err := c.do(ctx, "history", http.MethodGet, "triage/history", nil, &history); err != nil {
		return nil, err
	}

	c.logger.Info("triage history received", zap.Int("items", len(history.Items)))

	return &history, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body io.Reader, out interface{}) error {
	endpoint := c.baseURL.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("classification service unreachable",
			zap.String("op", op),
			zap.String("url", endpoint.String()),
			zap.Error(err),
		)
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("classification service returned an error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", time.Since(startTime)),
		)
		return &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	c.logger.Debug("classification service call completed",
		zap.String("op", op),
		zap.Duration("duration", time.Since(startTime)),
	)

	return nil
}
