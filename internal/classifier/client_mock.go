package classifier

import (
	"context"
	"sync"
	"time"

	"github.com/vcscsvcscs/carepath/pkg/model"
	"go.uber.org/zap"
)

// MockClient is an in-memory implementation of Client for testing.
// Each classification is appended to its history, newest first.
type MockClient struct {
	// ClassifyFunc overrides the canned result when set
	ClassifyFunc func(ctx context.Context, req model.TriageRequest) (*model.TriageResult, error)
	// HistoryErr, when set, is returned by History
	HistoryErr error

	Requests []model.TriageRequest
	Items    []model.HistoryItem

	mu     sync.Mutex
	logger *zap.Logger
}

// NewMockClient creates a new mock classification client
func NewMockClient(logger *zap.Logger) *MockClient {
	return &MockClient{logger: logger}
}

// Classify records the request and returns a self-care result unless
// ClassifyFunc says otherwise
func (c *MockClient) Classify(ctx context.Context, req model.TriageRequest) (*model.TriageResult, error) {
	c.mu.Lock()
	c.Requests = append(c.Requests, req)
	classify := c.ClassifyFunc
	c.mu.Unlock()

	var (
		result *model.TriageResult
		err    error
	)
	if classify != nil {
		result, err = classify(ctx, req)
	} else {
		result = &model.TriageResult{
			Category:  "Self-care / monitor",
			Reasons:   []string{"No red flags detected and overall risk appears low"},
			Timestamp: model.Instant{Time: time.Now().UTC()},
		}
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Items = append([]model.HistoryItem{{
		Category:  result.Category,
		Reasons:   result.Reasons,
		Version:   result.Version,
		Timestamp: result.Timestamp,
	}}, c.Items...)

	if c.logger != nil {
		c.logger.Info("mock: triage classified", zap.String("category", result.Category))
	}

	return result, nil
}

// History returns everything classified so far
func (c *MockClient) History(ctx context.Context) (*model.History, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.HistoryErr != nil {
		return nil, c.HistoryErr
	}

	items := make([]model.HistoryItem, len(c.Items))
	copy(items, c.Items)
	return &model.History{Items: items}, nil
}

// RequestCount returns how many classifications were requested
func (c *MockClient) RequestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Requests)
}

var _ Client = (*MockClient)(nil)
