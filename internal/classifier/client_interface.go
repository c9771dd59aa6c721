// Package classifier is the client side of the remote triage classification
// service: submitting questionnaire payloads and reading past results.
package classifier

import (
	"context"

	"github.com/vcscsvcscs/carepath/pkg/model"
)

// Client defines the operations of the classification service.
// This interface allows for easier testing with mock implementations.
type Client interface {
	Classify(ctx context.Context, req model.TriageRequest) (*model.TriageResult, error)
	History(ctx context.Context) (*model.History, error)
}

// Ensure HTTPClient implements Client interface
var _ Client = (*HTTPClient)(nil)
