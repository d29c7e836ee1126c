package port

import (
	"context"

	"thematic/internal/domain"
)

// CompletionRequest is a two-part prompt sent to a completion provider.
type CompletionRequest struct {
	SystemMessage string
	UserMessage   string
}

// Completion is a provider response. Usage is nil when the provider did not
// report token counts.
type Completion struct {
	Content string
	Usage   *domain.TokenUsage
}

// CompletionProvider represents a text-completion backend.
type CompletionProvider interface {
	// Complete sends one request. Implementations must honor ctx cancellation.
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)

	// ModelName returns the name of the model.
	ModelName() string
}
