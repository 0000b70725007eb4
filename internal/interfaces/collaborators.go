package interfaces

import (
	"context"

	"github.com/google/uuid"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

// GeneratorClient starts generation in the external workflow engine.
type GeneratorClient interface {
	TriggerJourney(ctx context.Context, trigger models.GenerationTrigger) error
}

// ContextRetriever finds stored user context relevant to a query.
type ContextRetriever interface {
	Retrieve(ctx context.Context, userID uuid.UUID, query string) ([]models.ContextSnippet, error)
}

// ContextIndexer stores user information so that ContextRetriever can find it.
type ContextIndexer interface {
	Index(ctx context.Context, userID uuid.UUID, doc models.ContextDocument) error
}

// Notifier delivers the best-effort notifications fired on terminal-ish transitions.
type Notifier interface {
	JourneyReady(ctx context.Context, journey *models.Journey) error
	JourneyFailed(ctx context.Context, journey *models.Journey) error
}

// TaskRunner runs work detached from the calling request. Errors returned by
// fn are reported by the runner, never to the caller.
type TaskRunner interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context) error)
	// TryGo returns an error, without running fn, when the task cannot be started.
	TryGo(ctx context.Context, name string, fn func(ctx context.Context) error) error
}
