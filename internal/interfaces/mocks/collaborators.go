package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

type GeneratorClient struct {
	mock.Mock
}

func (m *GeneratorClient) TriggerJourney(ctx context.Context, trigger models.GenerationTrigger) error {
	return m.Called(ctx, trigger).Error(0)
}

type ContextRetriever struct {
	mock.Mock
}

func (m *ContextRetriever) Retrieve(ctx context.Context, userID uuid.UUID, query string) ([]models.ContextSnippet, error) {
	args := m.Called(ctx, userID, query)
	snippets, _ := args.Get(0).([]models.ContextSnippet)
	return snippets, args.Error(1)
}

type ContextIndexer struct {
	mock.Mock
}

func (m *ContextIndexer) Index(ctx context.Context, userID uuid.UUID, doc models.ContextDocument) error {
	return m.Called(ctx, userID, doc).Error(0)
}

type Notifier struct {
	mock.Mock
}

func (m *Notifier) JourneyReady(ctx context.Context, journey *models.Journey) error {
	return m.Called(ctx, journey).Error(0)
}

func (m *Notifier) JourneyFailed(ctx context.Context, journey *models.Journey) error {
	return m.Called(ctx, journey).Error(0)
}

// TaskRunner runs every task inline and records the errors it would have reported.
// Safe for concurrent use.
type TaskRunner struct {
	mu     sync.Mutex
	Names  []string
	Errors []error
	// Reject, when set, is returned by TryGo instead of running the task.
	Reject error
}

func (r *TaskRunner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	r.mu.Lock()
	r.Names = append(r.Names, name)
	r.mu.Unlock()
	if err := fn(ctx); err != nil {
		r.mu.Lock()
		r.Errors = append(r.Errors, err)
		r.mu.Unlock()
	}
}

func (r *TaskRunner) TryGo(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if r.Reject != nil {
		return r.Reject
	}
	r.Go(ctx, name, fn)
	return nil
}
