package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces/mocks"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
	"github.com/maxwellt7/ai-hypnosis-generator/pkg/taskmanager"
)

type stubStats struct {
	StatsService
	calls int
	err   error
}

func (s *stubStats) RecordSession(ctx context.Context, userID uuid.UUID, durationSeconds int, at time.Time) (*models.UserStats, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.UserStats{UserID: userID, TotalSessions: s.calls}, nil
}

type journeyFixture struct {
	store     *mocks.Store
	limiter   *mocks.CreationLimiter
	generator *mocks.GeneratorClient
	retriever *mocks.ContextRetriever
	tasks     *mocks.TaskRunner
	stats     *stubStats
	svc       JourneyService
}

func newJourneyFixture() *journeyFixture {
	f := &journeyFixture{
		store:     mocks.NewStore(),
		limiter:   new(mocks.CreationLimiter),
		generator: new(mocks.GeneratorClient),
		retriever: new(mocks.ContextRetriever),
		tasks:     &mocks.TaskRunner{},
		stats:     &stubStats{},
	}
	f.svc = NewJourneyService(JourneyDeps{
		Store:       f.store,
		Limiter:     f.limiter,
		Generator:   f.generator,
		Retriever:   f.retriever,
		Tasks:       f.tasks,
		Stats:       f.stats,
		CallbackURL: "http://api.local/webhooks/n8n/journey-complete",
	}, zap.NewNop())
	return f
}

func validInput() CreateJourneyInput {
	return CreateJourneyInput{
		Goal:      strings.Repeat("sleep deeper ", 10),
		Intention: strings.Repeat("wake rested ", 10),
	}
}

func TestCreateJourney(t *testing.T) {
	f := newJourneyFixture()
	ctx := context.Background()
	owner := uuid.New()
	journeyID := uuid.New()
	snippets := []models.ContextSnippet{{ID: "s1", Text: "prefers ocean sounds"}}

	f.limiter.On("Reserve", mock.Anything, owner).Return("r1", nil)
	f.store.JourneyRepo.On("Create", mock.Anything, mock.MatchedBy(func(j *models.Journey) bool {
		return j.Status == models.StatusCreating && j.Metadata.Request.DurationMinutes == models.DefaultDurationMinutes
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Journey).ID = journeyID
	}).Return(nil)
	f.store.UserRepo.On("GetByID", mock.Anything, owner).Return(&models.User{ID: owner, Name: "Ada", Email: "ada@example.com"}, nil)
	f.retriever.On("Retrieve", mock.Anything, owner, mock.Anything).Return(snippets, nil)
	f.generator.On("TriggerJourney", mock.Anything, mock.MatchedBy(func(tr models.GenerationTrigger) bool {
		return tr.JourneyID == journeyID && tr.Duration == 15 && tr.UserProfile.Name == "Ada" && len(tr.UserContext) == 1 &&
			strings.HasSuffix(tr.CallbackURL, "journey-complete")
	})).Return(nil)

	res, err := f.svc.Create(ctx, owner, validInput())
	require.NoError(t, err)
	assert.Equal(t, journeyID, res.ID)
	assert.Equal(t, models.StatusCreating, res.Status)
	assert.Empty(t, res.Days)
	assert.Equal(t, []string{"trigger-generation"}, f.tasks.Names)
	assert.Empty(t, f.tasks.Errors)
	f.generator.AssertExpectations(t)
	f.store.AssertExpectations(t)
}

func TestCreateJourney_Validation(t *testing.T) {
	f := newJourneyFixture()
	tests := []struct {
		name  string
		input CreateJourneyInput
	}{
		{"short goal", CreateJourneyInput{Goal: "too short", Intention: validInput().Intention}},
		{"long intention", CreateJourneyInput{Goal: validInput().Goal, Intention: strings.Repeat("x", 501)}},
		{"bad duration", CreateJourneyInput{Goal: validInput().Goal, Intention: validInput().Intention, Duration: 12}},
		{"whitespace padding", CreateJourneyInput{Goal: "   " + strings.Repeat("a", 98) + "   ", Intention: validInput().Intention}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), uuid.New(), tt.input)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
	f.limiter.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything)
}

func TestCreateJourney_RateLimited(t *testing.T) {
	f := newJourneyFixture()
	owner := uuid.New()
	f.limiter.On("Reserve", mock.Anything, owner).Return("", models.ErrRateLimited)

	_, err := f.svc.Create(context.Background(), owner, validInput())
	assert.ErrorIs(t, err, models.ErrRateLimited)
	f.store.JourneyRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateJourney_ReleasesSlotWhenInsertFails(t *testing.T) {
	f := newJourneyFixture()
	owner := uuid.New()
	dbErr := errors.New("connection reset")
	f.limiter.On("Reserve", mock.Anything, owner).Return("r1", nil)
	f.limiter.On("Release", mock.Anything, owner, "r1").Return(nil).Once()
	f.store.JourneyRepo.On("Create", mock.Anything, mock.Anything).Return(dbErr)

	_, err := f.svc.Create(context.Background(), owner, validInput())
	assert.ErrorIs(t, err, dbErr)
	f.limiter.AssertExpectations(t)
	assert.Empty(t, f.tasks.Names)
}

func TestCreateJourney_GeneratorFailureIsReportedNotReturned(t *testing.T) {
	f := newJourneyFixture()
	owner := uuid.New()
	f.limiter.On("Reserve", mock.Anything, owner).Return("r1", nil)
	f.store.JourneyRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.store.UserRepo.On("GetByID", mock.Anything, owner).Return(nil, models.NotFound("user"))
	f.retriever.On("Retrieve", mock.Anything, owner, mock.Anything).Return(nil, errors.New("pinecone down"))
	f.generator.On("TriggerJourney", mock.Anything, mock.MatchedBy(func(tr models.GenerationTrigger) bool {
		return tr.UserProfile == nil && tr.UserContext == nil
	})).Return(errors.New("generator returned status 502"))

	res, err := f.svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreating, res.Status)
	require.Len(t, f.tasks.Errors, 1)
	assert.Contains(t, f.tasks.Errors[0].Error(), "502")
}

func TestCreateJourney_RejectedTriggerFailsJourneyAndReleasesSlot(t *testing.T) {
	f := newJourneyFixture()
	owner := uuid.New()
	f.tasks.Reject = taskmanager.ErrTooManyTasks
	f.limiter.On("Reserve", mock.Anything, owner).Return("r1", nil)
	f.limiter.On("Release", mock.Anything, owner, "r1").Return(nil).Once()
	f.store.JourneyRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.store.JourneyRepo.On("Update", mock.Anything, mock.MatchedBy(func(j *models.Journey) bool {
		return j.Status == models.StatusError && j.Metadata.Failure != nil &&
			j.Metadata.Failure.Provider == "api" && strings.Contains(j.Metadata.Failure.Message, "too many active tasks")
	})).Return(nil).Once()

	res, err := f.svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, res.Status)
	assert.Empty(t, f.tasks.Names)
	f.generator.AssertNotCalled(t, "TriggerJourney", mock.Anything, mock.Anything)
	f.limiter.AssertExpectations(t)
	f.store.AssertExpectations(t)
}

func TestGetJourney_Ownership(t *testing.T) {
	f := newJourneyFixture()
	owner, stranger := uuid.New(), uuid.New()
	journey := &models.Journey{ID: uuid.New(), UserID: owner, Status: models.StatusReady}
	missing := uuid.New()
	f.store.JourneyRepo.On("GetByID", mock.Anything, journey.ID).Return(journey, nil)
	f.store.JourneyRepo.On("GetByID", mock.Anything, missing).Return(nil, models.NotFound("journey"))
	f.store.DayRepo.On("ListByJourney", mock.Anything, journey.ID).Return([]models.JourneyDay{{DayNumber: 1}}, nil)

	got, err := f.svc.Get(context.Background(), journey.ID, owner)
	require.NoError(t, err)
	assert.Len(t, got.Days, 1)

	_, err = f.svc.Get(context.Background(), journey.ID, stranger)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.svc.Get(context.Background(), missing, owner)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateJourney(t *testing.T) {
	f := newJourneyFixture()
	owner := uuid.New()
	journey := &models.Journey{ID: uuid.New(), UserID: owner, Goal: "old", Status: models.StatusReady}
	f.store.JourneyRepo.On("GetByIDForUpdate", mock.Anything, journey.ID).Return(journey, nil)
	f.store.JourneyRepo.On("Update", mock.Anything, journey).Return(nil)

	goal := validInput().Goal
	got, err := f.svc.Update(context.Background(), journey.ID, owner, UpdateJourneyInput{Goal: &goal})
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(goal), got.Goal)
	assert.Equal(t, models.StatusReady, got.Status)

	_, err = f.svc.Update(context.Background(), journey.ID, owner, UpdateJourneyInput{})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestListJourneys_RejectsUnknownStatus(t *testing.T) {
	f := newJourneyFixture()
	st := models.JourneyStatus("archived")
	_, err := f.svc.List(context.Background(), uuid.New(), models.JourneyFilter{Status: &st})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestGetDay_RejectsOutOfRangeNumber(t *testing.T) {
	f := newJourneyFixture()
	for _, n := range []int{0, 8} {
		_, err := f.svc.GetDay(context.Background(), uuid.New(), n, uuid.New())
		assert.ErrorIs(t, err, models.ErrValidation)
	}
}

func TestCompleteDay_LastDayCompletesJourney(t *testing.T) {
	f := newJourneyFixture()
	owner := uuid.New()
	journey := &models.Journey{ID: uuid.New(), UserID: owner, Status: models.StatusReady}
	day := &models.JourneyDay{ID: uuid.New(), JourneyID: journey.ID, DayNumber: 7, DurationSeconds: 900}
	completedAt := time.Now()
	marked := *day
	marked.Completed = true
	marked.CompletedAt = &completedAt

	f.store.JourneyRepo.On("GetByIDForUpdate", mock.Anything, journey.ID).Return(journey, nil)
	f.store.DayRepo.On("GetByNumberForUpdate", mock.Anything, journey.ID, 7).Return(day, nil)
	f.store.DayRepo.On("MarkCompleted", mock.Anything, day.ID, mock.Anything).Return(&marked, nil)
	f.store.DayRepo.On("CountCompletion", mock.Anything, journey.ID).Return(7, 7, nil)
	f.store.JourneyRepo.On("Update", mock.Anything, journey).Return(nil).Once()

	res, err := f.svc.CompleteDay(context.Background(), journey.ID, 7, owner)
	require.NoError(t, err)
	assert.True(t, res.JourneyCompleted)
	assert.Equal(t, models.StatusCompleted, res.JourneyStatus)
	assert.True(t, res.Day.Completed)
	assert.Equal(t, 1, f.stats.calls)
	f.store.AssertExpectations(t)
}

func TestCompleteDay_NotAllDaysDone(t *testing.T) {
	f := newJourneyFixture()
	owner := uuid.New()
	journey := &models.Journey{ID: uuid.New(), UserID: owner, Status: models.StatusReady}
	day := &models.JourneyDay{ID: uuid.New(), JourneyID: journey.ID, DayNumber: 2}
	marked := *day
	marked.Completed = true

	f.store.JourneyRepo.On("GetByIDForUpdate", mock.Anything, journey.ID).Return(journey, nil)
	f.store.DayRepo.On("GetByNumberForUpdate", mock.Anything, journey.ID, 2).Return(day, nil)
	f.store.DayRepo.On("MarkCompleted", mock.Anything, day.ID, mock.Anything).Return(&marked, nil)
	f.store.DayRepo.On("CountCompletion", mock.Anything, journey.ID).Return(7, 2, nil)

	res, err := f.svc.CompleteDay(context.Background(), journey.ID, 2, owner)
	require.NoError(t, err)
	assert.False(t, res.JourneyCompleted)
	assert.Equal(t, models.StatusReady, res.JourneyStatus)
	f.store.JourneyRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCompleteDay_AlreadyCompletedIsIdempotent(t *testing.T) {
	f := newJourneyFixture()
	owner := uuid.New()
	at := time.Now().Add(-time.Hour)
	journey := &models.Journey{ID: uuid.New(), UserID: owner, Status: models.StatusReady}
	day := &models.JourneyDay{ID: uuid.New(), JourneyID: journey.ID, DayNumber: 1, Completed: true, CompletedAt: &at}

	f.store.JourneyRepo.On("GetByIDForUpdate", mock.Anything, journey.ID).Return(journey, nil)
	f.store.DayRepo.On("GetByNumberForUpdate", mock.Anything, journey.ID, 1).Return(day, nil)

	res, err := f.svc.CompleteDay(context.Background(), journey.ID, 1, owner)
	require.NoError(t, err)
	assert.True(t, res.AlreadyCompleted)
	assert.Equal(t, &at, res.Day.CompletedAt, "original completion time is kept")
	assert.Zero(t, f.stats.calls, "stats are not counted twice")
	f.store.DayRepo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteDay_StatsFailureDoesNotFailCompletion(t *testing.T) {
	f := newJourneyFixture()
	f.stats.err = errors.New("deadlock detected")
	owner := uuid.New()
	journey := &models.Journey{ID: uuid.New(), UserID: owner, Status: models.StatusCreating}
	day := &models.JourneyDay{ID: uuid.New(), JourneyID: journey.ID, DayNumber: 1}
	marked := *day
	marked.Completed = true

	f.store.JourneyRepo.On("GetByIDForUpdate", mock.Anything, journey.ID).Return(journey, nil)
	f.store.DayRepo.On("GetByNumberForUpdate", mock.Anything, journey.ID, 1).Return(day, nil)
	f.store.DayRepo.On("MarkCompleted", mock.Anything, day.ID, mock.Anything).Return(&marked, nil)
	f.store.DayRepo.On("CountCompletion", mock.Anything, journey.ID).Return(1, 1, nil)

	res, err := f.svc.CompleteDay(context.Background(), journey.ID, 1, owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreating, res.JourneyStatus, "only a ready journey can complete")
	assert.Equal(t, 1, f.stats.calls)
}

func TestCompleteDay_Forbidden(t *testing.T) {
	f := newJourneyFixture()
	journey := &models.Journey{ID: uuid.New(), UserID: uuid.New(), Status: models.StatusReady}
	f.store.JourneyRepo.On("GetByIDForUpdate", mock.Anything, journey.ID).Return(journey, nil)

	_, err := f.svc.CompleteDay(context.Background(), journey.ID, 1, uuid.New())
	assert.ErrorIs(t, err, models.ErrForbidden)
	f.store.DayRepo.AssertNotCalled(t, "GetByNumberForUpdate", mock.Anything, mock.Anything, mock.Anything)
}
