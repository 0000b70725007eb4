package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

// JourneyService is the client-facing side of journeys: creation, reads,
// edits and day completion.
type JourneyService interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateJourneyInput) (*models.JourneyWithDays, error)
	Get(ctx context.Context, journeyID, actorID uuid.UUID) (*models.JourneyWithDays, error)
	List(ctx context.Context, ownerID uuid.UUID, filter models.JourneyFilter) ([]models.JourneySummary, error)
	Update(ctx context.Context, journeyID, actorID uuid.UUID, input UpdateJourneyInput) (*models.Journey, error)
	Delete(ctx context.Context, journeyID, actorID uuid.UUID) error
	ListDays(ctx context.Context, journeyID, actorID uuid.UUID) ([]models.JourneyDay, error)
	GetDay(ctx context.Context, journeyID uuid.UUID, dayNumber int, actorID uuid.UUID) (*models.JourneyDay, error)
	CompleteDay(ctx context.Context, journeyID uuid.UUID, dayNumber int, actorID uuid.UUID) (*models.DayCompletion, error)
}

type CreateJourneyInput struct {
	Goal        string            `json:"goal" validate:"min=100,max=500"`
	Intention   string            `json:"intention" validate:"min=100,max=500"`
	Duration    int               `json:"duration" validate:"oneof=5 10 15 20 30"`
	Preferences map[string]string `json:"preferences" validate:"omitempty,max=20,dive,keys,max=64,endkeys,max=500"`
}

type UpdateJourneyInput struct {
	Goal      *string `json:"goal" validate:"omitempty,min=100,max=500"`
	Intention *string `json:"intention" validate:"omitempty,min=100,max=500"`
}

// JourneyDeps are the collaborators of the journey service.
type JourneyDeps struct {
	Store     interfaces.Store
	Limiter   interfaces.CreationLimiter
	Generator interfaces.GeneratorClient
	// Retriever is optional; without it no user context is sent.
	Retriever   interfaces.ContextRetriever
	Tasks       interfaces.TaskRunner
	Stats       StatsService
	CallbackURL string
}

// triggerFailureProvider names this service in metadata.failure when the
// generator was never reached.
const triggerFailureProvider = "api"

var _ JourneyService = (*journeyService)(nil)

type journeyService struct {
	deps   JourneyDeps
	logger *zap.Logger
	now    func() time.Time
}

func NewJourneyService(deps JourneyDeps, logger *zap.Logger) JourneyService {
	return &journeyService{deps: deps, logger: logger.Named("JourneyService"), now: time.Now}
}

func authorize(journey *models.Journey, actorID uuid.UUID) error {
	if journey.UserID != actorID {
		return fmt.Errorf("%w: journey belongs to another user", models.ErrForbidden)
	}
	return nil
}

// Create validates input, takes a rate-limit slot, stores the journey in
// status creating and starts generation in a detached task.
func (s *journeyService) Create(ctx context.Context, ownerID uuid.UUID, input CreateJourneyInput) (*models.JourneyWithDays, error) {
	input.Goal = strings.TrimSpace(input.Goal)
	input.Intention = strings.TrimSpace(input.Intention)
	if input.Duration == 0 {
		input.Duration = models.DefaultDurationMinutes
	}
	if err := validateStruct(input); err != nil {
		journeyCreationsRejected.WithLabelValues("validation").Inc()
		return nil, err
	}

	log := s.logger.With(zap.String("userID", ownerID.String()))
	reservation, err := s.deps.Limiter.Reserve(ctx, ownerID)
	if err != nil {
		if errors.Is(err, models.ErrRateLimited) {
			journeyCreationsRejected.WithLabelValues("rate_limited").Inc()
			log.Info("Journey creation rate limited")
		}
		return nil, err
	}

	journey := &models.Journey{
		UserID:    ownerID,
		Goal:      input.Goal,
		Intention: input.Intention,
		Status:    models.StatusCreating,
		Metadata: models.JourneyMetadata{
			Request: &models.GenerationRequest{DurationMinutes: input.Duration, Preferences: input.Preferences},
		},
	}
	if err := s.deps.Store.Journeys().Create(ctx, journey); err != nil {
		if relErr := s.deps.Limiter.Release(context.WithoutCancel(ctx), ownerID, reservation); relErr != nil {
			log.Warn("Failed to release creation slot", zap.Error(relErr))
		}
		return nil, err
	}
	journeysCreated.Inc()
	log.Info("Journey created", zap.String("journeyID", journey.ID.String()))

	snapshot := *journey
	err = s.deps.Tasks.TryGo(ctx, "trigger-generation", func(taskCtx context.Context) error {
		return s.triggerGeneration(taskCtx, &snapshot, input)
	})
	if err != nil {
		s.abandonGeneration(ctx, journey, reservation, err)
	}

	return &models.JourneyWithDays{Journey: *journey, Days: []models.JourneyDay{}}, nil
}

// abandonGeneration handles a trigger that could not be started. Nothing was
// sent to the generator, so the journey goes straight to error and the
// creation slot is given back.
func (s *journeyService) abandonGeneration(ctx context.Context, journey *models.Journey, reservation string, cause error) {
	ctx = context.WithoutCancel(ctx)
	log := s.logger.With(zap.String("journeyID", journey.ID.String()), zap.String("userID", journey.UserID.String()))
	log.Warn("Generation trigger rejected", zap.Error(cause))

	if _, err := journey.Transition(models.StatusError); err != nil {
		log.Error("Failed to mark journey as failed", zap.Error(err))
		return
	}
	journey.Metadata.Failure = &models.GenerationFailure{
		Provider: triggerFailureProvider,
		Message:  "generation could not be started: " + cause.Error(),
		FailedAt: s.now(),
	}
	if err := s.deps.Store.Journeys().Update(ctx, journey); err != nil {
		log.Error("Failed to record rejected generation", zap.Error(err))
	}
	if err := s.deps.Limiter.Release(ctx, journey.UserID, reservation); err != nil {
		log.Warn("Failed to release creation slot", zap.Error(err))
	}
	journeyCreationsRejected.WithLabelValues("trigger_rejected").Inc()
}

func (s *journeyService) triggerGeneration(ctx context.Context, journey *models.Journey, input CreateJourneyInput) error {
	log := s.logger.With(zap.String("journeyID", journey.ID.String()))
	trigger := models.GenerationTrigger{
		JourneyID:   journey.ID,
		UserID:      journey.UserID,
		Goal:        journey.Goal,
		Intention:   journey.Intention,
		Duration:    input.Duration,
		Preferences: input.Preferences,
		CallbackURL: s.deps.CallbackURL,
	}

	if user, err := s.deps.Store.Users().GetByID(ctx, journey.UserID); err != nil {
		log.Warn("Failed to load user profile for generation", zap.Error(err))
	} else {
		trigger.UserProfile = &models.UserProfile{Name: user.Name, Email: user.Email}
	}

	if s.deps.Retriever != nil {
		snippets, err := s.deps.Retriever.Retrieve(ctx, journey.UserID, journey.Goal+"\n"+journey.Intention)
		if err != nil {
			log.Warn("User context retrieval failed, continuing without context", zap.Error(err))
		} else {
			trigger.UserContext = snippets
		}
	}

	if err := s.deps.Generator.TriggerJourney(ctx, trigger); err != nil {
		return fmt.Errorf("journey %s: %w", journey.ID, err)
	}
	return nil
}

func (s *journeyService) Get(ctx context.Context, journeyID, actorID uuid.UUID) (*models.JourneyWithDays, error) {
	journey, err := s.deps.Store.Journeys().GetByID(ctx, journeyID)
	if err != nil {
		return nil, err
	}
	if err := authorize(journey, actorID); err != nil {
		return nil, err
	}
	days, err := s.deps.Store.Days().ListByJourney(ctx, journeyID)
	if err != nil {
		return nil, err
	}
	return &models.JourneyWithDays{Journey: *journey, Days: days}, nil
}

func (s *journeyService) List(ctx context.Context, ownerID uuid.UUID, filter models.JourneyFilter) ([]models.JourneySummary, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, models.NewValidationError("unknown journey status %q", *filter.Status)
	}
	return s.deps.Store.Journeys().ListByOwner(ctx, ownerID, filter.Normalize())
}

func (s *journeyService) Update(ctx context.Context, journeyID, actorID uuid.UUID, input UpdateJourneyInput) (*models.Journey, error) {
	if input.Goal != nil {
		v := strings.TrimSpace(*input.Goal)
		input.Goal = &v
	}
	if input.Intention != nil {
		v := strings.TrimSpace(*input.Intention)
		input.Intention = &v
	}
	if input.Goal == nil && input.Intention == nil {
		return nil, models.NewValidationError("nothing to update")
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	var updated *models.Journey
	err := s.deps.Store.WithTx(ctx, func(ctx context.Context, tx interfaces.Store) error {
		journey, err := tx.Journeys().GetByIDForUpdate(ctx, journeyID)
		if err != nil {
			return err
		}
		if err := authorize(journey, actorID); err != nil {
			return err
		}
		if input.Goal != nil {
			journey.Goal = *input.Goal
		}
		if input.Intention != nil {
			journey.Intention = *input.Intention
		}
		if err := tx.Journeys().Update(ctx, journey); err != nil {
			return err
		}
		updated = journey
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *journeyService) Delete(ctx context.Context, journeyID, actorID uuid.UUID) error {
	err := s.deps.Store.WithTx(ctx, func(ctx context.Context, tx interfaces.Store) error {
		journey, err := tx.Journeys().GetByIDForUpdate(ctx, journeyID)
		if err != nil {
			return err
		}
		if err := authorize(journey, actorID); err != nil {
			return err
		}
		return tx.Journeys().Delete(ctx, journeyID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Journey deleted", zap.String("journeyID", journeyID.String()), zap.String("userID", actorID.String()))
	return nil
}

func (s *journeyService) ListDays(ctx context.Context, journeyID, actorID uuid.UUID) ([]models.JourneyDay, error) {
	journey, err := s.deps.Store.Journeys().GetByID(ctx, journeyID)
	if err != nil {
		return nil, err
	}
	if err := authorize(journey, actorID); err != nil {
		return nil, err
	}
	return s.deps.Store.Days().ListByJourney(ctx, journeyID)
}

func (s *journeyService) GetDay(ctx context.Context, journeyID uuid.UUID, dayNumber int, actorID uuid.UUID) (*models.JourneyDay, error) {
	if !models.ValidDayNumber(dayNumber) {
		return nil, models.NewValidationError("day number must be between 1 and %d", models.JourneyDaysCount)
	}
	journey, err := s.deps.Store.Journeys().GetByID(ctx, journeyID)
	if err != nil {
		return nil, err
	}
	if err := authorize(journey, actorID); err != nil {
		return nil, err
	}
	return s.deps.Store.Days().GetByNumber(ctx, journeyID, dayNumber)
}

// CompleteDay marks a day completed and, once every existing day is, moves a
// ready journey to completed. Both happen in one transaction holding the
// journey row lock so that concurrent completions see each other's days.
// Stats are updated afterwards; their failure does not fail the call.
func (s *journeyService) CompleteDay(ctx context.Context, journeyID uuid.UUID, dayNumber int, actorID uuid.UUID) (*models.DayCompletion, error) {
	if !models.ValidDayNumber(dayNumber) {
		return nil, models.NewValidationError("day number must be between 1 and %d", models.JourneyDaysCount)
	}
	log := s.logger.With(zap.String("journeyID", journeyID.String()), zap.Int("day", dayNumber))

	now := s.now()
	var result models.DayCompletion
	err := s.deps.Store.WithTx(ctx, func(ctx context.Context, tx interfaces.Store) error {
		journey, err := tx.Journeys().GetByIDForUpdate(ctx, journeyID)
		if err != nil {
			return err
		}
		if err := authorize(journey, actorID); err != nil {
			return err
		}
		day, err := tx.Days().GetByNumberForUpdate(ctx, journeyID, dayNumber)
		if err != nil {
			return err
		}
		result = models.DayCompletion{UserID: journey.UserID, JourneyStatus: journey.Status}
		if day.Completed {
			result.Day = *day
			result.AlreadyCompleted = true
			return nil
		}

		marked, err := tx.Days().MarkCompleted(ctx, day.ID, now)
		if err != nil {
			return err
		}
		result.Day = *marked

		total, completed, err := tx.Days().CountCompletion(ctx, journeyID)
		if err != nil {
			return err
		}
		if models.AllDaysCompleted(total, completed) && journey.Status == models.StatusReady {
			changed, err := journey.Transition(models.StatusCompleted)
			if err != nil {
				return err
			}
			if changed {
				if err := tx.Journeys().Update(ctx, journey); err != nil {
					return err
				}
				result.JourneyCompleted = true
			}
		}
		result.JourneyStatus = journey.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyCompleted {
		log.Debug("Day already completed")
		return &result, nil
	}
	daysCompleted.Inc()
	if result.JourneyCompleted {
		journeyTransitions.WithLabelValues(string(models.StatusCompleted)).Inc()
		log.Info("Journey completed")
	}

	if _, err := s.deps.Stats.RecordSession(context.WithoutCancel(ctx), result.UserID, result.Day.DurationSeconds, now); err != nil {
		statsUpdateFailures.Inc()
		log.Error("Failed to update user stats after day completion", zap.Error(err))
	}
	return &result, nil
}
