package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

// WebhookService applies generator callbacks. Every operation is safe to replay.
type WebhookService interface {
	Complete(ctx context.Context, provider string, payload CompletePayload) (*WebhookResult, error)
	Fail(ctx context.Context, provider string, payload ErrorPayload) (*WebhookResult, error)
	Progress(ctx context.Context, provider string, payload ProgressPayload) (*WebhookResult, error)
	AudioReady(ctx context.Context, provider string, payload AudioPayload) (*WebhookResult, error)
}

type DayPayload struct {
	DayNumber       int    `json:"dayNumber" validate:"min=1,max=7"`
	Title           string `json:"title" validate:"max=500"`
	Description     string `json:"description"`
	ScriptText      string `json:"scriptText"`
	AudioURL        string `json:"audioUrl" validate:"omitempty,url"`
	DurationSeconds int    `json:"durationSeconds" validate:"min=0"`
	// Duration is the older name of DurationSeconds.
	Duration int `json:"duration" validate:"min=0"`
}

type CompletePayload struct {
	JourneyID   uuid.UUID       `json:"journeyId" validate:"required"`
	UserID      *uuid.UUID      `json:"userId"`
	Status      string          `json:"status" validate:"omitempty,oneof=ready completed"`
	Days        []DayPayload    `json:"days" validate:"max=7,dive"`
	CompletedAt *time.Time      `json:"completedAt"`
	Metadata    json.RawMessage `json:"metadata"`
}

type ErrorPayload struct {
	JourneyID    uuid.UUID       `json:"journeyId" validate:"required"`
	UserID       *uuid.UUID      `json:"userId"`
	Error        string          `json:"error" validate:"required,max=2000"`
	ErrorDetails json.RawMessage `json:"errorDetails"`
}

type ProgressPayload struct {
	JourneyID  uuid.UUID `json:"journeyId" validate:"required"`
	CurrentDay int       `json:"currentDay" validate:"min=0,max=7"`
	TotalDays  int       `json:"totalDays" validate:"min=0,max=7"`
	Status     string    `json:"status"`
}

type AudioPayload struct {
	JourneyID       uuid.UUID `json:"journeyId" validate:"required"`
	DayNumber       int       `json:"dayNumber" validate:"min=1,max=7"`
	AudioURL        string    `json:"audioUrl" validate:"required,url"`
	DurationSeconds int       `json:"durationSeconds" validate:"min=0"`
}

// WebhookResult is the acknowledgement returned to the generator.
type WebhookResult struct {
	JourneyID     uuid.UUID            `json:"journeyId"`
	Status        models.JourneyStatus `json:"status"`
	DaysProcessed int                  `json:"daysProcessed"`
}

var _ WebhookService = (*webhookService)(nil)

type webhookService struct {
	store    interfaces.Store
	notifier interfaces.Notifier
	tasks    interfaces.TaskRunner
	logger   *zap.Logger
	now      func() time.Time
}

func NewWebhookService(store interfaces.Store, notifier interfaces.Notifier, tasks interfaces.TaskRunner, logger *zap.Logger) WebhookService {
	return &webhookService{
		store:    store,
		notifier: notifier,
		tasks:    tasks,
		logger:   logger.Named("WebhookService"),
		now:      time.Now,
	}
}

func checkOwner(journey *models.Journey, userID *uuid.UUID) error {
	if userID != nil && *userID != uuid.Nil && *userID != journey.UserID {
		return models.NewValidationError("userId does not match the journey owner")
	}
	return nil
}

func (p CompletePayload) dayContents() ([]models.JourneyDayContent, error) {
	seen := make(map[int]bool, len(p.Days))
	out := make([]models.JourneyDayContent, 0, len(p.Days))
	for _, d := range p.Days {
		if seen[d.DayNumber] {
			return nil, models.NewValidationError("day %d appears more than once", d.DayNumber)
		}
		seen[d.DayNumber] = true
		duration := d.DurationSeconds
		if duration == 0 {
			duration = d.Duration
		}
		if duration == 0 {
			duration = models.DefaultDayDurationSeconds
		}
		out = append(out, models.JourneyDayContent{
			DayNumber:       d.DayNumber,
			Title:           d.Title,
			Description:     d.Description,
			ScriptText:      d.ScriptText,
			AudioURL:        d.AudioURL,
			DurationSeconds: duration,
		})
	}
	return out, nil
}

func dayNumbers(days []models.JourneyDayContent) []int {
	out := make([]int, len(days))
	for i, d := range days {
		out[i] = d.DayNumber
	}
	return out
}

// Complete moves a creating journey to ready and upserts its days. A ready
// journey only gets its day content refreshed; a completed one is left alone.
// A status of "completed" in the payload is treated as "ready": only day
// completion finalizes a journey.
func (s *webhookService) Complete(ctx context.Context, provider string, payload CompletePayload) (*WebhookResult, error) {
	if err := validateStruct(payload); err != nil {
		webhookCallbacks.WithLabelValues("complete", "invalid").Inc()
		return nil, err
	}
	days, err := payload.dayContents()
	if err != nil {
		webhookCallbacks.WithLabelValues("complete", "invalid").Inc()
		return nil, err
	}
	log := s.logger.With(zap.String("journeyID", payload.JourneyID.String()), zap.String("provider", provider))

	result := &WebhookResult{JourneyID: payload.JourneyID}
	var transitioned bool
	var snapshot models.Journey
	err = s.store.WithTx(ctx, func(ctx context.Context, tx interfaces.Store) error {
		journey, err := tx.Journeys().GetByIDForUpdate(ctx, payload.JourneyID)
		if err != nil {
			return err
		}
		if err := checkOwner(journey, payload.UserID); err != nil {
			return err
		}

		switch journey.Status {
		case models.StatusError:
			return fmt.Errorf("%w: journey generation already failed", models.ErrJourneyTerminal)
		case models.StatusCompleted:
			result.Status = journey.Status
			if len(days) > 0 {
				log.Warn("Dropping day content for completed journey", zap.Ints("days", dayNumbers(days)))
			}
			return nil
		case models.StatusCreating:
			if transitioned, err = journey.Transition(models.StatusReady); err != nil {
				return err
			}
		}

		if len(days) > 0 {
			n, err := tx.Days().UpsertContent(ctx, journey.ID, days)
			if err != nil {
				return err
			}
			result.DaysProcessed = n
		}

		completedAt := s.now()
		if payload.CompletedAt != nil {
			completedAt = *payload.CompletedAt
		}
		journey.Metadata.Generation = &models.GenerationResult{
			Provider:     provider,
			CompletedAt:  completedAt,
			DaysReceived: len(days),
			Extra:        payload.Metadata,
		}
		journey.Metadata.Progress = nil
		if err := tx.Journeys().Update(ctx, journey); err != nil {
			return err
		}
		result.Status = journey.Status
		snapshot = *journey
		return nil
	})
	if err != nil {
		webhookCallbacks.WithLabelValues("complete", outcomeOf(err)).Inc()
		return nil, err
	}

	webhookCallbacks.WithLabelValues("complete", "ok").Inc()
	log.Info("Journey completion processed",
		zap.String("status", string(result.Status)), zap.Int("daysProcessed", result.DaysProcessed), zap.Bool("transitioned", transitioned))
	if transitioned {
		s.notifyReady(ctx, &snapshot)
	}
	return result, nil
}

// Fail records a generation failure. Replays on an errored journey are no-ops.
func (s *webhookService) Fail(ctx context.Context, provider string, payload ErrorPayload) (*WebhookResult, error) {
	if err := validateStruct(payload); err != nil {
		webhookCallbacks.WithLabelValues("error", "invalid").Inc()
		return nil, err
	}
	log := s.logger.With(zap.String("journeyID", payload.JourneyID.String()), zap.String("provider", provider))

	result := &WebhookResult{JourneyID: payload.JourneyID}
	var transitioned bool
	var snapshot models.Journey
	err := s.store.WithTx(ctx, func(ctx context.Context, tx interfaces.Store) error {
		journey, err := tx.Journeys().GetByIDForUpdate(ctx, payload.JourneyID)
		if err != nil {
			return err
		}
		if err := checkOwner(journey, payload.UserID); err != nil {
			return err
		}
		if transitioned, err = journey.Transition(models.StatusError); err != nil {
			return err
		}
		result.Status = journey.Status
		if !transitioned {
			return nil
		}
		journey.Metadata.Failure = &models.GenerationFailure{
			Provider: provider,
			Message:  payload.Error,
			Details:  payload.ErrorDetails,
			FailedAt: s.now(),
		}
		if err := tx.Journeys().Update(ctx, journey); err != nil {
			return err
		}
		snapshot = *journey
		return nil
	})
	if err != nil {
		webhookCallbacks.WithLabelValues("error", outcomeOf(err)).Inc()
		return nil, err
	}

	webhookCallbacks.WithLabelValues("error", "ok").Inc()
	log.Warn("Journey generation failed", zap.String("error", payload.Error), zap.Bool("transitioned", transitioned))
	if transitioned {
		s.notifyFailed(ctx, &snapshot)
	}
	return result, nil
}

// Progress records advisory progress while the journey is still being
// generated. Only an "error" status changes state; "ready" and "completed"
// need the day content of journey-complete and are recorded as progress.
func (s *webhookService) Progress(ctx context.Context, provider string, payload ProgressPayload) (*WebhookResult, error) {
	if err := validateStruct(payload); err != nil {
		webhookCallbacks.WithLabelValues("progress", "invalid").Inc()
		return nil, err
	}
	if payload.Status == string(models.StatusError) {
		return s.Fail(ctx, provider, ErrorPayload{
			JourneyID: payload.JourneyID,
			Error:     "generator reported error status in progress update",
		})
	}

	result := &WebhookResult{JourneyID: payload.JourneyID}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx interfaces.Store) error {
		journey, err := tx.Journeys().GetByIDForUpdate(ctx, payload.JourneyID)
		if err != nil {
			return err
		}
		result.Status = journey.Status
		if journey.Status != models.StatusCreating {
			return nil
		}
		journey.Metadata.Progress = &models.GenerationProgress{
			CurrentDay: payload.CurrentDay,
			TotalDays:  payload.TotalDays,
			Percent:    models.ProgressPercent(payload.CurrentDay, payload.TotalDays),
			UpdatedAt:  s.now(),
		}
		return tx.Journeys().Update(ctx, journey)
	})
	if err != nil {
		webhookCallbacks.WithLabelValues("progress", outcomeOf(err)).Inc()
		return nil, err
	}
	webhookCallbacks.WithLabelValues("progress", "ok").Inc()
	return result, nil
}

// AudioReady attaches a rendered audio file to an existing day.
func (s *webhookService) AudioReady(ctx context.Context, provider string, payload AudioPayload) (*WebhookResult, error) {
	if err := validateStruct(payload); err != nil {
		webhookCallbacks.WithLabelValues("audio", "invalid").Inc()
		return nil, err
	}
	day, err := s.store.Days().UpdateAudio(ctx, payload.JourneyID, payload.DayNumber, payload.AudioURL, payload.DurationSeconds)
	if err != nil {
		webhookCallbacks.WithLabelValues("audio", outcomeOf(err)).Inc()
		return nil, err
	}
	journey, err := s.store.Journeys().GetByID(ctx, payload.JourneyID)
	if err != nil {
		return nil, err
	}
	webhookCallbacks.WithLabelValues("audio", "ok").Inc()
	s.logger.Info("Day audio updated",
		zap.String("journeyID", payload.JourneyID.String()), zap.Int("day", day.DayNumber), zap.String("provider", provider))
	return &WebhookResult{JourneyID: payload.JourneyID, Status: journey.Status, DaysProcessed: 1}, nil
}

func (s *webhookService) notifyReady(ctx context.Context, journey *models.Journey) {
	journeyTransitions.WithLabelValues(string(models.StatusReady)).Inc()
	s.tasks.Go(ctx, "notify-journey-ready", func(taskCtx context.Context) error {
		return s.notifier.JourneyReady(taskCtx, journey)
	})
}

func (s *webhookService) notifyFailed(ctx context.Context, journey *models.Journey) {
	journeyTransitions.WithLabelValues(string(models.StatusError)).Inc()
	s.tasks.Go(ctx, "notify-journey-failed", func(taskCtx context.Context) error {
		return s.notifier.JourneyFailed(taskCtx, journey)
	})
}
