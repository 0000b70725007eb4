package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

const (
	onboardingSource       = "onboarding"
	maxOnboardingDataBytes = 32 << 10
)

// ProfileService manages preferences and onboarding. Completed onboarding is
// also indexed so that journey generation can draw on it.
type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*ProfileView, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*ProfileView, error)
	CompleteOnboarding(ctx context.Context, userID uuid.UUID, input OnboardingInput) (*ProfileView, error)
	GetOnboarding(ctx context.Context, userID uuid.UUID) (*OnboardingView, error)
}

type ProfileView struct {
	User    *models.User    `json:"user"`
	Profile *models.Profile `json:"profile"`
}

type OnboardingView struct {
	Completed   bool                  `json:"onboarding_completed"`
	CompletedAt *time.Time            `json:"onboarding_completed_at"`
	Responses   models.OnboardingData `json:"responses"`
}

type UpdateProfileInput struct {
	Name                *string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone               *string `json:"phone" validate:"omitempty,max=32"`
	PreferenceTimeOfDay *string `json:"preference_time_of_day" validate:"omitempty,oneof=morning afternoon evening night"`
	PreferenceDuration  *int    `json:"preference_duration" validate:"omitempty,oneof=5 10 15 20 30"`
}

type OnboardingInput struct {
	Responses models.OnboardingData `json:"responses" validate:"required,min=1,max=100"`
}

var _ ProfileService = (*profileService)(nil)

type profileService struct {
	store   interfaces.Store
	indexer interfaces.ContextIndexer
	tasks   interfaces.TaskRunner
	logger  *zap.Logger
	now     func() time.Time
}

// NewProfileService indexes onboarding answers through indexer when it is not nil.
func NewProfileService(store interfaces.Store, indexer interfaces.ContextIndexer, tasks interfaces.TaskRunner, logger *zap.Logger) ProfileService {
	return &profileService{
		store:   store,
		indexer: indexer,
		tasks:   tasks,
		logger:  logger.Named("ProfileService"),
		now:     time.Now,
	}
}

func (s *profileService) Get(ctx context.Context, userID uuid.UUID) (*ProfileView, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.store.Profiles().Get(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		profile = &models.Profile{UserID: userID, OnboardingData: models.OnboardingData{}}
	} else if err != nil {
		return nil, err
	}
	return &ProfileView{User: user, Profile: profile}, nil
}

func (s *profileService) Update(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*ProfileView, error) {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, models.NewValidationError("name must not be empty")
		}
		input.Name = &name
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		input.Phone = &phone
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	view := &ProfileView{}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx interfaces.Store) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if input.Name != nil || input.Phone != nil {
			if input.Name != nil {
				user.Name = *input.Name
			}
			if input.Phone != nil {
				user.Phone = input.Phone
				if *input.Phone == "" {
					user.Phone = nil
				}
			}
			if err := tx.Users().UpdateDetails(ctx, user); err != nil {
				return err
			}
		}

		profile, err := lockProfile(ctx, tx, userID)
		if err != nil {
			return err
		}
		if input.PreferenceTimeOfDay != nil {
			profile.PreferenceTimeOfDay = input.PreferenceTimeOfDay
		}
		if input.PreferenceDuration != nil {
			profile.PreferenceDuration = input.PreferenceDuration
		}
		if err := tx.Profiles().Save(ctx, profile); err != nil {
			return err
		}
		view.User, view.Profile = user, profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Profile updated", zap.String("userID", userID.String()))
	return view, nil
}

// CompleteOnboarding stores the answers, replacing earlier ones, and hands
// them to the indexer after commit. Indexing failures do not fail the call.
func (s *profileService) CompleteOnboarding(ctx context.Context, userID uuid.UUID, input OnboardingInput) (*ProfileView, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(input.Responses)
	if err != nil {
		return nil, models.NewValidationError("responses must be valid JSON")
	}
	if len(raw) > maxOnboardingDataBytes {
		return nil, models.NewValidationError("responses must be at most %d bytes", maxOnboardingDataBytes)
	}

	now := s.now()
	view := &ProfileView{}
	err = s.store.WithTx(ctx, func(ctx context.Context, tx interfaces.Store) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		profile, err := lockProfile(ctx, tx, userID)
		if err != nil {
			return err
		}
		profile.OnboardingCompleted = true
		profile.OnboardingData = input.Responses
		profile.OnboardingCompletedAt = &now
		if err := tx.Profiles().Save(ctx, profile); err != nil {
			return err
		}
		view.User, view.Profile = user, profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Onboarding completed", zap.String("userID", userID.String()), zap.Int("answers", len(input.Responses)))

	if s.indexer != nil {
		doc := models.ContextDocument{
			ID:       userID.String() + "-" + onboardingSource,
			Source:   onboardingSource,
			Text:     input.Responses.Text(),
			StoredAt: now,
		}
		s.tasks.Go(ctx, "index-onboarding", func(taskCtx context.Context) error {
			return s.indexer.Index(taskCtx, userID, doc)
		})
	}
	return view, nil
}

func (s *profileService) GetOnboarding(ctx context.Context, userID uuid.UUID) (*OnboardingView, error) {
	profile, err := s.store.Profiles().Get(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return &OnboardingView{Responses: models.OnboardingData{}}, nil
	}
	if err != nil {
		return nil, err
	}
	responses := profile.OnboardingData
	if responses == nil {
		responses = models.OnboardingData{}
	}
	return &OnboardingView{
		Completed:   profile.OnboardingCompleted,
		CompletedAt: profile.OnboardingCompletedAt,
		Responses:   responses,
	}, nil
}

func lockProfile(ctx context.Context, tx interfaces.Store, userID uuid.UUID) (*models.Profile, error) {
	if err := tx.Profiles().Ensure(ctx, userID); err != nil {
		return nil, err
	}
	return tx.Profiles().GetForUpdate(ctx, userID)
}
