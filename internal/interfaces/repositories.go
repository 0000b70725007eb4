package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

// Store groups the relational repositories. Inside WithTx every repository of
// the passed Store runs on the same transaction.
type Store interface {
	Users() UserRepository
	Journeys() JourneyRepository
	Days() JourneyDayRepository
	Stats() UserStatsRepository
	Profiles() ProfileRepository
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdateDetails persists name and phone.
	UpdateDetails(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type JourneyRepository interface {
	Create(ctx context.Context, journey *models.Journey) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Journey, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Journey, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, filter models.JourneyFilter) ([]models.JourneySummary, error)
	Update(ctx context.Context, journey *models.Journey) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, ownerID uuid.UUID) (*models.JourneyStatusCounts, error)
}

type JourneyDayRepository interface {
	ListByJourney(ctx context.Context, journeyID uuid.UUID) ([]models.JourneyDay, error)
	GetByNumber(ctx context.Context, journeyID uuid.UUID, dayNumber int) (*models.JourneyDay, error)
	GetByNumberForUpdate(ctx context.Context, journeyID uuid.UUID, dayNumber int) (*models.JourneyDay, error)
	// UpsertContent writes generated content keyed on (journey_id, day_number)
	// without touching completion. Returns the number of rows written.
	UpsertContent(ctx context.Context, journeyID uuid.UUID, days []models.JourneyDayContent) (int, error)
	MarkCompleted(ctx context.Context, dayID uuid.UUID, at time.Time) (*models.JourneyDay, error)
	CountCompletion(ctx context.Context, journeyID uuid.UUID) (total int, completed int, err error)
	UpdateAudio(ctx context.Context, journeyID uuid.UUID, dayNumber int, audioURL string, durationSeconds int) (*models.JourneyDay, error)
	ListSessionsSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]models.ListeningSession, error)
}

type UserStatsRepository interface {
	// Ensure creates an empty row for the user if none exists.
	Ensure(ctx context.Context, userID uuid.UUID) error
	Get(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	GetForUpdate(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	Save(ctx context.Context, stats *models.UserStats) error
}

type ProfileRepository interface {
	// Ensure creates an empty profile for the user if none exists.
	Ensure(ctx context.Context, userID uuid.UUID) error
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	GetForUpdate(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Save(ctx context.Context, profile *models.Profile) error
}

// TokenRepository stores issued token ids so that tokens can be revoked.
type TokenRepository interface {
	SetToken(ctx context.Context, userID uuid.UUID, td *models.TokenDetails) error
	GetUserIDByAccessUUID(ctx context.Context, accessUUID string) (uuid.UUID, error)
	GetUserIDByRefreshUUID(ctx context.Context, refreshUUID string) (uuid.UUID, error)
	DeleteTokens(ctx context.Context, userID uuid.UUID, accessUUID, refreshUUID string) (int64, error)
}

// CreationLimiter bounds journey creations per owner in a rolling window.
type CreationLimiter interface {
	// Reserve takes a slot or returns models.ErrRateLimited.
	Reserve(ctx context.Context, ownerID uuid.UUID) (reservation string, err error)
	// Release gives back a slot taken by Reserve.
	Release(ctx context.Context, ownerID uuid.UUID, reservation string) error
}
