package database

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

var _ interfaces.ProfileRepository = (*pgProfileRepository)(nil)

type pgProfileRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

func NewPgProfileRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.ProfileRepository {
	return &pgProfileRepository{db: db, logger: logger.Named("PgProfileRepo")}
}

const (
	profileColumns = `user_id, preference_time_of_day, preference_duration, onboarding_completed,
		onboarding_data, onboarding_completed_at, created_at, updated_at`

	ensureProfileQuery = `INSERT INTO profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`

	getProfileQuery = `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

	saveProfileQuery = `
		UPDATE profiles
		SET preference_time_of_day = $2, preference_duration = $3, onboarding_completed = $4,
			onboarding_data = $5, onboarding_completed_at = $6, updated_at = NOW()
		WHERE user_id = $1
		RETURNING updated_at`
)

func (r *pgProfileRepository) Ensure(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, ensureProfileQuery, userID); err != nil {
		r.logger.Error("Failed to ensure profile row", zap.String("userID", userID.String()), zap.Error(err))
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *pgProfileRepository) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return r.get(ctx, getProfileQuery, userID)
}

func (r *pgProfileRepository) GetForUpdate(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return r.get(ctx, getProfileQuery+` FOR UPDATE`, userID)
}

func (r *pgProfileRepository) get(ctx context.Context, query string, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := pgxscan.Get(ctx, r.db, &profile, query, userID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, models.NotFound("profile")
		}
		r.logger.Error("Failed to get profile", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

func (r *pgProfileRepository) Save(ctx context.Context, profile *models.Profile) error {
	data := profile.OnboardingData
	if data == nil {
		data = models.OnboardingData{}
	}
	err := r.db.QueryRow(ctx, saveProfileQuery,
		profile.UserID, profile.PreferenceTimeOfDay, profile.PreferenceDuration, profile.OnboardingCompleted,
		data, profile.OnboardingCompletedAt,
	).Scan(&profile.UpdatedAt)
	if err != nil {
		if pgxscan.NotFound(err) {
			return models.NotFound("profile")
		}
		r.logger.Error("Failed to save profile", zap.String("userID", profile.UserID.String()), zap.Error(err))
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
