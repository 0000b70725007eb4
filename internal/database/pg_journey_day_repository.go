package database

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

var _ interfaces.JourneyDayRepository = (*pgJourneyDayRepository)(nil)

type pgJourneyDayRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

func NewPgJourneyDayRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.JourneyDayRepository {
	return &pgJourneyDayRepository{db: db, logger: logger.Named("PgJourneyDayRepo")}
}

const dayColumns = `id, journey_id, day_number, title, description, script_text, audio_url,
	duration_seconds, completed, completed_at, created_at, updated_at`

const (
	listDaysQuery = `SELECT ` + dayColumns + ` FROM journey_days WHERE journey_id = $1 ORDER BY day_number`

	getDayQuery = `SELECT ` + dayColumns + ` FROM journey_days WHERE journey_id = $1 AND day_number = $2`

	// Completion columns are not part of the conflict update:
	// a redelivered callback must never reset a completed day.
	upsertDaysQuery = `
		INSERT INTO journey_days (journey_id, day_number, title, description, script_text, audio_url, duration_seconds)
		SELECT $1, d.day_number, d.title, d.description, d.script_text, d.audio_url, d.duration_seconds
		FROM unnest($2::int[], $3::text[], $4::text[], $5::text[], $6::text[], $7::int[])
			AS d(day_number, title, description, script_text, audio_url, duration_seconds)
		ON CONFLICT (journey_id, day_number) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			script_text = EXCLUDED.script_text,
			audio_url = EXCLUDED.audio_url,
			duration_seconds = EXCLUDED.duration_seconds,
			updated_at = NOW()`

	markDayCompletedQuery = `
		UPDATE journey_days
		SET completed = TRUE, completed_at = COALESCE(completed_at, $2), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + dayColumns

	countDaysQuery = `
		SELECT COUNT(*)::int, (COUNT(*) FILTER (WHERE completed))::int
		FROM journey_days WHERE journey_id = $1`

	updateDayAudioQuery = `
		UPDATE journey_days
		SET audio_url = $3,
			duration_seconds = CASE WHEN $4::int > 0 THEN $4::int ELSE duration_seconds END,
			updated_at = NOW()
		WHERE journey_id = $1 AND day_number = $2
		RETURNING ` + dayColumns

	listSessionsQuery = `
		SELECT d.completed_at, d.duration_seconds
		FROM journey_days d
		JOIN journeys j ON j.id = d.journey_id
		WHERE j.user_id = $1 AND d.completed AND d.completed_at >= $2
		ORDER BY d.completed_at`
)

func (r *pgJourneyDayRepository) ListByJourney(ctx context.Context, journeyID uuid.UUID) ([]models.JourneyDay, error) {
	days := make([]models.JourneyDay, 0, models.JourneyDaysCount)
	if err := pgxscan.Select(ctx, r.db, &days, listDaysQuery, journeyID); err != nil {
		r.logger.Error("Failed to list journey days", zap.String("journeyID", journeyID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list days of journey %s: %w", journeyID, err)
	}
	return days, nil
}

func (r *pgJourneyDayRepository) GetByNumber(ctx context.Context, journeyID uuid.UUID, dayNumber int) (*models.JourneyDay, error) {
	return r.getOne(ctx, getDayQuery, journeyID, dayNumber)
}

func (r *pgJourneyDayRepository) GetByNumberForUpdate(ctx context.Context, journeyID uuid.UUID, dayNumber int) (*models.JourneyDay, error) {
	return r.getOne(ctx, getDayQuery+` FOR UPDATE`, journeyID, dayNumber)
}

func (r *pgJourneyDayRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.JourneyDay, error) {
	var day models.JourneyDay
	if err := pgxscan.Get(ctx, r.db, &day, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, models.NotFound("journey day")
		}
		r.logger.Error("Failed to get journey day", zap.Any("args", args), zap.Error(err))
		return nil, fmt.Errorf("failed to get journey day: %w", err)
	}
	return &day, nil
}

func (r *pgJourneyDayRepository) UpsertContent(ctx context.Context, journeyID uuid.UUID, days []models.JourneyDayContent) (int, error) {
	if len(days) == 0 {
		return 0, nil
	}
	numbers := make([]int32, len(days))
	titles := make([]string, len(days))
	descriptions := make([]string, len(days))
	scripts := make([]string, len(days))
	audioURLs := make([]string, len(days))
	durations := make([]int32, len(days))
	for i, d := range days {
		numbers[i] = int32(d.DayNumber)
		titles[i] = d.Title
		descriptions[i] = d.Description
		scripts[i] = d.ScriptText
		audioURLs[i] = d.AudioURL
		durations[i] = int32(d.DurationSeconds)
	}

	tag, err := r.db.Exec(ctx, upsertDaysQuery, journeyID, numbers, titles, descriptions, scripts, audioURLs, durations)
	if err != nil {
		r.logger.Error("Failed to upsert journey days", zap.String("journeyID", journeyID.String()), zap.Int("days", len(days)), zap.Error(err))
		return 0, fmt.Errorf("failed to upsert days of journey %s: %w", journeyID, err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *pgJourneyDayRepository) MarkCompleted(ctx context.Context, dayID uuid.UUID, at time.Time) (*models.JourneyDay, error) {
	return r.getOne(ctx, markDayCompletedQuery, dayID, at)
}

func (r *pgJourneyDayRepository) CountCompletion(ctx context.Context, journeyID uuid.UUID) (int, int, error) {
	var total, completed int
	if err := r.db.QueryRow(ctx, countDaysQuery, journeyID).Scan(&total, &completed); err != nil {
		r.logger.Error("Failed to count journey days", zap.String("journeyID", journeyID.String()), zap.Error(err))
		return 0, 0, fmt.Errorf("failed to count days of journey %s: %w", journeyID, err)
	}
	return total, completed, nil
}

func (r *pgJourneyDayRepository) UpdateAudio(ctx context.Context, journeyID uuid.UUID, dayNumber int, audioURL string, durationSeconds int) (*models.JourneyDay, error) {
	return r.getOne(ctx, updateDayAudioQuery, journeyID, dayNumber, audioURL, durationSeconds)
}

func (r *pgJourneyDayRepository) ListSessionsSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]models.ListeningSession, error) {
	sessions := make([]models.ListeningSession, 0)
	if err := pgxscan.Select(ctx, r.db, &sessions, listSessionsQuery, ownerID, since); err != nil {
		r.logger.Error("Failed to list listening sessions", zap.String("userID", ownerID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list listening sessions: %w", err)
	}
	return sessions, nil
}
