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

var _ interfaces.UserStatsRepository = (*pgUserStatsRepository)(nil)

type pgUserStatsRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

func NewPgUserStatsRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.UserStatsRepository {
	return &pgUserStatsRepository{db: db, logger: logger.Named("PgUserStatsRepo")}
}

const (
	statsColumns = `user_id, current_streak, longest_streak, total_minutes_listened,
		total_sessions, last_session_date, updated_at`

	ensureStatsQuery = `INSERT INTO user_stats (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`

	getStatsQuery = `SELECT ` + statsColumns + ` FROM user_stats WHERE user_id = $1`

	saveStatsQuery = `
		UPDATE user_stats
		SET current_streak = $2, longest_streak = $3, total_minutes_listened = $4,
			total_sessions = $5, last_session_date = $6, updated_at = NOW()
		WHERE user_id = $1
		RETURNING updated_at`
)

func (r *pgUserStatsRepository) Ensure(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, ensureStatsQuery, userID); err != nil {
		r.logger.Error("Failed to ensure user stats row", zap.String("userID", userID.String()), zap.Error(err))
		return fmt.Errorf("failed to create user stats: %w", err)
	}
	return nil
}

func (r *pgUserStatsRepository) Get(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	return r.get(ctx, getStatsQuery, userID)
}

func (r *pgUserStatsRepository) GetForUpdate(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	return r.get(ctx, getStatsQuery+` FOR UPDATE`, userID)
}

func (r *pgUserStatsRepository) get(ctx context.Context, query string, userID uuid.UUID) (*models.UserStats, error) {
	var stats models.UserStats
	if err := pgxscan.Get(ctx, r.db, &stats, query, userID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, models.NotFound("user stats")
		}
		r.logger.Error("Failed to get user stats", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return &stats, nil
}

func (r *pgUserStatsRepository) Save(ctx context.Context, stats *models.UserStats) error {
	err := r.db.QueryRow(ctx, saveStatsQuery,
		stats.UserID, stats.CurrentStreak, stats.LongestStreak, stats.TotalMinutesListened,
		stats.TotalSessions, stats.LastSessionDate,
	).Scan(&stats.UpdatedAt)
	if err != nil {
		if pgxscan.NotFound(err) {
			return models.NotFound("user stats")
		}
		r.logger.Error("Failed to save user stats", zap.String("userID", stats.UserID.String()), zap.Error(err))
		return fmt.Errorf("failed to save user stats: %w", err)
	}
	return nil
}
