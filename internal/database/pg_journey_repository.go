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

var _ interfaces.JourneyRepository = (*pgJourneyRepository)(nil)

type pgJourneyRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

func NewPgJourneyRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.JourneyRepository {
	return &pgJourneyRepository{db: db, logger: logger.Named("PgJourneyRepo")}
}

const journeyColumns = `j.id, j.user_id, j.goal, j.intention, j.status, j.metadata, j.created_at, j.updated_at`

const (
	createJourneyQuery = `
		INSERT INTO journeys (user_id, goal, intention, status, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	getJourneyQuery = `SELECT ` + journeyColumns + ` FROM journeys j WHERE j.id = $1`

	listJourneysQuery = `
		SELECT ` + journeyColumns + `,
			COALESCE(d.total, 0) AS days_total,
			COALESCE(d.completed, 0) AS days_completed
		FROM journeys j
		LEFT JOIN LATERAL (
			SELECT COUNT(*)::int AS total, (COUNT(*) FILTER (WHERE completed))::int AS completed
			FROM journey_days WHERE journey_id = j.id
		) d ON TRUE
		WHERE j.user_id = $1 AND ($2::text IS NULL OR j.status = $2::text)
		ORDER BY j.created_at DESC, j.id DESC
		LIMIT $3`

	// updated_at never moves backwards, even if the clock does.
	updateJourneyQuery = `
		UPDATE journeys
		SET goal = $2, intention = $3, status = $4, metadata = $5,
			updated_at = GREATEST(NOW(), updated_at + INTERVAL '1 microsecond')
		WHERE id = $1
		RETURNING updated_at`

	deleteJourneyQuery = `DELETE FROM journeys WHERE id = $1`

	countJourneysQuery = `
		SELECT
			COUNT(*)::int AS total,
			(COUNT(*) FILTER (WHERE j.status = 'creating'))::int AS creating,
			(COUNT(*) FILTER (WHERE j.status = 'ready'))::int AS ready,
			(COUNT(*) FILTER (WHERE j.status = 'completed'))::int AS completed,
			(COUNT(*) FILTER (WHERE j.status = 'error'))::int AS failed,
			(COUNT(*) FILTER (WHERE d.completed > 0 AND d.completed < d.total))::int AS in_progress,
			COALESCE(SUM(d.completed), 0)::int AS total_days_completed
		FROM journeys j
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE completed) AS completed
			FROM journey_days WHERE journey_id = j.id
		) d ON TRUE
		WHERE j.user_id = $1`
)

func (r *pgJourneyRepository) Create(ctx context.Context, journey *models.Journey) error {
	if journey.Status == "" {
		journey.Status = models.StatusCreating
	}
	err := r.db.QueryRow(ctx, createJourneyQuery,
		journey.UserID, journey.Goal, journey.Intention, journey.Status, journey.Metadata,
	).Scan(&journey.ID, &journey.CreatedAt, &journey.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create journey", zap.String("userID", journey.UserID.String()), zap.Error(err))
		return fmt.Errorf("failed to create journey: %w", err)
	}
	r.logger.Debug("Journey created", zap.String("journeyID", journey.ID.String()))
	return nil
}

func (r *pgJourneyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Journey, error) {
	return r.get(ctx, getJourneyQuery, id)
}

func (r *pgJourneyRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Journey, error) {
	return r.get(ctx, getJourneyQuery+` FOR UPDATE`, id)
}

func (r *pgJourneyRepository) get(ctx context.Context, query string, id uuid.UUID) (*models.Journey, error) {
	var journey models.Journey
	if err := pgxscan.Get(ctx, r.db, &journey, query, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, models.NotFound("journey")
		}
		r.logger.Error("Failed to get journey", zap.String("journeyID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get journey %s: %w", id, err)
	}
	return &journey, nil
}

func (r *pgJourneyRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, filter models.JourneyFilter) ([]models.JourneySummary, error) {
	filter = filter.Normalize()
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	journeys := make([]models.JourneySummary, 0)
	if err := pgxscan.Select(ctx, r.db, &journeys, listJourneysQuery, ownerID, status, filter.Limit); err != nil {
		r.logger.Error("Failed to list journeys", zap.String("userID", ownerID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list journeys: %w", err)
	}
	return journeys, nil
}

func (r *pgJourneyRepository) Update(ctx context.Context, journey *models.Journey) error {
	err := r.db.QueryRow(ctx, updateJourneyQuery,
		journey.ID, journey.Goal, journey.Intention, journey.Status, journey.Metadata,
	).Scan(&journey.UpdatedAt)
	if err != nil {
		if pgxscan.NotFound(err) {
			return models.NotFound("journey")
		}
		r.logger.Error("Failed to update journey", zap.String("journeyID", journey.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to update journey %s: %w", journey.ID, err)
	}
	return nil
}

func (r *pgJourneyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, deleteJourneyQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete journey", zap.String("journeyID", id.String()), zap.Error(err))
		return fmt.Errorf("failed to delete journey %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFound("journey")
	}
	return nil
}

func (r *pgJourneyRepository) CountByStatus(ctx context.Context, ownerID uuid.UUID) (*models.JourneyStatusCounts, error) {
	var counts models.JourneyStatusCounts
	if err := pgxscan.Get(ctx, r.db, &counts, countJourneysQuery, ownerID); err != nil {
		r.logger.Error("Failed to count journeys", zap.String("userID", ownerID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to count journeys: %w", err)
	}
	return &counts, nil
}
