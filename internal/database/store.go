package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
)

var _ interfaces.Store = (*pgStore)(nil)

type pgStore struct {
	pool   *pgxpool.Pool // nil when the store is bound to a transaction
	db     interfaces.DBTX
	logger *zap.Logger

	users    interfaces.UserRepository
	journeys interfaces.JourneyRepository
	days     interfaces.JourneyDayRepository
	stats    interfaces.UserStatsRepository
	profiles interfaces.ProfileRepository
}

// NewStore returns a Store backed by the pool.
func NewStore(pool *pgxpool.Pool, logger *zap.Logger) interfaces.Store {
	return newPgStore(pool, pool, logger.Named("PgStore"))
}

func newPgStore(pool *pgxpool.Pool, db interfaces.DBTX, logger *zap.Logger) *pgStore {
	return &pgStore{
		pool:     pool,
		db:       db,
		logger:   logger,
		users:    NewPgUserRepository(db, logger),
		journeys: NewPgJourneyRepository(db, logger),
		days:     NewPgJourneyDayRepository(db, logger),
		stats:    NewPgUserStatsRepository(db, logger),
		profiles: NewPgProfileRepository(db, logger),
	}
}

func (s *pgStore) Users() interfaces.UserRepository       { return s.users }
func (s *pgStore) Journeys() interfaces.JourneyRepository { return s.journeys }
func (s *pgStore) Days() interfaces.JourneyDayRepository  { return s.days }
func (s *pgStore) Stats() interfaces.UserStatsRepository  { return s.stats }
func (s *pgStore) Profiles() interfaces.ProfileRepository { return s.profiles }

// WithTx runs fn in a transaction. A store already bound to a transaction runs
// fn inline, so nested calls join the outer transaction.
func (s *pgStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.Store) error) error {
	if s.pool == nil {
		return fn(ctx, s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error("Failed to rollback transaction after panic", zap.Error(rbErr), zap.Any("panic", p))
			}
			panic(p)
		}
	}()

	if err := fn(ctx, newPgStore(nil, tx, s.logger)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error("Failed to rollback transaction", zap.Error(rbErr), zap.NamedError("original_error", err))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
