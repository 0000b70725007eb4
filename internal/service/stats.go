package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

const (
	DefaultHistoryDays = 30
	MaxHistoryDays     = 365
)

// StatsService maintains and reports per-user listening statistics.
type StatsService interface {
	RecordSession(ctx context.Context, userID uuid.UUID, durationSeconds int, at time.Time) (*models.UserStats, error)
	GetStats(ctx context.Context, userID uuid.UUID) (*StatsOverview, error)
	GetStreak(ctx context.Context, userID uuid.UUID) (*models.StreakInfo, error)
	GetListeningHistory(ctx context.Context, userID uuid.UUID, days int) ([]DailyListening, error)
	GetJourneyStats(ctx context.Context, userID uuid.UUID) (*JourneyStats, error)
	GetTimeOfDay(ctx context.Context, userID uuid.UUID) (*TimeOfDayDistribution, error)
}

type StatsOverview struct {
	Stats  models.UserStats  `json:"stats"`
	Streak models.StreakInfo `json:"streak"`
}

type DailyListening struct {
	Date     string `json:"date"`
	Sessions int    `json:"sessions"`
	Minutes  int    `json:"minutes"`
}

type JourneyStats struct {
	Total              int     `json:"total"`
	Creating           int     `json:"creating"`
	Ready              int     `json:"ready"`
	Completed          int     `json:"completed"`
	Failed             int     `json:"failed"`
	InProgress         int     `json:"in_progress"`
	TotalDaysCompleted int     `json:"total_days_completed"`
	CompletionRate     float64 `json:"completion_rate"`
}

type TimeOfDayDistribution struct {
	Morning   int    `json:"morning"`
	Afternoon int    `json:"afternoon"`
	Evening   int    `json:"evening"`
	Night     int    `json:"night"`
	Preferred string `json:"preferred,omitempty"`
}

var _ StatsService = (*statsService)(nil)

type statsService struct {
	store  interfaces.Store
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewStatsService computes calendar days in loc (UTC when nil).
func NewStatsService(store interfaces.Store, loc *time.Location, logger *zap.Logger) StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &statsService{store: store, loc: loc, logger: logger.Named("StatsService"), now: time.Now}
}

// RecordSession applies one listening session under a row lock so that
// concurrent completions for the same user serialize.
func (s *statsService) RecordSession(ctx context.Context, userID uuid.UUID, durationSeconds int, at time.Time) (*models.UserStats, error) {
	today := models.CalendarDate(at, s.loc)
	var saved models.UserStats
	err := s.store.WithTx(ctx, func(ctx context.Context, tx interfaces.Store) error {
		if err := tx.Stats().Ensure(ctx, userID); err != nil {
			return err
		}
		current, err := tx.Stats().GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		next := current.ApplySession(today, durationSeconds)
		if err := tx.Stats().Save(ctx, &next); err != nil {
			return err
		}
		saved = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Listening session recorded",
		zap.String("userID", userID.String()),
		zap.Int("currentStreak", saved.CurrentStreak),
		zap.Int("totalSessions", saved.TotalSessions))
	return &saved, nil
}

func (s *statsService) load(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	stats, err := s.store.Stats().Get(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return &models.UserStats{UserID: userID}, nil
	}
	return stats, err
}

func (s *statsService) GetStats(ctx context.Context, userID uuid.UUID) (*StatsOverview, error) {
	stats, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &StatsOverview{Stats: *stats, Streak: stats.StreakInfoAt(models.CalendarDate(s.now(), s.loc))}, nil
}

func (s *statsService) GetStreak(ctx context.Context, userID uuid.UUID) (*models.StreakInfo, error) {
	stats, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := stats.StreakInfoAt(models.CalendarDate(s.now(), s.loc))
	return &info, nil
}

// GetListeningHistory returns one entry per calendar day, oldest first,
// including days without sessions.
func (s *statsService) GetListeningHistory(ctx context.Context, userID uuid.UUID, days int) ([]DailyListening, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	if days > MaxHistoryDays {
		return nil, models.NewValidationError("days must be at most %d", MaxHistoryDays)
	}
	y, m, d := s.now().In(s.loc).Date()
	start := time.Date(y, m, d-days+1, 0, 0, 0, 0, s.loc)

	sessions, err := s.store.Days().ListSessionsSince(ctx, userID, start)
	if err != nil {
		return nil, err
	}

	history := make([]DailyListening, days)
	index := make(map[string]int, days)
	for i := range history {
		date := time.Date(y, m, d-days+1+i, 0, 0, 0, 0, s.loc).Format(time.DateOnly)
		history[i].Date = date
		index[date] = i
	}
	for _, session := range sessions {
		i, ok := index[session.CompletedAt.In(s.loc).Format(time.DateOnly)]
		if !ok {
			continue
		}
		history[i].Sessions++
		history[i].Minutes += session.DurationSeconds / 60
	}
	return history, nil
}

func (s *statsService) GetJourneyStats(ctx context.Context, userID uuid.UUID) (*JourneyStats, error) {
	counts, err := s.store.Journeys().CountByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &JourneyStats{
		Total:              counts.Total,
		Creating:           counts.Creating,
		Ready:              counts.Ready,
		Completed:          counts.Completed,
		Failed:             counts.Failed,
		InProgress:         counts.InProgress,
		TotalDaysCompleted: counts.TotalDaysCompleted,
	}
	if counts.Total > 0 {
		out.CompletionRate = math.Round(float64(counts.Completed)/float64(counts.Total)*1000) / 10
	}
	return out, nil
}

// GetTimeOfDay buckets every completed session by local hour:
// morning 6-12, afternoon 12-18, evening 18-22, night otherwise.
func (s *statsService) GetTimeOfDay(ctx context.Context, userID uuid.UUID) (*TimeOfDayDistribution, error) {
	sessions, err := s.store.Days().ListSessionsSince(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}
	var dist TimeOfDayDistribution
	for _, session := range sessions {
		switch h := session.CompletedAt.In(s.loc).Hour(); {
		case h >= 6 && h < 12:
			dist.Morning++
		case h >= 12 && h < 18:
			dist.Afternoon++
		case h >= 18 && h < 22:
			dist.Evening++
		default:
			dist.Night++
		}
	}
	best := 0
	for _, bucket := range []struct {
		name  string
		count int
	}{
		{"morning", dist.Morning},
		{"afternoon", dist.Afternoon},
		{"evening", dist.Evening},
		{"night", dist.Night},
	} {
		if bucket.count > best {
			best = bucket.count
			dist.Preferred = bucket.name
		}
	}
	return &dist, nil
}
