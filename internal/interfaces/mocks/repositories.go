package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

// Store hands out the repository mocks; WithTx runs fn inline on the same mocks.
type Store struct {
	UserRepo    *UserRepository
	JourneyRepo *JourneyRepository
	DayRepo     *JourneyDayRepository
	StatsRepo   *UserStatsRepository
	ProfileRepo *ProfileRepository
	TxCalls     int
}

var _ interfaces.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		UserRepo:    new(UserRepository),
		JourneyRepo: new(JourneyRepository),
		DayRepo:     new(JourneyDayRepository),
		StatsRepo:   new(UserStatsRepository),
		ProfileRepo: new(ProfileRepository),
	}
}

func (s *Store) Users() interfaces.UserRepository       { return s.UserRepo }
func (s *Store) Journeys() interfaces.JourneyRepository { return s.JourneyRepo }
func (s *Store) Days() interfaces.JourneyDayRepository  { return s.DayRepo }
func (s *Store) Stats() interfaces.UserStatsRepository  { return s.StatsRepo }
func (s *Store) Profiles() interfaces.ProfileRepository { return s.ProfileRepo }

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.Store) error) error {
	s.TxCalls++
	return fn(ctx, s)
}

// AssertExpectations checks every repository mock.
func (s *Store) AssertExpectations(t mock.TestingT) {
	s.UserRepo.AssertExpectations(t)
	s.JourneyRepo.AssertExpectations(t)
	s.DayRepo.AssertExpectations(t)
	s.StatsRepo.AssertExpectations(t)
	s.ProfileRepo.AssertExpectations(t)
}

type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *UserRepository) UpdateDetails(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

type JourneyRepository struct {
	mock.Mock
}

func (m *JourneyRepository) Create(ctx context.Context, journey *models.Journey) error {
	return m.Called(ctx, journey).Error(0)
}

func (m *JourneyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Journey, error) {
	args := m.Called(ctx, id)
	j, _ := args.Get(0).(*models.Journey)
	return j, args.Error(1)
}

func (m *JourneyRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Journey, error) {
	args := m.Called(ctx, id)
	j, _ := args.Get(0).(*models.Journey)
	return j, args.Error(1)
}

func (m *JourneyRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, filter models.JourneyFilter) ([]models.JourneySummary, error) {
	args := m.Called(ctx, ownerID, filter)
	list, _ := args.Get(0).([]models.JourneySummary)
	return list, args.Error(1)
}

func (m *JourneyRepository) Update(ctx context.Context, journey *models.Journey) error {
	return m.Called(ctx, journey).Error(0)
}

func (m *JourneyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *JourneyRepository) CountByStatus(ctx context.Context, ownerID uuid.UUID) (*models.JourneyStatusCounts, error) {
	args := m.Called(ctx, ownerID)
	counts, _ := args.Get(0).(*models.JourneyStatusCounts)
	return counts, args.Error(1)
}

type JourneyDayRepository struct {
	mock.Mock
}

func (m *JourneyDayRepository) ListByJourney(ctx context.Context, journeyID uuid.UUID) ([]models.JourneyDay, error) {
	args := m.Called(ctx, journeyID)
	days, _ := args.Get(0).([]models.JourneyDay)
	return days, args.Error(1)
}

func (m *JourneyDayRepository) GetByNumber(ctx context.Context, journeyID uuid.UUID, dayNumber int) (*models.JourneyDay, error) {
	args := m.Called(ctx, journeyID, dayNumber)
	day, _ := args.Get(0).(*models.JourneyDay)
	return day, args.Error(1)
}

func (m *JourneyDayRepository) GetByNumberForUpdate(ctx context.Context, journeyID uuid.UUID, dayNumber int) (*models.JourneyDay, error) {
	args := m.Called(ctx, journeyID, dayNumber)
	day, _ := args.Get(0).(*models.JourneyDay)
	return day, args.Error(1)
}

func (m *JourneyDayRepository) UpsertContent(ctx context.Context, journeyID uuid.UUID, days []models.JourneyDayContent) (int, error) {
	args := m.Called(ctx, journeyID, days)
	return args.Int(0), args.Error(1)
}

func (m *JourneyDayRepository) MarkCompleted(ctx context.Context, dayID uuid.UUID, at time.Time) (*models.JourneyDay, error) {
	args := m.Called(ctx, dayID, at)
	day, _ := args.Get(0).(*models.JourneyDay)
	return day, args.Error(1)
}

func (m *JourneyDayRepository) CountCompletion(ctx context.Context, journeyID uuid.UUID) (int, int, error) {
	args := m.Called(ctx, journeyID)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *JourneyDayRepository) UpdateAudio(ctx context.Context, journeyID uuid.UUID, dayNumber int, audioURL string, durationSeconds int) (*models.JourneyDay, error) {
	args := m.Called(ctx, journeyID, dayNumber, audioURL, durationSeconds)
	day, _ := args.Get(0).(*models.JourneyDay)
	return day, args.Error(1)
}

func (m *JourneyDayRepository) ListSessionsSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]models.ListeningSession, error) {
	args := m.Called(ctx, ownerID, since)
	sessions, _ := args.Get(0).([]models.ListeningSession)
	return sessions, args.Error(1)
}

type UserStatsRepository struct {
	mock.Mock
}

func (m *UserStatsRepository) Ensure(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *UserStatsRepository) Get(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	args := m.Called(ctx, userID)
	stats, _ := args.Get(0).(*models.UserStats)
	return stats, args.Error(1)
}

func (m *UserStatsRepository) GetForUpdate(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	args := m.Called(ctx, userID)
	stats, _ := args.Get(0).(*models.UserStats)
	return stats, args.Error(1)
}

func (m *UserStatsRepository) Save(ctx context.Context, stats *models.UserStats) error {
	return m.Called(ctx, stats).Error(0)
}

type ProfileRepository struct {
	mock.Mock
}

func (m *ProfileRepository) Ensure(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *ProfileRepository) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	profile, _ := args.Get(0).(*models.Profile)
	return profile, args.Error(1)
}

func (m *ProfileRepository) GetForUpdate(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	profile, _ := args.Get(0).(*models.Profile)
	return profile, args.Error(1)
}

func (m *ProfileRepository) Save(ctx context.Context, profile *models.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

type TokenRepository struct {
	mock.Mock
}

func (m *TokenRepository) SetToken(ctx context.Context, userID uuid.UUID, td *models.TokenDetails) error {
	return m.Called(ctx, userID, td).Error(0)
}

func (m *TokenRepository) GetUserIDByAccessUUID(ctx context.Context, accessUUID string) (uuid.UUID, error) {
	args := m.Called(ctx, accessUUID)
	id, _ := args.Get(0).(uuid.UUID)
	return id, args.Error(1)
}

func (m *TokenRepository) GetUserIDByRefreshUUID(ctx context.Context, refreshUUID string) (uuid.UUID, error) {
	args := m.Called(ctx, refreshUUID)
	id, _ := args.Get(0).(uuid.UUID)
	return id, args.Error(1)
}

func (m *TokenRepository) DeleteTokens(ctx context.Context, userID uuid.UUID, accessUUID, refreshUUID string) (int64, error) {
	args := m.Called(ctx, userID, accessUUID, refreshUUID)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

type CreationLimiter struct {
	mock.Mock
}

func (m *CreationLimiter) Reserve(ctx context.Context, ownerID uuid.UUID) (string, error) {
	args := m.Called(ctx, ownerID)
	return args.String(0), args.Error(1)
}

func (m *CreationLimiter) Release(ctx context.Context, ownerID uuid.UUID, reservation string) error {
	return m.Called(ctx, ownerID, reservation).Error(0)
}
