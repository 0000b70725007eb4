package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/service"
)

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Register(ctx context.Context, input service.RegisterInput) (*models.User, *models.TokenDetails, error) {
	args := m.Called(ctx, input)
	user, _ := args.Get(0).(*models.User)
	td, _ := args.Get(1).(*models.TokenDetails)
	return user, td, args.Error(2)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*models.User, *models.TokenDetails, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*models.User)
	td, _ := args.Get(1).(*models.TokenDetails)
	return user, td, args.Error(2)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenDetails, error) {
	args := m.Called(ctx, refreshToken)
	td, _ := args.Get(0).(*models.TokenDetails)
	return td, args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, claims *models.Claims, refreshToken string) error {
	return m.Called(ctx, claims, refreshToken).Error(0)
}

func (m *mockAuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockAuthService) VerifyAccessToken(ctx context.Context, token string) (*models.Claims, error) {
	args := m.Called(ctx, token)
	claims, _ := args.Get(0).(*models.Claims)
	return claims, args.Error(1)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID uuid.UUID, input service.ChangePasswordInput) error {
	return m.Called(ctx, userID, input).Error(0)
}

type mockJourneyService struct {
	mock.Mock
}

func (m *mockJourneyService) Create(ctx context.Context, ownerID uuid.UUID, input service.CreateJourneyInput) (*models.JourneyWithDays, error) {
	args := m.Called(ctx, ownerID, input)
	j, _ := args.Get(0).(*models.JourneyWithDays)
	return j, args.Error(1)
}

func (m *mockJourneyService) Get(ctx context.Context, journeyID, actorID uuid.UUID) (*models.JourneyWithDays, error) {
	args := m.Called(ctx, journeyID, actorID)
	j, _ := args.Get(0).(*models.JourneyWithDays)
	return j, args.Error(1)
}

func (m *mockJourneyService) List(ctx context.Context, ownerID uuid.UUID, filter models.JourneyFilter) ([]models.JourneySummary, error) {
	args := m.Called(ctx, ownerID, filter)
	list, _ := args.Get(0).([]models.JourneySummary)
	return list, args.Error(1)
}

func (m *mockJourneyService) Update(ctx context.Context, journeyID, actorID uuid.UUID, input service.UpdateJourneyInput) (*models.Journey, error) {
	args := m.Called(ctx, journeyID, actorID, input)
	j, _ := args.Get(0).(*models.Journey)
	return j, args.Error(1)
}

func (m *mockJourneyService) Delete(ctx context.Context, journeyID, actorID uuid.UUID) error {
	return m.Called(ctx, journeyID, actorID).Error(0)
}

func (m *mockJourneyService) ListDays(ctx context.Context, journeyID, actorID uuid.UUID) ([]models.JourneyDay, error) {
	args := m.Called(ctx, journeyID, actorID)
	days, _ := args.Get(0).([]models.JourneyDay)
	return days, args.Error(1)
}

func (m *mockJourneyService) GetDay(ctx context.Context, journeyID uuid.UUID, dayNumber int, actorID uuid.UUID) (*models.JourneyDay, error) {
	args := m.Called(ctx, journeyID, dayNumber, actorID)
	day, _ := args.Get(0).(*models.JourneyDay)
	return day, args.Error(1)
}

func (m *mockJourneyService) CompleteDay(ctx context.Context, journeyID uuid.UUID, dayNumber int, actorID uuid.UUID) (*models.DayCompletion, error) {
	args := m.Called(ctx, journeyID, dayNumber, actorID)
	res, _ := args.Get(0).(*models.DayCompletion)
	return res, args.Error(1)
}

type mockWebhookService struct {
	mock.Mock
}

func (m *mockWebhookService) Complete(ctx context.Context, provider string, payload service.CompletePayload) (*service.WebhookResult, error) {
	args := m.Called(ctx, provider, payload)
	res, _ := args.Get(0).(*service.WebhookResult)
	return res, args.Error(1)
}

func (m *mockWebhookService) Fail(ctx context.Context, provider string, payload service.ErrorPayload) (*service.WebhookResult, error) {
	args := m.Called(ctx, provider, payload)
	res, _ := args.Get(0).(*service.WebhookResult)
	return res, args.Error(1)
}

func (m *mockWebhookService) Progress(ctx context.Context, provider string, payload service.ProgressPayload) (*service.WebhookResult, error) {
	args := m.Called(ctx, provider, payload)
	res, _ := args.Get(0).(*service.WebhookResult)
	return res, args.Error(1)
}

func (m *mockWebhookService) AudioReady(ctx context.Context, provider string, payload service.AudioPayload) (*service.WebhookResult, error) {
	args := m.Called(ctx, provider, payload)
	res, _ := args.Get(0).(*service.WebhookResult)
	return res, args.Error(1)
}

type mockStatsService struct {
	service.StatsService
	mock.Mock
}

func (m *mockStatsService) GetStreak(ctx context.Context, userID uuid.UUID) (*models.StreakInfo, error) {
	args := m.Called(ctx, userID)
	info, _ := args.Get(0).(*models.StreakInfo)
	return info, args.Error(1)
}

func (m *mockStatsService) GetListeningHistory(ctx context.Context, userID uuid.UUID, days int) ([]service.DailyListening, error) {
	args := m.Called(ctx, userID, days)
	history, _ := args.Get(0).([]service.DailyListening)
	return history, args.Error(1)
}

type mockProfileService struct {
	mock.Mock
}

func (m *mockProfileService) Get(ctx context.Context, userID uuid.UUID) (*service.ProfileView, error) {
	args := m.Called(ctx, userID)
	view, _ := args.Get(0).(*service.ProfileView)
	return view, args.Error(1)
}

func (m *mockProfileService) Update(ctx context.Context, userID uuid.UUID, input service.UpdateProfileInput) (*service.ProfileView, error) {
	args := m.Called(ctx, userID, input)
	view, _ := args.Get(0).(*service.ProfileView)
	return view, args.Error(1)
}

func (m *mockProfileService) CompleteOnboarding(ctx context.Context, userID uuid.UUID, input service.OnboardingInput) (*service.ProfileView, error) {
	args := m.Called(ctx, userID, input)
	view, _ := args.Get(0).(*service.ProfileView)
	return view, args.Error(1)
}

func (m *mockProfileService) GetOnboarding(ctx context.Context, userID uuid.UUID) (*service.OnboardingView, error) {
	args := m.Called(ctx, userID)
	view, _ := args.Get(0).(*service.OnboardingView)
	return view, args.Error(1)
}
