package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces/mocks"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/messaging"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEmail(ctx context.Context, payload messaging.EmailNotificationPayload) error {
	return m.Called(ctx, payload).Error(0)
}

func testJourney() *models.Journey {
	return &models.Journey{ID: uuid.New(), UserID: uuid.New(), Goal: "Sleep through the night", Status: models.StatusReady}
}

func TestEmailNotifier_JourneyReady(t *testing.T) {
	ctx := context.Background()
	journey := testJourney()
	users := new(mocks.UserRepository)
	pub := new(mockPublisher)

	users.On("GetByID", ctx, journey.UserID).Return(&models.User{ID: journey.UserID, Email: "sam@example.com", Name: "Sam"}, nil).Once()
	pub.On("PublishEmail", ctx, mock.MatchedBy(func(p messaging.EmailNotificationPayload) bool {
		return p.Kind == messaging.EmailKindJourneyReady &&
			p.To == "sam@example.com" &&
			p.JourneyID == journey.ID &&
			p.Link == "https://app.example.com/journeys/"+journey.ID.String()
	})).Return(nil).Once()

	n := NewEmailNotifier(users, pub, "admin@example.com", "https://app.example.com/", zap.NewNop())
	require.NoError(t, n.JourneyReady(ctx, journey))
	users.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestEmailNotifier_JourneyReady_OwnerMissing(t *testing.T) {
	ctx := context.Background()
	journey := testJourney()
	users := new(mocks.UserRepository)
	pub := new(mockPublisher)
	users.On("GetByID", ctx, journey.UserID).Return(nil, models.NotFound("user")).Once()

	n := NewEmailNotifier(users, pub, "", "", zap.NewNop())
	err := n.JourneyReady(ctx, journey)
	assert.ErrorIs(t, err, models.ErrNotFound)
	pub.AssertNotCalled(t, "PublishEmail", mock.Anything, mock.Anything)
}

func TestEmailNotifier_JourneyFailed(t *testing.T) {
	ctx := context.Background()
	journey := testJourney()
	journey.Status = models.StatusError
	journey.Metadata.Failure = &models.GenerationFailure{Message: "tts quota", Details: json.RawMessage(`{"step":"audio"}`)}

	users := new(mocks.UserRepository)
	pub := new(mockPublisher)
	users.On("GetByID", ctx, journey.UserID).Return(nil, errors.New("db down")).Once()
	pub.On("PublishEmail", ctx, mock.MatchedBy(func(p messaging.EmailNotificationPayload) bool {
		return p.Kind == messaging.EmailKindJourneyFailed &&
			p.To == "admin@example.com" &&
			p.ErrorMessage == "tts quota" &&
			string(p.ErrorDetails) == `{"step":"audio"}`
	})).Return(nil).Once()

	n := NewEmailNotifier(users, pub, "admin@example.com", "", zap.NewNop())
	require.NoError(t, n.JourneyFailed(ctx, journey))
	pub.AssertExpectations(t)
}

func TestEmailNotifier_JourneyFailed_NoAdmin(t *testing.T) {
	pub := new(mockPublisher)
	n := NewEmailNotifier(new(mocks.UserRepository), pub, " ", "", zap.NewNop())
	require.NoError(t, n.JourneyFailed(context.Background(), testJourney()))
	pub.AssertNotCalled(t, "PublishEmail", mock.Anything, mock.Anything)
}
