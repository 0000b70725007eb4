package notification

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/messaging"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

var _ interfaces.Notifier = (*EmailNotifier)(nil)

// EmailNotifier turns journey transitions into e-mail requests on the queue.
// Ready mails go to the owner, failure mails to the admin address.
type EmailNotifier struct {
	users      interfaces.UserRepository
	publisher  messaging.EmailPublisher
	adminEmail string
	appBaseURL string
	logger     *zap.Logger
}

func NewEmailNotifier(users interfaces.UserRepository, publisher messaging.EmailPublisher, adminEmail, appBaseURL string, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{
		users:      users,
		publisher:  publisher,
		adminEmail: strings.TrimSpace(adminEmail),
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		logger:     logger.Named("EmailNotifier"),
	}
}

func (n *EmailNotifier) JourneyReady(ctx context.Context, journey *models.Journey) error {
	user, err := n.users.GetByID(ctx, journey.UserID)
	if err != nil {
		return fmt.Errorf("failed to load journey owner %s: %w", journey.UserID, err)
	}
	return n.publisher.PublishEmail(ctx, messaging.EmailNotificationPayload{
		Kind:      messaging.EmailKindJourneyReady,
		To:        user.Email,
		Name:      user.Name,
		JourneyID: journey.ID,
		UserID:    journey.UserID,
		Goal:      journey.Goal,
		Link:      n.journeyLink(journey),
	})
}

func (n *EmailNotifier) JourneyFailed(ctx context.Context, journey *models.Journey) error {
	if n.adminEmail == "" {
		n.logger.Warn("Admin e-mail not configured, skipping failure notification", zap.String("journeyID", journey.ID.String()))
		return nil
	}
	payload := messaging.EmailNotificationPayload{
		Kind:      messaging.EmailKindJourneyFailed,
		To:        n.adminEmail,
		JourneyID: journey.ID,
		UserID:    journey.UserID,
		Goal:      journey.Goal,
		Link:      n.journeyLink(journey),
	}
	if f := journey.Metadata.Failure; f != nil {
		payload.ErrorMessage = f.Message
		payload.ErrorDetails = f.Details
	}
	if user, err := n.users.GetByID(ctx, journey.UserID); err == nil {
		payload.Name = user.Name
	} else {
		n.logger.Warn("Failed to load journey owner for failure notification", zap.String("journeyID", journey.ID.String()), zap.Error(err))
	}
	return n.publisher.PublishEmail(ctx, payload)
}

func (n *EmailNotifier) journeyLink(journey *models.Journey) string {
	return fmt.Sprintf("%s/journeys/%s", n.appBaseURL, journey.ID)
}
