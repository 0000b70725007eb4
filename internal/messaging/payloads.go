package messaging

import (
	"encoding/json"

	"github.com/google/uuid"
)

// DefaultEmailQueue is the durable queue carrying notification e-mails.
const DefaultEmailQueue = "email_notifications"

// EmailKind selects the template rendered by the worker.
type EmailKind string

const (
	EmailKindJourneyReady  EmailKind = "journey_ready"
	EmailKindJourneyFailed EmailKind = "journey_failed"
)

// EmailNotificationPayload is the message published for every notification e-mail.
type EmailNotificationPayload struct {
	ID           uuid.UUID       `json:"id"`
	Kind         EmailKind       `json:"kind"`
	To           string          `json:"to"`
	Name         string          `json:"name,omitempty"`
	JourneyID    uuid.UUID       `json:"journey_id"`
	UserID       uuid.UUID       `json:"user_id"`
	Goal         string          `json:"goal,omitempty"`
	Link         string          `json:"link,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ErrorDetails json.RawMessage `json:"error_details,omitempty"`
}
