package models

import (
	"encoding/json"
	"math"
	"time"
)

// JourneyMetadata is persisted as JSONB. Each section has exactly one producer:
// Request is written at creation, Progress, Generation and Failure by the generator callbacks.
type JourneyMetadata struct {
	Request    *GenerationRequest  `json:"request,omitempty"`
	Progress   *GenerationProgress `json:"progress,omitempty"`
	Generation *GenerationResult   `json:"generation,omitempty"`
	Failure    *GenerationFailure  `json:"failure,omitempty"`
}

type GenerationRequest struct {
	DurationMinutes int               `json:"duration_minutes"`
	Preferences     map[string]string `json:"preferences,omitempty"`
}

type GenerationProgress struct {
	CurrentDay int       `json:"current_day"`
	TotalDays  int       `json:"total_days"`
	Percent    int       `json:"percent"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type GenerationResult struct {
	Provider     string          `json:"provider"`
	CompletedAt  time.Time       `json:"completed_at"`
	DaysReceived int             `json:"days_received"`
	Extra        json.RawMessage `json:"extra,omitempty"`
}

type GenerationFailure struct {
	Provider string          `json:"provider"`
	Message  string          `json:"message"`
	Details  json.RawMessage `json:"details,omitempty"`
	FailedAt time.Time       `json:"failed_at"`
}

// ProgressPercent rounds current/total to a whole percentage in [0, 100].
func ProgressPercent(current, total int) int {
	if total <= 0 || current <= 0 {
		return 0
	}
	p := int(math.Round(float64(current) / float64(total) * 100))
	if p > 100 {
		return 100
	}
	return p
}
