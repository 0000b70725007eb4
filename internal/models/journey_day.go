package models

import (
	"time"

	"github.com/google/uuid"
)

// JourneyDay is one unit of content within a journey. Completion is append-only.
type JourneyDay struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	JourneyID       uuid.UUID  `db:"journey_id" json:"journey_id"`
	DayNumber       int        `db:"day_number" json:"day_number"`
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	ScriptText      string     `db:"script_text" json:"script_text"`
	AudioURL        string     `db:"audio_url" json:"audio_url"`
	DurationSeconds int        `db:"duration_seconds" json:"duration_seconds"`
	Completed       bool       `db:"completed" json:"completed"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// JourneyDayContent is the generated part of a day, written by the generator callback.
type JourneyDayContent struct {
	DayNumber       int
	Title           string
	Description     string
	ScriptText      string
	AudioURL        string
	DurationSeconds int
}

// DayCompletion is the outcome of marking a day complete.
type DayCompletion struct {
	Day              JourneyDay    `json:"day"`
	AlreadyCompleted bool          `json:"already_completed"`
	JourneyStatus    JourneyStatus `json:"journey_status"`
	JourneyCompleted bool          `json:"journey_completed"`
	UserID           uuid.UUID     `json:"-"`
}

// ValidDayNumber reports whether n is within 1..JourneyDaysCount.
func ValidDayNumber(n int) bool {
	return n >= 1 && n <= JourneyDaysCount
}

// AllDaysCompleted is true only for a non-empty set of days that are all completed.
func AllDaysCompleted(total, completed int) bool {
	return total > 0 && completed == total
}

// ListeningSession is a completed day as seen by the stats reports.
type ListeningSession struct {
	CompletedAt     time.Time `db:"completed_at"`
	DurationSeconds int       `db:"duration_seconds"`
}
