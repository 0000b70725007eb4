package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	GoalMinLength = 100
	GoalMaxLength = 500

	JourneyDaysCount          = 7
	DefaultDurationMinutes    = 15
	DefaultDayDurationSeconds = 900

	DefaultJourneyListLimit = 20
	MaxJourneyListLimit     = 100
)

// DurationOptions are the session lengths (minutes) a journey can be generated for.
var DurationOptions = []int{5, 10, 15, 20, 30}

// JourneyStatus is the generation lifecycle of a journey.
type JourneyStatus string

const (
	StatusCreating  JourneyStatus = "creating"
	StatusReady     JourneyStatus = "ready"
	StatusCompleted JourneyStatus = "completed"
	StatusError     JourneyStatus = "error"
)

var journeyTransitions = map[JourneyStatus][]JourneyStatus{
	StatusCreating: {StatusReady, StatusError},
	StatusReady:    {StatusCompleted},
}

// ParseJourneyStatus validates a status coming from outside the process.
func ParseJourneyStatus(s string) (JourneyStatus, error) {
	st := JourneyStatus(s)
	if !st.Valid() {
		return "", NewValidationError("unknown journey status %q", s)
	}
	return st, nil
}

func (s JourneyStatus) Valid() bool {
	switch s {
	case StatusCreating, StatusReady, StatusCompleted, StatusError:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition can leave s.
func (s JourneyStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanTransitionTo reports whether s -> next is a forward move of the state machine.
// Staying in the same state is not a transition.
func (s JourneyStatus) CanTransitionTo(next JourneyStatus) bool {
	for _, allowed := range journeyTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Journey is a 7-day generated content plan owned by one user.
type Journey struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Goal      string          `db:"goal" json:"goal"`
	Intention string          `db:"intention" json:"intention"`
	Status    JourneyStatus   `db:"status" json:"status"`
	Metadata  JourneyMetadata `db:"metadata" json:"metadata"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Transition moves the journey to next. It returns false when j is already in next.
func (j *Journey) Transition(next JourneyStatus) (bool, error) {
	if j.Status == next {
		return false, nil
	}
	if !j.Status.CanTransitionTo(next) {
		return false, fmt.Errorf("%w: cannot move journey from %s to %s", ErrConflict, j.Status, next)
	}
	j.Status = next
	return true, nil
}

// JourneyWithDays is the polling view of a journey.
type JourneyWithDays struct {
	Journey
	Days []JourneyDay `json:"days"`
}

// JourneySummary is a list entry with day progress counters.
type JourneySummary struct {
	Journey
	DaysTotal     int `db:"days_total" json:"days_total"`
	DaysCompleted int `db:"days_completed" json:"days_completed"`
}

// JourneyFilter narrows ListByOwner.
type JourneyFilter struct {
	Status *JourneyStatus
	Limit  int
}

// Normalize clamps Limit into [1, MaxJourneyListLimit].
func (f JourneyFilter) Normalize() JourneyFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultJourneyListLimit
	}
	if f.Limit > MaxJourneyListLimit {
		f.Limit = MaxJourneyListLimit
	}
	return f
}

// JourneyStatusCounts aggregates an owner's journeys for stats.
type JourneyStatusCounts struct {
	Total              int `db:"total"`
	Creating           int `db:"creating"`
	Ready              int `db:"ready"`
	Completed          int `db:"completed"`
	Failed             int `db:"failed"`
	InProgress         int `db:"in_progress"`
	TotalDaysCompleted int `db:"total_days_completed"`
}
