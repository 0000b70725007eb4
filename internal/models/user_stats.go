package models

import (
	"time"

	"github.com/google/uuid"
)

// UserStats is the per-user listening aggregate. Counters never decrease and
// LongestStreak is never below CurrentStreak.
type UserStats struct {
	UserID               uuid.UUID  `db:"user_id" json:"user_id"`
	CurrentStreak        int        `db:"current_streak" json:"current_streak"`
	LongestStreak        int        `db:"longest_streak" json:"longest_streak"`
	TotalMinutesListened int        `db:"total_minutes_listened" json:"total_minutes_listened"`
	TotalSessions        int        `db:"total_sessions" json:"total_sessions"`
	LastSessionDate      *time.Time `db:"last_session_date" json:"last_session_date"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// CalendarDate returns midnight UTC of t's calendar date in loc. Dates are
// compared in this form so that day differences are exact multiples of 24h.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// ApplySession returns the stats after one listening session on calendar day `today`
// (as produced by CalendarDate):
//   - same day as the last session: streak unchanged
//   - the day after: streak + 1
//   - any larger gap, or no previous session: streak restarts at 1
func (s UserStats) ApplySession(today time.Time, durationSeconds int) UserStats {
	next := s
	switch {
	case s.LastSessionDate == nil:
		next.CurrentStreak = 1
	default:
		gap := daysBetween(*s.LastSessionDate, today)
		switch {
		case gap <= 0:
			if next.CurrentStreak == 0 {
				next.CurrentStreak = 1
			}
		case gap == 1:
			next.CurrentStreak++
		default:
			next.CurrentStreak = 1
		}
	}
	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	if durationSeconds > 0 {
		next.TotalMinutesListened += durationSeconds / 60
	}
	next.TotalSessions++

	if s.LastSessionDate == nil || daysBetween(*s.LastSessionDate, today) > 0 {
		d := today
		next.LastSessionDate = &d
	}
	return next
}

// StreakInfo is the streak view with the derived break horizon.
type StreakInfo struct {
	CurrentStreak   int        `json:"current_streak"`
	LongestStreak   int        `json:"longest_streak"`
	LastSessionDate *time.Time `json:"last_session_date"`
	StreakActive    bool       `json:"streak_active"`
	DaysUntilBreak  *int       `json:"days_until_break"`
}

// StreakInfoAt derives StreakInfo for calendar day `today`. A streak survives
// until the end of the day after the last session, so DaysUntilBreak is 2 right
// after a session, 1 the next day and 0 once broken.
func (s UserStats) StreakInfoAt(today time.Time) StreakInfo {
	info := StreakInfo{
		CurrentStreak:   s.CurrentStreak,
		LongestStreak:   s.LongestStreak,
		LastSessionDate: s.LastSessionDate,
	}
	if s.LastSessionDate == nil {
		return info
	}
	gap := daysBetween(*s.LastSessionDate, today)
	left := 2 - gap
	if left < 0 {
		left = 0
	}
	if left > 2 {
		left = 2
	}
	info.DaysUntilBreak = &left
	info.StreakActive = gap <= 1
	if !info.StreakActive {
		info.CurrentStreak = 0
	}
	return info
}
