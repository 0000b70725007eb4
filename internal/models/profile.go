package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimesOfDay are the accepted listening-time preferences.
var TimesOfDay = []string{"morning", "afternoon", "evening", "night"}

// Profile holds a user's listening preferences and onboarding answers.
type Profile struct {
	UserID                uuid.UUID      `db:"user_id" json:"user_id"`
	PreferenceTimeOfDay   *string        `db:"preference_time_of_day" json:"preference_time_of_day"`
	PreferenceDuration    *int           `db:"preference_duration" json:"preference_duration"`
	OnboardingCompleted   bool           `db:"onboarding_completed" json:"onboarding_completed"`
	OnboardingData        OnboardingData `db:"onboarding_data" json:"-"`
	OnboardingCompletedAt *time.Time     `db:"onboarding_completed_at" json:"onboarding_completed_at"`
	CreatedAt             time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at" json:"updated_at"`
}

// OnboardingData maps a question key to the raw JSON answer.
type OnboardingData map[string]json.RawMessage

// Text renders the answers one per line as "key: value", keys sorted, for embedding.
func (d OnboardingData) Text() string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteString(": ")
		var compact bytes.Buffer
		if err := json.Compact(&compact, d[k]); err != nil {
			b.Write(d[k])
			continue
		}
		b.Write(compact.Bytes())
	}
	return b.String()
}

// ContextDocument is one piece of user information stored for later retrieval.
type ContextDocument struct {
	ID       string
	Source   string
	Text     string
	StoredAt time.Time
}
