package models

import "github.com/google/uuid"

// ContextSnippet is a piece of stored user context relevant to a journey request.
type ContextSnippet struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Score  float32 `json:"score"`
	Source string  `json:"source,omitempty"`
}

// UserProfile is the owner information forwarded to the generator.
type UserProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GenerationTrigger is the body sent to the external generator to start a journey.
type GenerationTrigger struct {
	JourneyID   uuid.UUID         `json:"journeyId"`
	UserID      uuid.UUID         `json:"userId"`
	Goal        string            `json:"goal"`
	Intention   string            `json:"intention"`
	Duration    int               `json:"duration"`
	Preferences map[string]string `json:"preferences,omitempty"`
	UserProfile *UserProfile      `json:"userProfile,omitempty"`
	UserContext []ContextSnippet  `json:"userContext"`
	CallbackURL string            `json:"callbackUrl,omitempty"`
}
