package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/service"
)

func TestProfileEndpoints_RequireAuth(t *testing.T) {
	env := newTestEnv(t, Config{})
	for _, path := range []string{"/profile", "/profile/onboarding"} {
		w := env.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := env.do(http.MethodPost, "/auth/change-password", "", map[string]string{"currentPassword": "a", "newPassword": "b"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env.profiles.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestGetProfile(t *testing.T) {
	env := newTestEnv(t, Config{})
	duration := 20
	env.profiles.On("Get", mock.Anything, env.userID).Return(&service.ProfileView{
		User:    &models.User{ID: env.userID, Name: "Ada"},
		Profile: &models.Profile{UserID: env.userID, PreferenceDuration: &duration},
	}, nil)

	w := env.do(http.MethodGet, "/profile", "Bearer "+validToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var view struct {
		User    models.User `json:"user"`
		Profile struct {
			PreferenceDuration int `json:"preference_duration"`
		} `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &view))
	assert.Equal(t, "Ada", view.User.Name)
	assert.Equal(t, 20, view.Profile.PreferenceDuration)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.profiles.On("Update", mock.Anything, env.userID, mock.MatchedBy(func(in service.UpdateProfileInput) bool {
		return in.Name == nil && *in.PreferenceTimeOfDay == "morning" && *in.PreferenceDuration == 10
	})).Return(&service.ProfileView{Profile: &models.Profile{UserID: env.userID}}, nil).Once()

	w := env.do(http.MethodPut, "/profile", "Bearer "+validToken, map[string]interface{}{
		"preference_time_of_day": "morning",
		"preference_duration":    10,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Profile updated successfully", decode(t, w).Message)
	env.profiles.AssertExpectations(t)
}

func TestUpdateProfile_ValidationError(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.profiles.On("Update", mock.Anything, env.userID, mock.Anything).
		Return(nil, models.NewValidationError("preference_duration must be one of 5 10 15 20 30"))

	w := env.do(http.MethodPut, "/profile", "Bearer "+validToken, map[string]interface{}{"preference_duration": 12})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error, "preference_duration")
}

func TestCompleteOnboarding(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.profiles.On("CompleteOnboarding", mock.Anything, env.userID, mock.MatchedBy(func(in service.OnboardingInput) bool {
		return string(in.Responses["goal"]) == `"sleep better"` && len(in.Responses) == 2
	})).Return(&service.ProfileView{Profile: &models.Profile{UserID: env.userID, OnboardingCompleted: true}}, nil).Once()

	w := env.do(http.MethodPost, "/profile/onboarding", "Bearer "+validToken,
		`{"responses":{"goal":"sleep better","stress":{"level":7}}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Onboarding completed successfully", decode(t, w).Message)
	env.profiles.AssertExpectations(t)
}

func TestCompleteOnboarding_MalformedBody(t *testing.T) {
	env := newTestEnv(t, Config{})
	w := env.do(http.MethodPost, "/profile/onboarding", "Bearer "+validToken, `{"responses":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env.profiles.AssertNotCalled(t, "CompleteOnboarding", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetOnboarding(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.profiles.On("GetOnboarding", mock.Anything, env.userID).Return(&service.OnboardingView{
		Responses: models.OnboardingData{"goal": json.RawMessage(`"focus"`)},
	}, nil)

	w := env.do(http.MethodGet, "/profile/onboarding", "Bearer "+validToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view struct {
		Completed bool              `json:"onboarding_completed"`
		Responses map[string]string `json:"responses"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &view))
	assert.False(t, view.Completed)
	assert.Equal(t, "focus", view.Responses["goal"])
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t, Config{})
	input := service.ChangePasswordInput{CurrentPassword: "correct horse", NewPassword: "battery staple"}
	env.auth.On("ChangePassword", mock.Anything, env.userID, input).Return(nil).Once()

	w := env.do(http.MethodPost, "/auth/change-password", "Bearer "+validToken, input)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Password changed successfully", decode(t, w).Message)
	env.auth.AssertExpectations(t)
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.auth.On("ChangePassword", mock.Anything, env.userID, mock.Anything).Return(models.ErrInvalidCredentials)

	w := env.do(http.MethodPost, "/auth/change-password", "Bearer "+validToken,
		map[string]string{"currentPassword": "wrong", "newPassword": "battery staple"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
