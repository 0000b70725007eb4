package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/service"
)

const (
	validToken    = "valid-access-token"
	webhookSecret = "hook-secret"
)

type testEnv struct {
	router   *gin.Engine
	auth     *mockAuthService
	journeys *mockJourneyService
	webhooks *mockWebhookService
	stats    *mockStatsService
	profiles *mockProfileService
	userID   uuid.UUID
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := &testEnv{
		router:   gin.New(),
		auth:     new(mockAuthService),
		journeys: new(mockJourneyService),
		webhooks: new(mockWebhookService),
		stats:    new(mockStatsService),
		profiles: new(mockProfileService),
		userID:   uuid.New(),
	}
	if cfg.WebhookProviders == nil {
		cfg.WebhookProviders = []string{"n8n"}
	}
	env.auth.On("VerifyAccessToken", mock.Anything, validToken).Return(&models.Claims{
		UserID:           env.userID,
		TokenType:        models.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{ID: "access-1"},
	}, nil).Maybe()
	env.auth.On("VerifyAccessToken", mock.Anything, mock.Anything).Return(nil, models.ErrTokenInvalid).Maybe()

	h := NewHandler(env.auth, env.journeys, env.webhooks, env.stats, env.profiles, cfg, zap.NewNop())
	h.RegisterRoutes(env.router, nil)
	return env
}

func (e *testEnv) do(method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Detail  string          `json:"detail"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestAuthMiddleware_RejectsMissingAndInvalidTokens(t *testing.T) {
	env := newTestEnv(t, Config{})

	w := env.do(http.MethodGet, "/journeys", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, decode(t, w).Success)

	w = env.do(http.MethodGet, "/journeys", "Bearer nope", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env.journeys.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t, Config{})
	user := &models.User{ID: uuid.New(), Email: "ada@example.com", Name: "Ada"}
	env.auth.On("Register", mock.Anything, service.RegisterInput{Email: "ada@example.com", Password: "longenough", Name: "Ada"}).
		Return(user, &models.TokenDetails{AccessToken: "at", RefreshToken: "rt", AtExpires: 10}, nil)

	w := env.do(http.MethodPost, "/auth/register", "", map[string]string{"email": "ada@example.com", "password": "longenough", "name": "Ada"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, "at", data.Token)
	assert.Equal(t, user.ID, data.User.ID)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.auth.On("Register", mock.Anything, mock.Anything).Return(nil, nil, models.ErrEmailAlreadyExists)

	w := env.do(http.MethodPost, "/auth/register", "", map[string]string{"email": "ada@example.com", "password": "longenough", "name": "Ada"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateJourney(t *testing.T) {
	env := newTestEnv(t, Config{})
	journey := &models.JourneyWithDays{Journey: models.Journey{ID: uuid.New(), UserID: env.userID, Status: models.StatusCreating}}
	env.journeys.On("Create", mock.Anything, env.userID, mock.MatchedBy(func(in service.CreateJourneyInput) bool {
		return in.Goal == "g" && in.Duration == 20
	})).Return(journey, nil)

	w := env.do(http.MethodPost, "/journeys", "Bearer "+validToken, map[string]interface{}{"goal": "g", "intention": "i", "duration": 20})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Body.String(), `"status":"creating"`)
}

func TestCreateJourney_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewValidationError("goal must be at least 100 characters"), http.StatusBadRequest},
		{models.ErrRateLimited, http.StatusTooManyRequests},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.want), func(t *testing.T) {
			env := newTestEnv(t, Config{})
			env.journeys.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)
			w := env.do(http.MethodPost, "/journeys", "Bearer "+validToken, map[string]string{"goal": "g"})
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestInternalErrorDetail(t *testing.T) {
	for _, production := range []bool{false, true} {
		env := newTestEnv(t, Config{Production: production})
		env.journeys.On("List", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("pool exhausted"))

		w := env.do(http.MethodGet, "/journeys", "Bearer "+validToken, nil)
		require.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.NotContains(t, body.Error, "pool exhausted")
		if production {
			assert.Empty(t, body.Detail)
		} else {
			assert.Equal(t, "pool exhausted", body.Detail)
		}
	}
}

func TestGetJourney(t *testing.T) {
	env := newTestEnv(t, Config{})
	id := uuid.New()
	other := uuid.New()
	env.journeys.On("Get", mock.Anything, id, env.userID).Return(&models.JourneyWithDays{Journey: models.Journey{ID: id, Status: models.StatusReady}}, nil)
	env.journeys.On("Get", mock.Anything, other, env.userID).Return(nil, models.ErrForbidden)

	w := env.do(http.MethodGet, "/journeys/"+id.String(), "Bearer "+validToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"days":[]`)

	w = env.do(http.MethodGet, "/journeys/"+other.String(), "Bearer "+validToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodGet, "/journeys/not-a-uuid", "Bearer "+validToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListJourneys_StatusFilter(t *testing.T) {
	env := newTestEnv(t, Config{})
	ready := models.StatusReady
	env.journeys.On("List", mock.Anything, env.userID, models.JourneyFilter{Status: &ready, Limit: 5}).Return(nil, nil)

	w := env.do(http.MethodGet, "/journeys?status=ready&limit=5", "Bearer "+validToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"journeys":[]`)

	w = env.do(http.MethodGet, "/journeys?status=archived", "Bearer "+validToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompleteDay(t *testing.T) {
	env := newTestEnv(t, Config{})
	id := uuid.New()
	env.journeys.On("CompleteDay", mock.Anything, id, 3, env.userID).Return(&models.DayCompletion{
		Day:              models.JourneyDay{DayNumber: 3, Completed: true},
		AlreadyCompleted: true,
		JourneyStatus:    models.StatusReady,
	}, nil)

	w := env.do(http.MethodPost, "/journeys/"+id.String()+"/days/3/complete", "Bearer "+validToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Day already completed", body.Message)

	w = env.do(http.MethodPost, "/journeys/"+id.String()+"/days/three/complete", "Bearer "+validToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookAuth(t *testing.T) {
	env := newTestEnv(t, Config{WebhookSecret: webhookSecret})
	journeyID := uuid.New()
	env.webhooks.On("Complete", mock.Anything, "n8n", mock.Anything).
		Return(&service.WebhookResult{JourneyID: journeyID, Status: models.StatusReady, DaysProcessed: 7}, nil)
	body := map[string]interface{}{"journeyId": journeyID, "status": "ready"}

	tests := []struct {
		name string
		path string
		auth string
		want int
	}{
		{"bearer secret", "/webhooks/n8n/journey-complete", "Bearer " + webhookSecret, http.StatusOK},
		{"bare secret", "/webhooks/n8n/journey-complete", webhookSecret, http.StatusOK},
		{"wrong secret", "/webhooks/n8n/journey-complete", "Bearer nope", http.StatusUnauthorized},
		{"no secret", "/webhooks/n8n/journey-complete", "", http.StatusUnauthorized},
		{"unknown provider", "/webhooks/zapier/journey-complete", "Bearer " + webhookSecret, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, tt.path, tt.auth, body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
	env.webhooks.AssertNumberOfCalls(t, "Complete", 2)
}

func TestWebhookAuth_UnauthorizedBeforeBodyParsing(t *testing.T) {
	env := newTestEnv(t, Config{WebhookSecret: webhookSecret})
	w := env.do(http.MethodPost, "/webhooks/n8n/journey-complete", "Bearer nope", "{not json")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookAuth_SecretNotConfigured(t *testing.T) {
	env := newTestEnv(t, Config{})
	w := env.do(http.MethodPost, "/webhooks/n8n/journey-error", "Bearer anything", map[string]string{})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhookComplete_Response(t *testing.T) {
	env := newTestEnv(t, Config{WebhookSecret: webhookSecret})
	journeyID := uuid.New()
	env.webhooks.On("Complete", mock.Anything, "n8n", mock.MatchedBy(func(p service.CompletePayload) bool {
		return p.JourneyID == journeyID && len(p.Days) == 1 && p.Days[0].ScriptText == "breathe"
	})).Return(&service.WebhookResult{JourneyID: journeyID, Status: models.StatusReady, DaysProcessed: 1}, nil)

	w := env.do(http.MethodPost, "/webhooks/n8n/journey-complete", "Bearer "+webhookSecret, map[string]interface{}{
		"journeyId": journeyID,
		"days":      []map[string]interface{}{{"dayNumber": 1, "scriptText": "breathe"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Journey completion processed", body.Message)
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.Equal(t, journeyID.String(), result["journeyId"])
	assert.Equal(t, "ready", result["status"])
	assert.EqualValues(t, 1, result["daysProcessed"])
}

func TestWebhookError_ConflictAndMalformedBody(t *testing.T) {
	env := newTestEnv(t, Config{WebhookSecret: webhookSecret})
	env.webhooks.On("Fail", mock.Anything, "n8n", mock.Anything).Return(nil, models.ErrJourneyTerminal)

	w := env.do(http.MethodPost, "/webhooks/n8n/journey-error", "Bearer "+webhookSecret, map[string]interface{}{"journeyId": uuid.New(), "error": "x"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodPost, "/webhooks/n8n/journey-error", "Bearer "+webhookSecret, "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsHistory(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.stats.On("GetListeningHistory", mock.Anything, env.userID, 7).Return([]service.DailyListening{{Date: "2026-01-01", Sessions: 1, Minutes: 15}}, nil)

	w := env.do(http.MethodGet, "/stats/history?days=7", "Bearer "+validToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"date":"2026-01-01"`)

	w = env.do(http.MethodGet, "/stats/history?days=-1", "Bearer "+validToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsStreak(t *testing.T) {
	env := newTestEnv(t, Config{})
	left := 2
	last := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	env.stats.On("GetStreak", mock.Anything, env.userID).
		Return(&models.StreakInfo{CurrentStreak: 3, LongestStreak: 5, LastSessionDate: &last, StreakActive: true, DaysUntilBreak: &left}, nil)

	w := env.do(http.MethodGet, "/stats/streak", "Bearer "+validToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"days_until_break":2`)
}
