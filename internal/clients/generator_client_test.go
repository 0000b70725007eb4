package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

func sampleTrigger() models.GenerationTrigger {
	return models.GenerationTrigger{
		JourneyID:   uuid.New(),
		UserID:      uuid.New(),
		Goal:        "sleep better",
		Intention:   "calm evenings",
		Duration:    15,
		UserProfile: &models.UserProfile{Name: "Sam", Email: "sam@example.com"},
		CallbackURL: "http://api.local/webhooks/n8n",
	}
}

func TestTriggerJourney_PostsPayload(t *testing.T) {
	trigger := sampleTrigger()
	var received map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/journey-create", r.URL.Path)
		assert.Equal(t, "Bearer gen-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewGeneratorClient(srv.URL+"/", "gen-key", time.Second, zap.NewNop())
	require.NoError(t, client.TriggerJourney(context.Background(), trigger))

	assert.Equal(t, trigger.JourneyID.String(), received["journeyId"])
	assert.Equal(t, trigger.UserID.String(), received["userId"])
	assert.Equal(t, float64(15), received["duration"])
	assert.Equal(t, []interface{}{}, received["userContext"])
	profile, ok := received["userProfile"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "sam@example.com", profile["email"])
}

func TestTriggerJourney_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("workflow offline"))
	}))
	defer srv.Close()

	client := NewGeneratorClient(srv.URL, "", time.Second, zap.NewNop())
	err := client.TriggerJourney(context.Background(), sampleTrigger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "workflow offline")
}

func TestTriggerJourney_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewGeneratorClient(srv.URL, "", 20*time.Millisecond, zap.NewNop())
	assert.Error(t, client.TriggerJourney(context.Background(), sampleTrigger()))
}

func TestTriggerJourney_StubMode(t *testing.T) {
	client := NewGeneratorClient("", "", 0, zap.NewNop())
	assert.NoError(t, client.TriggerJourney(context.Background(), sampleTrigger()))
}
