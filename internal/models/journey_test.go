package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJourneyStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to JourneyStatus
		want     bool
	}{
		{StatusCreating, StatusReady, true},
		{StatusCreating, StatusError, true},
		{StatusCreating, StatusCompleted, false},
		{StatusReady, StatusCompleted, true},
		{StatusReady, StatusError, false},
		{StatusReady, StatusCreating, false},
		{StatusCompleted, StatusReady, false},
		{StatusCompleted, StatusError, false},
		{StatusError, StatusReady, false},
		{StatusError, StatusCreating, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestJourney_Transition(t *testing.T) {
	j := &Journey{Status: StatusCreating}

	changed, err := j.Transition(StatusReady)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusReady, j.Status)

	changed, err = j.Transition(StatusReady)
	require.NoError(t, err)
	assert.False(t, changed, "same state is a no-op")

	_, err = j.Transition(StatusError)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, StatusReady, j.Status)

	changed, err = j.Transition(StatusCompleted)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, j.Status.IsTerminal())
}

func TestParseJourneyStatus(t *testing.T) {
	st, err := ParseJourneyStatus("ready")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, st)

	_, err = ParseJourneyStatus("done")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestJourneyFilter_Normalize(t *testing.T) {
	assert.Equal(t, DefaultJourneyListLimit, JourneyFilter{}.Normalize().Limit)
	assert.Equal(t, MaxJourneyListLimit, JourneyFilter{Limit: 1000}.Normalize().Limit)
	assert.Equal(t, 5, JourneyFilter{Limit: 5}.Normalize().Limit)
}

func TestAllDaysCompleted(t *testing.T) {
	assert.False(t, AllDaysCompleted(0, 0), "a journey without days is never complete")
	assert.True(t, AllDaysCompleted(7, 7))
	assert.False(t, AllDaysCompleted(7, 6), "one new incomplete day keeps the journey open")
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0, ProgressPercent(3, 0))
	assert.Equal(t, 43, ProgressPercent(3, 7))
	assert.Equal(t, 100, ProgressPercent(7, 7))
	assert.Equal(t, 100, ProgressPercent(9, 7))
}
