package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry{Attempts: 5, Delay: time.Millisecond}.do(context.Background(), zap.NewNop(), "test", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not ready")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_GivesUp(t *testing.T) {
	calls := 0
	boom := errors.New("refused")
	err := Retry{Attempts: 3, Delay: time.Millisecond}.do(context.Background(), zap.NewNop(), "test", func(context.Context) error {
		calls++
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetry_ZeroAttemptsTriesOnce(t *testing.T) {
	calls := 0
	err := Retry{}.do(context.Background(), zap.NewNop(), "test", func(context.Context) error {
		calls++
		return errors.New("down")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry{Attempts: 10, Delay: time.Hour}.do(ctx, zap.NewNop(), "test", func(context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestConnectPostgres_InvalidDSN(t *testing.T) {
	_, err := ConnectPostgres(context.Background(), PostgresConfig{DSN: "postgres://%zz"}, Retry{Attempts: 1}, zap.NewNop())
	require.Error(t, err)
}
