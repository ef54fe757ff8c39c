package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthTracker(t *testing.T) {
	var pingErr error
	tracker := NewHealthTracker("remote", pingFunc(func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return pingErr
	}), time.Second)

	status := tracker.Status()
	assert.Equal(t, "remote", status.Mode)
	assert.False(t, status.Healthy)
	assert.Nil(t, status.LastCheckedAt)

	require.NoError(t, tracker.Check(context.Background()))
	status = tracker.Status()
	assert.True(t, status.Healthy)
	assert.NotNil(t, status.LastCheckedAt)
	assert.Nil(t, status.LastError)

	pingErr = errors.New("dial tcp: connection refused")
	assert.Error(t, tracker.Check(context.Background()))
	status = tracker.Status()
	assert.False(t, status.Healthy)
	require.NotNil(t, status.LastError)
	assert.Equal(t, "dial tcp: connection refused", *status.LastError)
}
