package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

func TestNewLimiter(t *testing.T) {
	assert.Equal(t, 5, NewLimiter(10, 5).defaultBurst)
	assert.Equal(t, 1, NewLimiter(10, -1).defaultBurst)
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	ctx := shortContext(t)

	for i := 0; i < 100; i++ {
		require.NoError(t, limiter.Wait(ctx, "bucket"))
	}
}

func TestLimiter_PerKey(t *testing.T) {
	limiter := NewLimiter(0.1, 1)

	require.NoError(t, limiter.Wait(shortContext(t), "reports"))
	assert.Error(t, limiter.Wait(shortContext(t), "reports"), "burst of 1 is exhausted")
	assert.NoError(t, limiter.Wait(shortContext(t), "other"), "keys are independent")
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	require.NoError(t, limiter.Wait(context.Background(), "k"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, limiter.Wait(ctx, "k"))
}
