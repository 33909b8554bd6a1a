package lookup

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastRetry(attempts int) retryConfig {
	return retryConfig{
		maxAttempts:    attempts,
		initialBackoff: time.Millisecond,
		maxBackoff:     2 * time.Millisecond,
		multiplier:     2,
	}
}

func TestWithRetry_SuccessFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	v, err := withRetry(context.Background(), fastRetry(3), func(context.Context) (int, error) {
		calls++
		return 7, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := withRetry(context.Background(), fastRetry(3), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("bad request")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ExhaustsTransient(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := withRetry(context.Background(), fastRetry(3), func(context.Context) (int, error) {
		calls++
		return 0, newTransientError(errors.New("unavailable"), 503)
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := withRetry(ctx, fastRetry(5), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, newTransientError(errors.New("unavailable"), 503)
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"transient", newTransientError(errors.New("x"), 429), true},
		{"wrapped transient", fmt.Errorf("lookup: %w", newTransientError(errors.New("x"), 500)), true},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"reset message", errors.New("read: connection reset by peer"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestBackoff_Capped(t *testing.T) {
	t.Parallel()

	cfg := retryConfig{initialBackoff: time.Second, maxBackoff: 2 * time.Second, multiplier: 10}
	assert.Equal(t, time.Second, backoff(0, cfg))
	assert.Equal(t, 2*time.Second, backoff(3, cfg))
}
