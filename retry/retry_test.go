package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0

	err := Do(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0

	err := Do(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	lastErr := errors.New("still broken")

	err := Do(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return lastErr
	})

	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, lastErr)
}

func TestDo_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Do(ctx, Policy{Attempts: 5, BaseDelay: time.Minute, MaxDelay: time.Minute}, func(context.Context) error {
		calls++
		cancel() // fail once, then the backoff wait must observe the cancel
		return errors.New("boom")
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDelay_CapsAtMax(t *testing.T) {
	p := Policy{Attempts: 5, BaseDelay: 4 * time.Second, MaxDelay: 10 * time.Second}

	assert.Equal(t, 4*time.Second, p.delay(1))
	assert.Equal(t, 8*time.Second, p.delay(2))
	assert.Equal(t, 10*time.Second, p.delay(3))
	assert.Equal(t, 10*time.Second, p.delay(4))
}

func TestDo_ZeroAttemptsStillRunsOnce(t *testing.T) {
	calls := 0

	err := Do(context.Background(), Policy{}, func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
