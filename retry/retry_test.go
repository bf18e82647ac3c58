package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithBackoff_Success(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), func(context.Context) error {
		attempts++
		return nil
	}, 3, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, 5, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expected := errors.New("persistent error")
	err := WithBackoff(context.Background(), func(context.Context) error {
		attempts++
		return expected
	}, 3, time.Millisecond)

	assert.Equal(t, expected, err)
	assert.Equal(t, 3, attempts)
}

func TestWithBackoff_Permanent(t *testing.T) {
	attempts := 0
	cause := errors.New("404")
	err := WithBackoff(context.Background(), func(context.Context) error {
		attempts++
		return Permanent(cause)
	}, 5, time.Millisecond)

	assert.Same(t, cause, err)
	assert.Equal(t, 1, attempts)
	assert.NoError(t, Permanent(nil))
}

func TestWithBackoff_PermanentOnLastAttempt(t *testing.T) {
	attempts := 0
	cause := errors.New("gone")
	err := WithBackoff(context.Background(), func(context.Context) error {
		attempts++
		if attempts == 2 {
			return Permanent(cause)
		}
		return errors.New("temporary")
	}, 2, time.Millisecond)

	assert.Same(t, cause, err)
	assert.Equal(t, 2, attempts)
}

func TestWithBackoff_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts := 0
	err := WithBackoff(ctx, func(context.Context) error {
		attempts++
		return nil
	}, 3, time.Millisecond)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, attempts)
}

func TestWithBackoff_DelayGrows(t *testing.T) {
	var stamps []time.Time
	err := WithBackoff(context.Background(), func(context.Context) error {
		stamps = append(stamps, time.Now())
		return errors.New("fail")
	}, 3, 20*time.Millisecond)

	require.Error(t, err)
	require.Len(t, stamps, 3)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 40*time.Millisecond)
}

func TestWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := WithBackoff(ctx, func(context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}, 10, time.Millisecond)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestWithBackoff_InvalidMaxAttempts(t *testing.T) {
	for _, n := range []int{0, -1} {
		attempts := 0
		err := WithBackoff(context.Background(), func(context.Context) error {
			attempts++
			return nil
		}, n, time.Millisecond)

		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
		assert.Equal(t, 0, attempts)
	}
}

func TestPolicy_Do(t *testing.T) {
	t.Run("zero value tries once", func(t *testing.T) {
		attempts := 0
		err := Policy{}.Do(context.Background(), func(context.Context) error {
			attempts++
			return errors.New("fail")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("retries up to attempts", func(t *testing.T) {
		attempts := 0
		err := Policy{Attempts: 3, BaseDelay: time.Millisecond}.Do(context.Background(), func(context.Context) error {
			attempts++
			return errors.New("fail")
		})
		assert.Error(t, err)
		assert.Equal(t, 3, attempts)
	})
}
