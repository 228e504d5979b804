package retry

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig 让测试里的退避几乎不等待。
var fastConfig = Config{
	MaxAttempts: 3,
	BaseDelay:   time.Millisecond,
	MaxDelay:    2 * time.Millisecond,
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig, "op", func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientStatus(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig, "op", func() error {
		calls++
		if calls < 3 {
			return &StatusError{Code: 503, Status: "503 Service Unavailable"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig, "op", func() error {
		calls++
		return &StatusError{Code: 429, Status: "429 Too Many Requests"}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var statusErr *StatusError
	assert.ErrorAs(t, err, &statusErr)
}

func TestDoDoesNotRetryPermanent(t *testing.T) {
	calls := 0
	cause := errors.New("bad request payload")
	err := Do(context.Background(), fastConfig, "op", func() error {
		calls++
		return Permanent(cause)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, cause)
}

func TestDoDoesNotRetryClientStatus(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig, "op", func() error {
		calls++
		return &StatusError{Code: 401, Status: "401 Unauthorized"}
	})
	require.Error(t, err)
	// 4xx（除 429）不是瞬态错误
	assert.Equal(t, 1, calls)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slow := Config{MaxAttempts: 3, BaseDelay: time.Minute, MaxDelay: time.Minute}
	err := Do(ctx, slow, "op", func() error {
		return &StatusError{Code: 500, Status: "500 Internal Server Error"}
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(errors.New("plain error")))
	assert.False(t, Retryable(Permanent(errors.New("x"))))
	assert.False(t, Retryable(&StatusError{Code: 404}))
	assert.True(t, Retryable(&StatusError{Code: 429}))
	assert.True(t, Retryable(&StatusError{Code: 502}))

	var netErr net.Error = &net.DNSError{Err: "timeout", IsTimeout: true}
	assert.True(t, Retryable(netErr))
}
