package transfer

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, 5*time.Second, p.Delay)
	assert.True(t, p.Retryable(&TransportError{Op: "x", Err: io.EOF}))
	assert.False(t, p.Retryable(&LocalError{Op: "x", Path: "p", Err: io.EOF}))
}

func TestRetryPolicyExhaustsAttempts(t *testing.T) {
	calls := 0
	var retries []int
	p := fastRetry()
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		retries = append(retries, attempt)
		assert.Equal(t, time.Millisecond, delay)
	}

	err := p.Do("upload a.txt", func() error {
		calls++
		return &TransportError{Op: "stor", Err: io.ErrUnexpectedEOF}
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
	assert.Contains(t, err.Error(), "upload a.txt failed after 3 attempts")
	assert.True(t, IsTransportError(err))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestRetryPolicyStopsOnLocalError(t *testing.T) {
	calls := 0
	local := &LocalError{Op: "open", Path: "/tmp/x", Err: errors.New("denied")}

	err := fastRetry().Do("upload", func() error {
		calls++
		return local
	})

	assert.Equal(t, 1, calls)
	assert.Same(t, local, err)
}

func TestRetryPolicySucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	err := fastRetry().Do("connect", func() error {
		calls++
		if calls < 2 {
			return &TransportError{Op: "dial", Err: io.EOF}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryPolicyWaitsBetweenAttempts(t *testing.T) {
	p := RetryPolicy{Attempts: 2, Delay: 20 * time.Millisecond}

	start := time.Now()
	_ = p.Do("op", func() error { return &TransportError{Op: "op", Err: io.EOF} })

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRetryPolicyZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := RetryPolicy{}.Do("op", func() error {
		calls++
		return &TransportError{Op: "op", Err: io.EOF}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestProgressReaderReportsEndOfStream(t *testing.T) {
	var last [2]int64
	reports := 0
	pr := &ProgressReader{
		Reader: strings.NewReader("0123456789"),
		Name:   "f",
		Total:  10,
		OnProgress: func(name string, transferred, total int64) {
			assert.Equal(t, "f", name)
			reports++
			last = [2]int64{transferred, total}
		},
	}

	var out bytes.Buffer
	_, err := io.Copy(&out, pr)
	require.NoError(t, err)

	assert.Equal(t, "0123456789", out.String())
	assert.Equal(t, [2]int64{10, 10}, last)
	assert.GreaterOrEqual(t, reports, 1)
	assert.Equal(t, int64(10), pr.Transferred)
}
