package transfer

import (
	"fmt"
	"io"
	"time"
)

const (
	// DefaultAttempts is the number of tries a retried operation gets.
	DefaultAttempts = 3
	// DefaultRetryDelay is the fixed pause between two tries.
	DefaultRetryDelay = 5 * time.Second

	progressInterval = 100 * time.Millisecond
)

// RetryPolicy describes a bounded, fixed-delay retry.
type RetryPolicy struct {
	Attempts  int
	Delay     time.Duration
	Retryable func(error) bool
	// OnRetry runs before each pause with the number of the failed attempt.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryPolicy retries transport errors 3 times with a 5 second pause.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  DefaultAttempts,
		Delay:     DefaultRetryDelay,
		Retryable: IsTransportError,
	}
}

// Do executes fn until it succeeds, returns a non-retryable error, or the
// attempts are exhausted. The sleep between attempts blocks the caller.
func (p RetryPolicy) Do(operation string, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransportError
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt >= attempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, p.Delay, err)
		}
		time.Sleep(p.Delay)
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, attempts, err)
}

// ProgressFunc receives transfer progress. total is -1 when the size is unknown.
type ProgressFunc func(name string, transferred, total int64)

// ProgressReader wraps an io.Reader to report progress at most every 100ms,
// plus once when the stream ends.
type ProgressReader struct {
	Reader      io.Reader
	Name        string
	Total       int64
	Transferred int64
	OnProgress  ProgressFunc

	lastUpdate time.Time
	done       bool
}

func (pr *ProgressReader) Read(p []byte) (n int, err error) {
	n, err = pr.Reader.Read(p)
	pr.Transferred += int64(n)

	if pr.OnProgress == nil {
		return
	}

	now := time.Now()
	switch {
	case err == io.EOF && !pr.done:
		pr.done = true
		pr.OnProgress(pr.Name, pr.Transferred, pr.Total)
	case n > 0 && now.Sub(pr.lastUpdate) >= progressInterval:
		pr.OnProgress(pr.Name, pr.Transferred, pr.Total)
		pr.lastUpdate = now
	}
	return
}

// trackedReader remembers the first error of the underlying reader so a
// local read failure can be told apart from a transport failure.
type trackedReader struct {
	r   io.Reader
	err error
}

func (t *trackedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}

// trackedWriter is the write-side counterpart of trackedReader.
type trackedWriter struct {
	w   io.Writer
	err error
}

func (t *trackedWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}
	return n, err
}
