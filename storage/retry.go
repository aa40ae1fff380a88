package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/kartikbazzad/bunbase/blocks/metrics"
)

// ErrorCategory represents the category of an error for retry logic.
type ErrorCategory int

const (
	ErrorTransient ErrorCategory = iota // Temporary errors - retry with backoff
	ErrorPermanent                      // Permanent errors - no retry
	ErrorNetwork                        // Network-related - retry with backoff
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrorTransient:
		return "transient"
	case ErrorNetwork:
		return "network"
	default:
		return "permanent"
	}
}

// Classify determines the category of a storage error.
func Classify(err error) ErrorCategory {
	if err == nil {
		return ErrorPermanent
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorPermanent
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return ErrorPermanent
	}

	var sysErr syscall.Errno
	if errors.As(err, &sysErr) {
		switch sysErr {
		case syscall.EAGAIN, syscall.ETIMEDOUT, syscall.ECONNRESET, syscall.ECONNREFUSED:
			return ErrorTransient
		default:
			return ErrorPermanent
		}
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "SlowDown", "SlowDownRead", "SlowDownWrite", "InternalError", "RequestTimeout",
		"ServiceUnavailable", "RequestTimeTooSkewed":
		return ErrorTransient
	case "NoSuchKey", "NoSuchBucket", "AccessDenied", "InvalidBucketName", "InvalidAccessKeyId":
		return ErrorPermanent
	}
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return ErrorTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorNetwork
	}
	return ErrorPermanent
}

// ShouldRetry returns true if the error category indicates retry is appropriate.
func ShouldRetry(category ErrorCategory) bool {
	return category == ErrorTransient || category == ErrorNetwork
}

// Retrier implements exponential backoff with jitter for storage calls.
type Retrier struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxRetries   int
	Logger       *slog.Logger
}

// DefaultRetrier: initial delay 10ms, max delay 1s, max retries 5
func DefaultRetrier() *Retrier {
	return &Retrier{
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     time.Second,
		MaxRetries:   5,
	}
}

// Do runs fn until it succeeds, fails permanently, runs out of attempts or ctx ends.
func (r *Retrier) Do(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		category := Classify(err)
		if !ShouldRetry(category) || attempt >= r.MaxRetries {
			return err
		}

		delay := r.delay(attempt)
		metrics.StorageRetries.WithLabelValues(op, category.String()).Inc()
		if r.Logger != nil {
			r.Logger.Warn("storage call failed, retrying",
				"op", op, "attempt", attempt+1, "delay", delay, "error", err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func (r *Retrier) delay(attempt int) time.Duration {
	delay := r.InitialDelay * time.Duration(1<<uint(attempt))
	if delay > r.MaxDelay || delay <= 0 {
		delay = r.MaxDelay
	}

	// Add jitter: ±25% random variation
	jitter := time.Duration(float64(delay) * 0.25 * (rand.Float64()*2 - 1))
	delay += jitter
	if delay < 0 {
		delay = r.InitialDelay
	}
	return delay
}
