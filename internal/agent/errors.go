package agent

import (
	"context"
	"strings"
	"time"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
)

var (
	ErrEmptyResponse = errm.New("empty response from API")
	ErrEmptyDiff     = errm.New("numbered diff is empty")
)

var (
	permanentMarkers = []string{
		"401", "403", "unauthorized", "forbidden", "invalid api key",
		"authentication failed", "bad request", "region not supported",
	}
	transientMarkers = []string{
		"429", "500", "502", "503", "504", "rate limit", "unavailable",
		"server error", "overloaded", "timeout", "connection", "temporary",
		"eof", ErrEmptyResponse.Error(),
	}
)

// isRetryable reports whether an API error is worth another attempt.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errm.Is(err, context.Canceled) {
		return false
	}
	if errm.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range permanentMarkers {
		if strings.Contains(msg, m) {
			return false
		}
	}
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// retryWithBackoff runs fn up to attempts times with exponential delay.
func retryWithBackoff[T any](ctx context.Context, log logze.Logger, attempts int, base time.Duration, fn func() (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := range attempts {
		res, err := fn()
		if err == nil {
			return res, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == attempts-1 {
			break
		}

		delay := base * time.Duration(1<<attempt)
		log.Warn("api call failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return zero, errm.Wrap(ctx.Err(), "retry interrupted", "last_error", lastErr)
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}
