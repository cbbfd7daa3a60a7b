package adapter

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/karmaspark/karmaspark/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// retryPolicy retries rate-limited requests with exponential backoff. Any
// other failure aborts on the first attempt.
type retryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
}

var defaultRetryPolicy = retryPolicy{
	maxAttempts: 3,
	baseDelay:   time.Second,
}

func (p retryPolicy) do(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !isRateLimit(err) {
			return goerr.Wrap(err, "model request failed")
		}

		lastErr = err
		if attempt == p.maxAttempts {
			break
		}

		backoff := p.baseDelay * (1 << attempt)
		logging.From(ctx).Info("rate limit exceeded, retrying",
			"backoff", backoff, "attempt", attempt, "max_attempts", p.maxAttempts)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return goerr.Wrap(ctx.Err(), "canceled while waiting for retry")
		}
	}

	return goerr.Wrap(ErrRateLimitExceeded, "retries exhausted",
		goerr.V("attempts", p.maxAttempts), goerr.V("last_error", lastErr.Error()))
}

// isRateLimit reports whether a backend error indicates request throttling.
// The genai SDK surfaces these as 429 / RESOURCE_EXHAUSTED; some proxies use
// plain "rate limit" text.
func isRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrUnsupportedRole) {
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "429")
}
