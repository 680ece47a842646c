package llm

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"
)

// retryConfig holds the transport-level retry parameters. Values match the
// outer retry-with-exponential-backoff contract: start ~1s, factor 2, up to
// three retries, with ±25% jitter, applied only to transient errors.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
}

func defaultRetryConfig() retryConfig {
	return retryConfig{maxRetries: 3, baseDelay: time.Second}
}

// withRetry invokes fn, retrying on errors classified as transient by
// isRetryableError. Exhausting retries or a non-retryable error returns the
// last error unwrapped.
func withRetry(ctx context.Context, cfg retryConfig, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffDelay(attempt-1, cfg.baseDelay)):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryableError(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// backoffDelay computes delay*2^attempt with a ±25% jitter.
func backoffDelay(attempt int, baseDelay time.Duration) time.Duration {
	delay := float64(baseDelay) * math.Pow(2, float64(attempt))
	jitter := delay * 0.25 * (2*rand.Float64() - 1)
	return time.Duration(delay + jitter)
}

// isRetryableError classifies network failures, 429, and 5xx as transient
// by inspecting the error text, since the Anthropic and OpenAI SDKs surface
// their HTTP status through differently-named fields on distinct error
// types rather than a common interface. Every other 4xx is permanent and
// must propagate immediately.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"429", "rate limit", "rate_limit", "too many requests",
		"500", "502", "503", "504",
		"internal server error", "bad gateway", "service unavailable", "gateway timeout",
		"timeout", "deadline exceeded",
		"connection reset", "connection refused", "no such host", "eof",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
