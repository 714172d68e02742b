// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the upstream clients.
package httputil

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// RetryBaseDelay is the first backoff interval; it doubles per attempt.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// MaxRetryDelay caps a single backoff, including server-sent Retry-After.
var MaxRetryDelay = time.Minute

const defaultMaxRetries = 4

// Retryable reports whether a response status is transient: rate limiting
// or a temporarily unavailable upstream.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry executes req and retries transient statuses with exponential
// backoff. A Retry-After header in seconds overrides the computed delay when
// it is longer.
//
// When maxRetries is 0 the default (4) is used. The body of each retried
// response is drained and closed. Cancelling ctx during a wait returns
// ctx.Err(). After exhausting retries the last response is returned for the
// caller to inspect. A nil logger disables retry logging.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, logger *zap.Logger) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		wait := backoff(attempt, resp.Header.Get("Retry-After"))
		logger.Debug("retrying upstream request",
			zap.String("host", req.URL.Host),
			zap.Int("status", resp.StatusCode),
			zap.Duration("wait", wait),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func backoff(attempt int, retryAfter string) time.Duration {
	wait := RetryBaseDelay << attempt
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
		if ra := time.Duration(secs) * time.Second; ra > wait {
			wait = ra
		}
	}
	return min(wait, MaxRetryDelay)
}
