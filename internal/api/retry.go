package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds retries of idempotent GET requests. MaxAttempts counts
// the first try; a value of 0 or 1 disables retrying.
type RetryPolicy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (p RetryPolicy) enabled() bool {
	return p.MaxAttempts > 1
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// withRetry decorates next with the policy. Non-GET requests pass straight
// through. The final attempt's response is returned untouched so the caller
// normalizes it like any other response.
func withRetry(next sendFunc, p RetryPolicy, log *slog.Logger) sendFunc {
	if !p.enabled() {
		return next
	}
	return func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodGet {
			return next(req)
		}

		b := backoff.NewExponentialBackOff()
		if p.InitialInterval > 0 {
			b.InitialInterval = p.InitialInterval
		}
		if p.MaxInterval > 0 {
			b.MaxInterval = p.MaxInterval
		}

		var attempt uint
		return backoff.Retry(req.Context(), func() (*http.Response, error) {
			attempt++
			resp, err := next(req)
			if err != nil {
				if req.Context().Err() != nil {
					return nil, backoff.Permanent(err)
				}
				log.Debug("retrying request after transport error", "path", req.URL.Path, "attempt", attempt, "err", err)
				return nil, err
			}
			if attempt >= p.MaxAttempts || !retryableStatus(resp.StatusCode) {
				return resp, nil
			}

			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			log.Debug("retrying request after status", "path", req.URL.Path, "attempt", attempt, "status", resp.StatusCode)
			// Retry-After is honored only within MaxInterval; a longer hint
			// falls back to the capped exponential delay.
			if resp.StatusCode == http.StatusTooManyRequests {
				if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
					if time.Duration(secs)*time.Second <= b.MaxInterval {
						return nil, backoff.RetryAfter(secs)
					}
					log.Debug("ignoring Retry-After above max interval", "path", req.URL.Path, "retry_after", secs, "max_interval", b.MaxInterval)
				}
			}
			return nil, fmt.Errorf("retryable status %d", resp.StatusCode)
		}, backoff.WithBackOff(b), backoff.WithMaxTries(p.MaxAttempts))
	}
}
