package gateway

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func newExponential(initial, maxInterval time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = maxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0.1
	// retries are bounded by count, not elapsed time
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// hintedBackOff stretches the next delay to a server-provided wait, capped
// at max. The hint is written by the retried operation before each NextBackOff.
type hintedBackOff struct {
	backoff.BackOff
	hint *time.Duration
	max  time.Duration
}

func (h *hintedBackOff) NextBackOff() time.Duration {
	next := h.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if h.hint != nil && *h.hint > next {
		next = *h.hint
	}
	if h.max > 0 && next > h.max {
		next = h.max
	}
	return next
}

// retryAfterFromHeader reads Retry-After (seconds or HTTP date) and falls
// back to GitHub's X-RateLimit-Reset when the remaining quota is zero.
func retryAfterFromHeader(h http.Header, now time.Time) (time.Duration, bool) {
	if h == nil {
		return 0, false
	}
	if value := strings.TrimSpace(h.Get("Retry-After")); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			if seconds < 0 {
				return 0, false
			}
			return time.Duration(seconds) * time.Second, true
		}
		if when, err := http.ParseTime(value); err == nil {
			delay := when.Sub(now)
			if delay < 0 {
				return 0, false
			}
			return delay, true
		}
	}
	if strings.TrimSpace(h.Get("X-RateLimit-Remaining")) == "0" {
		if reset, err := strconv.ParseInt(strings.TrimSpace(h.Get("X-RateLimit-Reset")), 10, 64); err == nil {
			delay := time.Unix(reset, 0).Sub(now)
			if delay > 0 {
				return delay, true
			}
		}
	}
	return 0, false
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
