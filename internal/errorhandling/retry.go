package errorhandling

import (
	"math/rand"
	"time"
)

// RetryPolicy configures exponential backoff for retryable failures.
type RetryPolicy struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy matches the documented defaults: 1s base, 10s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{BaseDelay: time.Second, MaxDelay: 10 * time.Second}
}

// ShouldRetry reports whether err is worth retrying. Non-recoverable
// errors and authentication errors are never retried (retrying bad
// credentials only locks accounts); server errors and connectivity
// failures are; unclassified errors default to retryable.
func (h *Handler) ShouldRetry(err error) bool {
	ae := Classify(err)
	if !ae.Recoverable {
		return false
	}
	return ae.Category != CategoryAuthentication
}

// RetryDelay computes the backoff before retry attempt n (1-based):
// base * 2^(n-1), jittered by up to 10%, capped at the policy maximum.
func (h *Handler) RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	shift := attempt - 1
	if shift > 20 {
		shift = 20
	}

	delay := h.policy.BaseDelay << shift
	if delay <= 0 || delay > h.policy.MaxDelay {
		return h.policy.MaxDelay
	}

	jitter := time.Duration(rand.Int63n(int64(delay)/10 + 1))
	delay += jitter
	if delay > h.policy.MaxDelay {
		return h.policy.MaxDelay
	}
	return delay
}
