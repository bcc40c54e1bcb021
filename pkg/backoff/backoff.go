// Package backoff holds the single reconnect/retry policy shared by the
// socket wrappers and the transport client. Both sockets previously grew
// their own copies of this logic; they now instantiate one Policy each.
package backoff

import "time"

// Factor is the exponential growth factor between attempts.
const Factor = 1.5

// Policy computes retry delays and decides which socket close codes are
// worth retrying.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// MaxDelay caps the computed delay; zero means uncapped.
	MaxDelay time.Duration
	// NonRetryable close codes: clean close and immediate failure never
	// reconnect. Nil falls back to {1000, 1006}.
	NonRetryable []int
}

// Delay returns the wait before the given attempt (1-based):
// BaseDelay * 1.5^(attempt-1), capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= Factor
	}
	out := time.Duration(d)
	if p.MaxDelay > 0 && out > p.MaxDelay {
		out = p.MaxDelay
	}
	return out
}

// Exhausted reports whether the given attempt count has used up the
// policy's budget.
func (p Policy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}

// Retryable reports whether a close with the given code should schedule a
// reconnect. Clean closes (1000) signal intent; 1006 is the immediate
// connection failure the server uses to reject a session outright.
func (p Policy) Retryable(closeCode int) bool {
	codes := p.NonRetryable
	if codes == nil {
		codes = []int{1000, 1006}
	}
	for _, c := range codes {
		if closeCode == c {
			return false
		}
	}
	return true
}
