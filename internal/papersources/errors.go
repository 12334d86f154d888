package papersources

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/helixir/citation-graph-service/internal/domain"
)

// FailureKind is the provider-independent category of a failed lookup.
type FailureKind int

const (
	// FailureNone means the error was nil.
	FailureNone FailureKind = iota
	// FailureTimeout is a lookup that did not finish within its deadline.
	FailureTimeout
	// FailureRateLimited is a lookup refused by the provider's rate limit.
	FailureRateLimited
	// FailureNotFound is a provider that does not know the paper.
	FailureNotFound
	// FailureParse is a response that could not be interpreted.
	FailureParse
	// FailureNetwork is a transport failure or an upstream server error.
	FailureNetwork
)

// String returns the label used in logs and metrics.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureTimeout:
		return "timeout"
	case FailureRateLimited:
		return "rate_limited"
	case FailureNotFound:
		return "not_found"
	case FailureParse:
		return "parse_error"
	case FailureNetwork:
		return "network_error"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt may succeed.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureTimeout, FailureRateLimited, FailureNetwork:
		return true
	default:
		return false
	}
}

// Classify maps any provider error onto a FailureKind.
//
// Classification order:
//  1. Domain sentinels (errors.Is).
//  2. Context deadline and net.Error timeouts.
//  3. ExternalAPIError status codes: 429 is RateLimited, 5xx is Network and
//     any other 4xx is treated as NotFound since repeating it cannot help.
//  4. Everything else is a Network failure.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return FailureNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return FailureRateLimited
	case errors.Is(err, domain.ErrTimeout):
		return FailureTimeout
	case errors.Is(err, domain.ErrParse):
		return FailureParse
	case errors.Is(err, domain.ErrNetwork):
		return FailureNetwork
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}

	var apiErr *domain.ExternalAPIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return FailureRateLimited
		case apiErr.StatusCode >= 500:
			return FailureNetwork
		case apiErr.StatusCode >= 400:
			return FailureNotFound
		}
	}

	return FailureNetwork
}

// retryAfter extracts a provider supplied wait from a rate-limit error.
func retryAfter(err error) time.Duration {
	var rlErr *domain.RateLimitError
	if errors.As(err, &rlErr) && rlErr.RetryAfter > 0 {
		return rlErr.RetryAfter
	}
	return 0
}
