// Package llm wraps the external text-generation service behind a small
// interface so the generator can be tested without network access.
package llm

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/genai"
)

// Client is the external generation service as the pipeline sees it: one
// prompt in, one article body out.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

// ErrorClass buckets generation failures for retry decisions.
type ErrorClass int

const (
	// ClassUnknown covers errors with no recognizable shape; treated as
	// transient so a flaky service gets the benefit of the doubt.
	ClassUnknown ErrorClass = iota
	// ClassRateLimit is an explicit quota/rate-limit signal (429).
	ClassRateLimit
	// ClassServer is a server-side fault (5xx).
	ClassServer
	// ClassNetwork is a timeout or connection failure.
	ClassNetwork
	// ClassInvalid is a malformed-request fault (4xx other than 429);
	// retrying can never succeed.
	ClassInvalid
)

// Retryable reports whether the class may succeed on retry.
func (c ErrorClass) Retryable() bool { return c != ClassInvalid }

func (c ErrorClass) String() string {
	switch c {
	case ClassRateLimit:
		return "rate_limit"
	case ClassServer:
		return "server"
	case ClassNetwork:
		return "network"
	case ClassInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Classify inspects err and assigns it an ErrorClass.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassNetwork
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return ClassRateLimit
		case apiErr.Code >= 500:
			return ClassServer
		case apiErr.Code >= 400:
			return ClassInvalid
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassNetwork
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ClassNetwork
	}

	// The service sometimes surfaces gRPC-style status names instead of
	// HTTP codes; match the ones that change retry behavior.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return ClassRateLimit
	case strings.Contains(msg, "INVALID_ARGUMENT"),
		strings.Contains(msg, "NOT_FOUND"),
		strings.Contains(msg, "PERMISSION_DENIED"):
		return ClassInvalid
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"):
		return ClassNetwork
	}

	return ClassUnknown
}
