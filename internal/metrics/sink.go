package metrics

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// Sink records run metrics. Methods are fire-and-forget: implementations must
// not block or return errors.
type Sink interface {
	// Paginator metrics
	FetchAttempt(statusCode int, err error, duration time.Duration)
	PageCompleted(status string)

	// Pipeline metrics
	EventOutcome(outcome string)
	RunCompleted(duration time.Duration, eventsInDocument int, err error)
}

// Outcome constants for EventOutcome.
const (
	OutcomeBuilt     = "built"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
)

// StatusClass constants for FetchAttempt.
const (
	StatusClass2xx             = "2xx"
	StatusClass4xx             = "4xx"
	StatusClass5xx             = "5xx"
	StatusClassTimeout         = "timeout"
	StatusClassConnectionError = "connection_error"
	StatusClassOtherError      = "other_error"
)

// ClassifyStatus maps a status code and transport error to a status class.
func ClassifyStatus(statusCode int, err error) string {
	if err != nil {
		var nerr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
			return StatusClassTimeout
		}

		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
			return StatusClassTimeout
		}
		if strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") ||
			strings.Contains(msg, "network is unreachable") || strings.Contains(msg, "dial") {
			return StatusClassConnectionError
		}
		return StatusClassOtherError
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		return StatusClass2xx
	case statusCode >= 400 && statusCode < 500:
		return StatusClass4xx
	case statusCode >= 500:
		return StatusClass5xx
	default:
		return StatusClassOtherError
	}
}
