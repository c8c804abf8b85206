package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/launchsignal/api/internal/retry"
)

// APIError carries the HTTP status of a failed upstream call so callers
// can decide whether retrying makes sense.
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Body)
}

// ClassifyError maps upstream failures onto retry classes: rate limits,
// server errors and network failures are transient; any other 4xx means
// the request itself is wrong and repeating it cannot help.
func ClassifyError(err error) retry.Class {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return retry.Transient
		case apiErr.StatusCode >= 500:
			return retry.Transient
		default:
			return retry.Permanent
		}
	}
	// Network errors, timeouts and anything else without a status code.
	return retry.Transient
}
