package llm

import (
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
)

// ErrNoProvider is returned when no candidate in a fallback chain is
// configured in the registry.
var ErrNoProvider = errors.New("no provider available")

// ErrUnsupportedAction marks an action a provider cannot perform at all
// (e.g. embeddings on Anthropic).
var ErrUnsupportedAction = errors.New("action not supported by provider")

// StatusError carries a normalized HTTP status for providers whose SDK (or
// raw HTTP client) does not expose a typed error.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// NormalizeError extracts a status code and a short message from
// provider-specific error types. Status 0 means no HTTP status was
// recoverable (network error, decode error, ...).
func NormalizeError(err error) (int, string) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, se.Message
	}

	var oe *openai.APIError
	if errors.As(err, &oe) {
		return oe.HTTPStatusCode, oe.Message
	}

	var ae *anthropic.Error
	if errors.As(err, &ae) {
		return ae.StatusCode, ae.Error()
	}

	return 0, err.Error()
}

// RetryableStatus reports whether a provider HTTP status is worth retrying
// at the job level: timeouts, throttling, conflicts, and server errors.
func RetryableStatus(status int) bool {
	switch status {
	case 408, 409, 425, 429:
		return true
	}
	return status >= 500
}
