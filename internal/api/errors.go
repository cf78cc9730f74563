package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrVerificationRequired is returned before any network call when a token
// source is configured but cannot supply a token.
var ErrVerificationRequired = errors.New("bot verification required")

// genericDetail is shown when the server sends no detail text.
const genericDetail = "search failed"

// APIError is a non-2xx response from the Lens API. Detail carries the
// server-provided message when one was present.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lens api: %d: %s", e.StatusCode, e.Message())
}

// Message returns the server detail, falling back to a generic message.
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return genericDetail
}

// NetworkError wraps a transport failure where no response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("lens api unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err is an HTTP 429 from the server.
func IsRateLimited(err error) bool { return hasStatus(err, http.StatusTooManyRequests) }

// IsVerificationFailed reports whether err is an HTTP 403, meaning the
// verification token was rejected and must be reacquired.
func IsVerificationFailed(err error) bool { return hasStatus(err, http.StatusForbidden) }

// IsNotFound reports whether err is an HTTP 404. In compare mode this
// means a guest is not present among the indexed content.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

// IsNetworkFailure reports whether err is a transport failure.
func IsNetworkFailure(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func hasStatus(err error, code int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == code
}

// UserMessage maps any submit error to the text shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsRateLimited(err):
		return "Daily query limit reached"
	case errors.Is(err, ErrVerificationRequired):
		return "Verification required before searching"
	case IsNetworkFailure(err):
		return "Could not reach the search service"
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Message()
	}
	return err.Error()
}
