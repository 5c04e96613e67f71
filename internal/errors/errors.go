package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common error kinds shared by the token broker, catalog proxy and discovery
var (
	// ErrConfigMissing means the server-side client id/secret are not configured
	ErrConfigMissing = errors.New("catalog credentials not configured")

	// ErrBadRequest means the caller omitted or malformed a required field
	ErrBadRequest = errors.New("bad request")

	// ErrUpstreamUnreachable means the authorization or catalog server could not be reached
	ErrUpstreamUnreachable = errors.New("upstream unreachable")

	// Session errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrVerifierNotFound = errors.New("pkce verifier not found")
)

// ValidationError carries the message returned to the caller for a 400 response.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrBadRequest
}

// BadRequestf builds a ValidationError
func BadRequestf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UpstreamError is a non-2xx answer from the authorization or catalog server.
// Status and Body are relayed to the caller unchanged.
type UpstreamError struct {
	Status      int
	Body        []byte
	ContentType string
}

func (e *UpstreamError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("upstream returned %d %s: %s", e.Status, http.StatusText(e.Status), body)
}

// NewUpstreamError captures a rejected upstream response
func NewUpstreamError(resp *http.Response, body []byte) *UpstreamError {
	return &UpstreamError{
		Status:      resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}
}

// AsUpstream returns the UpstreamError in err's chain, if any
func AsUpstream(err error) (*UpstreamError, bool) {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr, true
	}
	return nil, false
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
