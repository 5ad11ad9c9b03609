package spotify

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when Spotify reports that the resource does not exist
var ErrNotFound = errors.New("resource not found")

// InvalidIDError is a client error: the identifier or URL could not be
// resolved to a Spotify resource ID.
type InvalidIDError struct {
	Input string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid spotify identifier: %q", e.Input)
}

// UpstreamError wraps failures talking to Spotify's web endpoints:
// unreachable host, non-success status, or an unparsable payload.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "upstream request failed"
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Operation, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Operation, msg)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsInvalidID reports whether err is a client-side identifier error
func IsInvalidID(err error) bool {
	var invalid *InvalidIDError
	return errors.As(err, &invalid)
}

// IsUpstream reports whether err originated from the Spotify upstream
func IsUpstream(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream)
}
