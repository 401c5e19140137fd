package valorant

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrTimeout marks a request aborted because its deadline passed
var ErrTimeout = errors.New("request timed out")

// TransportError covers network, DNS, timeout and non-2xx failures
type TransportError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("valorant api %s: HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("valorant api %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// InvalidResponseError means the API answered with an unexpected shape
type InvalidResponseError struct {
	Endpoint string
	Reason   string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("valorant api %s: invalid response: %s", e.Endpoint, e.Reason)
}

// ValidationError rejects one catalog element. It is logged and the element dropped.
type ValidationError struct {
	Kind  string
	Index int
	ID    string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s #%d (%q): %v", e.Kind, e.Index, e.ID, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
