package fleet

import (
	"fmt"
)

// TransportError reports a network failure, a non-2xx status or an
// undecodable body for a single endpoint.
type TransportError struct {
	// Endpoint is the method and path, e.g. "POST /api/device/2/stop".
	Endpoint string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// ServerMessage is the "error" field of a non-2xx JSON body, if any.
	ServerMessage string

	// Err is the underlying cause.
	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e.ServerMessage != "":
		return fmt.Sprintf("%s: %s (status %d)", e.Endpoint, e.ServerMessage, e.StatusCode)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
