package client

import (
	"fmt"
)

// TransportError is returned when a request could not be sent, the server answered with a
// non-success status, or the body could not be decoded.
type TransportError struct {
	Endpoint   string
	Payload    string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("response of %s isn't OK (payload=%s): %d %s", e.Endpoint, e.Payload, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("error calling %s (payload=%s): %v", e.Endpoint, e.Payload, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is returned when the server answered successfully but reported an error in the body.
type APIError struct {
	Endpoint string
	Payload  string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("error from %s (payload=%s): %s", e.Endpoint, e.Payload, e.Message)
}

// NotFoundError is returned when an identifier expected to exist is absent from the results.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("impossible to find %s %s on Odysee API", e.Kind, e.ID)
}
