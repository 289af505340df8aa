package dispatch

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformedResponse is returned when the server reply is not valid JSON
var ErrMalformedResponse = errors.New("malformed response")

// TransportError reports a request that never produced a response body,
// either because the network call failed or because the breaker is open
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return "request to " + e.Endpoint + " failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-2xx status on a plain GET
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}
