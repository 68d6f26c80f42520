package apiclient

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// TransportError is a network failure or a non-2xx response from the backend.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int    // 0 when no response was received
	Message    string // backend-supplied message, if any
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		msg := e.Message
		if msg == "" {
			msg = http.StatusText(e.StatusCode)
		}
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the request failed by running out of time.
func (e *TransportError) Timeout() bool {
	var ne net.Error
	if errors.As(e.Err, &ne) && ne.Timeout() {
		return true
	}
	return e.StatusCode == http.StatusGatewayTimeout || e.StatusCode == http.StatusRequestTimeout
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}

// IsNotFound reports whether the backend answered 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
