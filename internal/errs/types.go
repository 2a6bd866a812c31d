package errs

import (
	"fmt"
	"net/http"
)

// ServerError is a failure reported by the API: a non-2xx HTTP status or an
// envelope whose application code is not the success code.
type ServerError struct {
	StatusCode int
	Code       string
	Message    string
	Body       []byte
}

func (e *ServerError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("server error: %d %s: %s", e.StatusCode, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("server error: %d %s", e.StatusCode, e.Code)
	default:
		return fmt.Sprintf("server error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
}

// TransportError means no response was received.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	if e.Cause == nil {
		return "transport: no response"
	}
	return "transport: " + e.Cause.Error()
}

func (e *TransportError) Unwrap() error { return e.Cause }
