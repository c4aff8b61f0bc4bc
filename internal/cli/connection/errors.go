package connection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of a failed response is buffered.
const maxErrorBody = 1 << 20

// StatusError is returned for any response outside the 2xx range.
// The body is buffered so callers can inspect it after the response is closed.
type StatusError struct {
	StatusCode int
	Method     string
	URL        string

	// Code is the server's error code ("code" field, or Spring's "error").
	Code string
	// Message is the server's human-readable "message" field, if any.
	Message string
	// Body is the raw response body (truncated to 1 MiB).
	Body []byte
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	case e.Message != "":
		return e.Message
	default:
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
}

// ServerMessage returns the server-supplied message, or "".
func (e *StatusError) ServerMessage() string {
	return e.Message
}

// newStatusError buffers resp.Body into a StatusError and swaps in a
// re-readable body so response interceptors still see the payload.
func newStatusError(req *http.Request, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	se := &StatusError{
		StatusCode: resp.StatusCode,
		Method:     req.Method,
		URL:        req.URL.Redacted(),
		Body:       body,
	}

	var payload struct {
		Code    string `json:"code"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		se.Code = payload.Code
		if se.Code == "" {
			se.Code = payload.Error
		}
		se.Message = payload.Message
	}
	return se
}

// StatusCode returns the HTTP status carried by err, or 0 when err did not
// come from a response (transport failure, nil).
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
