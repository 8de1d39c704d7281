package request

import (
	"errors"
	"fmt"
	"net/http"
)

// CodeSuccess is the envelope code of a successful call.
const CodeSuccess = 200

// ErrUnauthorized marks responses that reject the caller's credentials.
var ErrUnauthorized = errors.New("unauthorized")

// Result is the common part of every response envelope.
// Endpoints add their payload as sibling fields (data, rows/total, token, user...).
type Result struct {
	Code  int    `json:"code"`
	Msg   string `json:"msg"`
	Error string `json:"error,omitempty"`
}

// OK reports whether the envelope signals success. A missing code counts as success.
func (r Result) OK() bool {
	return r.Code == 0 || r.Code == CodeSuccess
}

// DataResult carries a single payload under "data".
type DataResult[T any] struct {
	Result
	Data T `json:"data"`
}

// ListResult carries one page of rows plus the total row count.
type ListResult[T any] struct {
	Result
	Rows  []T   `json:"rows"`
	Total int64 `json:"total"`
}

// APIError is returned when the transport succeeded but the server refused the call.
type APIError struct {
	Status int
	Code   int
	Msg    string
}

func (e *APIError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api error (status %d, code %d): %s", e.Status, e.Code, msg)
}

// Unwrap exposes ErrUnauthorized for 401 status or code.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized || e.Code == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}
