package api

import (
	"fmt"
	"net/http"
)

// Error describes a failed round trip to the workspace server: either the
// request never completed (Err set, StatusCode zero) or the server answered
// with a non-2xx status.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: server returned %d", e.Op, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Conflict reports whether the server rejected the request as conflicting
// with its own state. The client does not resolve conflicts; the server is
// the sole arbiter and callers treat this like any other remote failure.
func (e *Error) Conflict() bool {
	return e.StatusCode == http.StatusConflict
}
