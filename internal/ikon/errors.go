package ikon

import (
	"fmt"
	"strings"
)

// AuthError means a login or verification was rejected, either by the
// platform (Status set) or on the way there (Err set).
type AuthError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ikon %s: %v", e.Op, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("ikon %s: %s (status=%d)", e.Op, e.Body, e.Status)
	}
	return fmt.Sprintf("ikon %s failed (status=%d)", e.Op, e.Status)
}

func (e *AuthError) Unwrap() error { return e.Err }

// APIError means a resort or reservation-availability call failed after an
// authenticated session was in hand. Upstream status and body are preserved
// for logging.
type APIError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ikon %s: %v", e.Op, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("ikon %s: %s (status=%d)", e.Op, e.Body, e.Status)
	}
	return fmt.Sprintf("ikon %s failed (status=%d)", e.Op, e.Status)
}

func (e *APIError) Unwrap() error { return e.Err }

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
