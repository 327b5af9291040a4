package place

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrUserMissing indicates a username is required to log in.
	ErrUserMissing = errors.New("place: user is required")
)

// APIError captures unexpected responses. The body may or may not be JSON.
type APIError struct {
	StatusCode int
	// Message is a human-readable message from the server or the trimmed body.
	Message string
	// RawBody keeps the original payload for debugging.
	RawBody []byte
}

func (e *APIError) Error() string {
	b := strings.Builder{}
	b.WriteString("place: API error (status=")
	b.WriteString(strconv.Itoa(e.StatusCode))
	b.WriteString(")")
	if m := strings.TrimSpace(e.Message); m != "" {
		b.WriteString(": ")
		b.WriteString(m)
	}
	return b.String()
}

func buildAPIError(status int, body []byte) error {
	trimmed := strings.TrimSpace(string(body))
	ae := &APIError{StatusCode: status, RawBody: body, Message: trimmed}

	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var obj map[string]interface{}
		if err := json.Unmarshal(body, &obj); err == nil {
			if v, ok := obj["message"].(string); ok && v != "" {
				ae.Message = v
			}
		}
	}
	return ae
}

// AuthError is returned by Login when the server rejects the credentials.
// Each entry of Errors is the triple (code, message, field) sent by the
// server.
type AuthError struct {
	Errors [][]string
}

func newAuthError(errs [][]string) *AuthError {
	return &AuthError{Errors: errs}
}

// Message returns the human-readable text of the first error.
func (e *AuthError) Message() string {
	if len(e.Errors) == 0 {
		return ""
	}
	first := e.Errors[0]
	switch len(first) {
	case 0:
		return ""
	case 1:
		return first[0]
	default:
		return first[1]
	}
}

func (e *AuthError) Error() string {
	if m := e.Message(); m != "" {
		return m
	}
	return "place: login failed"
}

// IsAuthError returns true if err is, or wraps, an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsRateLimitError returns true if err is an *APIError with HTTP status 429.
func IsRateLimitError(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode == 429
	}
	return false
}
