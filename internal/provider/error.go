package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is the normalized shape of every provider failure, whether it came
// from the network or from an API error payload.
type Error struct {
	Message      string          `json:"message"`
	StatusCode   int             `json:"statusCode,omitempty"`
	ResponseData json.RawMessage `json:"responseData,omitempty"`
	cause        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("edi provider: %s (status %d)", e.Message, e.StatusCode)
	}
	return "edi provider: " + e.Message
}

// Unwrap exposes the transport error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Temporary reports whether a retry may succeed.
func (e *Error) Temporary() bool {
	if e == nil {
		return false
	}
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Normalize converts any error into *Error. Nil stays nil.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{Message: err.Error(), cause: err}
}

func newStatusError(status int, body []byte) *Error {
	e := &Error{StatusCode: status, ResponseData: rawOrString(body)}

	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		switch {
		case payload.Message != "":
			e.Message = payload.Message
		case payload.Error != nil:
			if s, ok := payload.Error.(string); ok {
				e.Message = s
			} else if nested, ok := payload.Error.(map[string]any); ok {
				if s, ok := nested["message"].(string); ok {
					e.Message = s
				}
			}
		}
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("request failed with status %d", status)
	}
	return e
}

// rawOrString keeps JSON bodies as-is and wraps anything else as a JSON string.
func rawOrString(body []byte) json.RawMessage {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(trimmed)
	return quoted
}
