package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the closed set of failure categories every gateway error is reduced to.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is returned by every gateway call and by local validation.
// Status is 0 when the request never produced an HTTP response.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	// Field names the offending input for local validation errors.
	Field   string
	Payload any
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Local reports whether the error was raised before any request was sent.
func (e *Error) Local() bool { return e.Kind == KindValidation && e.Status == 0 }

// Invalid builds a local validation error for field.
func Invalid(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return KindNetwork
	default:
		return KindUnknown
	}
}

// fromResponse turns a non-2xx response into an *Error. The message comes from the body's
// "message", then "error", then the status text.
func fromResponse(status int, body []byte) *Error {
	e := &Error{Kind: kindForStatus(status), Status: status}
	var payload any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			payload = string(body)
		}
	}
	e.Payload = payload
	if m, ok := payload.(map[string]any); ok {
		for _, key := range []string{"message", "error"} {
			if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
				e.Message = s
				break
			}
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// DefaultConflictMessage is shown for a 409 when the operation has no specific wording.
const DefaultConflictMessage = "That change conflicts with the current state of the room. Reload and try again."

// Messages holds the user-facing wording for one operation.
type Messages struct {
	Fallback string
	Conflict string
}

// For picks what the user should read for err. Conflicts always use the conflict wording,
// everything else prefers the server message and falls back to Fallback.
func (m Messages) For(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return m.Fallback
	}
	if e.Kind == KindConflict {
		if m.Conflict != "" {
			return m.Conflict
		}
		if e.Message != "" && e.Message != http.StatusText(e.Status) {
			return e.Message
		}
		return DefaultConflictMessage
	}
	if e.Status == 0 && e.Kind == KindNetwork {
		return m.Fallback
	}
	if e.Message != "" && (e.Status == 0 || e.Message != http.StatusText(e.Status)) {
		return e.Message
	}
	return m.Fallback
}

func UserMessage(err error, fallback string) string {
	return Messages{Fallback: fallback}.For(err)
}

// Wrap reports a failed user action, carrying the text to show for it.
func (m Messages) Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Message: m.For(err), Err: err}
}

// OpError is a failed user action. Error returns the user-facing text; the cause stays
// reachable through errors.As and errors.Is.
type OpError struct {
	Op      string
	Message string
	Err     error
}

func (e *OpError) Error() string { return e.Message }

func (e *OpError) Unwrap() error { return e.Err }
