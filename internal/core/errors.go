package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// ValidationError represents a validation error with specific field
// information.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string

	// Message is the validation error message.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Is implements error matching for errors.Is.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ClassifyTransportError renders a network-level failure as the error
// string carried in a SendResult. Timeouts are distinguishable by the
// "timeout" prefix so the queue-draining job can treat them separately.
func ClassifyTransportError(err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("timeout after %s", timeout)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Sprintf("timeout after %s", timeout)
	}
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	return "network error: " + err.Error()
}

// vendorError matches the common shapes of JSON error bodies across the
// four vendor APIs.
type vendorError struct {
	Message string `json:"message"`
	Error   string `json:"Error,omitempty"`
	AWSMsg  string `json:"Message,omitempty"`
}

// ErrorFromBody extracts a human-readable error message from a vendor's
// JSON error body, falling back to the HTTP status code when the body
// carries nothing usable.
func ErrorFromBody(body []byte, statusCode int) string {
	if len(body) > 0 {
		var ve vendorError
		if err := json.Unmarshal(body, &ve); err == nil {
			switch {
			case ve.Message != "":
				return ve.Message
			case ve.AWSMsg != "":
				return ve.AWSMsg
			case ve.Error != "":
				return ve.Error
			}
		}
	}
	return "HTTP " + strconv.Itoa(statusCode)
}

// MaskSecret reduces a credential to a short prefix for debug output.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
