package order

import (
	"errors"
	"strings"
)

// ErrSMSFailed is returned when the SMS provider rejects or cannot be reached.
var ErrSMSFailed = errors.New("sms delivery failed")

// ValidationError reports a request the service refuses to act on.
// Missing is set when required fields were absent.
type ValidationError struct {
	Message string
	Missing []string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return e.Message + ": " + strings.Join(e.Missing, ", ")
	}
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
