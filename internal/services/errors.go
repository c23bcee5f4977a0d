package services

import (
	"errors"
	"fmt"
	"strings"

	"petsync/internal/queue"
)

var (
	ErrNetwork        = errors.New("network error")
	ErrServerRejected = errors.New("server rejected")
	ErrUnknown        = errors.New("unknown error")
	ErrValidation     = errors.New("validation error")
	ErrConfiguration  = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrUnknown
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an attempt error to the failure kind recorded on the action.
func Classify(err error) queue.ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNetwork):
		return queue.ErrorKindNetwork
	case errors.Is(err, ErrServerRejected), errors.Is(err, ErrValidation):
		return queue.ErrorKindServerRejected
	default:
		return queue.ErrorKindUnknown
	}
}

// Message returns the display text stored on a failed action. Marker prefixes
// are kept so the kind is visible in listings.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "unknown failure"
	}
	return msg
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
