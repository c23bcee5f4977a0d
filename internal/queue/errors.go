package queue

import "errors"

var (
	// ErrQueueFull is returned by Enqueue when the configured capacity is reached.
	ErrQueueFull = errors.New("action queue is full")
	// ErrNotFound is returned when a transition targets an action that does not exist.
	ErrNotFound = errors.New("action not found")
	// ErrInvalidTransition is returned when an action is not in a state that
	// allows the requested transition.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidActionType rejects action types outside the known set.
	ErrInvalidActionType = errors.New("invalid action type")
	// ErrInvalidPayload rejects payloads that are not valid JSON.
	ErrInvalidPayload = errors.New("invalid action payload")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)
