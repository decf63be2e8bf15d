package conversation

import "errors"

// Sentinel errors for conversation store operations. Callers check them with
// errors.Is().
var (
	// ErrThreadNotFound indicates the requested thread does not exist and
	// implicit creation was not allowed.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrInvalidRole indicates an attempt to persist a message with a role
	// other than "user" or "assistant".
	ErrInvalidRole = errors.New("invalid message role")

	// ErrPersistence wraps storage-layer failures. A caller must not assume
	// a message was saved unless the append returned nil.
	ErrPersistence = errors.New("persistence failure")
)
