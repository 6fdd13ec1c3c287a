package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeRoomFull           = "room_full"
	ErrCodeAlreadyJoined      = "already_joined"
	ErrCodeBadRequest         = "bad_request"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeUnsupportedVersion = "unsupported_version"
	ErrCodeRateLimited        = "rate_limited"
	ErrCodeInvalidMessage     = "invalid_message"
)

var (
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyJoined = errors.New("already joined")
	ErrBadRequest    = errors.New("bad request")
	// ErrDropped means the connection fell behind and was evicted.
	ErrDropped       = errors.New("connection dropped")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
