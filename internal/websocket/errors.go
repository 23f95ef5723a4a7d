package websocket

import "errors"

// Connection-level error types
var (
	ErrConnectionClosed = errors.New("connection is closed")
	ErrInvalidJSON      = errors.New("failed to marshal message to JSON")
	ErrWriteTimeout     = errors.New("write operation timed out")
)
