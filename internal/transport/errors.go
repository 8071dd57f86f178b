// internal/transport/errors.go
package transport

import "errors"

var (
	ErrInvalidConfig     = errors.New("transport: invalid config")
	ErrNotConnected      = errors.New("transport: not connected")
	ErrConnectInProgress = errors.New("transport: connect in progress")
	ErrAccess            = errors.New("transport: access mode forbids operation")
	ErrClosed            = errors.New("transport: stream closed")
)
