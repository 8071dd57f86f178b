// internal/connection/errors.go
package connection

import "errors"

var (
	// ErrConnectFailed means a session could not be created or a connect could not be issued.
	ErrConnectFailed = errors.New("connection: connect failed")

	// ErrNotReady means a new connection attempt was just issued.
	ErrNotReady = errors.New("connection: not ready")

	// ErrPending means an attempt is already in flight; no new attempt was made.
	ErrPending = errors.New("connection: reconnect pending")
)
