// internal/transport/stream.go
package transport

import "io"

// Stream is a reusable client byte stream to one remote address.
//
// Connect may return before the connection exists (async mode); callers
// poll HasConnection and Connecting to learn the outcome. A failed read or
// write drops the underlying connection, so HasConnection turns false and
// the owner decides when to reconnect.
type Stream interface {
	io.ReadWriter

	// Connect starts a connection attempt.
	Connect() error

	// HasConnection reports whether a live connection is held.
	HasConnection() bool

	// Connecting reports whether an attempt is still in flight.
	Connecting() bool

	// HasTimedOut reports whether the last read or write hit its deadline.
	// It is cleared by the next Connect.
	HasTimedOut() bool

	// LastError returns the cause of the last failed attempt or operation.
	LastError() error

	// Address returns "host:port".
	Address() string

	Close() error
}
