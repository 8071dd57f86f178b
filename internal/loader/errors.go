// internal/loader/errors.go
package loader

import "errors"

var (
	ErrStatus  = errors.New("loader: unexpected status")
	ErrDecode  = errors.New("loader: decode failed")
	ErrRequest = errors.New("loader: request failed")
	ErrRead    = errors.New("loader: read failed")
)
