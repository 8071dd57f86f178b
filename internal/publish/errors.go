// internal/publish/errors.go
package publish

import "errors"

var (
	ErrNotConnected  = errors.New("publish: broker not connected")
	ErrConnectFailed = errors.New("publish: broker connection failed")
	ErrPublishFailed = errors.New("publish: publish failed")
	ErrTimeout       = errors.New("publish: timed out")
)
