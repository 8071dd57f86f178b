// internal/status/constants.go
package status

// Health codes published for every device.
// These values are part of the published payload and MUST NOT be configurable.

// HealthUnknown represents a device that has not been polled yet.
const HealthUnknown uint16 = 0

// HealthOK represents a device whose last listener completed.
const HealthOK uint16 = 1

// HealthError represents a failed connect or a failed exchange.
const HealthError uint16 = 2

// HealthStale represents a device waiting on its session; data is from an earlier poll.
const HealthStale uint16 = 3

// HealthDisabled represents a device of an inactive monitor.
const HealthDisabled uint16 = 4

// SecondsInErrorMax is where the error clock saturates.
const SecondsInErrorMax = 65535

// HealthName returns the lower-case name of a health code.
func HealthName(code uint16) string {
	switch code {
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthStale:
		return "stale"
	case HealthDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}
