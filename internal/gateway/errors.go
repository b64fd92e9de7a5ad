package gateway

import (
	"time"
)

// queueTimeoutError signals the request budget expired while still queued:
// the gateway was too busy to start the work at all (429).
type queueTimeoutError struct{ waited time.Duration }

func (e queueTimeoutError) Error() string {
	return "timed out after " + e.waited.Round(time.Millisecond).String() + " waiting for an admission slot"
}

// IsQueueTimeout reports whether err is a queue-wait timeout (return 429).
func IsQueueTimeout(err error) bool {
	_, ok := err.(queueTimeoutError)
	return ok
}

// queueFullError signals the bounded wait queue rejected the request outright.
type queueFullError struct{}

func (e queueFullError) Error() string { return "request queue is full" }

// IsQueueFull reports whether err is a queue-overflow rejection (return 429).
func IsQueueFull(err error) bool {
	_, ok := err.(queueFullError)
	return ok
}
