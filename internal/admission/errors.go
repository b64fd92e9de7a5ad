package admission

import "strconv"

// queueFullError signals that the bounded wait queue rejected an acquire.
type queueFullError struct{ depth int }

func (e queueFullError) Error() string {
	return "admission queue full (depth " + strconv.Itoa(e.depth) + ")"
}

// IsQueueFull reports whether err is a queue-bound rejection (return 429).
func IsQueueFull(err error) bool {
	_, ok := err.(queueFullError)
	return ok
}
