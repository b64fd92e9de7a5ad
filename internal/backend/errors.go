package backend

import "strconv"

// StatusError carries a non-2xx backend reply so the HTTP layer can forward
// the backend's own status and body to the client unchanged.
type StatusError struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (e *StatusError) Error() string {
	return "backend returned status " + strconv.Itoa(e.StatusCode)
}

// AsStatusError extracts the status error, if err is one.
func AsStatusError(err error) (*StatusError, bool) {
	se, ok := err.(*StatusError)
	return se, ok
}

// timeoutError signals the backend exceeded the remaining request budget (504).
type timeoutError struct {
	op  string
	err error
}

func (e timeoutError) Error() string { return "backend timeout: " + e.op + ": " + e.err.Error() }

// IsTimeout reports whether err indicates the backend ran out of time.
func IsTimeout(err error) bool {
	_, ok := err.(timeoutError)
	return ok
}

// unavailableError signals the backend could not be reached (502).
type unavailableError struct {
	op  string
	err error
}

func (e unavailableError) Error() string { return "backend unavailable: " + e.op + ": " + e.err.Error() }

// IsUnavailable reports whether err indicates an unreachable backend.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}
