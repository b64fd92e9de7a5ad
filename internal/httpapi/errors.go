package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"lmgate/internal/backend"
	"lmgate/internal/gateway"
	"lmgate/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusClientClosed is the nginx 499 convention. It never goes on the wire,
// only into logs, since by then the client connection is gone.
const statusClientClosed = 499

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeServiceError maps a dispatch error onto the wire. Backend status
// errors pass through with their original status, content type, and body;
// everything else becomes a JSON error.
func writeServiceError(w http.ResponseWriter, r *http.Request, lvl LogLevel, start time.Time, err error) {
	if se, ok := backend.AsStatusError(err); ok {
		ct := se.ContentType
		if ct == "" {
			ct = "application/json"
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(se.StatusCode)
		w.Write(se.Body)
		logEnd(r, lvl, se.StatusCode, start, err)
		return
	}
	status := errorStatus(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure(backpressureReason(err))
	}
	writeJSONError(w, status, err.Error())
	logEnd(r, lvl, status, start, err)
}

// errorStatus picks the response code for a non-passthrough dispatch error.
// Queue rejections are 429 so clients know to back off and retry; a backend
// that ran out of budget is 504 and one that could not be reached is 502.
func errorStatus(err error) int {
	switch {
	case gateway.IsQueueFull(err) || gateway.IsQueueTimeout(err):
		return http.StatusTooManyRequests
	case backend.IsTimeout(err):
		return http.StatusGatewayTimeout
	case backend.IsUnavailable(err):
		return http.StatusBadGateway
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

func backpressureReason(err error) string {
	if gateway.IsQueueFull(err) {
		return "queue_full"
	}
	return "queue_timeout"
}
