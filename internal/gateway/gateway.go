// Package gateway dispatches admitted requests to the backend and reports
// queue state. It owns the request budget: the configured timeout covers
// queue wait and backend processing together, so a request that waited w
// seconds for admission has timeout-w left for inference.
package gateway

import (
	"time"

	"github.com/rs/zerolog"

	"lmgate/internal/admission"
	"lmgate/internal/backend"
)

// Config carries the dispatcher's runtime parameters.
type Config struct {
	// RequestTimeout is the total budget per completion request, queue
	// wait included.
	RequestTimeout time.Duration
	// DefaultModel is injected into payloads that omit a model.
	DefaultModel string
}

// StreamSink receives a relayed completion stream. Start commits the
// response and is called exactly once, before the first Write; after Start
// the transport can no longer change its mind about the status.
type StreamSink interface {
	Start(contentType string) error
	Write(chunk []byte) error
}

// Gateway coordinates admission, dispatch, and status reporting for a
// single backend.
type Gateway struct {
	cfg  Config
	gate *admission.Gate
	be   *backend.Client
	log  zerolog.Logger
}

// New constructs a Gateway over an admission gate and a backend client.
func New(cfg Config, gate *admission.Gate, be *backend.Client, logger zerolog.Logger) *Gateway {
	queueCapacity.Set(float64(gate.Capacity()))
	return &Gateway{cfg: cfg, gate: gate, be: be, log: logger}
}
