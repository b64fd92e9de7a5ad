package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"lmgate/pkg/types"
)

// QueueStatus reports the current admission snapshot. Reading it has no
// effect on queue order or counts.
func (g *Gateway) QueueStatus() types.QueueStatusResponse {
	s := g.gate.Snapshot()
	return types.QueueStatusResponse{
		Capacity:          s.Capacity,
		Active:            s.Active,
		Queued:            s.Queued,
		OldestWaitSeconds: s.OldestWait.Seconds(),
		BackendURL:        g.be.BaseURL(),
	}
}

// Health reports gateway liveness together with a backend probe, the gate
// snapshot, and a configuration echo. The gateway itself is always "ok"
// while serving; backend trouble shows up in the backend sub-document.
func (g *Gateway) Health(ctx context.Context) types.HealthResponse {
	return types.HealthResponse{
		Status:  "ok",
		Backend: g.be.Health(ctx),
		Queue:   g.QueueStatus(),
		Config: types.HealthConfig{
			MaxConcurrentRequests: g.gate.Capacity(),
			DefaultModel:          g.cfg.DefaultModel,
		},
	}
}

// Models returns the backend's model list, or the configured fallback when
// the backend cannot produce one. It never fails.
func (g *Gateway) Models(ctx context.Context) []byte {
	body, err := g.be.Models(ctx)
	if err == nil && json.Valid(body) {
		return body
	}
	if err != nil {
		g.log.Warn().Err(err).Msg("model list probe failed, serving fallback")
	}
	fallback := types.ModelList{
		Object: "list",
		Data: []types.ModelInfo{
			{ID: g.cfg.DefaultModel, Object: "model", OwnedBy: "local"},
		},
	}
	b, _ := json.Marshal(fallback)
	return b
}

// Forward relays an uncovered /v1 endpoint straight to the backend. The
// passthrough is not admission-gated; sustained load belongs on the gated
// completion path. A non-nil error means nothing was written to w.
func (g *Gateway) Forward(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.RequestTimeout)
	defer cancel()
	return g.be.Forward(w, r.WithContext(ctx))
}
