package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"lmgate/internal/admission"
	"lmgate/internal/backend"
	"lmgate/pkg/types"
)

// queueLogThreshold keeps routine sub-100ms waits out of the logs.
const queueLogThreshold = 100 * time.Millisecond

// ChatCompletion dispatches a buffered completion. The returned response
// carries the backend's status, content type, and body unchanged.
func (g *Gateway) ChatCompletion(ctx context.Context, req *types.ChatCompletionRequest) (*backend.Response, error) {
	var resp *backend.Response
	err := g.dispatch(ctx, req, func(ctx context.Context, payload []byte) error {
		r, err := g.be.ChatCompletion(ctx, payload)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// StreamChatCompletion dispatches a streaming completion and relays every
// chunk to sink in arrival order. The admission slot is held for the whole
// stream. Errors before sink.Start leave the sink untouched so the caller
// can still send a regular error response; errors after Start truncate the
// stream and are returned for logging.
func (g *Gateway) StreamChatCompletion(ctx context.Context, req *types.ChatCompletionRequest, sink StreamSink) error {
	return g.dispatch(ctx, req, func(ctx context.Context, payload []byte) error {
		st, err := g.be.OpenChatStream(ctx, payload)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := sink.Start(st.ContentType()); err != nil {
			return err
		}
		for {
			chunk, err := st.Recv()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := sink.Write(chunk); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
		}
	})
}

// dispatch runs fn with an admission slot held and the request budget
// applied. The budget starts at arrival: a context deadline is set before
// enqueueing, so time spent queued is automatically deducted from what the
// backend call gets. The slot is released exactly once, when fn returns.
func (g *Gateway) dispatch(ctx context.Context, req *types.ChatCompletionRequest, fn func(context.Context, []byte) error) error {
	if req.Model == "" {
		req.SetModel(g.cfg.DefaultModel)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()

	queueStart := time.Now()
	if err := g.gate.Acquire(ctx); err != nil {
		return g.admissionFailure(err, time.Since(queueStart))
	}
	defer g.gate.Release()

	if waited := time.Since(queueStart); waited > queueLogThreshold {
		g.log.Info().Dur("queued", waited).Str("model", req.Model).Msg("request queued before dispatch")
	}

	start := time.Now()
	err = fn(ctx, payload)
	g.recordOutcome(err)
	if err == nil {
		g.log.Debug().Dur("inference", time.Since(start)).Str("model", req.Model).Msg("completion dispatched")
	}
	return err
}

// admissionFailure translates a gate error into the dispatcher's taxonomy.
func (g *Gateway) admissionFailure(err error, waited time.Duration) error {
	switch {
	case admission.IsQueueFull(err):
		countOutcome(outcomeQueueFull)
		return queueFullError{}
	case errors.Is(err, context.DeadlineExceeded):
		countOutcome(outcomeQueueTimeout)
		return queueTimeoutError{waited: waited}
	case errors.Is(err, context.Canceled):
		countOutcome(outcomeCanceled)
		return context.Canceled
	default:
		countOutcome(outcomeError)
		return err
	}
}

func (g *Gateway) recordOutcome(err error) {
	switch {
	case err == nil:
		countOutcome(outcomeCompleted)
	case errors.Is(err, context.Canceled):
		countOutcome(outcomeCanceled)
	case backend.IsTimeout(err):
		countOutcome(outcomeBackendTimeout)
	case backend.IsUnavailable(err):
		countOutcome(outcomeBackendUnavailable)
	default:
		if _, ok := backend.AsStatusError(err); ok {
			countOutcome(outcomeBackendError)
			return
		}
		countOutcome(outcomeError)
	}
}
