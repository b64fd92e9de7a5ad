package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lmgate/internal/backend"
	"lmgate/internal/gateway"
	"lmgate/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ChatCompletion(ctx context.Context, req *types.ChatCompletionRequest) (*backend.Response, error)
	StreamChatCompletion(ctx context.Context, req *types.ChatCompletionRequest, sink gateway.StreamSink) error
	Models(ctx context.Context) []byte
	Health(ctx context.Context) types.HealthResponse
	QueueStatus() types.QueueStatusResponse
	Forward(w http.ResponseWriter, r *http.Request) error
}

type server struct {
	svc Service
}

// NewMux builds the gateway's HTTP handler around svc.
func NewMux(svc Service) http.Handler {
	s := &server{svc: svc}
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints. Event streams are not in the
	// compressible set and pass through untouched.
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Post("/v1/chat/completions", s.handleChatCompletions)
	r.Get("/v1/models", s.handleModels)
	r.Get("/v1/queue/status", s.handleQueueStatus)
	r.Get("/health", s.handleHealth)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/", s.handleServiceInfo)

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	// Anything else under /v1 relays to the backend untouched.
	r.HandleFunc("/v1/*", s.handleForward)

	return r
}

// handleChatCompletions godoc
// @Summary      Create a chat completion
// @Description  Proxies an OpenAI-compatible chat completion to the local inference backend. When every backend slot is busy the request waits in a FIFO queue; time spent waiting counts against the request timeout. Set stream=true for server-sent events. Fields beyond the documented ones are forwarded to the backend verbatim.
// @Tags         completions
// @Accept       json
// @Produce      json
// @Param        request  body      types.ChatCompletionRequest  true  "Chat completion payload"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Failure      502      {object}  types.ErrorResponse
// @Failure      504      {object}  types.ErrorResponse
// @Router       /v1/chat/completions [post]
func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	// Content-Type check
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	// Limit body size (configurable, default 1MiB)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	lvl := requestLogLevel(r)
	start := time.Now()
	if lvl >= LevelInfo {
		logStart(r, req.Model, req.Stream)
	}
	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	if req.Stream {
		s.streamCompletion(ctx, w, r, &req, lvl, start)
		return
	}

	resp, err := s.svc.ChatCompletion(ctx, &req)
	if err != nil {
		// Client disconnect or shutdown: the connection is gone, log and stop.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			logEnd(r, lvl, statusClientClosed, start, err)
			return
		}
		writeServiceError(w, r, lvl, start, err)
		return
	}
	relayResponse(w, resp)
	logEnd(r, lvl, resp.StatusCode, start, nil)
}

// streamCompletion relays a streaming completion. Once the sink has started,
// the status line is committed and a failure can only end the stream early.
func (s *server) streamCompletion(ctx context.Context, w http.ResponseWriter, r *http.Request, req *types.ChatCompletionRequest, lvl LogLevel, start time.Time) {
	sink := newStreamStarter(w, lvl)
	err := s.svc.StreamChatCompletion(ctx, req, sink)
	if err == nil {
		logEnd(r, lvl, http.StatusOK, start, nil)
		return
	}
	if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
		logEnd(r, lvl, statusClientClosed, start, err)
		return
	}
	if sink.started {
		logEnd(r, lvl, http.StatusOK, start, err)
		return
	}
	writeServiceError(w, r, lvl, start, err)
}

// handleModels godoc
// @Summary      List available models
// @Description  Relays the backend's model list. When the backend cannot answer, serves a single-entry fallback naming the configured default model so clients always get a usable list.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelList
// @Router       /v1/models [get]
func (s *server) handleModels(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	w.Header().Set("Content-Type", "application/json")
	w.Write(s.svc.Models(ctx))
}

// handleQueueStatus godoc
// @Summary      Inspect the admission queue
// @Description  Reports capacity, active requests, queued requests, and how long the oldest waiter has been queued. Reading the snapshot does not affect queue order.
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.QueueStatusResponse
// @Router       /v1/queue/status [get]
func (s *server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.svc.QueueStatus()); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
}

// handleHealth godoc
// @Summary      Gateway health
// @Description  Always returns 200 while the gateway is serving. Backend reachability is reported inside the payload, so a dead backend never takes the gateway itself out of rotation.
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Router       /health [get]
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.svc.Health(ctx)); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
}

// handleServiceInfo godoc
// @Summary      Service metadata
// @Description  Names the service, its version, and the endpoints it serves.
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.ServiceInfo
// @Router       / [get]
func (s *server) handleServiceInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(types.ServiceInfo{
		Service: "lmgate",
		Version: serviceVersion,
		Endpoints: map[string]string{
			"chat_completions": "/v1/chat/completions",
			"models":           "/v1/models",
			"queue_status":     "/v1/queue/status",
			"health":           "/health",
			"metrics":          "/metrics",
		},
	})
}

// handleForward relays uncovered /v1 endpoints (embeddings, completions,
// tokenize) straight to the backend, skipping admission.
func (s *server) handleForward(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if err := s.svc.Forward(w, r.WithContext(ctx)); err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status := http.StatusBadGateway
		if backend.IsTimeout(err) {
			status = http.StatusGatewayTimeout
		}
		writeJSONError(w, status, err.Error())
	}
}

// relayResponse writes a buffered backend reply through unchanged.
func relayResponse(w http.ResponseWriter, resp *backend.Response) {
	ct := resp.ContentType
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

// streamStarter adapts an http.ResponseWriter into a completion stream sink.
// Start commits the response headers; each chunk is flushed as it arrives so
// tokens reach the client without buffering delay.
type streamStarter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	tee     *loggingLineWriter
	started bool
}

func newStreamStarter(w http.ResponseWriter, lvl LogLevel) *streamStarter {
	s := &streamStarter{w: w}
	if f, ok := w.(http.Flusher); ok {
		s.flusher = f
	}
	if lvl >= LevelDebug {
		s.tee = &loggingLineWriter{}
	}
	return s
}

func (s *streamStarter) Start(contentType string) error {
	if contentType == "" {
		contentType = "text/event-stream"
	}
	s.w.Header().Set("Content-Type", contentType)
	s.w.WriteHeader(http.StatusOK)
	s.started = true
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *streamStarter) Write(chunk []byte) error {
	if _, err := s.w.Write(chunk); err != nil {
		return err
	}
	if s.tee != nil {
		s.tee.Write(chunk)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
