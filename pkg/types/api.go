package types

import (
	"encoding/json"
	"fmt"
)

// ChatMessage is a single turn in an OpenAI-style conversation.
type ChatMessage struct {
	// Role of the author: system, user, assistant, or tool.
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	// example: Write a haiku about the ocean.
	Content string `json:"content" example:"Write a haiku about the ocean."`
}

// ChatCompletionRequest is an OpenAI-compatible chat completion payload.
// Unknown fields are preserved and forwarded to the backend verbatim, so
// callers may pass any parameter their backend understands.
type ChatCompletionRequest struct {
	// Model identifier. If empty, the gateway's configured default is used.
	// example: gpt-oss-20b
	Model string `json:"model,omitempty" example:"gpt-oss-20b"`
	// Conversation turns. At least one message is required.
	Messages []ChatMessage `json:"messages"`
	// If true, the response is streamed as server-sent events.
	// example: false
	Stream bool `json:"stream,omitempty" example:"false"`
	// Maximum number of tokens to generate.
	// example: 128
	MaxTokens int `json:"max_tokens,omitempty" example:"128"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`

	// raw holds the payload exactly as received, keyed by top-level field.
	// It is the source of truth when forwarding, so fields this struct does
	// not model (and zero-valued known fields) survive the round trip.
	raw map[string]json.RawMessage
}

// UnmarshalJSON decodes the known fields and retains the full raw payload.
func (r *ChatCompletionRequest) UnmarshalJSON(data []byte) error {
	type plain ChatCompletionRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.raw = raw
	*r = ChatCompletionRequest(p)
	return nil
}

// MarshalJSON encodes the request for forwarding. A request decoded from JSON
// reproduces its original payload (plus any SetModel override); one built from
// fields encodes the known fields directly.
func (r ChatCompletionRequest) MarshalJSON() ([]byte, error) {
	if r.raw == nil {
		type plain ChatCompletionRequest
		return json.Marshal(plain(r))
	}
	return json.Marshal(r.raw)
}

// SetModel overrides the model in both the typed view and the raw payload.
func (r *ChatCompletionRequest) SetModel(model string) {
	r.Model = model
	if r.raw != nil {
		b, _ := json.Marshal(model)
		r.raw["model"] = b
	}
}

// Validate reports whether the request is well-formed enough to queue.
func (r *ChatCompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages is required")
	}
	for i, m := range r.Messages {
		if m.Role == "" {
			return fmt.Errorf("messages[%d].role is required", i)
		}
	}
	return nil
}

// ModelInfo describes one model in an OpenAI-style model list.
type ModelInfo struct {
	// Stable identifier for the model.
	// example: gpt-oss-20b
	ID string `json:"id" example:"gpt-oss-20b"`
	// Object type, always "model".
	// example: model
	Object string `json:"object" example:"model"`
	// Owner reported for the model.
	// example: local
	OwnedBy string `json:"owned_by" example:"local"`
}

// ModelList is the OpenAI-style response of GET /v1/models.
type ModelList struct {
	// Object type, always "list".
	// example: list
	Object string `json:"object" example:"list"`
	// Available models.
	Data []ModelInfo `json:"data"`
}

// QueueStatusResponse reports gateway saturation for GET /v1/queue/status.
type QueueStatusResponse struct {
	// Maximum number of concurrent backend requests.
	// example: 4
	Capacity int `json:"capacity" example:"4"`
	// Requests currently being served by the backend.
	// example: 4
	Active int `json:"active" example:"4"`
	// Requests waiting for admission.
	// example: 2
	Queued int `json:"queued" example:"2"`
	// Seconds the oldest queued request has been waiting. Zero when the
	// queue is empty.
	// example: 1.5
	OldestWaitSeconds float64 `json:"oldest_wait_seconds" example:"1.5"`
	// Base URL of the inference backend.
	// example: http://127.0.0.1:8080
	BackendURL string `json:"backend_url" example:"http://127.0.0.1:8080"`
}

// BackendHealth reports reachability of the inference backend.
type BackendHealth struct {
	// "ok" when the backend answered the probe, "error" otherwise.
	// example: ok
	Status string `json:"status" example:"ok"`
	// Raw health payload returned by the backend, when reachable.
	Detail json.RawMessage `json:"detail,omitempty" swaggertype:"object"`
	// Probe failure description, when unreachable.
	// example: connection refused
	Error string `json:"error,omitempty" example:"connection refused"`
}

// HealthConfig echoes the immutable settings relevant to operators.
type HealthConfig struct {
	// Concurrency capacity of the admission gate.
	// example: 4
	MaxConcurrentRequests int `json:"max_concurrent_requests" example:"4"`
	// Model reported when a request omits one.
	// example: gpt-oss-20b
	DefaultModel string `json:"default_model" example:"gpt-oss-20b"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// Gateway process status, always "ok" while serving.
	// example: ok
	Status string `json:"status" example:"ok"`
	// Backend reachability probe result.
	Backend BackendHealth `json:"backend"`
	// Current admission gate snapshot.
	Queue QueueStatusResponse `json:"queue"`
	// Effective configuration echo.
	Config HealthConfig `json:"config"`
}

// ServiceInfo is the GET / metadata document.
type ServiceInfo struct {
	// Service name.
	// example: lmgate
	Service string `json:"service" example:"lmgate"`
	// Service version.
	// example: 0.1.0
	Version string `json:"version" example:"0.1.0"`
	// Map of logical endpoint names to paths.
	Endpoints map[string]string `json:"endpoints"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
