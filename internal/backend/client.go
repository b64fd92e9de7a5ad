// Package backend implements the HTTP client for the llama-server upstream.
// It never queues or limits anything itself; admission is the dispatcher's
// job. All deadlines ride the request context.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lmgate/pkg/types"
)

// probeTimeout bounds the health and model-list probes so a hung backend
// cannot stall status endpoints.
const probeTimeout = 5 * time.Second

// maxCapturedBody bounds how much of a non-2xx response is retained for
// forwarding to the client.
const maxCapturedBody = 1 << 20

// Response is a buffered 2xx backend reply.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Client talks to a single llama-server instance.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New constructs a client for the backend at baseURL.
func New(baseURL string, logger zerolog.Logger) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout stays 0: completions may legitimately run for minutes, so
	// every request carries its own deadline on the context instead.
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: tr, Timeout: 0},
		log:     logger,
	}
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// ChatCompletion posts payload to /v1/chat/completions and buffers the reply.
// Non-2xx replies surface as *StatusError with the body captured.
func (c *Client) ChatCompletion(ctx context.Context, payload []byte) (*Response, error) {
	resp, err := c.post(ctx, "/v1/chat/completions", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ctx, "read completion response", err)
	}
	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// OpenChatStream posts payload to /v1/chat/completions and hands back the
// live response body once the backend has committed a 2xx status. The caller
// owns the returned Stream and must Close it.
func (c *Client) OpenChatStream(ctx context.Context, payload []byte) (*Stream, error) {
	resp, err := c.post(ctx, "/v1/chat/completions", payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, newStatusError(resp)
	}
	return &Stream{
		ctx:         ctx,
		body:        resp.Body,
		contentType: resp.Header.Get("Content-Type"),
		buf:         make([]byte, 32<<10),
	}, nil
}

// Models fetches the backend's model list raw, within the probe budget.
func (c *Client) Models(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(ctx, "get /v1/models", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ctx, "read model list", err)
	}
	return body, nil
}

// Health probes the backend /health endpoint within the probe budget.
// It always returns a result; failures are reported in the struct rather
// than as an error so status endpoints stay available.
func (c *Client) Health(ctx context.Context) types.BackendHealth {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return types.BackendHealth{Status: "error", Error: err.Error()}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return types.BackendHealth{Status: "error", Error: err.Error()}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxCapturedBody))
	h := types.BackendHealth{Status: "ok"}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.Status = "error"
		h.Error = "backend returned " + resp.Status
	}
	if json.Valid(body) {
		h.Detail = json.RawMessage(body)
	}
	return h
}

// Forward relays r to the backend verbatim and streams the reply back to w,
// flushing per chunk so streaming endpoints work through the passthrough.
// A non-nil error means nothing has been written to w yet and the caller
// can still produce its own error response.
func (c *Client) Forward(w http.ResponseWriter, r *http.Request) error {
	u := c.baseURL + r.URL.Path
	if r.URL.RawQuery != "" {
		u += "?" + r.URL.RawQuery
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, u, r.Body)
	if err != nil {
		return classify(r.Context(), "forward "+r.URL.Path, err)
	}
	req.Header = r.Header.Clone()
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return classify(r.Context(), "forward "+r.URL.Path, err)
	}
	defer resp.Body.Close()

	dst := w.Header()
	for k, vv := range resp.Header {
		if isHopHeader(k) {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32<<10)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				// Client went away; the response is already under way.
				return nil
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rerr != nil {
			if rerr != io.EOF {
				c.log.Warn().Err(rerr).Str("path", r.URL.Path).Msg("passthrough response truncated")
			}
			return nil
		}
	}
}

func (c *Client) post(ctx context.Context, path string, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(ctx, "post "+path, err)
	}
	return resp, nil
}

func newStatusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxCapturedBody))
	return &StatusError{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        b,
	}
}

// classify sorts a transport failure into the gateway's error taxonomy.
// Client cancellation passes through untouched so the dispatcher can tell
// an abandoned request from a broken backend.
func classify(ctx context.Context, op string, err error) error {
	if ctx.Err() == context.Canceled {
		return context.Canceled
	}
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return timeoutError{op: op, err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return timeoutError{op: op, err: err}
	}
	return unavailableError{op: op, err: err}
}

// hopHeaders are connection-scoped and must not cross the proxy (RFC 7230 §6.1).
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func isHopHeader(name string) bool {
	for _, h := range hopHeaders {
		if http.CanonicalHeaderKey(name) == h {
			return true
		}
	}
	return false
}
