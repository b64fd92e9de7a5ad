package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(url string) *Client {
	return New(url, zerolog.Nop())
}

func TestChatCompletion_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %q", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cmpl-1","choices":[]}`))
	}))
	defer ts.Close()

	resp, err := newTestClient(ts.URL).ChatCompletion(context.Background(), []byte(`{"messages":[]}`))
	if err != nil {
		t.Fatalf("completion: %v", err)
	}
	if resp.StatusCode != 200 || resp.ContentType != "application/json" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if string(resp.Body) != `{"id":"cmpl-1","choices":[]}` {
		t.Fatalf("unexpected body: %s", resp.Body)
	}
}

func TestChatCompletion_StatusErrorCapturesBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).ChatCompletion(context.Background(), []byte(`{}`))
	se, ok := AsStatusError(err)
	if !ok {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != 500 || se.ContentType != "application/json" {
		t.Fatalf("unexpected status error: %+v", se)
	}
	if string(se.Body) != `{"error":{"message":"boom"}}` {
		t.Fatalf("body not captured: %s", se.Body)
	}
	if IsTimeout(err) || IsUnavailable(err) {
		t.Fatalf("status error misclassified: %v", err)
	}
}

func TestChatCompletion_Unavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := newTestClient(url).ChatCompletion(context.Background(), []byte(`{}`))
	if err == nil || !IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestChatCompletion_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := newTestClient(ts.URL).ChatCompletion(ctx, []byte(`{}`))
	if err == nil || !IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestChatCompletion_ClientCancelPassesThrough(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := newTestClient(ts.URL).ChatCompletion(ctx, []byte(`{}`))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if IsTimeout(err) || IsUnavailable(err) {
		t.Fatalf("cancellation misclassified: %v", err)
	}
}

func TestOpenChatStream_RelaysChunks(t *testing.T) {
	const payload = `{"messages":[{"role":"user","content":"hi"}],"stream":true}`
	chunks := []string{
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n",
		"data: [DONE]\n\n",
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ := io.ReadAll(r.Body)
		if string(got) != payload {
			t.Errorf("payload not forwarded verbatim: %s", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		f := w.(http.Flusher)
		for _, c := range chunks {
			w.Write([]byte(c))
			f.Flush()
			time.Sleep(5 * time.Millisecond)
		}
	}))
	defer ts.Close()

	st, err := newTestClient(ts.URL).OpenChatStream(context.Background(), []byte(payload))
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer st.Close()
	if st.ContentType() != "text/event-stream" {
		t.Fatalf("unexpected content type: %q", st.ContentType())
	}
	var all []byte
	for {
		chunk, err := st.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		all = append(all, chunk...)
	}
	want := chunks[0] + chunks[1] + chunks[2]
	if string(all) != want {
		t.Fatalf("stream bytes altered:\n got %q\nwant %q", all, want)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close after EOF: %v", err)
	}
}

func TestOpenChatStream_StatusErrorBeforeStream(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading model"))
	}))
	defer ts.Close()

	st, err := newTestClient(ts.URL).OpenChatStream(context.Background(), []byte(`{}`))
	if st != nil {
		t.Fatalf("expected nil stream on status error")
	}
	se, ok := AsStatusError(err)
	if !ok || se.StatusCode != 503 || string(se.Body) != "loading model" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStream_CloseMidStream(t *testing.T) {
	done := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(done)
		w.Header().Set("Content-Type", "text/event-stream")
		f := w.(http.Flusher)
		for i := 0; i < 100; i++ {
			if _, err := w.Write([]byte("data: x\n\n")); err != nil {
				return
			}
			f.Flush()
			select {
			case <-r.Context().Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}))
	defer ts.Close()

	st, err := newTestClient(ts.URL).OpenChatStream(context.Background(), []byte(`{}`))
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	if _, err := st.Recv(); err != nil {
		t.Fatalf("first recv: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := st.Recv(); err == nil || err == io.EOF {
		t.Fatalf("expected read failure after close, got %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("backend handler still running; connection leaked")
	}
}

func TestModels(t *testing.T) {
	const list = `{"object":"list","data":[{"id":"gpt-oss-20b","object":"model","owned_by":"local"}]}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(list))
	}))
	defer ts.Close()

	got, err := newTestClient(ts.URL).Models(context.Background())
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if string(got) != list {
		t.Fatalf("unexpected list: %s", got)
	}
}

func TestModels_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	if _, err := newTestClient(url).Models(context.Background()); err == nil {
		t.Fatalf("expected error for unreachable backend")
	}
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","slots_idle":4}`))
	}))
	defer ts.Close()

	h := newTestClient(ts.URL).Health(context.Background())
	if h.Status != "ok" || h.Error != "" {
		t.Fatalf("unexpected health: %+v", h)
	}
	if string(h.Detail) != `{"status":"ok","slots_idle":4}` {
		t.Fatalf("detail not captured: %s", h.Detail)
	}
}

func TestHealth_BackendDown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	h := newTestClient(url).Health(context.Background())
	if h.Status != "error" || h.Error == "" {
		t.Fatalf("unexpected health: %+v", h)
	}
}

func TestHealth_BackendStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"loading"}`))
	}))
	defer ts.Close()

	h := newTestClient(ts.URL).Health(context.Background())
	if h.Status != "error" || h.Error == "" {
		t.Fatalf("unexpected health: %+v", h)
	}
	if string(h.Detail) != `{"status":"loading"}` {
		t.Fatalf("detail not captured: %s", h.Detail)
	}
}

func TestForward_Verbatim(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/embeddings" || r.URL.RawQuery != "x=1" {
			t.Errorf("unexpected request: %s %s?%s", r.Method, r.URL.Path, r.URL.RawQuery)
		}
		if r.Header.Get("X-Custom") != "yes" {
			t.Errorf("custom header dropped")
		}
		if r.Header.Get("Te") != "" {
			t.Errorf("hop-by-hop header forwarded")
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"input":"hi"}` {
			t.Errorf("body altered: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Backend", "llama")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer ts.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/embeddings?x=1", strings.NewReader(`{"input":"hi"}`))
	req.Header.Set("X-Custom", "yes")
	req.Header.Set("Te", "trailers")
	rec := httptest.NewRecorder()
	if err := newTestClient(ts.URL).Forward(rec, req); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if rec.Header().Get("X-Backend") != "llama" {
		t.Fatalf("backend header dropped")
	}
	if rec.Body.String() != `{"data":[]}` {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestForward_ErrorBeforeWrite(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	req := httptest.NewRequest(http.MethodGet, "/v1/props", nil)
	rec := httptest.NewRecorder()
	err := newTestClient(url).Forward(rec, req)
	if err == nil || !IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("response written despite error: %s", rec.Body.String())
	}
}
