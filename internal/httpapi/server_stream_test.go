package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"lmgate/pkg/types"
)

func streamBody() string {
	return `{"model":"m1","stream":true,"messages":[{"role":"user","content":"hi"}]}`
}

func TestChatCompletions_StreamRelaysEvents(t *testing.T) {
	svc := &mockService{chunks: []string{"data: {\"delta\":\"hi\"}\n\n", "data: [DONE]\n\n"}}
	r := NewMux(svc)
	w := postChat(r, streamBody())
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type=%s", ct)
	}
	want := "data: {\"delta\":\"hi\"}\n\ndata: [DONE]\n\n"
	if w.Body.String() != want {
		t.Fatalf("body=%q want %q", w.Body.String(), want)
	}
	if !w.Flushed {
		t.Fatal("stream was never flushed")
	}
}

func TestChatCompletions_StreamKeepsBackendContentType(t *testing.T) {
	svc := &mockService{streamCT: "text/event-stream; charset=utf-8", chunks: []string{"data: x\n\n"}}
	r := NewMux(svc)
	w := postChat(r, streamBody())
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream; charset=utf-8" {
		t.Fatalf("content-type=%s", ct)
	}
}

func TestChatCompletions_StreamPreStartFailure(t *testing.T) {
	svc := &mockService{streamErr: errors.New("model exploded")}
	r := NewMux(svc)
	w := postChat(r, streamBody())
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var e types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("expected JSON error, got %q: %v", w.Body.String(), err)
	}
	if !strings.Contains(e.Error, "model exploded") {
		t.Fatalf("error=%q", e.Error)
	}
}

func TestChatCompletions_StreamTruncatedAfterStart(t *testing.T) {
	svc := &mockService{
		chunks:      []string{"data: first\n\n"},
		streamErr:   errors.New("backend died mid-stream"),
		streamStart: true,
	}
	r := NewMux(svc)
	w := postChat(r, streamBody())
	// The status line went out with the first chunk; the error can only
	// truncate, never rewrite the response.
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if w.Body.String() != "data: first\n\n" {
		t.Fatalf("body=%q", w.Body.String())
	}
}
