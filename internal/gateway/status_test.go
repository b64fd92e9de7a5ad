package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lmgate/internal/admission"
	"lmgate/pkg/types"
)

func TestQueueStatus(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	gw, gate := newGW(ts.URL, 2, 5*time.Second)
	st := gw.QueueStatus()
	if st.Capacity != 2 || st.Active != 0 || st.Queued != 0 || st.OldestWaitSeconds != 0 {
		t.Fatalf("unexpected idle status: %+v", st)
	}
	if st.BackendURL != ts.URL {
		t.Fatalf("backend url not reported: %+v", st)
	}

	done := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := gw.ChatCompletion(context.Background(), chatReq(t, `{"messages":[{"role":"user","content":"x"}]}`))
			done <- err
		}()
	}
	waitSnapshot(t, gate, func(s admission.Snapshot) bool { return s.Active == 2 && s.Queued == 1 })
	time.Sleep(20 * time.Millisecond)
	st = gw.QueueStatus()
	if st.Active != 2 || st.Queued != 1 {
		t.Fatalf("unexpected saturated status: %+v", st)
	}
	if st.OldestWaitSeconds <= 0 {
		t.Fatalf("oldest wait not reported: %+v", st)
	}
	// Reading status must not admit, evict, or reorder anything.
	if st2 := gw.QueueStatus(); st2.Active != st.Active || st2.Queued != st.Queued {
		t.Fatalf("status read changed state: %+v vs %+v", st, st2)
	}

	close(release)
	for i := 0; i < 3; i++ {
		if err := <-done; err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
}

func TestHealth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	gw, _ := newGW(ts.URL, 4, time.Second)
	h := gw.Health(context.Background())
	if h.Status != "ok" || h.Backend.Status != "ok" {
		t.Fatalf("unexpected health: %+v", h)
	}
	if string(h.Backend.Detail) != `{"status":"ok"}` {
		t.Fatalf("backend detail missing: %+v", h.Backend)
	}
	if h.Config.MaxConcurrentRequests != 4 || h.Config.DefaultModel != "gpt-oss-20b" {
		t.Fatalf("config echo wrong: %+v", h.Config)
	}
	if h.Queue.Capacity != 4 {
		t.Fatalf("queue snapshot missing: %+v", h.Queue)
	}
}

func TestHealth_BackendDownStillOK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	gw, _ := newGW(url, 4, time.Second)
	h := gw.Health(context.Background())
	if h.Status != "ok" {
		t.Fatalf("gateway must stay ok when backend is down: %+v", h)
	}
	if h.Backend.Status != "error" || h.Backend.Error == "" {
		t.Fatalf("backend state not reported: %+v", h.Backend)
	}
}

func TestModels_Passthrough(t *testing.T) {
	const list = `{"object":"list","data":[{"id":"live-model","object":"model","owned_by":"backend"}]}`
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(list))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	gw, _ := newGW(ts.URL, 1, time.Second)
	if got := string(gw.Models(context.Background())); got != list {
		t.Fatalf("list not passed through: %s", got)
	}
}

func TestModels_FallbackWhenUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	gw, _ := newGW(url, 1, time.Second)
	var list types.ModelList
	if err := json.Unmarshal(gw.Models(context.Background()), &list); err != nil {
		t.Fatalf("fallback not JSON: %v", err)
	}
	if list.Object != "list" || len(list.Data) != 1 {
		t.Fatalf("unexpected fallback: %+v", list)
	}
	if list.Data[0].ID != "gpt-oss-20b" || list.Data[0].OwnedBy != "local" {
		t.Fatalf("unexpected fallback entry: %+v", list.Data[0])
	}
}

func TestModels_FallbackOnBackendError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	gw, _ := newGW(ts.URL, 1, time.Second)
	var list types.ModelList
	if err := json.Unmarshal(gw.Models(context.Background()), &list); err != nil {
		t.Fatalf("fallback not JSON: %v", err)
	}
	if len(list.Data) != 1 || list.Data[0].ID != "gpt-oss-20b" {
		t.Fatalf("unexpected fallback: %+v", list)
	}
}

// The passthrough must work while the gate is saturated; it is not gated.
func TestForward_BypassesAdmission(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/v1/props", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total_slots":4}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	gw, gate := newGW(ts.URL, 1, 5*time.Second)
	done := make(chan error, 1)
	go func() {
		_, err := gw.ChatCompletion(context.Background(), chatReq(t, `{"messages":[{"role":"user","content":"x"}]}`))
		done <- err
	}()
	waitSnapshot(t, gate, func(s admission.Snapshot) bool { return s.Active == 1 })

	req := httptest.NewRequest(http.MethodGet, "/v1/props", nil)
	rec := httptest.NewRecorder()
	start := time.Now()
	if err := gw.Forward(rec, req); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("passthrough appears to have queued")
	}
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), "total_slots") {
		t.Fatalf("unexpected passthrough response: %d %s", rec.Code, rec.Body.String())
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("gated request: %v", err)
	}
}
