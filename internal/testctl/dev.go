package testctl

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"
)

type devOptions struct {
	Port  int
	Delay time.Duration
}

// runDev starts a stub inference backend and `go run`s the gateway against
// it, then blocks until interrupted. The stub answers every completion after
// the configured delay, so a handful of parallel requests is enough to watch
// queueing happen on /v1/queue/status.
func runDev(cfg *Config, opts devOptions) error {
	backendPort, err := chooseFreePort()
	if err != nil {
		return err
	}
	backendAddr := fmt.Sprintf("127.0.0.1:%d", backendPort)
	ln, err := net.Listen("tcp", backendAddr)
	if err != nil {
		return err
	}
	backendSrv := &http.Server{Handler: stubBackend(opts.Delay)}
	go func() { _ = backendSrv.Serve(ln) }()
	defer backendSrv.Close()
	info("[dev] stub backend listening on http://%s (reply delay %s)", backendAddr, opts.Delay)

	gwPort, err := preferOrFree(opts.Port)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw := exec.CommandContext(ctx, "go", "run", "./cmd/lmgate",
		"--addr", fmt.Sprintf(":%d", gwPort),
		"--backend-url", "http://"+backendAddr,
	)
	gw.Stdout = os.Stdout
	gw.Stderr = os.Stderr
	if err := gw.Start(); err != nil {
		return err
	}
	TrackProcess(gw)
	defer func() { _ = killProcesses() }()

	base := fmt.Sprintf("http://127.0.0.1:%d", gwPort)
	if err := waitHTTP(base+"/healthz", http.StatusOK, 60*time.Second); err != nil {
		return err
	}
	info("[dev] gateway ready at %s; Ctrl-C to stop", base)
	info("[dev] try: testctl load --url %s -n 12 -c 8", base)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	exited := make(chan error, 1)
	go func() { exited <- gw.Wait() }()
	select {
	case <-sigCh:
		info("[dev] shutting down")
		return nil
	case err := <-exited:
		return fmt.Errorf("gateway exited: %v", err)
	}
}

// stubBackend mimics just enough of llama-server for local development.
func stubBackend(delay time.Duration) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Stream bool   `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
		if req.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			fl, _ := w.(http.Flusher)
			for _, chunk := range []string{"stub ", "reply"} {
				fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", chunk)
				if fl != nil {
					fl.Flush()
				}
			}
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"cmpl-stub","object":"chat.completion","model":%q,"choices":[{"index":0,"message":{"role":"assistant","content":"stub reply"},"finish_reason":"stop"}]}`, req.Model)
	})
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"id":"stub-model","object":"model","owned_by":"testctl"}]}`)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	})
	return mux
}
