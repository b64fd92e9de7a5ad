package testctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// runSmoke drives the public surface of a running gateway once: liveness,
// service metadata, model list, one buffered completion, and the queue
// snapshot. It fails on the first check that misbehaves.
func runSmoke(cfg *Config) error {
	info("==== Smoke check against %s ====", cfg.URL)
	client := &http.Client{Timeout: 60 * time.Second}

	if err := waitHTTP(cfg.URL+"/healthz", http.StatusOK, 10*time.Second); err != nil {
		return err
	}
	info("[smoke] /healthz ok")

	var svc struct {
		Service string `json:"service"`
		Version string `json:"version"`
	}
	if err := getJSON(client, cfg.URL+"/", &svc); err != nil {
		return fmt.Errorf("service metadata: %w", err)
	}
	info("[smoke] / ok: %s %s", svc.Service, svc.Version)

	var models struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := getJSON(client, cfg.URL+"/v1/models", &models); err != nil {
		return fmt.Errorf("model list: %w", err)
	}
	if len(models.Data) == 0 {
		return fmt.Errorf("model list is empty")
	}
	info("[smoke] /v1/models ok: %d model(s), first %q", len(models.Data), models.Data[0].ID)

	status, latency, err := postCompletion(client, cfg.URL, "Reply with the single word: pong.", false)
	if err != nil {
		return fmt.Errorf("completion: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("completion returned %d", status)
	}
	info("[smoke] completion ok in %s", latency.Round(time.Millisecond))

	var queue struct {
		Capacity int `json:"capacity"`
		Active   int `json:"active"`
		Queued   int `json:"queued"`
	}
	if err := getJSON(client, cfg.URL+"/v1/queue/status", &queue); err != nil {
		return fmt.Errorf("queue status: %w", err)
	}
	info("[smoke] /v1/queue/status ok: capacity=%d active=%d queued=%d", queue.Capacity, queue.Active, queue.Queued)
	info("==== Smoke check passed ====")
	return nil
}

func getJSON(client *http.Client, url string, out any) error {
	debug("[http] GET %s", url)
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %d %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}

// postCompletion sends one chat completion and reports status and latency.
// The body is drained first, so streamed replies are timed to the last byte.
func postCompletion(client *http.Client, baseURL, prompt string, stream bool) (int, time.Duration, error) {
	payload, _ := json.Marshal(map[string]any{
		"messages": []map[string]string{{"role": "user", "content": prompt}},
		"stream":   stream,
	})
	start := time.Now()
	resp, err := client.Post(baseURL+"/v1/chat/completions", "application/json", bytes.NewReader(payload))
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, time.Since(start), nil
}
