// Package dnsreg announces the gateway to the internal DNS API so clients
// can reach it by name. Registration is one-shot and best-effort: a DNS
// outage must never keep the gateway from serving.
package dnsreg

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lmgate/internal/config"
)

// requestTimeout bounds the registration call.
const requestTimeout = 10 * time.Second

// record is the DNS API's add-record payload.
type record struct {
	Name         string `json:"name"`
	Port         int    `json:"port"`
	ServiceName  string `json:"service_name"`
	TargetDevice string `json:"target_device"`
}

// Registrar performs startup registration against the DNS API.
type Registrar struct {
	cfg  config.DNSConfig
	port int
	http *http.Client
	log  zerolog.Logger
}

// New builds a Registrar for the given listen port.
func New(cfg config.DNSConfig, port int, logger zerolog.Logger) *Registrar {
	return &Registrar{
		cfg:  cfg,
		port: port,
		http: &http.Client{Timeout: requestTimeout},
		log:  logger,
	}
}

// Register posts an add-record request to the DNS API. It reports whether
// the record was accepted; on any failure the gateway continues unregistered.
func (r *Registrar) Register(ctx context.Context) bool {
	if !r.cfg.RegisterOnStartup {
		r.log.Info().Msg("DNS registration disabled, skipping")
		return true
	}
	payload, _ := json.Marshal(record{
		Name:         r.cfg.ServiceName,
		Port:         r.port,
		ServiceName:  "lmgate",
		TargetDevice: r.cfg.TargetDevice,
	})
	url := strings.TrimRight(r.cfg.APIURL, "/") + "/add-record/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		r.log.Warn().Err(err).Msg("DNS registration skipped, bad API URL")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		r.log.Warn().Err(err).Msg("DNS registration failed, continuing without it")
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		r.log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(detail)).
			Msg("DNS registration rejected")
		return false
	}
	r.log.Info().
		Str("domain", r.cfg.ServiceName+"."+r.cfg.DomainBase).
		Int("port", r.port).
		Msg("registered with DNS")
	return true
}

// Deregister is a placeholder; the DNS API has no delete endpoint yet.
func (r *Registrar) Deregister(ctx context.Context) {
	r.log.Info().Msg("DNS deregistration not implemented")
}
