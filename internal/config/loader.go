package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the gateway.
// Zero values mean "unspecified"; use Default() as the base and overlay
// file, environment, and flag values on top.
type Config struct {
	Addr           string     `json:"addr" yaml:"addr" toml:"addr"`
	BackendURL     string     `json:"backend_url" yaml:"backend_url" toml:"backend_url"`
	MaxConcurrent  int        `json:"max_concurrent_requests" yaml:"max_concurrent_requests" toml:"max_concurrent_requests"`
	MaxQueueDepth  int        `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	RequestTimeout Duration   `json:"request_timeout" yaml:"request_timeout" toml:"request_timeout"`
	DefaultModel   string     `json:"default_model" yaml:"default_model" toml:"default_model"`
	MaxBodyBytes   int64      `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	LogLevel       string     `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogPretty      bool       `json:"log_pretty" yaml:"log_pretty" toml:"log_pretty"`
	CORS           CORSConfig `json:"cors" yaml:"cors" toml:"cors"`
	DNS            DNSConfig  `json:"dns" yaml:"dns" toml:"dns"`
}

// CORSConfig enables cross-origin access for browser clients. Disabled by default.
type CORSConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

// DNSConfig controls one-shot registration with the internal DNS API on startup.
type DNSConfig struct {
	RegisterOnStartup bool   `json:"register_on_startup" yaml:"register_on_startup" toml:"register_on_startup"`
	APIURL            string `json:"api_url" yaml:"api_url" toml:"api_url"`
	ServiceName       string `json:"service_name" yaml:"service_name" toml:"service_name"`
	DomainBase        string `json:"domain_base" yaml:"domain_base" toml:"domain_base"`
	TargetDevice      string `json:"target_device" yaml:"target_device" toml:"target_device"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:           "0.0.0.0:8000",
		BackendURL:     "http://127.0.0.1:8080",
		MaxConcurrent:  4,
		MaxQueueDepth:  0, // unbounded
		RequestTimeout: Duration(300 * time.Second),
		DefaultModel:   "gpt-oss-20b",
		MaxBodyBytes:   10 << 20,
		LogLevel:       "info",
		DNS: DNSConfig{
			APIURL:       "https://dns.internal.jerkytreats.dev",
			ServiceName:  "chat",
			DomainBase:   "internal.jerkytreats.dev",
			TargetDevice: "leviathan",
		},
	}
}

// Load reads a configuration file based on its extension into cfg.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil { return cfg, err }
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil { return cfg, err }
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil { return cfg, err }
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv overlays LMGATE_* environment variables onto cfg.
// Malformed values are reported so a typo does not silently keep a default.
func (c *Config) ApplyEnv() error {
	var errs []string
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q: %v", key, v, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q: %v", key, v, err))
				return
			}
			*dst = b
		}
	}

	str("LMGATE_ADDR", &c.Addr)
	str("LMGATE_BACKEND_URL", &c.BackendURL)
	num("LMGATE_MAX_CONCURRENT_REQUESTS", &c.MaxConcurrent)
	num("LMGATE_MAX_QUEUE_DEPTH", &c.MaxQueueDepth)
	if v, ok := os.LookupEnv("LMGATE_REQUEST_TIMEOUT"); ok {
		if err := c.RequestTimeout.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Sprintf("LMGATE_REQUEST_TIMEOUT=%q: %v", v, err))
		}
	}
	str("LMGATE_DEFAULT_MODEL", &c.DefaultModel)
	if v, ok := os.LookupEnv("LMGATE_MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("LMGATE_MAX_BODY_BYTES=%q: %v", v, err))
		} else {
			c.MaxBodyBytes = n
		}
	}
	str("LMGATE_LOG_LEVEL", &c.LogLevel)
	boolean("LMGATE_LOG_PRETTY", &c.LogPretty)

	boolean("LMGATE_CORS_ENABLED", &c.CORS.Enabled)
	if v, ok := os.LookupEnv("LMGATE_CORS_ALLOWED_ORIGINS"); ok {
		c.CORS.AllowedOrigins = splitList(v)
	}

	boolean("LMGATE_DNS_REGISTER_ON_STARTUP", &c.DNS.RegisterOnStartup)
	str("LMGATE_DNS_API_URL", &c.DNS.APIURL)
	str("LMGATE_DNS_SERVICE_NAME", &c.DNS.ServiceName)
	str("LMGATE_DNS_DOMAIN_BASE", &c.DNS.DomainBase)
	str("LMGATE_DNS_TARGET_DEVICE", &c.DNS.TargetDevice)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment overrides: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate rejects configurations the gateway cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent_requests must be >= 1, got %d", c.MaxConcurrent)
	}
	if c.MaxQueueDepth < 0 {
		return fmt.Errorf("max_queue_depth must be >= 0, got %d", c.MaxQueueDepth)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend_url must be an absolute URL, got %q", c.BackendURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend_url scheme must be http or https, got %q", u.Scheme)
	}
	if c.DefaultModel == "" {
		return fmt.Errorf("default_model must not be empty")
	}
	if c.DNS.RegisterOnStartup && c.DNS.APIURL == "" {
		return fmt.Errorf("dns.api_url required when dns.register_on_startup is set")
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
