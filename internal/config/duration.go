package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that config files can express either as a bare
// number of seconds (the format the original deployment files use, e.g.
// `request_timeout: 300`) or as a Go duration string (e.g. "5m").
type Duration time.Duration

// UnmarshalJSON accepts both numeric seconds and duration strings.
// Implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		s = raw
	}
	return d.parse(s)
}

// UnmarshalYAML accepts both numeric seconds and duration strings.
// Implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var num float64
	if err := value.Decode(&num); err == nil {
		return d.fromSeconds(num)
	}
	var raw string
	if err := value.Decode(&raw); err == nil {
		return d.parse(raw)
	}
	return fmt.Errorf("invalid duration: %q", value.Value)
}

// UnmarshalText accepts both numeric seconds and duration strings.
// Implements encoding.TextUnmarshaler, which covers TOML string values
// and environment variable overrides.
func (d *Duration) UnmarshalText(text []byte) error {
	return d.parse(string(text))
}

func (d *Duration) parse(s string) error {
	if num, err := strconv.ParseFloat(s, 64); err == nil {
		return d.fromSeconds(num)
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration format (%s): %w", s, err)
	}
	if dur < 0 {
		return fmt.Errorf("negative duration is not allowed: %s", s)
	}
	*d = Duration(dur)
	return nil
}

func (d *Duration) fromSeconds(num float64) error {
	if num < 0 {
		return fmt.Errorf("negative duration is not allowed: %v", num)
	}
	*d = Duration(time.Duration(num * float64(time.Second)))
	return nil
}

// String returns the human-readable representation.
// Implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON encodes as a duration string.
// Implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// MarshalYAML encodes as a duration string.
// Implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// MarshalText encodes as a duration string.
// Implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
