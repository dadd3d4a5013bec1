package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is returned for configurations the harness cannot run.
var ErrInvalidConfig = errors.New("harness: invalid config")

// Config drives one harness run.
type Config struct {
	// Threads is the number of workers, and the participant count of the lock.
	Threads int `toml:"threads,omitempty"`
	// Iterations is the number of critical sections each worker enters.
	// Ignored when Duration is set.
	Iterations int `toml:"iterations,omitempty"`
	// Duration, when non-zero, runs every worker until it elapses.
	Duration Duration `toml:"duration,omitempty"`
	// MaxTicket lowers the lock's ticket ceiling; zero keeps the default.
	MaxTicket uint32 `toml:"max_ticket,omitempty"`
	// MetricsAddress is the listen address for /metrics; empty disables it.
	MetricsAddress string `toml:"metrics_address,omitempty"`
	// LatencySample records the acquire latency of every k-th Lock call.
	LatencySample int `toml:"latency_sample,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("1m30s").
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// DefaultConfig mirrors the classic demonstration: ten workers, a hundred
// thousand increments each.
func DefaultConfig() Config {
	return Config{
		Threads:       10,
		Iterations:    100_000,
		LatencySample: 64,
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("harness: load config: %w", err)
	}
	return DecodeConfig(raw)
}

// DecodeConfig decodes TOML on top of DefaultConfig. Unknown keys are
// rejected.
func DecodeConfig(raw []byte) (Config, error) {
	cfg := DefaultConfig()
	err := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Validate reports the first setting that prevents a run.
func (c Config) Validate() error {
	switch {
	case c.Threads < 1:
		return fmt.Errorf("%w: threads = %d, want at least 1", ErrInvalidConfig, c.Threads)
	case c.Duration < 0:
		return fmt.Errorf("%w: negative duration %s", ErrInvalidConfig, time.Duration(c.Duration))
	case c.Duration == 0 && c.Iterations < 1:
		return fmt.Errorf("%w: iterations = %d, want at least 1", ErrInvalidConfig, c.Iterations)
	case c.LatencySample < 1:
		return fmt.Errorf("%w: latency_sample = %d, want at least 1", ErrInvalidConfig, c.LatencySample)
	}
	return nil
}
