package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfig(t *testing.T) {
	for _, tc := range []struct {
		name     string
		input    string
		expected Config
		isErr    bool
	}{
		{
			name:     "empty",
			input:    "",
			expected: DefaultConfig(),
		},
		{
			name: "full",
			input: `
threads = 4
iterations = 500
duration = "1m30s"
max_ticket = 3
metrics_address = "127.0.0.1:9100"
latency_sample = 8
`,
			expected: Config{
				Threads:        4,
				Iterations:     500,
				Duration:       Duration(90 * time.Second),
				MaxTicket:      3,
				MetricsAddress: "127.0.0.1:9100",
				LatencySample:  8,
			},
		},
		{
			name:  "partial keeps defaults",
			input: `threads = 2`,
			expected: Config{
				Threads:       2,
				Iterations:    100_000,
				LatencySample: 64,
			},
		},
		{name: "unknown key", input: `workers = 3`, isErr: true},
		{name: "bad duration", input: `duration = "soon"`, isErr: true},
		{name: "wrong type", input: `threads = "many"`, isErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := DecodeConfig([]byte(tc.input))
			if tc.isErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tc.expected, cfg); diff != "" {
				t.Fatalf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bakery.toml")
	require.NoError(t, os.WriteFile(path, []byte("threads = 3\niterations = 7\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Threads)
	require.Equal(t, 7, cfg.Iterations)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	require.NoError(t, valid.Validate())

	timed := DefaultConfig()
	timed.Iterations = 0
	timed.Duration = Duration(time.Second)
	require.NoError(t, timed.Validate())

	for name, mutate := range map[string]func(*Config){
		"no threads":       func(c *Config) { c.Threads = 0 },
		"negative threads": func(c *Config) { c.Threads = -1 },
		"no iterations":    func(c *Config) { c.Iterations = 0 },
		"negative time":    func(c *Config) { c.Duration = Duration(-time.Second) },
		"no sampling":      func(c *Config) { c.LatencySample = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestDurationText(t *testing.T) {
	text, err := Duration(1500 * time.Millisecond).MarshalText()
	require.NoError(t, err)
	require.Equal(t, "1.5s", string(text))

	var d Duration
	require.Error(t, d.UnmarshalText([]byte("1.5")))
}
