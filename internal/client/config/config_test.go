package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 15*time.Minute, c.StaleGrace)
	assert.Equal(t, 50, c.BatchSize)
	assert.NotEmpty(t, c.DBPath)
}

func TestLoadConfig_NoArgs(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(defaults(), cfg))
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		expected  func(c *Config)
		expectErr bool
	}{
		{
			name: "all flags",
			args: []string{"-a", "127.0.0.1:9090", "-i", "10", "-d", "/tmp/x.db", "-g", "1h", "-b", "5", "-l", "debug"},
			expected: func(c *Config) {
				c.ServerEndpointAddr = "127.0.0.1:9090"
				c.OnlineCheckInterval = 10 * time.Second
				c.DBPath = "/tmp/x.db"
				c.StaleGrace = time.Hour
				c.BatchSize = 5
				c.LogLevel = "debug"
			},
		},
		{
			name:     "foreign flags ignored",
			args:     []string{"-x", "1", "-a", "h:1"},
			expected: func(c *Config) { c.ServerEndpointAddr = "h:1" },
		},
		{name: "incorrect check interval", args: []string{"-i", "abc"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			err := parseFlags(cfg, tt.args)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			want := defaults()
			tt.expected(want)
			assert.Empty(t, cmp.Diff(want, cfg))
		})
	}
}

func TestParseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"server_endpoint_addr":  "www.example:9000",
		"online_check_interval": "10s",
		"stale_grace":           "30m",
		"batch_size":            7,
	})

	t.Run("loads from -config", func(t *testing.T) {
		cfg := defaults()
		require.NoError(t, parseJson(cfg, []string{"-config", path}))

		assert.Equal(t, "www.example:9000", cfg.ServerEndpointAddr)
		assert.Equal(t, 10*time.Second, cfg.OnlineCheckInterval)
		assert.Equal(t, 30*time.Minute, cfg.StaleGrace)
		assert.Equal(t, 7, cfg.BatchSize)
		assert.Equal(t, defaults().DBPath, cfg.DBPath, "absent keys keep their value")
	})

	t.Run("no flag -> no changes", func(t *testing.T) {
		cfg := defaults()
		require.NoError(t, parseJson(cfg, nil))
		assert.Empty(t, cmp.Diff(defaults(), cfg))
	})

	t.Run("missing file", func(t *testing.T) {
		require.Error(t, parseJson(defaults(), []string{"-c", filepath.Join(t.TempDir(), "nope.json")}))
	})

	t.Run("bad json", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
		require.Error(t, parseJson(defaults(), []string{"-c", bad}))
	})
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	path := writeTempJSON(t, map[string]any{"server_endpoint_addr": "json:1", "batch_size": 9})

	cfg, err := LoadConfig([]string{"-c", path, "-a", "flag:2"})
	require.NoError(t, err)
	assert.Equal(t, "flag:2", cfg.ServerEndpointAddr)
	assert.Equal(t, 9, cfg.BatchSize)
}

func TestLoadConfig_SubSecondIntervalFromJSON(t *testing.T) {
	path := writeTempJSON(t, map[string]any{"online_check_interval": "500ms"})

	cfg, err := LoadConfig([]string{"-c", path})
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.OnlineCheckInterval)

	cfg, err = LoadConfig([]string{"-c", path, "-i", "2"})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.OnlineCheckInterval, "explicit -i wins")
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"zero interval", []string{"-i", "0"}, "online check interval"},
		{"negative interval", []string{"-i", "-3"}, "online check interval"},
		{"zero batch", []string{"-b", "0"}, "batch size"},
		{"batch above server limit", []string{"-b", "1000"}, "batch size"},
		{"negative grace", []string{"-g", "-1m"}, "stale grace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.args)
			assert.ErrorContains(t, err, tt.want)
		})
	}

	cfg, err := LoadConfig([]string{"-b", "500"})
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.BatchSize)
}
