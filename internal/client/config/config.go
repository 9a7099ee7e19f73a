package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/rpc"
)

// Config holds runtime settings for the PostKeeper CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - OnlineCheckInterval: how often the client checks server reachability.
//   - DBPath: location of the local SQLite store.
//   - StaleGrace: how long past its scheduled time an unconfirmed post may be
//     before reconcile reports it stale.
//   - BatchSize: how many posts go into one status request.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	DBPath              string
	StaleGrace          time.Duration
	BatchSize           int
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.DBPath = filepath.Join(".postkeeper", "client.db")
	c.StaleGrace = 15 * time.Minute
	c.BatchSize = 50
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.OnlineCheckInterval <= 0 {
		return fmt.Errorf("online check interval must be positive, got %s", c.OnlineCheckInterval)
	}
	if c.BatchSize < 1 || c.BatchSize > rpc.MaxStatusRefs {
		return fmt.Errorf("batch size must be between 1 and %d, got %d", rpc.MaxStatusRefs, c.BatchSize)
	}
	if c.StaleGrace < 0 {
		return fmt.Errorf("stale grace must not be negative, got %s", c.StaleGrace)
	}
	return nil
}
