package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/playgrid/warden/pkg/launch"
	"github.com/playgrid/warden/pkg/ports"
	"github.com/playgrid/warden/pkg/types"
)

// Default returns the agent configuration used when no file overrides
// anything.
func Default() *types.AgentConfig {
	return &types.AgentConfig{
		MaxConcurrentStarts: launch.DefaultMaxConcurrentStarts,
		TickInterval:        types.Duration(launch.DefaultTickInterval),
		ProbeTimeout:        types.Duration(1 * time.Second),
		BlockedPortCap:      ports.DefaultBlockedCap,
		ListenAddr:          ":9810",
		DataDir:             "/var/lib/warden",
		LogLevel:            "info",
		LogJSON:             false,
	}
}

// Load reads the agent configuration from a YAML file, filling in
// defaults for anything left unset. An empty path returns the
// defaults; a path that cannot be read is an error, so a typoed
// --config never silently runs on defaults.
func Load(path string) (*types.AgentConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the agent cannot run with.
func Validate(cfg *types.AgentConfig) error {
	if cfg.MaxConcurrentStarts <= 0 {
		return fmt.Errorf("max_concurrent_starts must be positive, got %d", cfg.MaxConcurrentStarts)
	}
	if cfg.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", cfg.TickInterval)
	}
	if cfg.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be positive, got %s", cfg.ProbeTimeout)
	}
	if cfg.BlockedPortCap <= 0 {
		return fmt.Errorf("blocked_port_cap must be positive, got %d", cfg.BlockedPortCap)
	}
	return nil
}
