package probekit

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml"

	"github.com/hostdiag/probekit/probe"
	"github.com/hostdiag/probekit/probe/builtin"
)

// Config is the probe catalog loaded from a TOML file. It carries
// per-probe tuning only; engine level settings come from the
// environment.
type Config struct {
	Probes map[string]ProbeConfig `toml:"probes"`
}

type ProbeConfig struct {
	Timeout     string  `toml:"timeout"`
	MaxAttempts int     `toml:"max_attempts"`
	Backoff     string  `toml:"backoff"`
	Threshold   float64 `toml:"threshold"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Overrides translates the catalog into descriptor overrides for the
// builtin probes.
func (c *Config) Overrides() (map[string]builtin.Override, error) {
	overrides := make(map[string]builtin.Override, len(c.Probes))
	for id, pc := range c.Probes {
		var ov builtin.Override
		if pc.Timeout != "" {
			d, err := time.ParseDuration(pc.Timeout)
			if err != nil {
				return nil, fmt.Errorf("probe %q: invalid timeout: %w", id, err)
			}
			ov.Timeout = d
		}
		if pc.MaxAttempts > 0 {
			retry := probe.RetryPolicy{MaxAttempts: pc.MaxAttempts}
			if pc.Backoff != "" {
				b, err := time.ParseDuration(pc.Backoff)
				if err != nil {
					return nil, fmt.Errorf("probe %q: invalid backoff: %w", id, err)
				}
				retry.Backoff = b
			}
			ov.Retry = &retry
		}
		overrides[id] = ov
	}

	return overrides, nil
}

// Thresholds collects the per-probe anomaly thresholds configured in
// the catalog.
func (c *Config) Thresholds() map[string]float64 {
	thresholds := make(map[string]float64)
	for id, pc := range c.Probes {
		if pc.Threshold > 0 {
			thresholds[id] = pc.Threshold
		}
	}

	return thresholds
}
