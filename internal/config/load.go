package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load reads the config file at path and layers it over the defaults.
// A missing file is not an error: the defaults apply unchanged.
// Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) // #nosec G304 - config file path comes from the operator
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg, os.Getenv)
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(&cfg, os.Getenv)
	return cfg, cfg.Validate()
}

// applyEnv overlays DEVSTACK_* environment variables onto cfg.
// lookup is injectable for tests.
func applyEnv(cfg *Config, lookup func(string) string) {
	setStr := func(key string, dst *string) {
		if v := lookup(key); v != "" {
			*dst = v
		}
	}

	setStr("DEVSTACK_PROJECT", &cfg.Project)
	setStr("DEVSTACK_DOMAIN", &cfg.Domain)
	setStr("DEVSTACK_STATE_DIR", &cfg.StateDir)
	setStr("DEVSTACK_CERT_DIR", &cfg.CertDir)
	setStr("DEVSTACK_CLUSTER_PROVIDER", &cfg.Cluster.Provider)
	setStr("DEVSTACK_CLUSTER_NAME", &cfg.Cluster.Name)
	setStr("DEVSTACK_CLUSTER_DRIVER", &cfg.Cluster.Driver)
	setStr("DEVSTACK_TUNNEL_TARGET", &cfg.Tunnel.Target)
	setStr("DEVSTACK_DYNAMO_ENDPOINT", &cfg.Dynamo.Endpoint)
	setStr("DEVSTACK_DYNAMO_REGION", &cfg.Dynamo.Region)
	setStr("DEVSTACK_DYNAMO_TABLE", &cfg.Dynamo.Table)

	if v := lookup("DEVSTACK_CLUSTER_CPUS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Cluster.CPUs = n
		}
	}
}
