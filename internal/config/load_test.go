package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devstack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "raidhelper", cfg.Project)
	assert.Equal(t, "minikube", cfg.Cluster.Provider)
	assert.Equal(t, "http://localhost:4566", cfg.Dynamo.Endpoint)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
project: myproj
domain: myproj.localhost
cluster:
  provider: kind
  name: myproj-dev
dynamo:
  table: myproj-events
forwards:
  - name: argocd
    namespace: argocd
    resource: svc/argocd-server
    local_port: 8081
    remote_port: 443
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "myproj", cfg.Project)
	assert.Equal(t, "kind", cfg.Cluster.Provider)
	assert.Equal(t, "myproj-dev", cfg.Cluster.Name)
	assert.Equal(t, "myproj-events", cfg.Dynamo.Table)
	// Untouched fields keep their defaults.
	assert.Equal(t, "us-east-1", cfg.Dynamo.Region)
	require.Len(t, cfg.Forwards, 1)
	assert.Equal(t, 8081, cfg.Forwards[0].LocalPort)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "project: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"DEVSTACK_PROJECT":         "envproj",
		"DEVSTACK_DYNAMO_ENDPOINT": "http://localstack:4566",
		"DEVSTACK_CLUSTER_CPUS":    "8",
	}
	cfg := Default()
	applyEnv(&cfg, func(k string) string { return env[k] })

	assert.Equal(t, "envproj", cfg.Project)
	assert.Equal(t, "http://localstack:4566", cfg.Dynamo.Endpoint)
	assert.Equal(t, 8, cfg.Cluster.CPUs)
	// Unset vars leave defaults alone.
	assert.Equal(t, "raidhelper.localhost", cfg.Domain)
}

func TestApplyEnvIgnoresBadInt(t *testing.T) {
	cfg := Default()
	applyEnv(&cfg, func(k string) string {
		if k == "DEVSTACK_CLUSTER_CPUS" {
			return "lots"
		}
		return ""
	})
	assert.Equal(t, 4, cfg.Cluster.CPUs)
}

func TestHostNamesDefault(t *testing.T) {
	cfg := Default()
	hosts := cfg.HostNames()
	assert.Equal(t, []string{
		"raidhelper.localhost",
		"argocd.raidhelper.localhost",
		"grafana.raidhelper.localhost",
	}, hosts)
}

func TestHostNamesExplicit(t *testing.T) {
	cfg := Default()
	cfg.DNS.Hosts = []string{"only.localhost"}
	assert.Equal(t, []string{"only.localhost"}, cfg.HostNames())
}

func TestTunnelEnvPath(t *testing.T) {
	cfg := Default()
	cfg.StateDir = "/tmp/state"
	cfg.Tunnel.EnvFile = "tunnel.env"
	assert.Equal(t, filepath.Join("/tmp/state", "tunnel.env"), cfg.TunnelEnvPath())

	cfg.Tunnel.EnvFile = "/abs/tunnel.env"
	assert.Equal(t, "/abs/tunnel.env", cfg.TunnelEnvPath())
}
