// Package config loads and validates the devstack configuration file.
//
// Configuration comes from three layers, later layers winning:
//  1. built-in defaults (Default)
//  2. the YAML config file (devstack.yaml)
//  3. DEVSTACK_* environment variables
package config

import (
	"os"
	"path/filepath"
)

// Config is the root configuration for the local development environment.
type Config struct {
	// Project names the development project; it prefixes generated
	// artifacts (certs, configmaps, state files).
	Project string `yaml:"project"`

	// Domain is the local development domain served by the ingress,
	// e.g. "raidhelper.localhost". Certs and hosts entries derive from it.
	Domain string `yaml:"domain"`

	// StateDir holds runtime bookkeeping: PID files, tunnel logs, the
	// generated tunnel env file.
	StateDir string `yaml:"state_dir"`

	// CertDir is where generated TLS key/certificate pairs are written.
	CertDir string `yaml:"cert_dir"`

	Cluster  Cluster   `yaml:"cluster"`
	Releases string    `yaml:"releases_file"`
	Tunnel   Tunnel    `yaml:"tunnel"`
	Dynamo   Dynamo    `yaml:"dynamo"`
	Forwards []Forward `yaml:"forwards"`
	DNS      DNS       `yaml:"dns"`
	Status   Status    `yaml:"status"`
}

// Cluster configures the local Kubernetes cluster.
type Cluster struct {
	// Provider selects the cluster runner: "minikube" or "kind".
	Provider string `yaml:"provider"`
	Name     string `yaml:"name"`

	// Minikube-only knobs. Ignored by the kind provider.
	Driver string `yaml:"driver"`
	CPUs   int    `yaml:"cpus"`
	Memory string `yaml:"memory"`

	KubernetesVersion string `yaml:"kubernetes_version"`
}

// Tunnel configures the Cloudflare quick tunnel.
type Tunnel struct {
	// Target is the local URL the tunnel fronts.
	Target string `yaml:"target"`

	// EnvFile is the dotenv file the discovered hostname is written to.
	// Relative paths are resolved against StateDir.
	EnvFile string `yaml:"env_file"`

	// OAuthRedirectPath is appended to the tunnel URL to form the OAuth
	// redirect URL recorded in the env file.
	OAuthRedirectPath string `yaml:"oauth_redirect_path"`

	// ConfigMap and Namespace name the cluster object the env file is
	// mirrored into. Empty ConfigMap disables mirroring.
	ConfigMap string `yaml:"configmap"`
	Namespace string `yaml:"namespace"`
}

// Dynamo configures table creation against LocalStack.
type Dynamo struct {
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
	Table    string `yaml:"table"`
}

// Forward describes one background kubectl port-forward.
type Forward struct {
	Name       string `yaml:"name"`
	Namespace  string `yaml:"namespace"`
	Resource   string `yaml:"resource"`
	LocalPort  int    `yaml:"local_port"`
	RemotePort int    `yaml:"remote_port"`
}

// DNS configures hosts-file entries for local domains.
type DNS struct {
	// Hosts are hostnames pointed at 127.0.0.1. Defaults to the project
	// domain and its argocd/grafana subdomains when empty.
	Hosts []string `yaml:"hosts"`
}

// Status configures the status endpoint.
type Status struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration, matching the documented
// environment variable defaults.
func Default() Config {
	home, _ := os.UserHomeDir()
	stateDir := filepath.Join(home, ".devstack")

	return Config{
		Project:  "raidhelper",
		Domain:   "raidhelper.localhost",
		StateDir: stateDir,
		CertDir:  filepath.Join(stateDir, "certs"),
		Cluster: Cluster{
			Provider: "minikube",
			Name:     "raidhelper",
			Driver:   "docker",
			CPUs:     4,
			Memory:   "8g",
		},
		Releases: "releases.yaml",
		Tunnel: Tunnel{
			Target:            "http://localhost:8080",
			EnvFile:           "tunnel.env",
			OAuthRedirectPath: "/auth/callback",
			ConfigMap:         "tunnel-env",
			Namespace:         "default",
		},
		Dynamo: Dynamo{
			Endpoint: "http://localhost:4566",
			Region:   "us-east-1",
			Table:    "raidhelper",
		},
		Status: Status{
			Addr: "127.0.0.1:9444",
		},
	}
}

// HostNames returns the hosts-file entries for this environment.
func (c Config) HostNames() []string {
	if len(c.DNS.Hosts) > 0 {
		return c.DNS.Hosts
	}
	return []string{
		c.Domain,
		"argocd." + c.Domain,
		"grafana." + c.Domain,
	}
}

// TunnelEnvPath resolves the tunnel env file against the state dir.
func (c Config) TunnelEnvPath() string {
	if filepath.IsAbs(c.Tunnel.EnvFile) {
		return c.Tunnel.EnvFile
	}
	return filepath.Join(c.StateDir, c.Tunnel.EnvFile)
}

// PIDFilePath is the PID list file for background processes.
func (c Config) PIDFilePath() string {
	return filepath.Join(c.StateDir, "devstack.pids")
}
