package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for values the commands cannot work
// around. It reports the first problem found.
func (c Config) Validate() error {
	if c.Project == "" {
		return fmt.Errorf("project must be set")
	}
	if c.Domain == "" {
		return fmt.Errorf("domain must be set")
	}
	if c.StateDir == "" {
		return fmt.Errorf("state_dir must be set")
	}

	switch c.Cluster.Provider {
	case "minikube", "kind":
	default:
		return fmt.Errorf("cluster.provider must be %q or %q, got %q", "minikube", "kind", c.Cluster.Provider)
	}
	if c.Cluster.Name == "" {
		return fmt.Errorf("cluster.name must be set")
	}

	if c.Tunnel.Target != "" {
		if _, err := url.ParseRequestURI(c.Tunnel.Target); err != nil {
			return fmt.Errorf("tunnel.target is not a valid URL: %w", err)
		}
	}
	if c.Tunnel.OAuthRedirectPath != "" && !strings.HasPrefix(c.Tunnel.OAuthRedirectPath, "/") {
		return fmt.Errorf("tunnel.oauth_redirect_path must start with %q", "/")
	}

	if c.Dynamo.Endpoint != "" {
		if _, err := url.ParseRequestURI(c.Dynamo.Endpoint); err != nil {
			return fmt.Errorf("dynamo.endpoint is not a valid URL: %w", err)
		}
	}

	for i, f := range c.Forwards {
		if f.Resource == "" {
			return fmt.Errorf("forwards[%d]: resource must be set", i)
		}
		if f.LocalPort <= 0 || f.LocalPort > 65535 {
			return fmt.Errorf("forwards[%d]: local_port %d out of range", i, f.LocalPort)
		}
		if f.RemotePort <= 0 || f.RemotePort > 65535 {
			return fmt.Errorf("forwards[%d]: remote_port %d out of range", i, f.RemotePort)
		}
	}

	return nil
}
