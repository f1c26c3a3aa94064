package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	valid := func() Config { return Default() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing project",
			mutate:  func(c *Config) { c.Project = "" },
			wantErr: true,
			errMsg:  "project must be set",
		},
		{
			name:    "missing domain",
			mutate:  func(c *Config) { c.Domain = "" },
			wantErr: true,
			errMsg:  "domain must be set",
		},
		{
			name:    "missing state dir",
			mutate:  func(c *Config) { c.StateDir = "" },
			wantErr: true,
			errMsg:  "state_dir must be set",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Cluster.Provider = "k3d" },
			wantErr: true,
			errMsg:  "cluster.provider",
		},
		{
			name:   "kind provider accepted",
			mutate: func(c *Config) { c.Cluster.Provider = "kind" },
		},
		{
			name:    "missing cluster name",
			mutate:  func(c *Config) { c.Cluster.Name = "" },
			wantErr: true,
			errMsg:  "cluster.name must be set",
		},
		{
			name:    "bad tunnel target",
			mutate:  func(c *Config) { c.Tunnel.Target = "not a url" },
			wantErr: true,
			errMsg:  "tunnel.target",
		},
		{
			name:    "redirect path without slash",
			mutate:  func(c *Config) { c.Tunnel.OAuthRedirectPath = "auth/callback" },
			wantErr: true,
			errMsg:  "oauth_redirect_path",
		},
		{
			name:    "bad dynamo endpoint",
			mutate:  func(c *Config) { c.Dynamo.Endpoint = "::://" },
			wantErr: true,
			errMsg:  "dynamo.endpoint",
		},
		{
			name: "forward without resource",
			mutate: func(c *Config) {
				c.Forwards = []Forward{{Name: "x", LocalPort: 8080, RemotePort: 80}}
			},
			wantErr: true,
			errMsg:  "resource must be set",
		},
		{
			name: "forward port out of range",
			mutate: func(c *Config) {
				c.Forwards = []Forward{{Name: "x", Resource: "svc/x", LocalPort: 70000, RemotePort: 80}}
			},
			wantErr: true,
			errMsg:  "local_port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errMsg)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Fatalf("error %q does not contain %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
