package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/raidhelper/devstack/internal/certs"
	"github.com/raidhelper/devstack/internal/cluster"
	"github.com/raidhelper/devstack/internal/config"
	"github.com/raidhelper/devstack/internal/dns"
	"github.com/raidhelper/devstack/internal/forward"
	"github.com/raidhelper/devstack/internal/helm"
	"github.com/raidhelper/devstack/internal/prereq"
	"github.com/raidhelper/devstack/internal/ui"
)

func upCommand(args []string) error {
	fs := flag.NewFlagSet("up", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	skipTunnel := fs.Bool("skip-tunnel", false, "Do not start the Cloudflare tunnel")
	skipForwards := fs.Bool("skip-forwards", false, "Do not start background port-forwards")
	skipTable := fs.Bool("skip-table", false, "Do not create the DynamoDB table")

	fs.Usage = func() {
		fmt.Println(`Bring the whole development environment up

Runs every setup step in order: cluster, TLS certificates, hosts entries,
Helm releases, DynamoDB table, Cloudflare tunnel, port-forwards. Each step
is idempotent; re-running 'up' skips what already exists.

USAGE:
    devstack up [flags]

FLAGS:
    --config string    Path to devstack config file (default "devstack.yaml")
    --debug            Enable debug output
    --skip-tunnel      Do not start the Cloudflare tunnel
    --skip-forwards    Do not start background port-forwards
    --skip-table       Do not create the DynamoDB table

EXAMPLES:
    # Full bring-up with defaults
    devstack up

    # Cluster and releases only
    devstack up --skip-tunnel --skip-forwards --skip-table`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, pids, err := loadEnv(*configPath, *debug)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	// Fail before touching anything if required tools are missing.
	bins := []string{"docker", "kubectl"}
	if cfg.Cluster.Provider == "minikube" {
		bins = append(bins, "minikube")
	}
	if !*skipTunnel {
		bins = append(bins, "cloudflared")
	}
	if err := prereq.Check(bins...); err != nil {
		return err
	}

	provider, err := cluster.New(cfg.Cluster)
	if err != nil {
		return err
	}
	if err := provider.Create(ctx); err != nil {
		return fmt.Errorf("failed to bring up cluster: %w", err)
	}

	ui.Stepf("Generating TLS certificates for %s", cfg.Domain)
	res, err := certs.Generate(cfg.CertDir, cfg.Domain)
	if err != nil {
		return err
	}
	if res.Generated {
		ui.Donef("Wrote certificates to %s", cfg.CertDir)
	} else {
		ui.Skipf("certificates in %s", cfg.CertDir)
	}

	// Hosts entries need root; a permission error is a warning, not a
	// failure, since the rest of the environment works without them.
	if err := dns.NewManager("", cfg.Project).Add(cfg.HostNames()); err != nil {
		if errors.Is(err, os.ErrPermission) {
			ui.Warnf("cannot write hosts file; run 'sudo devstack dns add'")
		} else {
			return err
		}
	} else {
		ui.Donef("Hosts entries for %s", cfg.Domain)
	}

	rf, err := helm.LoadReleases(cfg.Releases)
	if err != nil {
		return err
	}
	if err := rf.Validate(); err != nil {
		return err
	}
	if err := helm.NewEngine().Apply(ctx, rf); err != nil {
		return err
	}

	if !*skipTable {
		if err := ensureTable(ctx, cfg); err != nil {
			return err
		}
	}

	if !*skipTunnel {
		if err := startTunnel(ctx, cfg, pids, true); err != nil {
			return err
		}
	}

	if !*skipForwards && len(cfg.Forwards) > 0 {
		mgr, err := forward.NewManager(cfg.StateDir, pids)
		if err != nil {
			return err
		}
		ui.Stepf("Starting %d port-forward(s)", len(cfg.Forwards))
		if err := mgr.StartAll(forwardSpecs(cfg)); err != nil {
			return err
		}
		ui.Donef("Port-forwards running")
	}

	ui.Donef("Environment is up")
	return nil
}

func downCommand(args []string) error {
	fs := flag.NewFlagSet("down", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	deleteCluster := fs.Bool("delete-cluster", false, "Also delete the Kubernetes cluster")
	keepReleases := fs.Bool("keep-releases", false, "Leave Helm releases installed")

	fs.Usage = func() {
		fmt.Println(`Tear the development environment down

Stops tracked background processes (tunnel, port-forwards), uninstalls the
declared Helm releases, and removes the managed hosts entries. The cluster
itself is kept unless --delete-cluster is given.

USAGE:
    devstack down [flags]

FLAGS:
    --config string     Path to devstack config file (default "devstack.yaml")
    --debug             Enable debug output
    --delete-cluster    Also delete the Kubernetes cluster
    --keep-releases     Leave Helm releases installed

EXAMPLES:
    # Stop processes and uninstall releases
    devstack down

    # Full teardown including the cluster
    devstack down --delete-cluster`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, pids, err := loadEnv(*configPath, *debug)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	// Background processes first: forwards and tunnel die with the cluster
	// anyway, but stopping them cleans the PID file.
	ui.Stepf("Stopping background processes")
	stopped, err := pids.StopAll(2 * time.Second)
	if err != nil {
		ui.Warnf("some processes did not stop cleanly: %v", err)
	}
	ui.Donef("Stopped %d process(es)", len(stopped))

	if !*keepReleases {
		rf, err := helm.LoadReleases(cfg.Releases)
		if err == nil {
			if err := helm.NewEngine().Destroy(ctx, rf); err != nil {
				ui.Warnf("failed to uninstall releases: %v", err)
			}
		}
	}

	if *deleteCluster {
		provider, err := cluster.New(cfg.Cluster)
		if err != nil {
			return err
		}
		if err := provider.Delete(ctx); err != nil {
			return err
		}
	}

	if err := dns.NewManager("", cfg.Project).Remove(); err != nil {
		if errors.Is(err, os.ErrPermission) {
			ui.Warnf("cannot write hosts file; run 'sudo devstack dns remove'")
		} else {
			return err
		}
	}

	ui.Donef("Environment is down")
	return nil
}

// forwardSpecs converts configured forwards into manager specs.
func forwardSpecs(cfg config.Config) []forward.Spec {
	specs := make([]forward.Spec, 0, len(cfg.Forwards))
	for _, f := range cfg.Forwards {
		specs = append(specs, forward.Spec{
			Name:       f.Name,
			Namespace:  f.Namespace,
			Resource:   f.Resource,
			LocalPort:  f.LocalPort,
			RemotePort: f.RemotePort,
		})
	}
	return specs
}
