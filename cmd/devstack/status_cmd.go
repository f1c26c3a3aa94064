package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/raidhelper/devstack/internal/config"
	"github.com/raidhelper/devstack/internal/forward"
	"github.com/raidhelper/devstack/internal/helm"
	"github.com/raidhelper/devstack/internal/kube"
	"github.com/raidhelper/devstack/internal/proc"
	"github.com/raidhelper/devstack/internal/statusserver"
	"github.com/raidhelper/devstack/internal/tunnel"
	"github.com/raidhelper/devstack/internal/ui"
)

func statusCommand(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	serve := fs.Bool("serve", false, "Serve status as a JSON API instead of printing once")
	addr := fs.String("addr", "", "Listen address for --serve (overrides config)")

	fs.Usage = func() {
		fmt.Println(`Show the state of the whole environment

Reports the cluster, declared Helm releases, tunnel, and tracked
port-forwards. With --serve the same snapshot is exposed as a JSON API
(GET /status, GET /healthz) for dashboards to poll.

USAGE:
    devstack status [flags]

FLAGS:
    --config string   Path to devstack config file (default "devstack.yaml")
    --debug           Enable debug output
    --serve           Serve status as a JSON API instead of printing once
    --addr string     Listen address for --serve (overrides config)

EXAMPLES:
    # One-shot status
    devstack status

    # Serve JSON on the configured address
    devstack status --serve`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, pids, err := loadEnv(*configPath, *debug)
	if err != nil {
		return err
	}

	collector := newCollector(cfg, pids)

	ctx, cancel := signalContext()
	defer cancel()

	if *serve {
		listen := cfg.Status.Addr
		if *addr != "" {
			listen = *addr
		}
		ui.Stepf("Serving status on http://%s", listen)
		return statusserver.New(listen, collector).ListenAndServe(ctx)
	}

	snap, err := collector.Collect(ctx)
	if err != nil {
		return err
	}
	printSnapshot(snap)
	return nil
}

// newCollector observes every part of the environment fresh per call.
// Individual probes failing degrade the snapshot instead of failing it: a
// down cluster is a finding, not an error.
func newCollector(cfg config.Config, pids *proc.File) statusserver.Collector {
	return statusserver.CollectorFunc(func(ctx context.Context) (statusserver.Snapshot, error) {
		var snap statusserver.Snapshot

		snap.Cluster = statusserver.ClusterStatus{
			Name:     cfg.Cluster.Name,
			Provider: cfg.Cluster.Provider,
		}
		if client, err := kube.NewClient(); err == nil {
			snap.Cluster.Reachable = kube.Reachable(client)
		}

		if snap.Cluster.Reachable {
			if rf, err := helm.LoadReleases(cfg.Releases); err == nil {
				if rows, err := helm.NewEngine().Status(rf); err == nil {
					for _, r := range rows {
						snap.Releases = append(snap.Releases, statusserver.ReleaseStatus{
							Name:      r.Name,
							Namespace: r.Namespace,
							Status:    r.Status,
							Revision:  r.Revision,
						})
					}
				}
			}
		}

		if sup, err := tunnel.NewSupervisor(cfg.StateDir, pids); err == nil {
			if _, err := sup.Running(); err == nil {
				snap.Tunnel.Running = true
				if env, err := tunnel.ReadEnvFile(cfg.TunnelEnvPath()); err == nil {
					snap.Tunnel.URL = env[tunnel.EnvKeyURL]
				}
			}
		}

		if mgr, err := forward.NewManager(cfg.StateDir, pids); err == nil {
			if list, err := mgr.List(); err == nil {
				byName := forwardPortsByName(cfg)
				for _, f := range list {
					snap.Forwards = append(snap.Forwards, statusserver.ForwardStatus{
						Name:      f.Name,
						LocalPort: byName[f.Name],
						Alive:     f.Alive,
					})
				}
			}
		}

		return snap, nil
	})
}

func forwardPortsByName(cfg config.Config) map[string]int {
	ports := make(map[string]int, len(cfg.Forwards))
	for _, f := range cfg.Forwards {
		ports[f.Name] = f.LocalPort
	}
	return ports
}

func printSnapshot(snap statusserver.Snapshot) {
	reachable := "unreachable"
	if snap.Cluster.Reachable {
		reachable = "reachable"
	}
	fmt.Printf("Cluster %s (%s): %s\n", snap.Cluster.Name, snap.Cluster.Provider, reachable)

	if len(snap.Releases) > 0 {
		fmt.Println("\nReleases:")
		table := NewTableWriter([]string{"Release", "Namespace", "Status"})
		for _, r := range snap.Releases {
			table.AddRow([]string{r.Name, r.Namespace, r.Status})
		}
		table.Print()
	}

	fmt.Println()
	if snap.Tunnel.Running {
		fmt.Printf("Tunnel: running (%s)\n", snap.Tunnel.URL)
	} else {
		fmt.Println("Tunnel: not running")
	}

	if len(snap.Forwards) > 0 {
		fmt.Println("\nForwards:")
		table := NewTableWriter([]string{"Name", "Port", "Alive"})
		for _, f := range snap.Forwards {
			alive := "✗"
			if f.Alive {
				alive = "✓"
			}
			table.AddRow([]string{f.Name, fmt.Sprintf("%d", f.LocalPort), alive})
		}
		table.Print()
	}
}
