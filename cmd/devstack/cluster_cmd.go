package main

import (
	"flag"
	"fmt"

	"github.com/raidhelper/devstack/internal/cluster"
)

func clusterCommand(args []string) error {
	fs := flag.NewFlagSet("cluster", flag.ExitOnError)
	configPath, debug := commonFlags(fs)

	fs.Usage = func() {
		fmt.Println(`Manage the local Kubernetes cluster

The provider (minikube or kind) comes from configuration. 'up' on an
existing cluster and 'down' on a missing one are logged skips.

USAGE:
    devstack cluster <up|down|status> [flags]

FLAGS:
    --config string   Path to devstack config file (default "devstack.yaml")
    --debug           Enable debug output

EXAMPLES:
    # Start (or reuse) the cluster
    devstack cluster up

    # Report the cluster state
    devstack cluster status

    # Delete the cluster
    devstack cluster down`)
	}

	if len(args) < 1 {
		fs.Usage()
		return fmt.Errorf("subcommand required: up, down, or status")
	}
	sub := args[0]

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, _, err := loadEnv(*configPath, *debug)
	if err != nil {
		return err
	}

	provider, err := cluster.New(cfg.Cluster)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	switch sub {
	case "up":
		return provider.Create(ctx)
	case "down":
		return provider.Delete(ctx)
	case "status":
		state, err := provider.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Cluster %s (%s): %s\n", provider.Name(), cfg.Cluster.Provider, state)
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("unknown subcommand: %s", sub)
	}
}
