package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/raidhelper/devstack/internal/config"
	"github.com/raidhelper/devstack/internal/kube"
	"github.com/raidhelper/devstack/internal/proc"
	"github.com/raidhelper/devstack/internal/tunnel"
	"github.com/raidhelper/devstack/internal/ui"
)

func tunnelCommand(args []string) error {
	fs := flag.NewFlagSet("tunnel", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	noConfigMap := fs.Bool("no-configmap", false, "Do not mirror the tunnel env into the cluster")

	fs.Usage = func() {
		fmt.Println(`Manage the Cloudflare quick tunnel

'start' launches cloudflared against the configured target, waits for the
assigned trycloudflare.com URL to appear in its log, and records it in the
tunnel env file (and, unless disabled, a cluster ConfigMap). 'stop' kills
the tracked process. 'status' reports the current URL.

USAGE:
    devstack tunnel <start|stop|status> [flags]

FLAGS:
    --config string   Path to devstack config file (default "devstack.yaml")
    --debug           Enable debug output
    --no-configmap    Do not mirror the tunnel env into the cluster

EXAMPLES:
    # Start a tunnel and print the public URL
    devstack tunnel start

    # Start without touching the cluster
    devstack tunnel start --no-configmap

    # Stop the tunnel
    devstack tunnel stop`)
	}

	if len(args) < 1 {
		fs.Usage()
		return fmt.Errorf("subcommand required: start, stop, or status")
	}
	sub := args[0]

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, pids, err := loadEnv(*configPath, *debug)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	switch sub {
	case "start":
		return startTunnel(ctx, cfg, pids, !*noConfigMap)
	case "stop":
		return stopTunnel(cfg, pids)
	case "status":
		return tunnelStatus(cfg, pids)
	default:
		fs.Usage()
		return fmt.Errorf("unknown subcommand: %s", sub)
	}
}

// startTunnel launches the tunnel, records the discovered URL in the env
// file, and mirrors it into the configured ConfigMap. Also used by 'up'.
func startTunnel(ctx context.Context, cfg config.Config, pids *proc.File, mirror bool) error {
	sup, err := tunnel.NewSupervisor(cfg.StateDir, pids)
	if err != nil {
		return err
	}

	// One tunnel at a time: a live tracked process means a restart, so the
	// env file stays consistent with the running process.
	if pid, err := sup.Running(); err == nil {
		ui.Stepf("Restarting tunnel (old pid %d)", pid)
		if err := sup.Stop(2 * time.Second); err != nil {
			return err
		}
	}

	ui.Stepf("Starting tunnel to %s", cfg.Tunnel.Target)
	info, err := sup.Start(ctx, cfg.Tunnel.Target)
	if err != nil {
		return err
	}
	ui.Donef("Tunnel up: %s (pid %d)", info.URL, info.PID)

	envPath := cfg.TunnelEnvPath()
	if err := tunnel.WriteEnvFile(envPath, info.URL, cfg.Tunnel.OAuthRedirectPath); err != nil {
		return err
	}
	ui.Donef("Wrote %s", envPath)

	if mirror && cfg.Tunnel.ConfigMap != "" {
		env, err := tunnel.ReadEnvFile(envPath)
		if err != nil {
			return err
		}
		client, err := kube.NewClient()
		if err != nil {
			return err
		}
		if _, err := kube.EnsureNamespace(ctx, client, cfg.Tunnel.Namespace); err != nil {
			return err
		}
		if err := kube.ApplyConfigMap(ctx, client, cfg.Tunnel.Namespace, cfg.Tunnel.ConfigMap, env); err != nil {
			return err
		}
		ui.Donef("Mirrored tunnel env to configmap %s/%s", cfg.Tunnel.Namespace, cfg.Tunnel.ConfigMap)
	}
	return nil
}

func stopTunnel(cfg config.Config, pids *proc.File) error {
	sup, err := tunnel.NewSupervisor(cfg.StateDir, pids)
	if err != nil {
		return err
	}

	ui.Stepf("Stopping tunnel")
	if err := sup.Stop(2 * time.Second); err != nil {
		if errors.Is(err, tunnel.ErrNotRunning) {
			ui.Skipf("no tunnel running")
			return nil
		}
		return err
	}
	ui.Donef("Tunnel stopped")
	return nil
}

func tunnelStatus(cfg config.Config, pids *proc.File) error {
	sup, err := tunnel.NewSupervisor(cfg.StateDir, pids)
	if err != nil {
		return err
	}

	pid, err := sup.Running()
	if err != nil {
		if errors.Is(err, tunnel.ErrNotRunning) {
			fmt.Println("Tunnel: not running")
			return nil
		}
		return err
	}

	fmt.Printf("Tunnel: running (pid %d)\n", pid)
	if env, err := tunnel.ReadEnvFile(cfg.TunnelEnvPath()); err == nil {
		if url := env[tunnel.EnvKeyURL]; url != "" {
			fmt.Printf("URL:    %s\n", url)
		}
		if redirect := env[tunnel.EnvKeyOAuthURL]; redirect != "" {
			fmt.Printf("OAuth:  %s\n", redirect)
		}
	}
	return nil
}
