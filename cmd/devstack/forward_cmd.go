package main

import (
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/raidhelper/devstack/internal/forward"
	"github.com/raidhelper/devstack/internal/ui"
)

func forwardCommand(args []string) error {
	fs := flag.NewFlagSet("forward", flag.ExitOnError)
	configPath, debug := commonFlags(fs)

	fs.Usage = func() {
		fmt.Println(`Manage background kubectl port-forwards

Forwards are declared in configuration and run as tracked background
processes, so 'stop' can find them in a later invocation. A forward that
exits immediately (bad resource, port in use) fails 'start'.

USAGE:
    devstack forward <start|stop|list> [flags]

FLAGS:
    --config string   Path to devstack config file (default "devstack.yaml")
    --debug           Enable debug output

EXAMPLES:
    # Start every configured forward
    devstack forward start

    # Show tracked forwards and liveness
    devstack forward list

    # Stop them all
    devstack forward stop`)
	}

	if len(args) < 1 {
		fs.Usage()
		return fmt.Errorf("subcommand required: start, stop, or list")
	}
	sub := args[0]

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, pids, err := loadEnv(*configPath, *debug)
	if err != nil {
		return err
	}

	mgr, err := forward.NewManager(cfg.StateDir, pids)
	if err != nil {
		return err
	}

	switch sub {
	case "start":
		specs := forwardSpecs(cfg)
		if len(specs) == 0 {
			ui.Warnf("no forwards configured")
			return nil
		}
		ui.Stepf("Starting %d port-forward(s)", len(specs))
		if err := mgr.StartAll(specs); err != nil {
			return err
		}
		ui.Donef("Port-forwards running")
		return nil
	case "stop":
		ui.Stepf("Stopping port-forwards")
		stopped, err := mgr.StopAll(2 * time.Second)
		if err != nil {
			return err
		}
		ui.Donef("Stopped %d forward(s)", len(stopped))
		return nil
	case "list":
		list, err := mgr.List()
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No tracked forwards")
			return nil
		}

		table := NewTableWriter([]string{"Name", "PID", "Alive"})
		for _, f := range list {
			alive := "✗"
			if f.Alive {
				alive = "✓"
			}
			table.AddRow([]string{f.Name, strconv.Itoa(f.PID), alive})
		}
		table.Print()
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("unknown subcommand: %s", sub)
	}
}
