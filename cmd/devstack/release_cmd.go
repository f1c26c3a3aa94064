package main

import (
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/raidhelper/devstack/internal/helm"
)

func releaseCommand(args []string) error {
	fs := flag.NewFlagSet("release", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	releasesPath := fs.String("releases", "", "Path to releases file (overrides config)")
	timeout := fs.Duration("timeout", 5*time.Minute, "Per-release wait timeout")

	fs.Usage = func() {
		fmt.Println(`Manage the declared Helm releases

Releases are declared in a releases file (repos plus releases, in order).
'apply' is upgrade-or-install per release; 'destroy' uninstalls in reverse
order and skips releases that are already gone; 'status' prints a table of
deployed state.

USAGE:
    devstack release <apply|destroy|status> [flags]

FLAGS:
    --config string     Path to devstack config file (default "devstack.yaml")
    --debug             Enable debug output
    --releases string   Path to releases file (overrides config)
    --timeout duration  Per-release wait timeout (default 5m)

EXAMPLES:
    # Install or upgrade everything
    devstack release apply

    # Apply a different releases file
    devstack release apply --releases ./releases.yaml

    # Show deployed state
    devstack release status`)
	}

	if len(args) < 1 {
		fs.Usage()
		return fmt.Errorf("subcommand required: apply, destroy, or status")
	}
	sub := args[0]

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, _, err := loadEnv(*configPath, *debug)
	if err != nil {
		return err
	}

	path := cfg.Releases
	if *releasesPath != "" {
		path = *releasesPath
	}

	rf, err := helm.LoadReleases(path)
	if err != nil {
		return err
	}
	if err := rf.Validate(); err != nil {
		return err
	}

	engine := helm.NewEngine()
	engine.SetTimeout(*timeout)

	ctx, cancel := signalContext()
	defer cancel()

	switch sub {
	case "apply":
		return engine.Apply(ctx, rf)
	case "destroy":
		return engine.Destroy(ctx, rf)
	case "status":
		rows, err := engine.Status(rf)
		if err != nil {
			return err
		}

		table := NewTableWriter([]string{"Release", "Namespace", "Status", "Revision", "App Version"})
		for _, r := range rows {
			revision := ""
			if r.Revision > 0 {
				revision = strconv.Itoa(r.Revision)
			}
			table.AddRow([]string{r.Name, r.Namespace, r.Status, revision, r.AppVersion})
		}
		table.Print()
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("unknown subcommand: %s", sub)
	}
}
