package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/raidhelper/devstack/internal/config"
	"github.com/raidhelper/devstack/internal/dynamo"
	"github.com/raidhelper/devstack/internal/ui"
)

func tableCommand(args []string) error {
	fs := flag.NewFlagSet("table", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	endpoint := fs.String("endpoint", "", "LocalStack endpoint (overrides config)")

	fs.Usage = func() {
		fmt.Println(`Create the DynamoDB table on LocalStack

Creates the configured table with a pk/sk key schema and on-demand billing.
A table that already exists is a skip, so the command is safe to re-run.

USAGE:
    devstack table create [flags]

FLAGS:
    --config string     Path to devstack config file (default "devstack.yaml")
    --debug             Enable debug output
    --endpoint string   LocalStack endpoint (overrides config)

EXAMPLES:
    # Create the table with config defaults
    devstack table create

    # Point at a non-default LocalStack
    devstack table create --endpoint http://localhost:4566`)
	}

	if len(args) < 1 || args[0] != "create" {
		fs.Usage()
		return fmt.Errorf("subcommand required: create")
	}

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, _, err := loadEnv(*configPath, *debug)
	if err != nil {
		return err
	}
	if *endpoint != "" {
		cfg.Dynamo.Endpoint = *endpoint
	}

	ctx, cancel := signalContext()
	defer cancel()

	return ensureTable(ctx, cfg)
}

// ensureTable creates the configured table, logging create vs skip. Also
// used by 'up'.
func ensureTable(ctx context.Context, cfg config.Config) error {
	client, err := dynamo.New(ctx, cfg.Dynamo.Endpoint, cfg.Dynamo.Region, cfg.Dynamo.Table)
	if err != nil {
		return err
	}

	ui.Stepf("Ensuring DynamoDB table %s at %s", cfg.Dynamo.Table, cfg.Dynamo.Endpoint)
	created, err := client.EnsureTable(ctx)
	if err != nil {
		return err
	}
	if created {
		ui.Donef("Created table %s", cfg.Dynamo.Table)
	} else {
		ui.Skipf("table %s", cfg.Dynamo.Table)
	}
	return nil
}
