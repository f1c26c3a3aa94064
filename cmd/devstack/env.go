package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/raidhelper/devstack/internal/config"
	"github.com/raidhelper/devstack/internal/proc"
	"github.com/raidhelper/devstack/internal/ui"
)

// defaultConfigPath is looked for in the working directory; a missing file
// means built-in defaults apply.
const defaultConfigPath = "devstack.yaml"

// commonFlags registers the flags every command shares.
func commonFlags(fs *flag.FlagSet) (configPath *string, debug *bool) {
	configPath = fs.String("config", defaultConfigPath, "Path to devstack config file")
	debug = fs.Bool("debug", false, "Enable debug output")
	return configPath, debug
}

// loadEnv loads configuration and the shared PID file.
func loadEnv(configPath string, debug bool) (config.Config, *proc.File, error) {
	ui.SetDebug(debug)

	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, proc.NewFile(cfg.PIDFilePath()), nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
