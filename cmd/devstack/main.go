package main

import (
	"fmt"
	"os"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	versionInfo := VersionInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	registry := NewCommandRegistry(versionInfo)
	registerCommands(registry)

	if err := registry.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func registerCommands(r *CommandRegistry) {
	r.Register(&Command{
		Name:        "up",
		Description: "Bring the whole development environment up",
		Usage:       "devstack up [flags]",
		Examples: []string{
			"devstack up",
			"devstack up --config ./devstack.yaml",
			"devstack up --skip-tunnel --skip-forwards",
		},
		Run: upCommand,
	})

	r.Register(&Command{
		Name:        "down",
		Description: "Tear the development environment down",
		Usage:       "devstack down [flags]",
		Examples: []string{
			"devstack down",
			"devstack down --delete-cluster",
		},
		Run: downCommand,
	})

	r.Register(&Command{
		Name:        "cluster",
		Description: "Manage the local Kubernetes cluster",
		Usage:       "devstack cluster <up|down|status> [flags]",
		Examples: []string{
			"devstack cluster up",
			"devstack cluster status",
			"devstack cluster down",
		},
		Run: clusterCommand,
	})

	r.Register(&Command{
		Name:        "release",
		Description: "Manage the declared Helm releases",
		Usage:       "devstack release <apply|destroy|status> [flags]",
		Examples: []string{
			"devstack release apply",
			"devstack release apply --releases ./releases.yaml",
			"devstack release status",
		},
		Run: releaseCommand,
	})

	r.Register(&Command{
		Name:        "certs",
		Description: "Generate self-signed TLS certificates for the dev domain",
		Usage:       "devstack certs [flags]",
		Examples: []string{
			"devstack certs",
			"devstack certs --config ./devstack.yaml",
		},
		Run: certsCommand,
	})

	r.Register(&Command{
		Name:        "dns",
		Description: "Manage hosts-file entries for the dev domain",
		Usage:       "devstack dns <add|remove|list> [flags]",
		Examples: []string{
			"sudo devstack dns add",
			"sudo devstack dns remove",
			"devstack dns list",
		},
		Run: dnsCommand,
	})

	r.Register(&Command{
		Name:        "tunnel",
		Description: "Manage the Cloudflare quick tunnel",
		Usage:       "devstack tunnel <start|stop|status> [flags]",
		Examples: []string{
			"devstack tunnel start",
			"devstack tunnel start --no-configmap",
			"devstack tunnel status",
			"devstack tunnel stop",
		},
		Run: tunnelCommand,
	})

	r.Register(&Command{
		Name:        "forward",
		Description: "Manage background kubectl port-forwards",
		Usage:       "devstack forward <start|stop|list> [flags]",
		Examples: []string{
			"devstack forward start",
			"devstack forward list",
			"devstack forward stop",
		},
		Run: forwardCommand,
	})

	r.Register(&Command{
		Name:        "table",
		Description: "Create the DynamoDB table on LocalStack",
		Usage:       "devstack table create [flags]",
		Examples: []string{
			"devstack table create",
			"devstack table create --endpoint http://localhost:4566",
		},
		Run: tableCommand,
	})

	r.Register(&Command{
		Name:        "status",
		Description: "Show the state of the whole environment",
		Usage:       "devstack status [flags]",
		Examples: []string{
			"devstack status",
			"devstack status --serve",
			"devstack status --serve --addr 127.0.0.1:9444",
		},
		Run: statusCommand,
	})

	r.Register(&Command{
		Name:        "version",
		Description: "Show version information",
		Usage:       "devstack version [flags]",
		Examples: []string{
			"devstack version",
			"devstack version --verbose",
		},
		Run: versionCommand,
	})

	r.Register(&Command{
		Name:        "help",
		Description: "Show help information",
		Usage:       "devstack help [command]",
		Examples: []string{
			"devstack help",
			"devstack help up",
		},
		Run: func(args []string) error {
			r.PrintHelp(os.Stdout)
			return nil
		},
	})
}
