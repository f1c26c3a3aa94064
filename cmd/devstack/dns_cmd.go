package main

import (
	"flag"
	"fmt"

	"github.com/raidhelper/devstack/internal/dns"
	"github.com/raidhelper/devstack/internal/ui"
)

func dnsCommand(args []string) error {
	fs := flag.NewFlagSet("dns", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	hostsPath := fs.String("hosts-file", "", "Hosts file to manage (default /etc/hosts)")

	fs.Usage = func() {
		fmt.Println(`Manage hosts-file entries for the dev domain

Entries live in a marker-delimited block owned by this project, so 'add' is
idempotent and 'remove' never touches lines it does not own. Writing
/etc/hosts requires root.

USAGE:
    devstack dns <add|remove|list> [flags]

FLAGS:
    --config string       Path to devstack config file (default "devstack.yaml")
    --debug               Enable debug output
    --hosts-file string   Hosts file to manage (default /etc/hosts)

EXAMPLES:
    # Point the dev domains at 127.0.0.1
    sudo devstack dns add

    # Remove the managed block
    sudo devstack dns remove

    # Show managed entries
    devstack dns list`)
	}

	if len(args) < 1 {
		fs.Usage()
		return fmt.Errorf("subcommand required: add, remove, or list")
	}
	sub := args[0]

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, _, err := loadEnv(*configPath, *debug)
	if err != nil {
		return err
	}

	mgr := dns.NewManager(*hostsPath, cfg.Project)

	switch sub {
	case "add":
		hosts := cfg.HostNames()
		ui.Stepf("Adding %d host entr(ies)", len(hosts))
		if err := mgr.Add(hosts); err != nil {
			return err
		}
		ui.Donef("Hosts entries written")
		return nil
	case "remove":
		ui.Stepf("Removing managed host entries")
		if err := mgr.Remove(); err != nil {
			return err
		}
		ui.Donef("Hosts entries removed")
		return nil
	case "list":
		hosts, err := mgr.Entries()
		if err != nil {
			return err
		}
		if len(hosts) == 0 {
			fmt.Println("No managed host entries")
			return nil
		}
		for _, h := range hosts {
			fmt.Println(h)
		}
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("unknown subcommand: %s", sub)
	}
}
