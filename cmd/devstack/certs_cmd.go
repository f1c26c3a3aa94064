package main

import (
	"flag"
	"fmt"

	"github.com/raidhelper/devstack/internal/certs"
	"github.com/raidhelper/devstack/internal/ui"
)

func certsCommand(args []string) error {
	fs := flag.NewFlagSet("certs", flag.ExitOnError)
	configPath, debug := commonFlags(fs)

	fs.Usage = func() {
		fmt.Println(`Generate self-signed TLS certificates for the dev domain

Writes a throwaway CA (ca.crt/ca.key) and a leaf pair (tls.crt/tls.key)
covering the domain, its wildcard, and localhost. Existing files are kept;
delete the cert directory to force regeneration.

USAGE:
    devstack certs [flags]

FLAGS:
    --config string   Path to devstack config file (default "devstack.yaml")
    --debug           Enable debug output

EXAMPLES:
    # Generate certificates for the configured domain
    devstack certs`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := loadEnv(*configPath, *debug)
	if err != nil {
		return err
	}

	ui.Stepf("Generating TLS certificates for %s", cfg.Domain)
	res, err := certs.Generate(cfg.CertDir, cfg.Domain)
	if err != nil {
		return err
	}
	if !res.Generated {
		ui.Skipf("certificates in %s", cfg.CertDir)
		return nil
	}

	ui.Donef("CA:   %s", res.CA.CertPath)
	ui.Donef("Leaf: %s", res.Leaf.CertPath)
	return nil
}
