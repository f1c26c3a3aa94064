package main

import (
	"context"
	"flag"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

func versionCommand(args []string) error {
	fs := flag.NewFlagSet("version", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "Show detected tool versions")

	fs.Usage = func() {
		fmt.Println(`Show version information for devstack and its tools

USAGE:
    devstack version [flags]

FLAGS:
    --verbose   Also detect and show installed tool versions

EXAMPLES:
    # Show devstack version
    devstack version

    # Show devstack and tool versions
    devstack version --verbose`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Printf("devstack %s (commit: %s, built: %s)\n", version, commit, date)
	if !*verbose {
		return nil
	}

	fmt.Println("\nRuntime Environment:")
	table := NewTableWriter([]string{"Tool", "Version", "Status"})

	tools := []struct {
		name     string
		command  []string
		required bool
	}{
		{"Docker", []string{"docker", "version", "--format", "{{.Client.Version}}"}, true},
		{"kubectl", []string{"kubectl", "version", "--client", "--short"}, true},
		{"Minikube", []string{"minikube", "version", "--short"}, false},
		{"kind", []string{"kind", "version"}, false},
		{"cloudflared", []string{"cloudflared", "--version"}, false},
	}

	for _, tool := range tools {
		v, err := getToolVersion(tool.command)
		status := "✓"
		if err != nil {
			if tool.required {
				status = "✗ REQUIRED"
			} else {
				status = "○ Optional"
			}
			v = "not found"
		}
		table.AddRow([]string{tool.name, v, status})
	}

	table.Print()
	return nil
}

func getToolVersion(command []string) (string, error) {
	// Validate command is in allowed list for security
	allowedCommands := map[string]bool{
		"docker":      true,
		"kubectl":     true,
		"minikube":    true,
		"kind":        true,
		"cloudflared": true,
	}

	if len(command) == 0 || !allowedCommands[command[0]] {
		return "", fmt.Errorf("unsupported command: %v", command)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, command[0], command[1:]...) // #nosec G204 - command validated against allowlist
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", err
	}

	result := strings.TrimSpace(string(output))

	// Extract version for different tools
	switch command[0] {
	case "kubectl":
		// "Client Version: v1.28.0" -> "v1.28.0"
		result = strings.TrimPrefix(result, "Client Version: ")
	case "minikube":
		// "minikube version: v1.33.0" -> "v1.33.0"
		result = strings.TrimPrefix(result, "minikube version: ")
	case "kind":
		// "kind v0.23.0 go1.22.3 linux/amd64" -> "v0.23.0"
		parts := strings.Fields(result)
		if len(parts) >= 2 {
			result = parts[1]
		}
	case "cloudflared":
		// "cloudflared version 2024.6.0 (built ...)" -> "2024.6.0"
		parts := strings.Fields(result)
		if len(parts) >= 3 {
			result = parts[2]
		}
	}

	// Multi-line output: keep the first line only
	if idx := strings.IndexByte(result, '\n'); idx > 0 {
		result = result[:idx]
	}

	return result, nil
}
