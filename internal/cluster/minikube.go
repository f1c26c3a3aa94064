package cluster

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/raidhelper/devstack/internal/config"
	"github.com/raidhelper/devstack/internal/prereq"
	"github.com/raidhelper/devstack/internal/ui"
)

// Minikube drives a minikube profile through the minikube binary.
type Minikube struct {
	bin string
	cfg config.Cluster
}

// NewMinikube checks for the minikube binary.
func NewMinikube(cfg config.Cluster) (*Minikube, error) {
	bin, err := prereq.Path("minikube")
	if err != nil {
		return nil, err
	}
	return &Minikube{bin: bin, cfg: cfg}, nil
}

func (m *Minikube) Name() string { return m.cfg.Name }

// Create starts the profile. minikube start is idempotent: an already
// running profile is reported and reused.
func (m *Minikube) Create(ctx context.Context) error {
	state, err := m.Status(ctx)
	if err == nil && state == StateRunning {
		ui.Skipf("minikube profile %s is already running", m.cfg.Name)
		return nil
	}

	ui.Stepf("Starting minikube profile %s", m.cfg.Name)
	cmd := exec.CommandContext(ctx, m.bin, startArgs(m.cfg)...) // #nosec G204 - binary resolved via LookPath
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("minikube start failed: %w", err)
	}

	ui.Donef("Cluster %s is up", m.cfg.Name)
	return nil
}

// Delete removes the profile. "profile does not exist" is a skip.
func (m *Minikube) Delete(ctx context.Context) error {
	state, err := m.Status(ctx)
	if err == nil && state == StateNotFound {
		ui.Skipf("minikube profile %s does not exist", m.cfg.Name)
		return nil
	}

	ui.Stepf("Deleting minikube profile %s", m.cfg.Name)
	cmd := exec.CommandContext(ctx, m.bin, "delete", "--profile", m.cfg.Name) // #nosec G204
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("minikube delete failed: %w", err)
	}

	ui.Donef("Cluster %s deleted", m.cfg.Name)
	return nil
}

// Status asks minikube for the host state of the profile.
func (m *Minikube) Status(ctx context.Context) (State, error) {
	cmd := exec.CommandContext(ctx, m.bin, "status", "--profile", m.cfg.Name, "--format", "{{.Host}}") // #nosec G204
	output, err := cmd.Output()
	return parseMinikubeState(string(output), err), nil
}

// startArgs builds the minikube start invocation from configuration.
func startArgs(cfg config.Cluster) []string {
	args := []string{
		"start",
		"--profile", cfg.Name,
		"--driver", cfg.Driver,
	}
	if cfg.CPUs > 0 {
		args = append(args, "--cpus", fmt.Sprintf("%d", cfg.CPUs))
	}
	if cfg.Memory != "" {
		args = append(args, "--memory", cfg.Memory)
	}
	if cfg.KubernetesVersion != "" {
		args = append(args, "--kubernetes-version", cfg.KubernetesVersion)
	}
	return args
}

// parseMinikubeState maps `minikube status --format {{.Host}}` output to a
// State. minikube exits non-zero both for stopped and missing profiles, so
// the output text disambiguates.
func parseMinikubeState(output string, err error) State {
	out := strings.TrimSpace(output)
	switch {
	case strings.EqualFold(out, "Running"):
		return StateRunning
	case strings.EqualFold(out, "Stopped"):
		return StateStopped
	case err != nil && out == "":
		return StateNotFound
	default:
		return StateUnknown
	}
}
