package cluster

import (
	"context"
	"fmt"
	"time"

	kindcluster "sigs.k8s.io/kind/pkg/cluster"
	kindcmd "sigs.k8s.io/kind/pkg/cmd"

	"github.com/raidhelper/devstack/internal/config"
	"github.com/raidhelper/devstack/internal/ui"
)

// Kind drives a kind cluster through the kind Go SDK. No external binary
// needed; kind talks to Docker directly.
type Kind struct {
	cfg      config.Cluster
	provider *kindcluster.Provider
}

// NewKind builds a kind provider.
func NewKind(cfg config.Cluster) *Kind {
	return &Kind{
		cfg: cfg,
		provider: kindcluster.NewProvider(
			kindcluster.ProviderWithLogger(kindcmd.NewLogger()),
		),
	}
}

func (k *Kind) Name() string { return k.cfg.Name }

// Create creates the cluster and waits for the control plane. An existing
// cluster with the same name is a logged skip.
func (k *Kind) Create(ctx context.Context) error {
	exists, err := k.exists()
	if err != nil {
		return err
	}
	if exists {
		ui.Skipf("kind cluster %s already exists", k.cfg.Name)
		return nil
	}

	ui.Stepf("Creating kind cluster %s", k.cfg.Name)
	if err := k.provider.Create(
		k.cfg.Name,
		kindcluster.CreateWithWaitForReady(2*time.Minute),
	); err != nil {
		return fmt.Errorf("failed to create kind cluster: %w", err)
	}

	ui.Donef("Cluster %s is up", k.cfg.Name)
	return nil
}

// Delete deletes the cluster. Deleting a missing cluster is a skip.
func (k *Kind) Delete(ctx context.Context) error {
	exists, err := k.exists()
	if err != nil {
		return err
	}
	if !exists {
		ui.Skipf("kind cluster %s does not exist", k.cfg.Name)
		return nil
	}

	ui.Stepf("Deleting kind cluster %s", k.cfg.Name)
	if err := k.provider.Delete(k.cfg.Name, ""); err != nil {
		return fmt.Errorf("failed to delete kind cluster: %w", err)
	}

	ui.Donef("Cluster %s deleted", k.cfg.Name)
	return nil
}

// Status reports Running when the cluster exists. kind has no stopped
// state: a cluster either runs or is gone.
func (k *Kind) Status(ctx context.Context) (State, error) {
	exists, err := k.exists()
	if err != nil {
		return StateUnknown, err
	}
	if exists {
		return StateRunning, nil
	}
	return StateNotFound, nil
}

func (k *Kind) exists() (bool, error) {
	names, err := k.provider.List()
	if err != nil {
		return false, fmt.Errorf("failed to list kind clusters: %w", err)
	}
	for _, n := range names {
		if n == k.cfg.Name {
			return true, nil
		}
	}
	return false, nil
}
