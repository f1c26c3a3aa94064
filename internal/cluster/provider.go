// Package cluster manages the local Kubernetes cluster lifecycle behind a
// small Provider interface, with minikube (shelled out) and kind (SDK)
// implementations.
package cluster

import (
	"context"
	"fmt"

	"github.com/raidhelper/devstack/internal/config"
)

// State is the coarse cluster state the CLI reports.
type State string

const (
	StateRunning  State = "Running"
	StateStopped  State = "Stopped"
	StateNotFound State = "NotFound"
	StateUnknown  State = "Unknown"
)

// Provider is the cluster lifecycle surface used by the commands.
type Provider interface {
	// Create brings the cluster up. A cluster that already exists is a
	// logged skip, not an error.
	Create(ctx context.Context) error
	// Delete tears the cluster down. A missing cluster is not an error.
	Delete(ctx context.Context) error
	// Status reports the coarse cluster state.
	Status(ctx context.Context) (State, error)
	// Name is the cluster/profile name.
	Name() string
}

// New selects a provider from configuration.
func New(cfg config.Cluster) (Provider, error) {
	switch cfg.Provider {
	case "minikube":
		return NewMinikube(cfg)
	case "kind":
		return NewKind(cfg), nil
	default:
		return nil, fmt.Errorf("unknown cluster provider %q", cfg.Provider)
	}
}
