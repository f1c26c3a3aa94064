// Package forward runs kubectl port-forwards as tracked background
// processes so `devstack down` can find and stop them later.
package forward

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/raidhelper/devstack/internal/prereq"
	"github.com/raidhelper/devstack/internal/proc"
)

// ErrDiedEarly indicates a forward exited right after starting, usually a
// bad resource name or a port already in use.
var ErrDiedEarly = errors.New("port-forward exited immediately")

// pidPrefix tags forward entries in the PID file.
const pidPrefix = "forward "

// Spec describes one port-forward.
type Spec struct {
	Name       string
	Namespace  string
	Resource   string // e.g. "svc/argocd-server"
	LocalPort  int
	RemotePort int
}

// Status is one tracked forward and whether its process is still alive.
type Status struct {
	Name  string
	PID   int
	Alive bool
}

// Manager starts and stops port-forward processes.
type Manager struct {
	kubectl  string
	stateDir string
	pids     *proc.File
}

// NewManager checks for kubectl and returns a Manager logging under
// stateDir and tracking processes in pids.
func NewManager(stateDir string, pids *proc.File) (*Manager, error) {
	bin, err := prereq.Path("kubectl")
	if err != nil {
		return nil, err
	}
	return &Manager{kubectl: bin, stateDir: stateDir, pids: pids}, nil
}

// Start launches one port-forward in the background and returns its PID.
// The process gets a moment to fail fast before we call it started.
func (m *Manager) Start(spec Spec) (int, error) {
	if err := os.MkdirAll(m.stateDir, 0o750); err != nil {
		return 0, fmt.Errorf("failed to create state dir: %w", err)
	}

	logPath := filepath.Join(m.stateDir, fmt.Sprintf("forward-%s.log", spec.Name))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open forward log: %w", err)
	}
	defer logFile.Close()

	args := []string{"port-forward"}
	if spec.Namespace != "" {
		args = append(args, "-n", spec.Namespace)
	}
	args = append(args, spec.Resource, fmt.Sprintf("%d:%d", spec.LocalPort, spec.RemotePort))

	cmd := exec.Command(m.kubectl, args...) // #nosec G204 - binary resolved via LookPath
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start port-forward %s: %w", spec.Name, err)
	}
	pid := cmd.Process.Pid
	go func() { _ = cmd.Wait() }()

	// Fail fast on bad resource/port instead of tracking a corpse.
	time.Sleep(500 * time.Millisecond)
	if !proc.Alive(pid) {
		return 0, fmt.Errorf("%w: %s (see %s)", ErrDiedEarly, spec.Name, logPath)
	}

	if err := m.pids.Append(proc.Entry{PID: pid, Name: pidPrefix + spec.Name}); err != nil {
		_ = proc.Terminate(pid, 2*time.Second)
		return 0, err
	}
	return pid, nil
}

// StartAll starts every spec, collecting failures rather than aborting on
// the first so one broken forward does not block the rest.
func (m *Manager) StartAll(specs []Spec) error {
	var errs []error
	for _, spec := range specs {
		if _, err := m.Start(spec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StopAll terminates every tracked forward.
func (m *Manager) StopAll(grace time.Duration) ([]Status, error) {
	entries, err := m.pids.Entries()
	if err != nil {
		return nil, err
	}

	var stopped []Status
	var errs []error
	for _, e := range entries {
		name, ok := strings.CutPrefix(e.Name, pidPrefix)
		if !ok {
			continue
		}
		if err := proc.Terminate(e.PID, grace); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := m.pids.Remove(e.PID); err != nil && !errors.Is(err, proc.ErrNotTracked) {
			errs = append(errs, err)
		}
		stopped = append(stopped, Status{Name: name, PID: e.PID})
	}
	return stopped, errors.Join(errs...)
}

// List reports tracked forwards and their liveness.
func (m *Manager) List() ([]Status, error) {
	entries, err := m.pids.Entries()
	if err != nil {
		return nil, err
	}

	var out []Status
	for _, e := range entries {
		name, ok := strings.CutPrefix(e.Name, pidPrefix)
		if !ok {
			continue
		}
		out = append(out, Status{Name: name, PID: e.PID, Alive: proc.Alive(e.PID)})
	}
	return out, nil
}
