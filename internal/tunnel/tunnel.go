// Package tunnel supervises a Cloudflare quick tunnel fronting the local
// environment.
//
// cloudflared assigns a random trycloudflare.com hostname at startup and
// only reports it in its log output, so startup is: launch the process with
// its output teed to a log file, then poll the log until the URL appears or
// the attempt ceiling is hit. The discovered hostname is recorded in a
// dotenv file (overwritten on every restart) for other tooling to consume.
package tunnel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"

	"github.com/raidhelper/devstack/internal/prereq"
	"github.com/raidhelper/devstack/internal/proc"
	"github.com/raidhelper/devstack/internal/retry"
)

// ErrURLNotFound indicates the tunnel URL never appeared in the log.
var ErrURLNotFound = errors.New("tunnel URL did not appear in log")

// ErrNotRunning indicates no tracked tunnel process exists.
var ErrNotRunning = errors.New("tunnel is not running")

// urlPattern matches the assigned quick-tunnel URL in cloudflared output.
var urlPattern = regexp.MustCompile(`https://[a-z0-9-]+\.trycloudflare\.com`)

// pidName tags tunnel entries in the PID file.
const pidName = "tunnel"

// Env file keys.
const (
	EnvKeyURL         = "TUNNEL_URL"
	EnvKeyHostname    = "TUNNEL_HOSTNAME"
	EnvKeyOAuthURL    = "OAUTH_REDIRECT_URL"
	EnvKeyStartedUnix = "TUNNEL_STARTED_AT"
)

// Info describes a running tunnel.
type Info struct {
	URL      string
	Hostname string
	PID      int
	LogPath  string
}

// Supervisor starts and stops the cloudflared process.
type Supervisor struct {
	bin      string
	stateDir string
	pids     *proc.File

	// Poll settings for URL discovery.
	attempts int
	interval time.Duration
}

// NewSupervisor checks for the cloudflared binary and returns a Supervisor
// writing its log under stateDir and tracking the process in pids.
func NewSupervisor(stateDir string, pids *proc.File) (*Supervisor, error) {
	bin, err := prereq.Path("cloudflared")
	if err != nil {
		return nil, err
	}
	return &Supervisor{
		bin:      bin,
		stateDir: stateDir,
		pids:     pids,
		attempts: 30,
		interval: time.Second,
	}, nil
}

// LogPath is where cloudflared output is teed.
func (s *Supervisor) LogPath() string {
	return filepath.Join(s.stateDir, "cloudflared.log")
}

// Start launches cloudflared against target and waits for the assigned URL.
// A tunnel that never reports its URL is torn down before returning.
func (s *Supervisor) Start(ctx context.Context, target string) (*Info, error) {
	if err := os.MkdirAll(s.stateDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}

	logPath := s.LogPath()
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open tunnel log: %w", err)
	}
	defer logFile.Close()

	// Not CommandContext: the tunnel must outlive this invocation.
	cmd := exec.Command(s.bin, "tunnel", "--no-autoupdate", "--url", target) // #nosec G204 - binary resolved via LookPath
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start cloudflared: %w", err)
	}
	pid := cmd.Process.Pid

	// Reap the child when it exits so it cannot linger as a zombie.
	go func() { _ = cmd.Wait() }()

	if err := s.pids.Append(proc.Entry{PID: pid, Name: pidName}); err != nil {
		_ = proc.Terminate(pid, 2*time.Second)
		return nil, err
	}

	rawURL, err := WaitForURL(ctx, logPath, s.attempts, s.interval)
	if err != nil {
		_ = proc.Terminate(pid, 2*time.Second)
		_ = s.pids.Remove(pid)
		return nil, err
	}

	info := &Info{URL: rawURL, PID: pid, LogPath: logPath}
	if u, err := url.Parse(rawURL); err == nil {
		info.Hostname = u.Hostname()
	}
	return info, nil
}

// Stop terminates all tracked tunnel processes.
func (s *Supervisor) Stop(grace time.Duration) error {
	entries, err := s.pids.Entries()
	if err != nil {
		return err
	}

	stopped := false
	for _, e := range entries {
		if e.Name != pidName {
			continue
		}
		if err := proc.Terminate(e.PID, grace); err != nil {
			return err
		}
		if err := s.pids.Remove(e.PID); err != nil && !errors.Is(err, proc.ErrNotTracked) {
			return err
		}
		stopped = true
	}
	if !stopped {
		return ErrNotRunning
	}
	return nil
}

// Running returns the live tracked tunnel PID, or ErrNotRunning.
func (s *Supervisor) Running() (int, error) {
	entries, err := s.pids.Entries()
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.Name == pidName && proc.Alive(e.PID) {
			return e.PID, nil
		}
	}
	return 0, ErrNotRunning
}

// WaitForURL polls the log file until the quick-tunnel URL appears.
// Fixed-interval polling with an attempt ceiling; the file not existing yet
// counts as a failed attempt (cloudflared may not have flushed output).
func WaitForURL(ctx context.Context, logPath string, attempts int, interval time.Duration) (string, error) {
	var found string
	err := retry.Do(ctx, attempts, interval, func() error {
		data, err := os.ReadFile(logPath)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrURLNotFound, logPath)
		}
		m := urlPattern.Find(data)
		if m == nil {
			return fmt.Errorf("%w: %s", ErrURLNotFound, logPath)
		}
		found = string(m)
		return nil
	})
	if err != nil {
		return "", err
	}
	return found, nil
}

// WriteEnvFile records the tunnel URL and derived OAuth redirect URL in a
// dotenv file, replacing any previous contents.
func WriteEnvFile(path, rawURL, redirectPath string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid tunnel URL %q: %w", rawURL, err)
	}

	env := map[string]string{
		EnvKeyURL:         rawURL,
		EnvKeyHostname:    u.Hostname(),
		EnvKeyOAuthURL:    rawURL + redirectPath,
		EnvKeyStartedUnix: fmt.Sprintf("%d", time.Now().Unix()),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create env file dir: %w", err)
	}
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}
	return nil
}

// ReadEnvFile loads a previously written tunnel env file.
func ReadEnvFile(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	return env, nil
}
