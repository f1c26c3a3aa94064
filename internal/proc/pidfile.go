// Package proc tracks background processes started by devstack (tunnel,
// port-forwards) in a PID list file so a later invocation can stop them.
//
// The file holds one "pid name" line per process. There is no locking
// discipline beyond read-modify-write: the tool is single-user and two
// concurrent invocations are operator error.
package proc

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrNotTracked indicates a PID was not present in the file.
var ErrNotTracked = errors.New("pid not tracked")

// Entry is one tracked background process.
type Entry struct {
	PID  int
	Name string
}

// File is a PID list file on disk.
type File struct {
	path string
}

// NewFile returns a File at path. The file itself is created lazily on the
// first Append.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the location of the PID file.
func (f *File) Path() string {
	return f.path
}

// Append records a new background process.
func (f *File) Append(e Entry) error {
	if e.PID <= 0 {
		return fmt.Errorf("invalid pid %d", e.PID)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open pid file: %w", err)
	}
	defer fh.Close()

	if _, err := fmt.Fprintf(fh, "%d %s\n", e.PID, e.Name); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// Entries parses the PID file. A missing file yields an empty list.
// Malformed lines are skipped rather than failing the whole read.
func (f *File) Entries() ([]Entry, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open pid file: %w", err)
	}
	defer fh.Close()

	var entries []Entry
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		pid, err := strconv.Atoi(fields[0])
		if err != nil || pid <= 0 {
			continue
		}
		e := Entry{PID: pid}
		if len(fields) == 2 {
			e.Name = fields[1]
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pid file: %w", err)
	}
	return entries, nil
}

// Remove drops a PID from the file, rewriting it in place.
func (f *File) Remove(pid int) error {
	entries, err := f.Entries()
	if err != nil {
		return err
	}

	var kept []Entry
	found := false
	for _, e := range entries {
		if e.PID == pid {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return fmt.Errorf("%w: %d", ErrNotTracked, pid)
	}
	return f.rewrite(kept)
}

// Clear removes the PID file entirely.
func (f *File) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove pid file: %w", err)
	}
	return nil
}

func (f *File) rewrite(entries []Entry) error {
	if len(entries) == 0 {
		return f.Clear()
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%d %s\n", e.PID, e.Name)
	}
	if err := os.WriteFile(f.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to rewrite pid file: %w", err)
	}
	return nil
}

// Alive reports whether the process still exists (signal 0 probe).
func Alive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// Terminate stops a process: SIGTERM, wait up to grace for it to exit,
// then SIGKILL. A process that is already gone is not an error.
func Terminate(pid int, grace time.Duration) error {
	if !Alive(pid) {
		return nil
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return fmt.Errorf("failed to signal pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !Alive(pid) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("failed to kill pid %d: %w", pid, err)
	}
	return nil
}

// StopAll terminates every live tracked process and clears the file.
// Entries whose process is already gone are pruned silently.
func (f *File) StopAll(grace time.Duration) ([]Entry, error) {
	entries, err := f.Entries()
	if err != nil {
		return nil, err
	}

	var stopped []Entry
	var errs []error
	for _, e := range entries {
		if !Alive(e.PID) {
			continue
		}
		if err := Terminate(e.PID, grace); err != nil {
			errs = append(errs, err)
			continue
		}
		stopped = append(stopped, e)
	}

	if err := f.Clear(); err != nil {
		errs = append(errs, err)
	}
	return stopped, errors.Join(errs...)
}
