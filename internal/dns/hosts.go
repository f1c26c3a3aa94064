// Package dns manages hosts-file entries for the local development domains.
//
// Entries live in a marker-delimited block so repeated adds rewrite the
// block instead of accumulating duplicates, and removal never touches
// lines devstack does not own.
package dns

import (
	"fmt"
	"os"
	"strings"
)

// DefaultHostsPath is the system hosts file.
const DefaultHostsPath = "/etc/hosts"

const loopback = "127.0.0.1"

// Manager rewrites the managed block in a hosts file.
type Manager struct {
	path  string
	label string
}

// NewManager returns a Manager for the hosts file at path. label scopes the
// managed block markers (usually the project name).
func NewManager(path, label string) *Manager {
	if path == "" {
		path = DefaultHostsPath
	}
	return &Manager{path: path, label: label}
}

func (m *Manager) beginMarker() string { return fmt.Sprintf("# devstack:%s begin", m.label) }
func (m *Manager) endMarker() string   { return fmt.Sprintf("# devstack:%s end", m.label) }

// Add writes (or rewrites) the managed block mapping each host to loopback.
func (m *Manager) Add(hosts []string) error {
	content, err := m.read()
	if err != nil {
		return err
	}
	return m.write(m.upsert(content, hosts))
}

// Remove deletes the managed block. Removing when no block exists is a no-op.
func (m *Manager) Remove() error {
	content, err := m.read()
	if err != nil {
		return err
	}
	return m.write(m.strip(content))
}

// Entries returns the hostnames currently in the managed block.
func (m *Manager) Entries() ([]string, error) {
	content, err := m.read()
	if err != nil {
		return nil, err
	}

	var hosts []string
	inBlock := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == m.beginMarker():
			inBlock = true
		case trimmed == m.endMarker():
			inBlock = false
		case inBlock:
			fields := strings.Fields(trimmed)
			if len(fields) >= 2 && fields[0] == loopback {
				hosts = append(hosts, fields[1:]...)
			}
		}
	}
	return hosts, nil
}

// upsert replaces the managed block in content, or appends one.
func (m *Manager) upsert(content string, hosts []string) string {
	stripped := m.strip(content)

	var block strings.Builder
	block.WriteString(m.beginMarker() + "\n")
	for _, h := range hosts {
		fmt.Fprintf(&block, "%s %s\n", loopback, h)
	}
	block.WriteString(m.endMarker() + "\n")

	if stripped != "" && !strings.HasSuffix(stripped, "\n") {
		stripped += "\n"
	}
	return stripped + block.String()
}

// strip removes the managed block from content, leaving everything else
// byte-for-byte intact.
func (m *Manager) strip(content string) string {
	lines := strings.Split(content, "\n")
	var kept []string
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == m.beginMarker():
			inBlock = true
		case trimmed == m.endMarker():
			inBlock = false
		case !inBlock:
			kept = append(kept, line)
		}
	}
	out := strings.Join(kept, "\n")
	// Collapse the trailing blank line left by block removal.
	out = strings.TrimRight(out, "\n")
	if out != "" {
		out += "\n"
	}
	return out
}

func (m *Manager) read() (string, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read hosts file: %w", err)
	}
	return string(data), nil
}

func (m *Manager) write(content string) error {
	if err := os.WriteFile(m.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write hosts file (try sudo): %w", err)
	}
	return nil
}
