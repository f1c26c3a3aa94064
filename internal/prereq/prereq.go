// Package prereq checks that required external binaries are present before
// any command shells out to them.
package prereq

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrMissingBinary indicates a required external tool is not in PATH.
var ErrMissingBinary = errors.New("required binary not found in PATH")

// Check verifies that every named binary resolves via PATH lookup.
// The returned error names all missing binaries, not just the first.
func Check(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingBinary, strings.Join(missing, ", "))
	}
	return nil
}

// Path resolves a single binary, wrapping the lookup failure with the
// binary name for diagnostics.
func Path(name string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrMissingBinary, name)
	}
	return p, nil
}
