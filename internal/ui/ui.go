// Package ui provides the CLI's progress and diagnostic output.
//
// All commands report progress through this package so the output register
// stays uniform: "→" for steps, "✓" for completions, colored warnings and
// errors on stderr.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)

	debugEnabled bool
)

// SetDebug toggles debug output at runtime.
func SetDebug(enabled bool) {
	debugEnabled = enabled
}

// Stepf announces the start of an operation.
func Stepf(format string, args ...any) {
	fmt.Printf("→ "+format+"\n", args...)
}

// Donef reports a completed operation.
func Donef(format string, args ...any) {
	green.Printf("✓ "+format+"\n", args...)
}

// Skipf reports an operation skipped because the result already exists.
func Skipf(format string, args ...any) {
	fmt.Printf("○ "+format+" (already exists, skipping)\n", args...)
}

// Warnf reports a non-fatal problem.
func Warnf(format string, args ...any) {
	yellow.Fprintf(os.Stderr, "⚠ "+format+"\n", args...)
}

// Errorf reports a fatal problem. The caller decides whether to exit.
func Errorf(format string, args ...any) {
	red.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

// Debugf logs only when debug mode is enabled.
func Debugf(format string, args ...any) {
	if debugEnabled {
		fmt.Printf("[DEBUG] "+format+"\n", args...)
	}
}
