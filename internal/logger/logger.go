// Package logger provides verbose logging for the iCloud CLI.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr to help users follow the authentication flow.
//
// Secrets registered with AddSecret are replaced with asterisks before
// any message is written, so passwords and tokens never reach the log.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	secrets []string
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// AddSecret registers a string to be redacted from all log output.
func AddSecret(s string) {
	if s == "" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	secrets = append(secrets, s)
}

// ResetSecrets drops all registered secrets. Useful for testing.
func ResetSecrets() {
	mu.Lock()
	defer mu.Unlock()
	secrets = nil
}

// redact replaces registered secrets in msg (caller must hold the lock).
func redact(msg string) string {
	for _, s := range secrets {
		msg = strings.ReplaceAll(msg, s, "********")
	}
	return msg
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[DEBUG] %s\n", redact(fmt.Sprintf(format, args...)))
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[INFO] %s\n", redact(fmt.Sprintf(format, args...)))
	}
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[WARN] %s\n", redact(fmt.Sprintf(format, args...)))
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
