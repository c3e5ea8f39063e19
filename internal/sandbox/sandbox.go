// Package sandbox provides a uniform interface over the remote code-execution
// environment: a persistent interpreter session plus shell and file access.
package sandbox

import (
	"context"
	"time"

	"dsagent/pkg"
)

// Sandbox is the remote execution bridge consumed by the workflow nodes.
// All calls may fail with a transport- or execution-level error; a failure is
// always surfaced as an error, never a silent empty result.
type Sandbox interface {
	// RunCode executes a code snippet in the persistent interpreter session
	// and returns the captured stdout/stderr, ordered results, and any
	// declared error.
	RunCode(ctx context.Context, source string) (*pkg.Execution, error)

	// RunShell executes an OS-level command with a bounded timeout.
	RunShell(ctx context.Context, command string, timeout time.Duration) (*pkg.ShellResult, error)

	// WriteFile writes data to a path inside the sandbox.
	WriteFile(ctx context.Context, path string, data []byte) error

	// ReadFile reads a file from the sandbox.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// ListFiles lists the entries of a sandbox directory.
	ListFiles(ctx context.Context, dir string) ([]pkg.FileInfo, error)

	// Download copies a file out of the sandbox and returns its bytes.
	Download(ctx context.Context, remotePath string) ([]byte, error)

	// Close tears down the sandbox session. Safe to call exactly once;
	// callers must guarantee it runs on every exit path.
	Close() error
}
