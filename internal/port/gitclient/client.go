// Package gitclient defines the port for git working-tree operations, plus
// the error classes the sync worker reports in SyncStatus.
package gitclient

import (
	"context"
	"errors"
)

// Error classes for failed git operations. Implementations wrap the
// underlying failure with one of these so the sync worker can classify it.
var (
	// ErrAuth covers rejected credentials and denied repository access.
	ErrAuth = errors.New("authentication failed")
	// ErrNetwork covers unreachable hosts, DNS failures, and timeouts.
	ErrNetwork = errors.New("network failure")
	// ErrNonFastForward indicates local history diverged from the remote.
	// The working tree is left untouched; this is reported, never resolved.
	ErrNonFastForward = errors.New("non-fast-forward")
)

// Options carries per-operation parameters.
type Options struct {
	// SSHKeyPath is the materialized private key file for this operation.
	// Empty means the transport needs no key (e.g. a local test remote).
	SSHKeyPath string
}

// Client is the port interface for git operations on one working tree.
// Implementations must leave the tree at its last consistent state on any
// failure and honor context cancellation.
type Client interface {
	// Clone creates dir as a fresh clone of url at branch.
	Clone(ctx context.Context, url, branch, dir string, opts Options) error

	// Update fetches branch from origin and fast-forwards the local branch.
	// Divergent history returns ErrNonFastForward without modifying the tree.
	Update(ctx context.Context, dir, branch string, opts Options) error

	// HeadCommit returns the current HEAD hash of dir.
	HeadCommit(ctx context.Context, dir string) (string, error)
}
