// Package gitcli implements the gitclient.Client interface using the git CLI.
package gitcli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/repolens/repolens/internal/git"
	"github.com/repolens/repolens/internal/port/gitclient"
)

// Client runs git commands through a shared concurrency pool. SSH
// authentication uses a per-operation key file via GIT_SSH_COMMAND with
// host key checking disabled, so deploy keys work without a known_hosts
// provisioning step.
type Client struct {
	pool *git.Pool
}

// NewClient creates a Client that limits concurrent git operations via pool.
func NewClient(pool *git.Pool) *Client {
	return &Client{pool: pool}
}

// Clone creates dir as a fresh clone of url at branch. A failed or
// interrupted clone removes whatever it wrote, so a later attempt starts
// clean instead of fast-forwarding a truncated repository.
func (c *Client) Clone(ctx context.Context, url, branch, dir string, opts gitclient.Options) error {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("gitcli: resolve path: %w", err)
	}
	_, statErr := os.Stat(absPath)
	preexisting := statErr == nil

	return c.pool.Run(ctx, func() error {
		args := []string{"clone", "--branch", branch, "--single-branch", url, absPath}
		if _, execErr := runGit(ctx, "", opts.SSHKeyPath, args...); execErr != nil {
			if !preexisting {
				_ = os.RemoveAll(absPath)
			}
			return fmt.Errorf("gitcli: clone: %w", classify(execErr))
		}
		return nil
	})
}

// Update fetches branch from origin and fast-forwards the local branch.
// Divergent history returns ErrNonFastForward with the tree untouched.
func (c *Client) Update(ctx context.Context, dir, branch string, opts gitclient.Options) error {
	return c.pool.Run(ctx, func() error {
		if _, err := runGit(ctx, dir, opts.SSHKeyPath, "fetch", "origin", branch); err != nil {
			return fmt.Errorf("gitcli: fetch: %w", classify(err))
		}
		if _, err := runGit(ctx, dir, "", "merge", "--ff-only", "origin/"+branch); err != nil {
			return fmt.Errorf("gitcli: merge: %w", classify(err))
		}
		return nil
	})
}

// HeadCommit returns the current HEAD hash of dir.
func (c *Client) HeadCommit(ctx context.Context, dir string) (string, error) {
	var head string
	err := c.pool.Run(ctx, func() error {
		out, err := runGit(ctx, dir, "", "rev-parse", "HEAD")
		if err != nil {
			return fmt.Errorf("gitcli: rev-parse: %w", err)
		}
		head = strings.TrimSpace(out)
		return nil
	})
	return head, err
}

// runGit executes git with stderr captured into the returned error. A
// non-empty sshKeyPath routes the transport through that key only.
func runGit(ctx context.Context, dir, sshKeyPath string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	if sshKeyPath != "" {
		cmd.Env = append(cmd.Environ(),
			"GIT_SSH_COMMAND=ssh -i "+sshKeyPath+
				" -o IdentitiesOnly=yes"+
				" -o StrictHostKeyChecking=no"+
				" -o UserKnownHostsFile=/dev/null"+
				" -o LogLevel=ERROR",
			"GIT_TERMINAL_PROMPT=0",
		)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}

// classify maps git stderr text onto the port's error classes so callers
// can report auth, network, and divergence failures distinctly.
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "authentication failed"),
		strings.Contains(msg, "access denied"),
		strings.Contains(msg, "publickey"):
		return fmt.Errorf("%w: %w", gitclient.ErrAuth, err)
	case strings.Contains(msg, "could not resolve host"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection timed out"),
		strings.Contains(msg, "network is unreachable"),
		strings.Contains(msg, "operation timed out"):
		return fmt.Errorf("%w: %w", gitclient.ErrNetwork, err)
	case strings.Contains(msg, "not possible to fast-forward"),
		strings.Contains(msg, "divergent"),
		strings.Contains(msg, "non-fast-forward"):
		return fmt.Errorf("%w: %w", gitclient.ErrNonFastForward, err)
	default:
		return err
	}
}
