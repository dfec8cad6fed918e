// Package repo defines the repository registry domain entities.
package repo

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// SyncState is the lifecycle state of a repository's synchronization.
type SyncState string

// Sync states. A repository moves never-synced → syncing → {synced, failed};
// a failed repository re-enters syncing on its next attempt.
const (
	StateNeverSynced SyncState = "never-synced"
	StateSyncing     SyncState = "syncing"
	StateSynced      SyncState = "synced"
	StateFailed      SyncState = "failed"
)

// Config is the desired state of one managed git repository.
// Key material is never stored here; CredentialRef is an opaque handle
// into the credential vault.
type Config struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	URL           string    `json:"url"`
	DefaultBranch string    `json:"default_branch"`
	CredentialRef string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SyncStatus records the outcome of the most recent sync attempt.
// Exactly one SyncStatus exists per Config; it is overwritten on every attempt.
type SyncStatus struct {
	RepoID      string     `json:"repo_id"`
	RepoName    string     `json:"repo_name"`
	State       SyncState  `json:"state"`
	LastAttempt *time.Time `json:"last_attempt,omitempty"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	Commit      string     `json:"commit,omitempty"`
}

// RegisterRequest holds the fields needed to register a repository,
// matching the product's JSON repository-configuration format.
type RegisterRequest struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	SSHPrivateKey string `json:"ssh_private_key"`
	SSHPublicKey  string `json:"ssh_public_key"`
	DefaultBranch string `json:"default_branch"`
}

// Validate checks the request and fills in defaults. The name becomes a
// directory under the worktree root, so it must be path-safe.
func (r *RegisterRequest) Validate() error {
	if err := ValidateName(r.Name); err != nil {
		return err
	}
	if strings.TrimSpace(r.URL) == "" {
		return errors.New("url is required")
	}
	if strings.TrimSpace(r.SSHPrivateKey) == "" {
		return errors.New("ssh_private_key is required")
	}
	if r.DefaultBranch == "" {
		r.DefaultBranch = "main"
	}
	return nil
}

// ValidateName rejects names that could escape the worktree root.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > 128 {
		return errors.New("name too long (max 128 chars)")
	}
	if strings.ContainsAny(name, `/\`) {
		return errors.New("name must not contain path separators")
	}
	if strings.Contains(name, "..") {
		return errors.New("name must not contain '..'")
	}
	if name[0] == '.' {
		return errors.New("name must not start with '.'")
	}
	if cleaned := filepath.Clean(name); cleaned != name {
		return fmt.Errorf("name contains invalid path characters: %q", name)
	}
	return nil
}

// SyncResult is one repository's outcome within a bulk sync pass.
type SyncResult struct {
	RepoName string    `json:"repo_name"`
	State    SyncState `json:"state"`
	Error    string    `json:"error,omitempty"`
	Commit   string    `json:"commit,omitempty"`
	Duration time.Duration
}
