// Package vault stores per-repository SSH deploy keys on disk and
// materializes them for individual git operations.
package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"

	"github.com/repolens/repolens/internal/domain"
	"github.com/repolens/repolens/internal/domain/repo"
)

const (
	privateKeyFile = "id_key"
	publicKeyFile  = "id_key.pub"
)

// Vault keeps one credential directory per repository under a root
// directory. The root is created with mode 0700 and key files with 0600.
type Vault struct {
	root string
}

// New creates the vault root if needed and returns a Vault over it.
func New(root string) (*Vault, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("vault root %s: %w", root, err)
	}
	return &Vault{root: root}, nil
}

// Store validates and persists the key pair for the named repository.
// The private key must parse as an unencrypted SSH private key. An empty
// public key is allowed. An existing credential for the name is replaced.
func (v *Vault) Store(name, privateKey, publicKey string) error {
	if err := repo.ValidateName(name); err != nil {
		return err
	}
	if _, err := ssh.ParsePrivateKey([]byte(privateKey)); err != nil {
		return fmt.Errorf("%w: parse private key: %w", domain.ErrCredentialWrite, err)
	}
	if publicKey != "" {
		if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(publicKey)); err != nil {
			return fmt.Errorf("%w: parse public key: %w", domain.ErrCredentialWrite, err)
		}
	}

	dir := filepath.Join(v.root, name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCredentialWrite, err)
	}

	// Private keys must end with a newline or OpenSSH rejects them.
	if privateKey[len(privateKey)-1] != '\n' {
		privateKey += "\n"
	}
	if err := os.WriteFile(filepath.Join(dir, privateKeyFile), []byte(privateKey), 0o600); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCredentialWrite, err)
	}
	if publicKey != "" {
		if err := os.WriteFile(filepath.Join(dir, publicKeyFile), []byte(publicKey), 0o600); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrCredentialWrite, err)
		}
	}
	return nil
}

// Has reports whether a credential exists for the named repository.
func (v *Vault) Has(name string) bool {
	_, err := os.Stat(filepath.Join(v.root, name, privateKeyFile))
	return err == nil
}

// Materialize copies the private key to a fresh 0600 temp file for one git
// operation and returns its path plus a cleanup func that removes it.
// The cleanup func must be called as soon as the operation finishes.
func (v *Vault) Materialize(name string) (string, func(), error) {
	data, err := os.ReadFile(filepath.Join(v.root, name, privateKeyFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %s", domain.ErrCredentialNotFound, name)
		}
		return "", nil, fmt.Errorf("read credential %s: %w", name, err)
	}

	f, err := os.CreateTemp(v.root, ".op-*")
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", domain.ErrCredentialWrite, err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("%w: %w", domain.ErrCredentialWrite, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("%w: %w", domain.ErrCredentialWrite, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("%w: %w", domain.ErrCredentialWrite, err)
	}
	return path, cleanup, nil
}

// Revoke deletes the credential directory for the named repository.
// Revoking a name with no stored credential is not an error.
func (v *Vault) Revoke(name string) error {
	if err := repo.ValidateName(name); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(v.root, name)); err != nil {
		return fmt.Errorf("revoke credential %s: %w", name, err)
	}
	return nil
}
