package vault_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/repolens/repolens/internal/domain"
	"github.com/repolens/repolens/internal/vault"
)

// genKeyPair returns an OpenSSH-format ed25519 private key and its
// authorized_keys public line.
func genKeyPair(t *testing.T) (string, string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "test key")
	if err != nil {
		t.Fatal(err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	return string(pem.EncodeToMemory(block)), string(ssh.MarshalAuthorizedKey(sshPub))
}

func TestStoreAndMaterialize(t *testing.T) {
	v, err := vault.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	priv, pub := genKeyPair(t)

	if err := v.Store("backend-api", priv, pub); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if !v.Has("backend-api") {
		t.Fatal("expected Has after Store")
	}

	path, cleanup, err := v.Materialize("backend-api")
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600 key file, got %v", info.Mode().Perm())
	}

	cleanup()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("expected materialized key removed after cleanup")
	}
}

func TestStoreRejectsGarbageKey(t *testing.T) {
	v, err := vault.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	err = v.Store("backend-api", "not a key", "")
	if !errors.Is(err, domain.ErrCredentialWrite) {
		t.Fatalf("expected ErrCredentialWrite, got %v", err)
	}
	if v.Has("backend-api") {
		t.Error("rejected key must not be persisted")
	}
}

func TestStoreRejectsUnsafeName(t *testing.T) {
	v, err := vault.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	priv, _ := genKeyPair(t)
	if err := v.Store("../escape", priv, ""); err == nil {
		t.Fatal("expected error for path-traversal name")
	}
}

func TestMaterializeMissing(t *testing.T) {
	v, err := vault.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = v.Materialize("ghost")
	if !errors.Is(err, domain.ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	root := t.TempDir()
	v, err := vault.New(root)
	if err != nil {
		t.Fatal(err)
	}
	priv, _ := genKeyPair(t)
	if err := v.Store("backend-api", priv, ""); err != nil {
		t.Fatal(err)
	}

	if err := v.Revoke("backend-api"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if v.Has("backend-api") {
		t.Error("expected credential gone after Revoke")
	}
	if _, err := os.Stat(filepath.Join(root, "backend-api")); !errors.Is(err, os.ErrNotExist) {
		t.Error("expected credential directory removed")
	}

	// Revoking again is a no-op.
	if err := v.Revoke("backend-api"); err != nil {
		t.Errorf("second Revoke should not error, got %v", err)
	}
}
