package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/repolens/repolens/internal/adapter/memory"
	"github.com/repolens/repolens/internal/analyzer"
	"github.com/repolens/repolens/internal/detector"
	"github.com/repolens/repolens/internal/domain/repo"
	"github.com/repolens/repolens/internal/git"
	"github.com/repolens/repolens/internal/port/gitclient"
	"github.com/repolens/repolens/internal/vault"
)

func testKeyPair(t *testing.T) (string, string) {
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

func testVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func testDetector(t *testing.T) *detector.Detector {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return detector.New(analyzer.Default(), log, detector.Options{})
}

func registerTestRepo(t *testing.T, reg *RegistryService, name string) *repo.Config {
	t.Helper()
	priv, pub := testKeyPair(t)
	cfg, err := reg.Register(context.Background(), &repo.RegisterRequest{
		Name:          name,
		URL:           "git@example.com:org/" + name + ".git",
		SSHPrivateKey: priv,
		SSHPublicKey:  pub,
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return cfg
}

// mockBroadcaster records every broadcast event.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []mockEvent
}

type mockEvent struct {
	Type    string
	Payload any
}

func (m *mockBroadcaster) BroadcastEvent(_ context.Context, eventType string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, mockEvent{Type: eventType, Payload: payload})
}

func (m *mockBroadcaster) byType(eventType string) []mockEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mockEvent
	for _, e := range m.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// mockBus records published subjects.
type mockBus struct {
	mu       sync.Mutex
	subjects []string
}

func (m *mockBus) Publish(_ context.Context, subject string, _ []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockBus) published(subject string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

// mapCache is a TTL-less in-process cache for tests.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	return data, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// fakeGit simulates the git client. Clone writes a tree via populate; Update
// and Clone are overridable per test.
type fakeGit struct {
	mu       sync.Mutex
	clones   int
	updates  int
	head     string
	populate func(dir string) error

	cloneErr  error
	updateErr error
}

func (f *fakeGit) Clone(_ context.Context, _, _, dir string, _ gitclient.Options) error {
	f.mu.Lock()
	f.clones++
	err := f.cloneErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if mkErr := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); mkErr != nil {
		return mkErr
	}
	if f.populate != nil {
		return f.populate(dir)
	}
	return nil
}

func (f *fakeGit) Update(_ context.Context, _, _ string, _ gitclient.Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	return f.updateErr
}

func (f *fakeGit) HeadCommit(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.head == "" {
		return "0123456789abcdef0123456789abcdef01234567", nil
	}
	return f.head, nil
}

func (f *fakeGit) counts() (clones, updates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clones, f.updates
}

// syncFixture wires a full sync stack over the in-memory store.
type syncFixture struct {
	store    *memory.Store
	vault    *vault.Vault
	registry *RegistryService
	git      *fakeGit
	hub      *mockBroadcaster
	bus      *mockBus
	cache    *mapCache
	analysis *AnalysisService
	sync     *SyncService
	reposDir string
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	f := &syncFixture{
		store:    memory.NewStore(),
		vault:    testVault(t),
		git:      &fakeGit{},
		hub:      &mockBroadcaster{},
		bus:      &mockBus{},
		cache:    newMapCache(),
		reposDir: t.TempDir(),
	}
	f.registry = NewRegistryService(f.store, f.vault, f.reposDir)
	f.analysis = NewAnalysisService(f.store, testDetector(t), f.cache, f.hub, f.bus, nil, time.Hour)
	f.sync = NewSyncService(f.store, f.git, f.vault, git.NewLocks(), f.analysis, f.hub, f.bus, nil, f.reposDir, time.Minute)
	return f
}
