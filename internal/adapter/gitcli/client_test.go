package gitcli_test

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/repolens/repolens/internal/adapter/gitcli"
	"github.com/repolens/repolens/internal/git"
	"github.com/repolens/repolens/internal/port/gitclient"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available in test environment")
	}
}

// initTestRepo creates a local repo with one commit on branch main.
func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGitCmd(t, dir, "init", "-b", "main")
	runGitCmd(t, dir, "config", "user.email", "test@test.com")
	runGitCmd(t, dir, "config", "user.name", "Test")
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	runGitCmd(t, dir, "add", ".")
	runGitCmd(t, dir, "commit", "-m", "initial commit")
	return dir
}

func addCommit(t *testing.T, dir, file, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	runGitCmd(t, dir, "add", ".")
	runGitCmd(t, dir, "commit", "-m", "update "+file)
}

func runGitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

func TestCloneAndHeadCommit(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	srcDir := initTestRepo(t)

	c := gitcli.NewClient(git.NewPool(2))
	cloneDir := filepath.Join(t.TempDir(), "cloned")

	if err := c.Clone(ctx, srcDir, "main", cloneDir, gitclient.Options{}); err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	head, err := c.HeadCommit(ctx, cloneDir)
	if err != nil {
		t.Fatalf("HeadCommit failed: %v", err)
	}
	if len(head) != 40 {
		t.Errorf("expected 40-char commit hash, got %q", head)
	}
	if strings.ContainsAny(head, " \n") {
		t.Errorf("expected trimmed hash, got %q", head)
	}
}

func TestUpdateFastForwards(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	srcDir := initTestRepo(t)

	c := gitcli.NewClient(git.NewPool(2))
	cloneDir := filepath.Join(t.TempDir(), "cloned")
	if err := c.Clone(ctx, srcDir, "main", cloneDir, gitclient.Options{}); err != nil {
		t.Fatal(err)
	}

	addCommit(t, srcDir, "more.txt", "more")
	srcHead, err := c.HeadCommit(ctx, srcDir)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Update(ctx, cloneDir, "main", gitclient.Options{}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	head, err := c.HeadCommit(ctx, cloneDir)
	if err != nil {
		t.Fatal(err)
	}
	if head != srcHead {
		t.Errorf("expected clone at %s after update, got %s", srcHead, head)
	}
}

func TestUpdateDivergedReturnsNonFastForward(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	srcDir := initTestRepo(t)

	c := gitcli.NewClient(git.NewPool(2))
	cloneDir := filepath.Join(t.TempDir(), "cloned")
	if err := c.Clone(ctx, srcDir, "main", cloneDir, gitclient.Options{}); err != nil {
		t.Fatal(err)
	}

	// Diverge: independent commits on both sides of the same branch.
	addCommit(t, srcDir, "remote.txt", "remote change")
	runGitCmd(t, cloneDir, "config", "user.email", "test@test.com")
	runGitCmd(t, cloneDir, "config", "user.name", "Test")
	addCommit(t, cloneDir, "local.txt", "local change")

	localHead, err := c.HeadCommit(ctx, cloneDir)
	if err != nil {
		t.Fatal(err)
	}

	err = c.Update(ctx, cloneDir, "main", gitclient.Options{})
	if !errors.Is(err, gitclient.ErrNonFastForward) {
		t.Fatalf("expected ErrNonFastForward, got %v", err)
	}

	// The working tree must be left at its pre-update state.
	head, err := c.HeadCommit(ctx, cloneDir)
	if err != nil {
		t.Fatal(err)
	}
	if head != localHead {
		t.Errorf("expected tree untouched at %s, got %s", localHead, head)
	}
}

func TestCloneMissingSourceFails(t *testing.T) {
	requireGit(t)
	c := gitcli.NewClient(git.NewPool(1))
	err := c.Clone(context.Background(), filepath.Join(t.TempDir(), "nope"), "main",
		filepath.Join(t.TempDir(), "dst"), gitclient.Options{})
	if err == nil {
		t.Fatal("expected error cloning nonexistent source")
	}
}

func TestCloneDeadlineLeavesNoPartialClone(t *testing.T) {
	requireGit(t)
	srcDir := initTestRepo(t)

	// Pad the source with incompressible data so a file:// clone cannot
	// finish before the deadline. git killed mid-transfer leaves its
	// half-written target behind, unlike an ordinary clone failure.
	for i := range 16 {
		buf := make([]byte, 1<<20)
		if _, err := rand.Read(buf); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(srcDir, fmt.Sprintf("blob%d.bin", i)), buf, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	runGitCmd(t, srcDir, "add", ".")
	runGitCmd(t, srcDir, "commit", "-m", "add blobs")

	c := gitcli.NewClient(git.NewPool(1))
	dst := filepath.Join(t.TempDir(), "dst")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := c.Clone(ctx, "file://"+srcDir, "main", dst, gitclient.Options{}); err == nil {
		t.Fatal("expected clone to miss the deadline")
	}

	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("expected target removed after failed clone, stat err = %v", err)
	}
}

func TestCloneFailureKeepsPreexistingTarget(t *testing.T) {
	requireGit(t)
	srcDir := initTestRepo(t)

	dst := t.TempDir()
	sentinel := filepath.Join(dst, "keep.txt")
	if err := os.WriteFile(sentinel, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := gitcli.NewClient(git.NewPool(1))
	err := c.Clone(context.Background(), srcDir, "main", dst, gitclient.Options{})
	if err == nil {
		t.Fatal("expected clone into non-empty directory to fail")
	}
	if _, err := os.Stat(sentinel); err != nil {
		t.Errorf("pre-existing directory must survive a failed clone: %v", err)
	}
}
