package junebench

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveInWorkspaceAllowsInsidePath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.py"), []byte("x"), 0o640); err != nil {
		t.Fatal(err)
	}
	got, err := resolveInWorkspace(dir, "a.py")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != filepath.Join(dir, "a.py") {
		t.Fatalf("got %s, want %s", got, filepath.Join(dir, "a.py"))
	}
}

func TestResolveInWorkspaceAllowsNewFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := resolveInWorkspace(dir, "newdir/new.py"); err != nil {
		t.Fatalf("unexpected error for not-yet-existing path: %v", err)
	}
}

func TestResolveInWorkspaceRejectsDotDotEscape(t *testing.T) {
	dir := t.TempDir()
	if _, err := resolveInWorkspace(dir, "../escape.py"); err == nil {
		t.Fatal("expected path escape error")
	}
}

func TestResolveInWorkspaceRejectsAbsoluteEscape(t *testing.T) {
	dir := t.TempDir()
	if _, err := resolveInWorkspace(dir, "/etc/passwd"); err == nil {
		t.Fatal("expected path escape error for absolute path outside workspace")
	}
}

func TestResolveInWorkspaceRejectsSymlinkEscape(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "secret.py"), []byte("s"), 0o640); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unsupported in this environment: %v", err)
	}
	if _, err := resolveInWorkspace(dir, "link/secret.py"); err == nil {
		t.Fatal("expected path escape error through symlink")
	}
}
