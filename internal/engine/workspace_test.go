package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWorkspaceLifecycle(t *testing.T) {
	root := t.TempDir()
	ws, err := NewWorkspace(root)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(ws.Dir()), workspacePrefix) {
		t.Fatalf("unexpected workspace dir %q", ws.Dir())
	}

	if err := ws.Write("input-1.wav", []byte("riff")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ok, err := ws.Has("input-1.wav")
	if err != nil || !ok {
		t.Fatalf("expected file listed, ok=%v err=%v", ok, err)
	}
	if ok, _ := ws.Has("output-1.mp3"); ok {
		t.Fatal("expected missing output to be unlisted")
	}
	data, err := ws.Read("input-1.wav")
	if err != nil || string(data) != "riff" {
		t.Fatalf("Read = %q, %v", data, err)
	}
	names, err := ws.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 1 || names[0] != "input-1.wav" {
		t.Fatalf("expected lock file hidden from listing, got %v", names)
	}

	if err := ws.Remove("input-1.wav", "output-1.mp3"); err != nil {
		t.Fatalf("Remove should ignore missing files: %v", err)
	}
	if names, _ := ws.List(); len(names) != 0 {
		t.Fatalf("expected empty workspace, got %v", names)
	}

	if err := ws.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Fatalf("expected workspace dir removed, stat err=%v", err)
	}
}

func TestWorkspaceRejectsNonPlainNames(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	defer ws.Close()

	for _, name := range []string{"", ".", "..", "../x.png", "dir/x.png", `dir\x.png`, lockFileName} {
		if err := ws.Write(name, []byte("x")); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("Write(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestSweepStaleSkipsLockedWorkspaces(t *testing.T) {
	root := t.TempDir()
	live, err := NewWorkspace(root)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	defer live.Close()

	stale := filepath.Join(root, workspacePrefix+"dead")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	unrelated := filepath.Join(root, "keep-me")
	if err := os.MkdirAll(unrelated, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	removed, err := SweepStale(root)
	if err != nil {
		t.Fatalf("SweepStale: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 stale workspace removed, got %d", removed)
	}
	if _, err := os.Stat(live.Dir()); err != nil {
		t.Fatalf("expected live workspace kept: %v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatalf("expected unrelated directory kept: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale workspace removed, stat err=%v", err)
	}
}

func TestSweepStaleMissingRoot(t *testing.T) {
	removed, err := SweepStale(filepath.Join(t.TempDir(), "absent"))
	if err != nil || removed != 0 {
		t.Fatalf("expected no-op for missing root, got %d, %v", removed, err)
	}
}
