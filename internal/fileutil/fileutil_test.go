package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := SaveArtifact(dir, "photo.png", []byte("first"), false)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "photo.png") {
		t.Fatalf("unexpected path %s", path)
	}

	second, err := SaveArtifact(dir, "photo.png", []byte("second"), false)
	if err != nil {
		t.Fatal(err)
	}
	if second != filepath.Join(dir, "photo (1).png") {
		t.Fatalf("expected numbered name, got %s", second)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "first" {
		t.Fatalf("expected original file untouched, got %q", got)
	}
}

func TestSaveArtifactOverwrite(t *testing.T) {
	dir := t.TempDir()
	if _, err := SaveArtifact(dir, "song.mp3", []byte("old"), false); err != nil {
		t.Fatal(err)
	}
	path, err := SaveArtifact(dir, "song.mp3", []byte("new"), true)
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Fatalf("content mismatch: got %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files cleaned up, found %d entries", len(entries))
	}
}

func TestSaveArtifactStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	path, err := SaveArtifact(dir, "../escape.gif", []byte("gif"), false)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("expected artifact inside %s, got %s", dir, path)
	}
}

func TestSaveArtifactRequiresName(t *testing.T) {
	if _, err := SaveArtifact(t.TempDir(), "  ", []byte("x"), false); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestUniquePathWithoutExtension(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	path, err := UniquePath(dir, "README")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "README (1)" {
		t.Fatalf("unexpected unique name %s", path)
	}
}

func TestWriteFileVerifiedMode(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "clip.mp4")
	if err := WriteFileVerified(dst, []byte("data"), 0o600); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %o", info.Mode().Perm())
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "clip.mp4", want: "clip.mp4"},
		{in: "a:b*c.png", want: "a-b-c.png"},
		{in: ` "what?".wav `, want: "what.wav"},
		{in: `x<y>|z.gif`, want: "xyz.gif"},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
