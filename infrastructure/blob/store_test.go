package blob

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"video-trimmer/domain/media"
)

func TestStore_CreateGetRevoke(t *testing.T) {
	s := NewStore()
	a := media.NewArtifact("video/webm", [][]byte{[]byte("data")})

	url := s.Create(a)
	if !strings.HasPrefix(url, URLPrefix) {
		t.Errorf("url = %q, want prefix %q", url, URLPrefix)
	}
	if other := s.Create(a); other == url {
		t.Error("Create() returned the same URL twice")
	}

	got, ok := s.Get(url)
	if !ok || got != a {
		t.Fatalf("Get(%q) = %v, %v", url, got, ok)
	}

	s.Revoke(url)
	s.Revoke(url)
	s.Revoke("blob:unknown")
	if _, ok := s.Get(url); ok {
		t.Error("Get() after Revoke should fail")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_Save(t *testing.T) {
	s := NewStore()
	url := s.Create(media.NewArtifact("video/webm", [][]byte{[]byte("ab"), []byte("cd")}))
	dir := filepath.Join(t.TempDir(), "out")

	path, err := s.Save(url, dir, "trimmed_clip.mp4.webm")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if path != filepath.Join(dir, "trimmed_clip.mp4.webm") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "abcd" {
		t.Errorf("saved %q, want abcd", data)
	}
}

func TestStore_SaveErrors(t *testing.T) {
	s := NewStore()
	dir := t.TempDir()

	if _, err := s.Save("blob:gone", dir, "x.webm"); !errors.Is(err, media.ErrClosed) {
		t.Errorf("Save() of revoked url error = %v, want ErrClosed", err)
	}

	url := s.Create(media.NewArtifact("video/webm", nil))
	if _, err := s.Save(url, dir, "../escape.webm"); err == nil {
		t.Error("Save() with a path in the filename should fail")
	}
	if _, err := s.Save(url, dir, ""); err == nil {
		t.Error("Save() with empty filename should fail")
	}
}
