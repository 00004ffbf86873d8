package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"video-trimmer/domain/media"
)

// URLPrefix starts every URL handed out by a Store
const URLPrefix = "blob:video-trimmer/"

// Store implements media.ArtifactStore in memory. URLs stay valid until
// revoked.
type Store struct {
	mu    sync.Mutex
	items map[string]*media.Artifact
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{items: make(map[string]*media.Artifact)}
}

// Create implements media.ArtifactStore
func (s *Store) Create(a *media.Artifact) string {
	url := URLPrefix + uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[url] = a
	return url
}

// Get implements media.ArtifactStore
func (s *Store) Get(url string) (*media.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[url]
	return a, ok
}

// Revoke implements media.ArtifactStore. Unknown URLs are ignored.
func (s *Store) Revoke(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, url)
}

// Len returns how many artifacts are held
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Save writes the artifact behind url into dir as filename
func (s *Store) Save(url, dir, filename string) (string, error) {
	a, ok := s.Get(url)
	if !ok {
		return "", fmt.Errorf("%w: %s", media.ErrClosed, url)
	}
	if filename == "" || strings.ContainsRune(filename, os.PathSeparator) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, a.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}

// Ensure Store implements media.ArtifactStore
var _ media.ArtifactStore = (*Store)(nil)
