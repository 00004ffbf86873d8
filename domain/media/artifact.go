package media

import "bytes"

// Artifact is a finalized encoded file held in memory
type Artifact struct {
	MimeType string
	Data     []byte
}

// NewArtifact concatenates chunks in order
func NewArtifact(mimeType string, chunks [][]byte) *Artifact {
	return &Artifact{
		MimeType: mimeType,
		Data:     bytes.Join(chunks, nil),
	}
}

// Size returns the artifact length in bytes
func (a *Artifact) Size() int {
	return len(a.Data)
}

// ArtifactStore hands out retrievable URLs for artifacts held in the session
type ArtifactStore interface {
	Create(a *Artifact) string
	Get(url string) (*Artifact, bool)
	Revoke(url string)
}
