package analysis

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathResolver maps an opaque clip identifier to a concrete media path.
// The host application supplies a production resolver backed by its
// project model.
type PathResolver interface {
	Resolve(clipID string) (string, error)
}

// MediaDirResolver synthesizes deterministic paths under a media directory.
// It stands in when no real resolver is wired.
type MediaDirResolver struct {
	dir string
}

// NewMediaDirResolver creates a resolver rooted at dir.
func NewMediaDirResolver(dir string) *MediaDirResolver {
	return &MediaDirResolver{dir: dir}
}

// Resolve returns the placeholder path for a clip id.
func (r *MediaDirResolver) Resolve(clipID string) (string, error) {
	id := strings.TrimSpace(clipID)
	if id == "" {
		return "", fmt.Errorf("clip id is required")
	}
	return filepath.Join(r.dir, id+".mp4"), nil
}
