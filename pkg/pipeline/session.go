// Package pipeline runs the slice-to-voxel reconstruction end to end on a
// bounded worker pool, staging intermediate artifacts in a disposable
// per-session workspace.
package pipeline

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"anatomy3d/pkg/config"
	"anatomy3d/pkg/errs"
)

var log = config.NamedLogger("pipeline")

// Session owns a disposable working directory for one pipeline run. All
// staged files (intermediate mesh exports, slice copies) live under it,
// and Close releases them on every exit path.
type Session struct {
	ID  string
	Dir string
}

// NewSession creates a uuid-named workspace under baseDir (or the system
// temp directory when baseDir is empty).
func NewSession(baseDir string) (*Session, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	id := uuid.NewString()
	dir := filepath.Join(baseDir, "anatomy3d-"+id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.IOf("creating session workspace %s: %v", dir, err)
	}
	log.Debugf("session %s workspace at %s", id, dir)
	return &Session{ID: id, Dir: dir}, nil
}

// StagePath returns a path inside the session workspace.
func (s *Session) StagePath(name string) string {
	return filepath.Join(s.Dir, name)
}

// Close removes the session workspace and everything staged in it.
func (s *Session) Close() error {
	if s == nil || s.Dir == "" {
		return nil
	}
	err := os.RemoveAll(s.Dir)
	s.Dir = ""
	return err
}
