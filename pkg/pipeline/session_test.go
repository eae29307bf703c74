package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionLifecycle(t *testing.T) {
	base := t.TempDir()
	sess, err := NewSession(base)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if sess.ID == "" {
		t.Error("Expected a non-empty session id")
	}
	if filepath.Dir(sess.Dir) != base {
		t.Errorf("Expected workspace under %s, got %s", base, sess.Dir)
	}
	if _, err := os.Stat(sess.Dir); err != nil {
		t.Fatalf("Workspace directory missing: %v", err)
	}

	staged := sess.StagePath("heart.obj")
	if err := os.WriteFile(staged, []byte("o mesh\n"), 0644); err != nil {
		t.Fatalf("Failed to stage file: %v", err)
	}

	dir := sess.Dir
	if err := sess.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Expected the workspace removed on Close")
	}
	// Closing twice is harmless.
	if err := sess.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
}

func TestSessionsDoNotCollide(t *testing.T) {
	base := t.TempDir()
	a, err := NewSession(base)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	defer a.Close()
	b, err := NewSession(base)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	defer b.Close()

	if a.Dir == b.Dir {
		t.Error("Two sessions share a workspace directory")
	}
}
