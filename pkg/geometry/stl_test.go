package geometry

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"anatomy3d/pkg/errs"
)

func TestSaveMeshToSTL(t *testing.T) {
	m := tetra()
	path := filepath.Join(t.TempDir(), "out.stl")

	if err := SaveMeshToSTL(path, m); err != nil {
		t.Fatalf("SaveMeshToSTL failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read STL file: %v", err)
	}

	// 80-byte header + uint32 count + 50 bytes per facet.
	wantSize := 84 + 50*m.FaceCount()
	if len(data) != wantSize {
		t.Errorf("Expected file size %d, got %d", wantSize, len(data))
	}
	count := binary.LittleEndian.Uint32(data[80:84])
	if int(count) != m.FaceCount() {
		t.Errorf("Expected triangle count %d, got %d", m.FaceCount(), count)
	}
}

func TestTrianglesMatchFaces(t *testing.T) {
	m := tetra()
	tris := m.Triangles()
	if len(tris) != m.FaceCount() {
		t.Fatalf("Expected %d triangles, got %d", m.FaceCount(), len(tris))
	}
	f := m.Faces[0]
	if tris[0].Vertex1 != vec32(m.Vertices[f[0]]) ||
		tris[0].Vertex2 != vec32(m.Vertices[f[1]]) ||
		tris[0].Vertex3 != vec32(m.Vertices[f[2]]) {
		t.Error("First triangle does not match the first face")
	}
	// Facet normals are unit length.
	for i, tr := range tris {
		n := tr.Normal
		l2 := n[0]*n[0] + n[1]*n[1] + n[2]*n[2]
		if l2 < 0.99 || l2 > 1.01 {
			t.Errorf("Triangle %d normal is not unit length: %v", i, n)
		}
	}
}

func TestSaveMeshToSTLRejectsEmptyMesh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.stl")
	err := SaveMeshToSTL(path, &Mesh{})
	if !errors.Is(err, errs.ErrGeometry) {
		t.Errorf("Expected geometry failure, got %v", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		t.Error("Expected no file written for an empty mesh")
	}
}
