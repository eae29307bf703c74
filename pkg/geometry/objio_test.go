package geometry

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"anatomy3d/pkg/errs"
)

func tetra() *Mesh {
	return &Mesh{
		Vertices: []r3.Vec{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1},
		},
		Faces: [][3]int{{0, 2, 1}, {0, 1, 3}, {1, 2, 3}, {0, 3, 2}},
	}
}

func TestOBJRoundTrip(t *testing.T) {
	m := tetra()
	m.RecomputeNormals()

	var buf bytes.Buffer
	if err := WriteOBJ(&buf, m); err != nil {
		t.Fatalf("WriteOBJ failed: %v", err)
	}

	scene, err := ReadOBJ(&buf)
	if err != nil {
		t.Fatalf("ReadOBJ failed: %v", err)
	}
	if scene.Kind != SingleMesh {
		t.Errorf("Expected single-mesh scene, got kind %v", scene.Kind)
	}
	if len(scene.Parts) != 1 {
		t.Fatalf("Expected 1 part, got %d", len(scene.Parts))
	}
	got := scene.Parts[0]
	if got.VertexCount() != 4 || got.FaceCount() != 4 {
		t.Errorf("Expected 4 vertices, 4 faces, got %d, %d", got.VertexCount(), got.FaceCount())
	}
	if len(got.Normals) != got.VertexCount() {
		t.Errorf("Expected normals to survive the round trip, got %d", len(got.Normals))
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Round-tripped mesh failed validation: %v", err)
	}
}

func TestReadOBJMultiPart(t *testing.T) {
	src := `
o first
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
o second
v 5 0 0
v 6 0 0
v 5 1 0
f 4 5 6
`
	scene, err := ReadOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadOBJ failed: %v", err)
	}
	if scene.Kind != MultiPartScene {
		t.Errorf("Expected multi-part scene, got kind %v", scene.Kind)
	}
	if len(scene.Parts) != 2 {
		t.Fatalf("Expected 2 parts, got %d", len(scene.Parts))
	}
	for i, p := range scene.Parts {
		if p.VertexCount() != 3 || p.FaceCount() != 1 {
			t.Errorf("Part %d: expected 3 vertices, 1 face, got %d, %d",
				i, p.VertexCount(), p.FaceCount())
		}
		if err := p.Validate(); err != nil {
			t.Errorf("Part %d failed validation: %v", i, err)
		}
	}
	if scene.Parts[1].Vertices[0].X != 5 {
		t.Errorf("Second part picked up the wrong vertices: %v", scene.Parts[1].Vertices[0])
	}
}

func TestReadOBJEmptyObjectDropped(t *testing.T) {
	src := `
o empty
o real
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`
	scene, err := ReadOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadOBJ failed: %v", err)
	}
	if scene.Kind != SingleMesh || len(scene.Parts) != 1 {
		t.Errorf("Expected the empty object dropped, got kind %v with %d parts",
			scene.Kind, len(scene.Parts))
	}
}

func TestReadOBJFaceIndexForms(t *testing.T) {
	// Quad with slash-form and negative indices, fan-triangulated.
	src := `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1/1 2/2 3/3 -1
`
	scene, err := ReadOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadOBJ failed: %v", err)
	}
	m := scene.Parts[0]
	if m.FaceCount() != 2 {
		t.Errorf("Expected the quad fan-triangulated into 2 faces, got %d", m.FaceCount())
	}
	if m.VertexCount() != 4 {
		t.Errorf("Expected 4 vertices, got %d", m.VertexCount())
	}
}

func TestReadOBJErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"bad vertex", "v 0 zero 0\n"},
		{"face out of range", "v 0 0 0\nf 1 2 3\n"},
		{"short face", "v 0 0 0\nv 1 0 0\nf 1 2\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadOBJ(strings.NewReader(tc.src))
			if !errors.Is(err, errs.ErrFormat) {
				t.Errorf("Expected format failure, got %v", err)
			}
		})
	}
}

func TestReadOBJFileMissing(t *testing.T) {
	_, err := ReadOBJFile(filepath.Join(t.TempDir(), "nope.obj"))
	if !errors.Is(err, errs.ErrIO) {
		t.Errorf("Expected IO failure, got %v", err)
	}
}

func TestWriteOBJFileRejectsEmptyMesh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.obj")
	err := WriteOBJFile(path, &Mesh{})
	if !errors.Is(err, errs.ErrGeometry) {
		t.Errorf("Expected geometry failure, got %v", err)
	}
}
