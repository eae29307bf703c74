package geometry

import (
	"bufio"
	"encoding/binary"
	"os"

	"gonum.org/v1/gonum/spatial/r3"

	"anatomy3d/pkg/errs"
)

// Triangle is one facet of a binary STL file: a face normal and three
// vertex positions.
type Triangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

// Triangles expands the indexed mesh into STL facets with per-face normals.
func (m *Mesh) Triangles() []Triangle {
	tris := make([]Triangle, 0, len(m.Faces))
	for i, f := range m.Faces {
		n := m.FaceNormal(i)
		if norm := r3.Norm(n); norm > 0 {
			n = r3.Scale(1/norm, n)
		}
		tris = append(tris, Triangle{
			Normal:  vec32(n),
			Vertex1: vec32(m.Vertices[f[0]]),
			Vertex2: vec32(m.Vertices[f[1]]),
			Vertex3: vec32(m.Vertices[f[2]]),
		})
	}
	return tris
}

// SaveToSTL writes triangles to a binary STL file:
// an 80-byte header, a uint32 triangle count, then 50 bytes per triangle
// (normal, three vertices, attribute byte count).
func SaveToSTL(filename string, triangles []Triangle) error {
	file, err := os.Create(filename)
	if err != nil {
		return errs.IOf("creating STL file %s: %v", filename, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)

	var header [80]byte
	copy(header[:], "anatomy3d binary STL")
	if _, err := w.Write(header[:]); err != nil {
		return errs.IOf("writing STL header: %v", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(triangles))); err != nil {
		return errs.IOf("writing STL triangle count: %v", err)
	}
	for _, t := range triangles {
		if err := binary.Write(w, binary.LittleEndian, t); err != nil {
			return errs.IOf("writing STL triangle: %v", err)
		}
		// Attribute byte count, unused.
		if err := binary.Write(w, binary.LittleEndian, uint16(0)); err != nil {
			return errs.IOf("writing STL attribute: %v", err)
		}
	}
	return w.Flush()
}

// SaveMeshToSTL writes the mesh to a binary STL file.
func SaveMeshToSTL(filename string, m *Mesh) error {
	if m.IsEmpty() {
		return errs.Geometryf("refusing to write empty mesh to %s", filename)
	}
	return SaveToSTL(filename, m.Triangles())
}

func vec32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}
