// Package geometry provides the triangle mesh type shared by the pipeline
// stages, together with its plain-text (OBJ) and binary (STL) interchange
// formats.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"anatomy3d/pkg/errs"
)

// Mesh is an indexed triangle mesh. Vertices and Normals are parallel when
// Normals is non-empty. A mesh with zero faces is treated as absent
// geometry, never as a partial result.
type Mesh struct {
	Vertices []r3.Vec
	Faces    [][3]int
	Normals  []r3.Vec
}

// IsEmpty reports whether the mesh carries no usable geometry.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Vertices) == 0 || len(m.Faces) == 0
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	if m == nil {
		return 0
	}
	return len(m.Vertices)
}

// FaceCount returns the number of triangles.
func (m *Mesh) FaceCount() int {
	if m == nil {
		return 0
	}
	return len(m.Faces)
}

// Validate checks that every face index is within vertex-list bounds.
func (m *Mesh) Validate() error {
	if m.IsEmpty() {
		return errs.Geometryf("mesh has no geometry")
	}
	n := len(m.Vertices)
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return errs.Geometryf("face %d references vertex %d outside [0,%d)", i, idx, n)
			}
		}
	}
	return nil
}

// Bounds returns the axis-aligned bounding box of the mesh vertices.
func (m *Mesh) Bounds() (min, max r3.Vec) {
	if m == nil || len(m.Vertices) == 0 {
		return r3.Vec{}, r3.Vec{}
	}
	min = m.Vertices[0]
	max = m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		min.X = math.Min(min.X, v.X)
		min.Y = math.Min(min.Y, v.Y)
		min.Z = math.Min(min.Z, v.Z)
		max.X = math.Max(max.X, v.X)
		max.Y = math.Max(max.Y, v.Y)
		max.Z = math.Max(max.Z, v.Z)
	}
	return min, max
}

// FaceNormal returns the unnormalized normal of face i (the cross product
// of two edges). Its norm is twice the face area.
func (m *Mesh) FaceNormal(i int) r3.Vec {
	f := m.Faces[i]
	a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
	return r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
}

// FaceArea returns the area of face i.
func (m *Mesh) FaceArea(i int) float64 {
	return 0.5 * r3.Norm(m.FaceNormal(i))
}

// RecomputeNormals replaces the per-vertex normals with area-weighted
// averages of the adjacent face normals.
func (m *Mesh) RecomputeNormals() {
	if m.IsEmpty() {
		return
	}
	normals := make([]r3.Vec, len(m.Vertices))
	for i := range m.Faces {
		fn := m.FaceNormal(i)
		for _, idx := range m.Faces[i] {
			normals[idx] = r3.Add(normals[idx], fn)
		}
	}
	for i, n := range normals {
		if norm := r3.Norm(n); norm > 0 {
			normals[i] = r3.Scale(1/norm, n)
		}
	}
	m.Normals = normals
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	if m == nil {
		return nil
	}
	out := &Mesh{
		Vertices: append([]r3.Vec(nil), m.Vertices...),
		Faces:    append([][3]int(nil), m.Faces...),
	}
	if m.Normals != nil {
		out.Normals = append([]r3.Vec(nil), m.Normals...)
	}
	return out
}

// SceneKind distinguishes single meshes from multi-part scenes. The
// classification is resolved once at load time.
type SceneKind int

const (
	// SingleMesh marks a scene holding exactly one mesh.
	SingleMesh SceneKind = iota
	// MultiPartScene marks a scene holding two or more parts.
	MultiPartScene
)

// Scene is the tagged result of loading a mesh file: either one mesh or a
// multi-part collection that still needs consolidation.
type Scene struct {
	Kind  SceneKind
	Parts []*Mesh
}

// NewScene classifies the given parts. Empty parts are dropped; a scene
// with no usable part at all is still constructed so the consumer can
// report the failure in context.
func NewScene(parts []*Mesh) *Scene {
	kept := parts[:0:0]
	for _, p := range parts {
		if !p.IsEmpty() {
			kept = append(kept, p)
		}
	}
	kind := SingleMesh
	if len(kept) > 1 {
		kind = MultiPartScene
	}
	return &Scene{Kind: kind, Parts: kept}
}
