// Package meshproc consolidates, repairs and simplifies triangle meshes.
//
// Every operation takes a mesh (or loaded scene) and returns a new mesh or
// a failure; inputs are never mutated, so a failed operation leaves the
// caller's geometry exactly as it was.
package meshproc

import (
	"gonum.org/v1/gonum/spatial/r3"

	"anatomy3d/pkg/config"
	"anatomy3d/pkg/errs"
	"anatomy3d/pkg/geometry"
)

var log = config.NamedLogger("meshproc")

// minFaceArea is the area below which a face counts as degenerate.
const minFaceArea = 1e-12

// Consolidate concatenates all parts of a loaded scene into one mesh.
// A scene with zero parts is a failure, not an empty mesh.
func Consolidate(scene *geometry.Scene) (*geometry.Mesh, error) {
	if scene == nil || len(scene.Parts) == 0 {
		return nil, errs.Geometryf("scene contains no geometry")
	}
	if scene.Kind == geometry.SingleMesh {
		return scene.Parts[0].Clone(), nil
	}

	out := &geometry.Mesh{}
	keepNormals := true
	for _, p := range scene.Parts {
		if len(p.Normals) != len(p.Vertices) {
			keepNormals = false
		}
	}
	for _, p := range scene.Parts {
		offset := len(out.Vertices)
		out.Vertices = append(out.Vertices, p.Vertices...)
		if keepNormals {
			out.Normals = append(out.Normals, p.Normals...)
		}
		for _, f := range p.Faces {
			out.Faces = append(out.Faces, [3]int{f[0] + offset, f[1] + offset, f[2] + offset})
		}
	}
	log.Infof("consolidated %d scene parts into one mesh (%d vertices, %d faces)",
		len(scene.Parts), len(out.Vertices), len(out.Faces))
	return out, nil
}

// Process cleans a raw mesh: duplicate vertices are merged, degenerate
// (zero-area) faces and unreferenced vertices are dropped, and normals
// are recomputed. If cleanup yields zero vertices or faces the operation
// fails and none of the processed result is kept.
func Process(m *geometry.Mesh) (*geometry.Mesh, error) {
	if m.IsEmpty() {
		return nil, errs.Geometryf("no mesh to process")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	// Merge exactly coincident vertices.
	remap := make([]int, len(m.Vertices))
	index := make(map[r3.Vec]int, len(m.Vertices))
	var verts []r3.Vec
	for i, v := range m.Vertices {
		if j, ok := index[v]; ok {
			remap[i] = j
			continue
		}
		index[v] = len(verts)
		remap[i] = len(verts)
		verts = append(verts, v)
	}

	out := &geometry.Mesh{Vertices: verts}
	for _, f := range m.Faces {
		nf := [3]int{remap[f[0]], remap[f[1]], remap[f[2]]}
		if nf[0] == nf[1] || nf[1] == nf[2] || nf[0] == nf[2] {
			continue
		}
		out.Faces = append(out.Faces, nf)
	}
	dropDegenerateFaces(out)
	dropUnreferencedVertices(out)

	if out.IsEmpty() {
		return nil, errs.Geometryf("processing yielded an empty mesh (%d vertices, %d faces in)",
			len(m.Vertices), len(m.Faces))
	}
	out.RecomputeNormals()
	log.Debugf("processed mesh: %d->%d vertices, %d->%d faces",
		len(m.Vertices), len(out.Vertices), len(m.Faces), len(out.Faces))
	return out, nil
}

func dropDegenerateFaces(m *geometry.Mesh) {
	kept := m.Faces[:0]
	for i := range m.Faces {
		if m.FaceArea(i) > minFaceArea {
			kept = append(kept, m.Faces[i])
		}
	}
	m.Faces = kept
}

func dropUnreferencedVertices(m *geometry.Mesh) {
	used := make([]bool, len(m.Vertices))
	for _, f := range m.Faces {
		used[f[0]] = true
		used[f[1]] = true
		used[f[2]] = true
	}
	remap := make([]int, len(m.Vertices))
	var verts []r3.Vec
	var normals []r3.Vec
	hasNormals := len(m.Normals) == len(m.Vertices)
	for i, u := range used {
		if !u {
			remap[i] = -1
			continue
		}
		remap[i] = len(verts)
		verts = append(verts, m.Vertices[i])
		if hasNormals {
			normals = append(normals, m.Normals[i])
		}
	}
	for i, f := range m.Faces {
		m.Faces[i] = [3]int{remap[f[0]], remap[f[1]], remap[f[2]]}
	}
	m.Vertices = verts
	if hasNormals {
		m.Normals = normals
	} else {
		m.Normals = nil
	}
}
