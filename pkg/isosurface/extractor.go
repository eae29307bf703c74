// Package isosurface extracts triangulated surface meshes from 3D scalar
// volumes with the marching cubes algorithm.
package isosurface

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"anatomy3d/internal/models"
	"anatomy3d/pkg/config"
	"anatomy3d/pkg/errs"
	"anatomy3d/pkg/geometry"
)

var log = config.NamedLogger("isosurface")

// Extract computes the triangulated surface where the volume's scalar
// field crosses threshold. Output vertices are in physical units (scaled
// by the volume spacing) and per-vertex normals are derived from the
// local field gradient.
//
// A volume the surface never crosses (uniform, all-below or all-above)
// yields (nil, nil): a well-defined "no surface" result. A volume
// containing NaN or Inf is a validation error.
func Extract(vol *models.Volume, threshold float64) (*geometry.Mesh, error) {
	if vol == nil || len(vol.Data) == 0 {
		return nil, errs.Validationf("nil or empty volume")
	}
	for _, v := range vol.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errs.Validationf("volume contains non-finite values")
		}
	}
	if vol.Width < 2 || vol.Height < 2 || vol.Depth < 2 {
		// Too thin to hold a cell; nothing to extract.
		return nil, nil
	}

	e := &extractor{
		vol:       vol,
		threshold: threshold,
		vertIndex: make(map[edgeKey]int),
	}
	e.march()

	if len(e.mesh.Faces) == 0 {
		log.Debugf("no surface at threshold %g", threshold)
		return nil, nil
	}
	e.scaleAndOrient()
	log.Infof("extracted surface: %d vertices, %d faces at threshold %g",
		len(e.mesh.Vertices), len(e.mesh.Faces), threshold)
	return &e.mesh, nil
}

// edgeKey identifies a cube edge globally so shared vertices are emitted
// once. Corner a is always the lexicographically smaller endpoint.
type edgeKey struct {
	ax, ay, az int
	bx, by, bz int
}

type extractor struct {
	vol       *models.Volume
	threshold float64
	mesh      geometry.Mesh
	vertIndex map[edgeKey]int
}

func (e *extractor) march() {
	vol := e.vol
	var vals [8]float64
	for z := 0; z < vol.Depth-1; z++ {
		for y := 0; y < vol.Height-1; y++ {
			for x := 0; x < vol.Width-1; x++ {
				cubeIndex := 0
				for i, off := range cornerOffsets {
					vals[i] = vol.At(x+off[0], y+off[1], z+off[2])
					if vals[i] < e.threshold {
						cubeIndex |= 1 << i
					}
				}
				if edgeTable[cubeIndex] == 0 {
					continue
				}

				var edgeVerts [12]int
				for edge := 0; edge < 12; edge++ {
					if edgeTable[cubeIndex]&(1<<edge) == 0 {
						continue
					}
					c0, c1 := edgeCorners[edge][0], edgeCorners[edge][1]
					edgeVerts[edge] = e.vertexOnEdge(x, y, z, c0, c1, vals[c0], vals[c1])
				}

				tris := triTable[cubeIndex]
				for i := 0; tris[i] != -1; i += 3 {
					e.mesh.Faces = append(e.mesh.Faces, [3]int{
						edgeVerts[tris[i]],
						edgeVerts[tris[i+1]],
						edgeVerts[tris[i+2]],
					})
				}
			}
		}
	}
}

// vertexOnEdge interpolates the crossing point on the edge between cube
// corners c0 and c1, reusing the vertex when the edge was already visited
// from a neighboring cell.
func (e *extractor) vertexOnEdge(x, y, z, c0, c1 int, v0, v1 float64) int {
	a := [3]int{x + cornerOffsets[c0][0], y + cornerOffsets[c0][1], z + cornerOffsets[c0][2]}
	b := [3]int{x + cornerOffsets[c1][0], y + cornerOffsets[c1][1], z + cornerOffsets[c1][2]}
	if b[0] < a[0] || (b[0] == a[0] && (b[1] < a[1] || (b[1] == a[1] && b[2] < a[2]))) {
		a, b = b, a
		v0, v1 = v1, v0
	}
	key := edgeKey{a[0], a[1], a[2], b[0], b[1], b[2]}
	if idx, ok := e.vertIndex[key]; ok {
		return idx
	}

	t := 0.5
	if d := v1 - v0; d != 0 {
		t = (e.threshold - v0) / d
	}
	pos := r3.Vec{
		X: float64(a[0]) + t*float64(b[0]-a[0]),
		Y: float64(a[1]) + t*float64(b[1]-a[1]),
		Z: float64(a[2]) + t*float64(b[2]-a[2]),
	}
	normal := r3.Add(
		r3.Scale(1-t, e.gradient(a[0], a[1], a[2])),
		r3.Scale(t, e.gradient(b[0], b[1], b[2])),
	)

	idx := len(e.mesh.Vertices)
	e.mesh.Vertices = append(e.mesh.Vertices, pos)
	e.mesh.Normals = append(e.mesh.Normals, normal)
	e.vertIndex[key] = idx
	return idx
}

// gradient is the central-difference field gradient at a grid point,
// falling back to one-sided differences at the boundary.
func (e *extractor) gradient(x, y, z int) r3.Vec {
	vol := e.vol
	sample := func(x, y, z int) float64 {
		if x < 0 {
			x = 0
		} else if x >= vol.Width {
			x = vol.Width - 1
		}
		if y < 0 {
			y = 0
		} else if y >= vol.Height {
			y = vol.Height - 1
		}
		if z < 0 {
			z = 0
		} else if z >= vol.Depth {
			z = vol.Depth - 1
		}
		return vol.At(x, y, z)
	}
	return r3.Vec{
		X: (sample(x+1, y, z) - sample(x-1, y, z)) / 2,
		Y: (sample(x, y+1, z) - sample(x, y-1, z)) / 2,
		Z: (sample(x, y, z+1) - sample(x, y, z-1)) / 2,
	}
}

// scaleAndOrient converts vertex coordinates from voxel-index to physical
// units and normalizes the gradient normals. Normals point away from the
// high-intensity region (the negated gradient).
func (e *extractor) scaleAndOrient() {
	sx, sy, sz := e.vol.VoxelSize.X, e.vol.VoxelSize.Y, e.vol.VoxelSize.Z
	for i, v := range e.mesh.Vertices {
		e.mesh.Vertices[i] = r3.Vec{X: v.X * sx, Y: v.Y * sy, Z: v.Z * sz}
	}
	for i, n := range e.mesh.Normals {
		n = r3.Vec{X: -n.X / sx, Y: -n.Y / sy, Z: -n.Z / sz}
		if norm := r3.Norm(n); norm > 0 {
			n = r3.Scale(1/norm, n)
		}
		e.mesh.Normals[i] = n
	}
}
