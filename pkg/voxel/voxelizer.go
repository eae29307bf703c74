// Package voxel rasterizes triangle meshes into regular 3D boolean
// occupancy grids.
package voxel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"anatomy3d/internal/models"
	"anatomy3d/pkg/config"
	"anatomy3d/pkg/errs"
	"anatomy3d/pkg/geometry"
	"anatomy3d/pkg/meshproc"
)

var log = config.NamedLogger("voxel")

// Voxelize rasterizes the mesh surface into a grid with the given voxel
// edge length and fills the interior so the grid represents a solid
// region, not a hollow shell.
//
// A non-watertight mesh gets one hole-repair pass before the fill; if the
// repair does not achieve watertightness the fill still runs and the
// result is a best-effort approximation. Geometric fidelity is knowingly
// traded for robustness here: an open mesh cannot separate inside from
// outside exactly, and the flood fill classifies everything the open
// boundary leaks into as exterior.
func Voxelize(m *geometry.Mesh, pitch float64) (*models.VoxelGrid, error) {
	if m.IsEmpty() {
		return nil, errs.Geometryf("no mesh to voxelize")
	}
	if pitch <= 0 || math.IsNaN(pitch) {
		return nil, errs.Validationf("pitch must be positive, got %g", pitch)
	}

	if !meshproc.IsWatertight(m) {
		log.Warnf("mesh is not watertight, attempting hole repair before interior fill")
		repaired := meshproc.FillHoles(m)
		if meshproc.IsWatertight(repaired) {
			m = repaired
		} else {
			log.Warnf("repair did not achieve watertightness, interior fill is best-effort")
			m = repaired
		}
	}

	min, max := m.Bounds()
	grid := &models.VoxelGrid{
		NX:     gridDim(max.X - min.X, pitch),
		NY:     gridDim(max.Y - min.Y, pitch),
		NZ:     gridDim(max.Z - min.Z, pitch),
		Pitch:  pitch,
		Origin: [3]float64{min.X, min.Y, min.Z},
	}
	grid.Data = make([]bool, grid.NX*grid.NY*grid.NZ)

	rasterizeSurface(m, grid)
	fillInterior(grid)

	log.Infof("voxelized mesh into %dx%dx%d grid at pitch %g (%d occupied)",
		grid.NX, grid.NY, grid.NZ, pitch, grid.Count())
	return grid, nil
}

// gridDim derives one grid dimension from a bounding-box extent. The
// ceiling keeps the shape monotone in pitch: a larger pitch never yields
// a larger dimension.
func gridDim(extent, pitch float64) int {
	n := int(math.Ceil(extent/pitch - 1e-9))
	if n < 1 {
		n = 1
	}
	return n
}

// rasterizeSurface marks every cell touched by a triangle. Triangles are
// sampled barycentrically at half-pitch resolution, which cannot miss a
// cell for triangles smaller than the pitch and bounds the error at half
// a cell otherwise.
func rasterizeSurface(m *geometry.Mesh, g *models.VoxelGrid) {
	mark := func(p r3.Vec) {
		x := cellIndex(p.X, g.Origin[0], g.Pitch, g.NX)
		y := cellIndex(p.Y, g.Origin[1], g.Pitch, g.NY)
		z := cellIndex(p.Z, g.Origin[2], g.Pitch, g.NZ)
		g.Set(x, y, z, true)
	}

	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		longest := math.Max(r3.Norm(r3.Sub(b, a)),
			math.Max(r3.Norm(r3.Sub(c, a)), r3.Norm(r3.Sub(c, b))))
		n := int(math.Ceil(longest/(g.Pitch/2))) + 1
		for i := 0; i <= n; i++ {
			for j := 0; j <= n-i; j++ {
				u := float64(i) / float64(n)
				v := float64(j) / float64(n)
				p := r3.Add(a, r3.Add(r3.Scale(u, r3.Sub(b, a)), r3.Scale(v, r3.Sub(c, a))))
				mark(p)
			}
		}
	}
}

func cellIndex(coord, origin, pitch float64, n int) int {
	i := int(math.Floor((coord - origin) / pitch))
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i
}

// fillInterior flood-fills the exterior from the grid boundary through
// unoccupied cells (6-connectivity) and then marks every unreached,
// unoccupied cell as interior.
func fillInterior(g *models.VoxelGrid) {
	nx, ny, nz := g.NX, g.NY, g.NZ
	outside := make([]bool, len(g.Data))
	idx := func(x, y, z int) int { return z*nx*ny + y*nx + x }

	var queue [][3]int
	push := func(x, y, z int) {
		i := idx(x, y, z)
		if !outside[i] && !g.Data[i] {
			outside[i] = true
			queue = append(queue, [3]int{x, y, z})
		}
	}

	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				if x == 0 || y == 0 || z == 0 || x == nx-1 || y == ny-1 || z == nz-1 {
					push(x, y, z)
				}
			}
		}
	}
	for len(queue) > 0 {
		p := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y, z := p[0], p[1], p[2]
		if x > 0 {
			push(x-1, y, z)
		}
		if x < nx-1 {
			push(x+1, y, z)
		}
		if y > 0 {
			push(x, y-1, z)
		}
		if y < ny-1 {
			push(x, y+1, z)
		}
		if z > 0 {
			push(x, y, z-1)
		}
		if z < nz-1 {
			push(x, y, z+1)
		}
	}

	for i := range g.Data {
		if !g.Data[i] && !outside[i] {
			g.Data[i] = true
		}
	}
}
