// Package models holds the shared data types carried between pipeline stages.
package models

// Slice represents a single cross-sectional slice with spatial metadata.
// A slice is immutable once read.
type Slice struct {
	// Data is the 2D scalar pixel array in row-major order
	Data []float64

	// Width and Height are the in-plane dimensions in pixels
	Width  int
	Height int

	// Filename is the original filename of the slice
	Filename string

	// Position is the physical position of the slice; index 2 is the
	// coordinate along the stacking axis
	Position [3]float64

	// PixelSpacing is the in-plane physical spacing (row, column) in mm
	PixelSpacing [2]float64

	// Thickness is the physical thickness of the slice in mm
	Thickness float64
}

// Volume represents a 3D scalar volume assembled from ordered slices
type Volume struct {
	// Data is the 3D volume data as a 1D array in row-major order,
	// indexed as Data[z*Width*Height + y*Width + x]
	Data []float64

	// Width is the width of the volume in voxels
	Width int

	// Height is the height of the volume in voxels
	Height int

	// Depth is the depth of the volume in voxels (slice count)
	Depth int

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize struct {
		X, Y, Z float64
	}
}

// At returns the scalar value at voxel (x, y, z).
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[z*v.Width*v.Height+y*v.Width+x]
}

// Set writes the scalar value at voxel (x, y, z).
func (v *Volume) Set(x, y, z int, val float64) {
	v.Data[z*v.Width*v.Height+y*v.Width+x] = val
}

// NewVolume allocates a zeroed volume with the given dimensions and
// unit voxel spacing.
func NewVolume(width, height, depth int) *Volume {
	v := &Volume{
		Data:   make([]float64, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
	v.VoxelSize.X = 1.0
	v.VoxelSize.Y = 1.0
	v.VoxelSize.Z = 1.0
	return v
}

// VoxelGrid is a regular 3D boolean occupancy grid derived from a mesh.
// True cells approximate the mesh's solid interior plus surface.
type VoxelGrid struct {
	// Data is the occupancy array in row-major order, indexed as
	// Data[z*NX*NY + y*NX + x]
	Data []bool

	// NX, NY, NZ are the grid dimensions along each axis
	NX, NY, NZ int

	// Pitch is the edge length of one voxel, in mesh units
	Pitch float64

	// Origin is the physical position of the (0,0,0) cell corner
	Origin [3]float64
}

// At returns the occupancy of cell (x, y, z).
func (g *VoxelGrid) At(x, y, z int) bool {
	return g.Data[z*g.NX*g.NY+y*g.NX+x]
}

// Set writes the occupancy of cell (x, y, z).
func (g *VoxelGrid) Set(x, y, z int, occupied bool) {
	g.Data[z*g.NX*g.NY+y*g.NX+x] = occupied
}

// Count returns the number of occupied cells.
func (g *VoxelGrid) Count() int {
	n := 0
	for _, b := range g.Data {
		if b {
			n++
		}
	}
	return n
}

// Shape returns the grid dimensions as (nx, ny, nz).
func (g *VoxelGrid) Shape() (int, int, int) {
	return g.NX, g.NY, g.NZ
}
