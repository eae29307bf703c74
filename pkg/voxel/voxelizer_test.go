package voxel

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"anatomy3d/pkg/errs"
	"anatomy3d/pkg/geometry"
)

func unitCube() *geometry.Mesh {
	return &geometry.Mesh{
		Vertices: []r3.Vec{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
		},
		Faces: [][3]int{
			{0, 2, 1}, {0, 3, 2},
			{4, 5, 6}, {4, 6, 7},
			{0, 1, 5}, {0, 5, 4},
			{2, 3, 7}, {2, 7, 6},
			{0, 4, 7}, {0, 7, 3},
			{1, 2, 6}, {1, 6, 5},
		},
	}
}

func TestVoxelizeUnitCube(t *testing.T) {
	grid, err := Voxelize(unitCube(), 0.5)
	if err != nil {
		t.Fatalf("Voxelize failed: %v", err)
	}
	nx, ny, nz := grid.Shape()
	if nx != 2 || ny != 2 || nz != 2 {
		t.Errorf("Expected a 2x2x2 grid for a unit cube at pitch 0.5, got %dx%dx%d", nx, ny, nz)
	}
	// A solid cube occupies every cell of its own bounding grid.
	if grid.Count() != 8 {
		t.Errorf("Expected all 8 cells occupied, got %d", grid.Count())
	}
	if grid.Pitch != 0.5 {
		t.Errorf("Expected pitch 0.5 recorded, got %g", grid.Pitch)
	}
	if grid.Origin != [3]float64{0, 0, 0} {
		t.Errorf("Expected origin at the bounding-box minimum, got %v", grid.Origin)
	}
}

func TestVoxelizeResolutionMonotonicInPitch(t *testing.T) {
	cube := unitCube()
	prev := math.MaxInt
	for _, pitch := range []float64{0.1, 0.25, 0.5, 1.0, 2.0} {
		grid, err := Voxelize(cube, pitch)
		if err != nil {
			t.Fatalf("Voxelize at pitch %g failed: %v", pitch, err)
		}
		nx, _, _ := grid.Shape()
		if nx > prev {
			t.Errorf("Pitch %g yielded dimension %d, larger than the finer pitch's %d", pitch, nx, prev)
		}
		prev = nx
	}
}

func TestVoxelizeFillsInterior(t *testing.T) {
	// A 10-cell cube: the center cells are far from every face, so only
	// interior fill can reach them.
	cube := unitCube()
	for i := range cube.Vertices {
		cube.Vertices[i] = r3.Scale(10, cube.Vertices[i])
	}
	grid, err := Voxelize(cube, 1.0)
	if err != nil {
		t.Fatalf("Voxelize failed: %v", err)
	}
	nx, ny, nz := grid.Shape()
	if nx != 10 || ny != 10 || nz != 10 {
		t.Fatalf("Expected a 10x10x10 grid, got %dx%dx%d", nx, ny, nz)
	}
	if !grid.At(5, 5, 5) {
		t.Error("Expected the cube center to be filled")
	}
	if grid.Count() != 1000 {
		t.Errorf("Expected a solid block of 1000 cells, got %d", grid.Count())
	}
}

func TestVoxelizeRepairsOpenMesh(t *testing.T) {
	open := unitCube()
	open.Faces = open.Faces[:len(open.Faces)-1]

	grid, err := Voxelize(open, 0.5)
	if err != nil {
		t.Fatalf("Voxelize failed: %v", err)
	}
	// The single-triangle hole closes, so the interior still fills.
	if grid.Count() != 8 {
		t.Errorf("Expected the repaired cube to fill all 8 cells, got %d", grid.Count())
	}
	// Repair works on a copy.
	if open.FaceCount() != 11 {
		t.Errorf("Voxelize mutated the input mesh: %d faces", open.FaceCount())
	}
}

func TestVoxelizeInvalidInputs(t *testing.T) {
	if _, err := Voxelize(&geometry.Mesh{}, 0.5); !errors.Is(err, errs.ErrGeometry) {
		t.Errorf("Expected geometry failure on empty mesh, got %v", err)
	}
	cube := unitCube()
	for _, pitch := range []float64{0, -1, math.NaN()} {
		if _, err := Voxelize(cube, pitch); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("Pitch %g: expected validation failure, got %v", pitch, err)
		}
	}
}
