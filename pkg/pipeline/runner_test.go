package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"anatomy3d/pkg/anatomy"
	"anatomy3d/pkg/config"
)

// writeSphereSlices generates cross-sections of a sphere: each slice is a
// filled circle whose radius follows the sphere at that stacking
// coordinate.
func writeSphereSlices(t *testing.T, dir string, size, count int, radius float64) {
	t.Helper()
	cx, cy := float64(size-1)/2, float64(size-1)/2
	cz := float64(count-1) / 2
	for s := 0; s < count; s++ {
		img := image.NewGray16(image.Rect(0, 0, size, size))
		dz := float64(s) - cz
		if r2 := radius*radius - dz*dz; r2 > 0 {
			r := math.Sqrt(r2)
			for y := 0; y < size; y++ {
				for x := 0; x < size; x++ {
					dx, dy := float64(x)-cx, float64(y)-cy
					if dx*dx+dy*dy <= r*r {
						img.SetGray16(x, y, color.Gray16{Y: 300})
					}
				}
			}
		}
		path := filepath.Join(dir, fmt.Sprintf("slice_%02d.png", s))
		f, err := os.Create(path)
		if err != nil {
			t.Fatalf("Failed to create slice: %v", err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatalf("Failed to encode slice: %v", err)
		}
		f.Close()

		meta := fmt.Sprintf("position: [0.0, 0.0, %d]\npixelSpacing: [1.0, 1.0]\n", s)
		if err := os.WriteFile(path+".yaml", []byte(meta), 0644); err != nil {
			t.Fatalf("Failed to write sidecar: %v", err)
		}
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Pipeline.Workers = 2
	return cfg
}

func TestBuildOrganEndToEnd(t *testing.T) {
	sliceDir := t.TempDir()
	writeSphereSlices(t, sliceDir, 32, 9, 3.5)

	sess, err := NewSession(t.TempDir())
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	defer sess.Close()

	r := NewRunner(testConfig(), sess)
	props := anatomy.DefaultProperties()
	props.Conductivity = 0.7
	organ, err := r.BuildOrgan(context.Background(), OrganSpec{
		Name:       "Heart",
		SliceDir:   sliceDir,
		Threshold:  150,
		Pitch:      1.0,
		Properties: &props,
	})
	if err != nil {
		t.Fatalf("BuildOrgan failed: %v", err)
	}

	if organ.Mesh.IsEmpty() {
		t.Fatal("Expected a reconstructed mesh")
	}
	if organ.VoxelGrid == nil {
		t.Fatal("Expected an occupancy grid at pitch 1.0")
	}
	if organ.VoxelGrid.Count() == 0 {
		t.Error("Expected occupied voxels")
	}
	if organ.Properties.Conductivity != 0.7 {
		t.Errorf("Expected property override carried, got %g", organ.Properties.Conductivity)
	}
	if !strings.HasSuffix(organ.MeshFile, "Heart.obj") {
		t.Errorf("Expected a staged mesh export, got %q", organ.MeshFile)
	}
	if _, err := os.Stat(organ.MeshFile); err != nil {
		t.Errorf("Staged mesh export missing: %v", err)
	}
}

func TestBuildOrganDerivesThreshold(t *testing.T) {
	sliceDir := t.TempDir()
	writeSphereSlices(t, sliceDir, 32, 9, 3.5)

	r := NewRunner(testConfig(), nil)
	organ, err := r.BuildOrgan(context.Background(), OrganSpec{
		Name:     "Heart",
		SliceDir: sliceDir,
		// Threshold 0: derive from the volume statistics.
	})
	if err != nil {
		t.Fatalf("BuildOrgan failed: %v", err)
	}
	if organ.Mesh.IsEmpty() {
		t.Error("Expected a mesh at the derived threshold")
	}
	if organ.VoxelGrid != nil {
		t.Error("Expected no grid when pitch is zero")
	}
}

func TestBuildOrganNoSurface(t *testing.T) {
	sliceDir := t.TempDir()
	writeSphereSlices(t, sliceDir, 16, 5, 1.8)

	r := NewRunner(testConfig(), nil)
	organ, err := r.BuildOrgan(context.Background(), OrganSpec{
		Name:      "Ghost",
		SliceDir:  sliceDir,
		Threshold: 1e6, // above every sample
	})
	if err != nil {
		t.Fatalf("BuildOrgan failed: %v", err)
	}
	if organ == nil || !organ.Mesh.IsEmpty() {
		t.Error("Expected an organ without a mesh when the surface is never crossed")
	}
}

func TestBuildOrganDecimates(t *testing.T) {
	sliceDir := t.TempDir()
	writeSphereSlices(t, sliceDir, 32, 9, 3.5)

	r := NewRunner(testConfig(), nil)
	full, err := r.BuildOrgan(context.Background(), OrganSpec{
		Name: "Full", SliceDir: sliceDir, Threshold: 150,
	})
	if err != nil {
		t.Fatalf("BuildOrgan failed: %v", err)
	}
	target := full.Mesh.FaceCount() / 4
	small, err := r.BuildOrgan(context.Background(), OrganSpec{
		Name: "Small", SliceDir: sliceDir, Threshold: 150, TargetFaces: target,
	})
	if err != nil {
		t.Fatalf("BuildOrgan failed: %v", err)
	}
	if small.Mesh.FaceCount() >= full.Mesh.FaceCount() {
		t.Errorf("Expected decimation to reduce faces: %d vs %d",
			small.Mesh.FaceCount(), full.Mesh.FaceCount())
	}
}

func TestBuildOrganRefinesStackingAxis(t *testing.T) {
	sliceDir := t.TempDir()
	writeSphereSlices(t, sliceDir, 24, 7, 2.5)

	r := NewRunner(testConfig(), nil)
	coarse, err := r.BuildOrgan(context.Background(), OrganSpec{
		Name: "Coarse", SliceDir: sliceDir, Threshold: 150,
	})
	if err != nil {
		t.Fatalf("BuildOrgan failed: %v", err)
	}
	fine, err := r.BuildOrgan(context.Background(), OrganSpec{
		Name: "Fine", SliceDir: sliceDir, Threshold: 150, ZRefine: 3,
	})
	if err != nil {
		t.Fatalf("BuildOrgan failed: %v", err)
	}
	if fine.Mesh.FaceCount() <= coarse.Mesh.FaceCount() {
		t.Errorf("Expected refinement to yield a denser surface: %d vs %d faces",
			fine.Mesh.FaceCount(), coarse.Mesh.FaceCount())
	}
}

func TestBuildAggregatesOrgans(t *testing.T) {
	sliceDir := t.TempDir()
	writeSphereSlices(t, sliceDir, 24, 7, 2.5)

	r := NewRunner(testConfig(), nil)
	body, err := r.Build(context.Background(), []OrganSpec{
		{Name: "Heart", SliceDir: sliceDir, Threshold: 150},
		{Name: "Liver", SliceDir: sliceDir, Threshold: 150},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(body.Organs) != 2 {
		t.Fatalf("Expected 2 organs, got %d", len(body.Organs))
	}
	for _, name := range []string{"Heart", "Liver"} {
		if body.Organs[name] == nil || body.Organs[name].Mesh.IsEmpty() {
			t.Errorf("Organ %s missing or without mesh", name)
		}
	}
}

func TestBuildFailsOnBadSliceDir(t *testing.T) {
	r := NewRunner(testConfig(), nil)
	_, err := r.Build(context.Background(), []OrganSpec{
		{Name: "Heart", SliceDir: filepath.Join(t.TempDir(), "missing")},
	})
	if err == nil {
		t.Fatal("Expected a failure for a missing slice directory")
	}
	if !strings.Contains(err.Error(), "Heart") {
		t.Errorf("Expected the failing organ named in the error, got %v", err)
	}
}

func TestBuildHonorsCancellation(t *testing.T) {
	sliceDir := t.TempDir()
	writeSphereSlices(t, sliceDir, 24, 7, 2.5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(testConfig(), nil)
	_, err := r.Build(ctx, []OrganSpec{
		{Name: "Heart", SliceDir: sliceDir, Threshold: 150},
	})
	if err == nil {
		t.Fatal("Expected a cancelled build to fail")
	}
}
