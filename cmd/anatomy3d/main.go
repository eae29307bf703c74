package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"anatomy3d/pkg/anatomy"
	"anatomy3d/pkg/config"
	"anatomy3d/pkg/geometry"
	"anatomy3d/pkg/pipeline"
)

func main() {
	// Parse command line arguments
	inputDir := flag.String("input", "", "Directory containing cross-sectional slice images with YAML sidecars")
	organName := flag.String("name", "organ", "Name of the reconstructed organ")
	modelFile := flag.String("model", "", "Existing model record file to load instead of reconstructing")
	outputFile := flag.String("output", "body.json", "Output model record filename")
	meshOut := flag.String("mesh-out", "", "Optional mesh export path (.obj or .stl)")
	threshold := flag.Float64("threshold", 0, "Iso-surface threshold (0 = derive from volume statistics)")
	pitch := flag.Float64("pitch", 1.0, "Voxel pitch for the occupancy grid (0 = skip voxelization)")
	targetFaces := flag.Int("target-faces", 0, "Decimation face budget (0 = no decimation)")
	zRefine := flag.Int("z-refine", 1, "Stacking-axis refinement factor (1 = use slices as acquired)")
	configPath := flag.String("config", "", "Optional YAML configuration file")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	config.SetVerbose(cfg.Output.Verbose)

	if *modelFile != "" {
		body := anatomy.NewHumanBody()
		if err := body.LoadFromFile(*modelFile); err != nil {
			log.Fatalf("Failed to load model: %v", err)
		}
		printBody(body)
		return
	}

	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	fmt.Println("================================")
	fmt.Println("ANATOMY3D: ANATOMICAL MODEL RECONSTRUCTION FROM CROSS-SECTIONAL SLICES")
	fmt.Println("================================")

	sess, err := pipeline.NewSession("")
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	defer sess.Close()

	runner := pipeline.NewRunner(cfg, sess)
	spec := pipeline.OrganSpec{
		Name:        *organName,
		SliceDir:    *inputDir,
		Threshold:   *threshold,
		Pitch:       *pitch,
		TargetFaces: *targetFaces,
		ZRefine:     *zRefine,
	}
	if spec.Threshold == 0 {
		spec.Threshold = cfg.Pipeline.IsoThreshold
	}

	body, err := runner.Build(context.Background(), []pipeline.OrganSpec{spec})
	if err != nil {
		log.Fatalf("Reconstruction failed: %v", err)
	}

	organ := body.Organs[*organName]
	fmt.Printf("\nReconstruction completed for %q\n", organ.Name)
	if organ.Mesh != nil {
		fmt.Printf("Mesh: %d vertices, %d faces\n", organ.Mesh.VertexCount(), organ.Mesh.FaceCount())
	} else {
		fmt.Println("Mesh: no surface extracted")
	}
	if organ.VoxelGrid != nil {
		nx, ny, nz := organ.VoxelGrid.Shape()
		fmt.Printf("Voxel grid: %dx%dx%d at pitch %g (%d occupied)\n",
			nx, ny, nz, organ.VoxelGrid.Pitch, organ.VoxelGrid.Count())
	}

	if *meshOut != "" && organ.Mesh != nil {
		if err := exportMesh(*meshOut, organ.Mesh); err != nil {
			log.Fatalf("Failed to export mesh: %v", err)
		}
		organ.MeshFile = *meshOut
		fmt.Printf("Mesh exported to: %s\n", *meshOut)
	}

	if err := body.SaveToFile(*outputFile); err != nil {
		log.Fatalf("Failed to save model: %v", err)
	}
	fmt.Printf("Model record saved to: %s\n", *outputFile)
}

func exportMesh(path string, m *geometry.Mesh) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		return geometry.SaveMeshToSTL(path, m)
	default:
		return geometry.WriteOBJFile(path, m)
	}
}

func printBody(body *anatomy.HumanBody) {
	fmt.Printf("Model holds %d root organs:\n", len(body.Organs))
	names := make([]string, 0, len(body.Organs))
	for name := range body.Organs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printOrgan(body.Organs[name], 1)
	}
}

func printOrgan(o *anatomy.Organ, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Printf("%s- %s (density %.1f, conductivity %.3g, mesh: %s)\n",
		indent, o.Name, o.Properties.Density, o.Properties.Conductivity, meshRef(o))
	names := make([]string, 0, len(o.SubOrgans))
	for name := range o.SubOrgans {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printOrgan(o.SubOrgans[name], depth+1)
	}
}

func meshRef(o *anatomy.Organ) string {
	if o.MeshFile == "" {
		return "none"
	}
	return o.MeshFile
}
