// Package volume assembles 3D scalar volumes from directories of 2D
// cross-sectional slice images with spatial metadata.
//
// Each slice is an image file (.png, .jpg or .jpeg) accompanied by a YAML
// sidecar file named "<image>.yaml" carrying its physical position and
// in-plane pixel spacing:
//
//	position: [0.0, 0.0, 2.5]
//	pixelSpacing: [0.5, 0.5]
//	thickness: 2.5
//
// Files without a decodable image or a parseable stacking-axis coordinate
// are skipped with a diagnostic; one bad slice does not abort assembly of
// the others.
package volume

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"anatomy3d/internal/models"
	"anatomy3d/pkg/config"
	"anatomy3d/pkg/errs"
)

var log = config.NamedLogger("volume")

// sliceMeta is the YAML sidecar schema for one slice.
type sliceMeta struct {
	Position     []float64 `yaml:"position"`
	PixelSpacing []float64 `yaml:"pixelSpacing"`
	Thickness    float64   `yaml:"thickness"`
}

// Assemble reads every candidate slice in dir, sorts the valid ones by
// ascending stacking-axis coordinate and stacks them into a Volume.
//
// It fails when the directory does not exist, no candidate files are
// found, no file yields a valid slice, or the slices disagree on their
// in-plane shape. Ties in the stacking coordinate keep the original
// directory order.
func Assemble(dir string) (*models.Volume, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errs.IOf("slice directory not found: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.IOf("reading slice directory %s: %v", dir, err)
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			candidates = append(candidates, e.Name())
		}
	}
	if len(candidates) == 0 {
		return nil, errs.IOf("no slice images found in %s", dir)
	}
	log.Debugf("found %d candidate slices in %s", len(candidates), dir)

	slices := make([]models.Slice, 0, len(candidates))
	for _, name := range candidates {
		s, err := readSlice(dir, name)
		if err != nil {
			log.WithField("file", name).Warnf("skipping slice: %v", err)
			continue
		}
		slices = append(slices, s)
	}
	if len(slices) == 0 {
		return nil, errs.Formatf("no valid slices with positional metadata in %s", dir)
	}

	// Ascending stacking-axis coordinate; stable so equal coordinates
	// keep their original file order.
	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].Position[2] < slices[j].Position[2]
	})

	return Stack(slices)
}

// Stack verifies that all slices share an in-plane shape and stacks them
// into a Volume in their given order.
func Stack(slices []models.Slice) (*models.Volume, error) {
	if len(slices) == 0 {
		return nil, errs.Formatf("no slices to stack")
	}
	w, h := slices[0].Width, slices[0].Height
	for _, s := range slices[1:] {
		if s.Width != w || s.Height != h {
			return nil, errs.Validationf("inconsistent slice shapes: expected %dx%d, got %dx%d for %s",
				w, h, s.Width, s.Height, s.Filename)
		}
	}

	vol := models.NewVolume(w, h, len(slices))
	for z, s := range slices {
		copy(vol.Data[z*w*h:(z+1)*w*h], s.Data)
	}

	vol.VoxelSize.X = slices[0].PixelSpacing[1]
	vol.VoxelSize.Y = slices[0].PixelSpacing[0]
	vol.VoxelSize.Z = sliceGap(slices)
	if vol.VoxelSize.X <= 0 {
		vol.VoxelSize.X = 1.0
	}
	if vol.VoxelSize.Y <= 0 {
		vol.VoxelSize.Y = 1.0
	}

	log.Infof("assembled volume %dx%dx%d, voxel size %.3gx%.3gx%.3g mm",
		vol.Width, vol.Height, vol.Depth,
		vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z)
	return vol, nil
}

// SuggestThreshold derives an iso-surface threshold from the volume
// intensity distribution: the mean plus half a standard deviation. Useful
// when the caller has no modality-specific level.
func SuggestThreshold(v *models.Volume) float64 {
	mean, std := stat.MeanStdDev(v.Data, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean + std/2
}

// sliceGap estimates the physical spacing along the stacking axis from
// the mean gap between consecutive slice coordinates. Falls back to the
// first slice's thickness, then to 1.0.
func sliceGap(slices []models.Slice) float64 {
	if len(slices) > 1 {
		gap := (slices[len(slices)-1].Position[2] - slices[0].Position[2]) / float64(len(slices)-1)
		if gap > 0 {
			return gap
		}
	}
	if t := slices[0].Thickness; t > 0 {
		return t
	}
	return 1.0
}

// readSlice loads one image file and its metadata sidecar.
func readSlice(dir, name string) (models.Slice, error) {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		return models.Slice{}, errs.IOf("opening %s: %v", name, err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return models.Slice{}, errs.Formatf("decoding %s: %v", name, err)
	}

	meta, err := readSidecar(path + ".yaml")
	if err != nil {
		return models.Slice{}, err
	}

	bounds := img.Bounds()
	s := models.Slice{
		Data:      make([]float64, bounds.Dx()*bounds.Dy()),
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Filename:  name,
		Thickness: meta.Thickness,
	}
	copy(s.Position[:], meta.Position)
	if len(meta.PixelSpacing) >= 2 {
		s.PixelSpacing[0] = meta.PixelSpacing[0]
		s.PixelSpacing[1] = meta.PixelSpacing[1]
	}

	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// 16-bit grayscale sample, kept as raw intensity.
			s.Data[y*s.Width+x] = float64(r)
		}
	}
	return s, nil
}

func readSidecar(path string) (sliceMeta, error) {
	var meta sliceMeta
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, errs.Formatf("missing metadata sidecar %s", filepath.Base(path))
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return meta, errs.Formatf("parsing %s: %v", filepath.Base(path), err)
	}
	if len(meta.Position) < 3 {
		return meta, errs.Formatf("%s: position must carry 3 coordinates", filepath.Base(path))
	}
	if math.IsNaN(meta.Position[2]) || math.IsInf(meta.Position[2], 0) {
		return meta, errs.Formatf("%s: stacking coordinate is not a finite number", filepath.Base(path))
	}
	return meta, nil
}
