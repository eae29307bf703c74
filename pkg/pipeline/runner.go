package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"anatomy3d/pkg/anatomy"
	"anatomy3d/pkg/config"
	"anatomy3d/pkg/geometry"
	"anatomy3d/pkg/isosurface"
	"anatomy3d/pkg/meshproc"
	"anatomy3d/pkg/volume"
)

// OrganSpec describes one organ to reconstruct from a slice directory.
type OrganSpec struct {
	// Name keys the organ in the resulting body.
	Name string

	// SliceDir holds the cross-sectional slice images with sidecar
	// metadata.
	SliceDir string

	// Threshold is the iso-surface level; zero derives one from the
	// volume statistics.
	Threshold float64

	// Pitch is the voxel edge length for the occupancy grid; zero skips
	// voxelization.
	Pitch float64

	// TargetFaces is the decimation budget; zero skips decimation.
	TargetFaces int

	// ZRefine interpolates extra slices along the stacking axis before
	// extraction; values below 2 leave the volume as assembled.
	ZRefine int

	// Properties overrides the default property record when non-nil.
	Properties *anatomy.Properties
}

// Runner reconstructs organs end to end: assemble volume, extract
// surface, process mesh, decimate, voxelize. Each Runner owns its
// resulting HumanBody; nothing is shared between runs.
type Runner struct {
	cfg  *config.Config
	sess *Session
}

// NewRunner creates a runner staging into the given session.
func NewRunner(cfg *config.Config, sess *Session) *Runner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Runner{cfg: cfg, sess: sess}
}

// Build reconstructs every spec on a bounded worker pool and aggregates
// the results into a new HumanBody. A cancelled or timed-out organ build
// abandons its result entirely; no partially built mesh is ever attached.
func (r *Runner) Build(ctx context.Context, specs []OrganSpec) (*anatomy.HumanBody, error) {
	body := anatomy.NewHumanBody()
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	workers := r.cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			organCtx := ctx
			if timeout := time.Duration(r.cfg.Pipeline.StageTimeout); timeout > 0 {
				var cancel context.CancelFunc
				organCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			organ, err := r.BuildOrgan(organCtx, spec)
			if err != nil {
				return fmt.Errorf("building organ %s: %w", spec.Name, err)
			}
			mu.Lock()
			body.AddOrgan(organ)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return body, nil
}

// BuildOrgan runs the straight-line pipeline for one organ. The stages
// are synchronous; the context is checked between them so cancellation
// abandons the work instead of delivering a partial result.
func (r *Runner) BuildOrgan(ctx context.Context, spec OrganSpec) (*anatomy.Organ, error) {
	organ := anatomy.NewOrgan(spec.Name)
	if spec.Properties != nil {
		organ.Properties = *spec.Properties
	}
	if spec.Pitch > 0 {
		organ.VoxelResolution = spec.Pitch
	}

	vol, err := volume.Assemble(spec.SliceDir)
	if err != nil {
		return nil, err
	}
	refine := spec.ZRefine
	if refine == 0 {
		refine = r.cfg.Pipeline.ZRefine
	}
	if refine > 1 {
		if vol, err = volume.RefineZ(vol, refine); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	threshold := spec.Threshold
	if threshold == 0 {
		threshold = volume.SuggestThreshold(vol)
		log.WithField("organ", spec.Name).Infof("derived iso threshold %g", threshold)
	}
	mesh, err := isosurface.Extract(vol, threshold)
	if err != nil {
		return nil, err
	}
	if mesh == nil {
		log.WithField("organ", spec.Name).Warnf("no surface at threshold %g, organ has no mesh", threshold)
		return organ, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	processed, err := meshproc.Process(mesh)
	if err != nil {
		return nil, err
	}
	if spec.TargetFaces > 0 {
		if processed, err = meshproc.Decimate(processed, spec.TargetFaces); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	organ.SetMesh(processed)

	if r.sess != nil {
		meshPath := r.sess.StagePath(spec.Name + ".obj")
		if err := geometry.WriteOBJFile(meshPath, processed); err != nil {
			log.WithField("organ", spec.Name).Warnf("staging mesh export: %v", err)
		} else {
			organ.MeshFile = meshPath
		}
	}

	if spec.Pitch > 0 {
		if err := organ.Voxelize(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return organ, nil
}
