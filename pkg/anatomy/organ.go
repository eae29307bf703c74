// Package anatomy models the hierarchical anatomical tree: named organs
// with meshes, derived voxel grids and physical material properties,
// aggregated into a HumanBody.
package anatomy

import (
	"anatomy3d/internal/models"
	"anatomy3d/pkg/config"
	"anatomy3d/pkg/errs"
	"anatomy3d/pkg/geometry"
	"anatomy3d/pkg/meshproc"
	"anatomy3d/pkg/voxel"
)

var log = config.NamedLogger("anatomy")

// Properties is the fixed physical property record of an organ. It is a
// closed set; spatially varying properties are a future extension point,
// not part of this record.
type Properties struct {
	MagneticSusceptibility float64 `json:"magnetic_susceptibility"`
	Permeability           float64 `json:"permeability"`
	Permittivity           float64 `json:"permittivity"`
	Conductivity           float64 `json:"conductivity"`
	Elasticity             float64 `json:"elasticity"`
	Density                float64 `json:"density"`
}

// DefaultProperties returns the property record defaults: vacuum-like
// electromagnetic values and the density of water in kg/m^3.
func DefaultProperties() Properties {
	return Properties{
		MagneticSusceptibility: 0.0,
		Permeability:           1.0,
		Permittivity:           1.0,
		Conductivity:           0.0,
		Elasticity:             0.0,
		Density:                1000.0,
	}
}

// Organ is one node of the anatomical tree. It exclusively owns its mesh,
// voxel grid and sub-organs; sub-organ graphs are strict trees.
type Organ struct {
	Name     string
	MeshFile string

	// Mesh is either fully absent or a complete processed mesh; no
	// operation leaves it partially constructed.
	Mesh *geometry.Mesh

	// VoxelGrid is derived from Mesh on demand and cleared whenever the
	// mesh is replaced.
	VoxelGrid       *models.VoxelGrid
	VoxelResolution float64

	Properties Properties
	SubOrgans  map[string]*Organ
}

// NewOrgan creates an organ with default properties and no geometry.
func NewOrgan(name string) *Organ {
	return &Organ{
		Name:            name,
		VoxelResolution: 1.0,
		Properties:      DefaultProperties(),
		SubOrgans:       make(map[string]*Organ),
	}
}

// LoadMesh loads, consolidates and processes a mesh file into the organ.
// On any failure the organ's mesh is cleared, never left partial; the
// file reference is recorded either way.
func (o *Organ) LoadMesh(path string) error {
	o.MeshFile = path
	o.SetMesh(nil)

	scene, err := geometry.ReadOBJFile(path)
	if err != nil {
		log.WithField("organ", o.Name).Errorf("loading mesh %s: %v", path, err)
		return err
	}
	mesh, err := meshproc.Consolidate(scene)
	if err != nil {
		log.WithField("organ", o.Name).Errorf("consolidating %s: %v", path, err)
		return err
	}
	processed, err := meshproc.Process(mesh)
	if err != nil {
		log.WithField("organ", o.Name).Errorf("processing %s: %v", path, err)
		return err
	}

	o.SetMesh(processed)
	log.WithField("organ", o.Name).Infof("loaded mesh %s: %d vertices, %d faces, watertight=%v",
		path, processed.VertexCount(), processed.FaceCount(), meshproc.IsWatertight(processed))
	return nil
}

// SetMesh replaces the organ's mesh wholesale and invalidates the derived
// voxel grid.
func (o *Organ) SetMesh(m *geometry.Mesh) {
	o.Mesh = m
	o.VoxelGrid = nil
}

// Simplify decimates the organ's mesh toward targetFaces. Validation or
// simplification failure leaves the current mesh untouched; success
// replaces it and invalidates the voxel grid.
func (o *Organ) Simplify(targetFaces int) error {
	if o.Mesh.IsEmpty() {
		return errs.Geometryf("organ %s has no mesh to simplify", o.Name)
	}
	simplified, err := meshproc.Decimate(o.Mesh, targetFaces)
	if err != nil {
		log.WithField("organ", o.Name).Warnf("simplification kept original mesh: %v", err)
		return err
	}
	if simplified != o.Mesh {
		o.SetMesh(simplified)
	}
	return nil
}

// Voxelize derives the organ's occupancy grid from its current mesh at
// the organ's voxel resolution. Without a mesh this is a no-op with a
// diagnostic, not an error.
func (o *Organ) Voxelize() error {
	if o.Mesh.IsEmpty() {
		log.WithField("organ", o.Name).Warnf("cannot voxelize: no mesh loaded")
		o.VoxelGrid = nil
		return nil
	}
	grid, err := voxel.Voxelize(o.Mesh, o.VoxelResolution)
	if err != nil {
		o.VoxelGrid = nil
		return err
	}
	o.VoxelGrid = grid
	return nil
}

// AddSubOrgan attaches a child organ; a name collision replaces the
// previous child (last write wins).
func (o *Organ) AddSubOrgan(sub *Organ) {
	if o.SubOrgans == nil {
		o.SubOrgans = make(map[string]*Organ)
	}
	o.SubOrgans[sub.Name] = sub
}

// RemoveSubOrgan detaches a child organ by name.
func (o *Organ) RemoveSubOrgan(name string) {
	delete(o.SubOrgans, name)
}

// InterpolateProperties returns the organ-wide property record. The point
// argument is accepted for forward compatibility with spatially varying
// properties and is currently ignored.
func (o *Organ) InterpolateProperties(point []float64) Properties {
	_ = point
	return o.Properties
}
