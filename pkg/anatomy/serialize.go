package anatomy

import (
	"encoding/json"
	"os"
)

// The persisted model record is nested JSON carrying only metadata:
//
//	{"name": ..., "mesh_file": ..., "voxel_resolution": ...,
//	 "properties": {6 named floats}, "sub_organs": {name: record}}
//
// Geometry and voxel data are never embedded; mesh_file is a reference
// only and is not re-loaded during decoding.

type organRecord struct {
	Name            string                  `json:"name"`
	MeshFile        string                  `json:"mesh_file,omitempty"`
	VoxelResolution float64                 `json:"voxel_resolution"`
	Properties      Properties              `json:"properties"`
	SubOrgans       map[string]*organRecord `json:"sub_organs"`
}

// rawRecord defers sub-organ decoding so one malformed child record can
// be skipped without aborting its siblings.
type rawRecord struct {
	Name            string                     `json:"name"`
	MeshFile        string                     `json:"mesh_file"`
	VoxelResolution *float64                   `json:"voxel_resolution"`
	Properties      *Properties                `json:"properties"`
	SubOrgans       map[string]json.RawMessage `json:"sub_organs"`
}

// ToRecord encodes the organ tree into its serializable record.
func (o *Organ) toRecord() *organRecord {
	rec := &organRecord{
		Name:            o.Name,
		MeshFile:        o.MeshFile,
		VoxelResolution: o.VoxelResolution,
		Properties:      o.InterpolateProperties(nil),
		SubOrgans:       make(map[string]*organRecord, len(o.SubOrgans)),
	}
	for name, sub := range o.SubOrgans {
		rec.SubOrgans[name] = sub.toRecord()
	}
	return rec
}

// organFromRecord reconstructs an organ node from one raw record.
// Missing fields take the organ defaults; malformed sub-records are
// skipped with a diagnostic rather than aborting the load.
func organFromRecord(data json.RawMessage) (*Organ, error) {
	var rec rawRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	organ := NewOrgan(rec.Name)
	organ.MeshFile = rec.MeshFile
	if rec.VoxelResolution != nil {
		organ.VoxelResolution = *rec.VoxelResolution
	}
	if rec.Properties != nil {
		organ.Properties = *rec.Properties
	}
	for name, subData := range rec.SubOrgans {
		sub, err := organFromRecord(subData)
		if err != nil {
			log.Warnf("skipping malformed sub-organ record %q: %v", name, err)
			continue
		}
		organ.AddSubOrgan(sub)
	}
	return organ, nil
}

// MarshalJSON encodes the organ tree as its nested record.
func (o *Organ) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.toRecord())
}

// SaveToFile persists the body as a map of organ name to nested record.
func (b *HumanBody) SaveToFile(filename string) error {
	records := make(map[string]*organRecord, len(b.Organs))
	for name, organ := range b.Organs {
		records[name] = organ.toRecord()
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return err
	}
	log.Infof("saved body model with %d organs to %s", len(b.Organs), filename)
	return nil
}

// LoadFromFile rebuilds the body from a persisted record file. The tree
// is replaced wholesale: a missing file or unparseable record yields an
// empty body with a diagnostic, never a fault that leaves the body in an
// indeterminate state. Each organ record is validated individually; a
// malformed one is skipped and its siblings still load.
func (b *HumanBody) LoadFromFile(filename string) error {
	b.Organs = make(map[string]*Organ)

	data, err := os.ReadFile(filename)
	if err != nil {
		log.Errorf("model file not found: %s", filename)
		return nil
	}
	var records map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		log.Errorf("invalid model record in %s: %v", filename, err)
		return nil
	}
	for name, rec := range records {
		organ, err := organFromRecord(rec)
		if err != nil {
			log.Warnf("skipping malformed organ record %q in %s: %v", name, filename, err)
			continue
		}
		b.Organs[name] = organ
	}
	log.Infof("loaded body model with %d organs from %s", len(b.Organs), filename)
	return nil
}
