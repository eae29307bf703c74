package anatomy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyRoundTrip(t *testing.T) {
	body := NewHumanBody()

	heart := NewOrgan("Heart")
	heart.Properties.Conductivity = 0.7
	heart.VoxelResolution = 0.5
	ventricle := NewOrgan("Ventricle")
	ventricle.Properties.Density = 1060.0
	heart.AddSubOrgan(ventricle)
	body.AddOrgan(heart)

	liver := NewOrgan("Liver")
	liver.MeshFile = "/models/liver.obj"
	body.AddOrgan(liver)

	path := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, body.SaveToFile(path))

	loaded := NewHumanBody()
	require.NoError(t, loaded.LoadFromFile(path))

	require.Len(t, loaded.Organs, 2)
	gotHeart := loaded.Organs["Heart"]
	require.NotNil(t, gotHeart)
	assert.Equal(t, 0.7, gotHeart.Properties.Conductivity)
	assert.Equal(t, 0.5, gotHeart.VoxelResolution)

	gotVentricle := gotHeart.SubOrgans["Ventricle"]
	require.NotNil(t, gotVentricle)
	assert.Equal(t, 1060.0, gotVentricle.Properties.Density)
	if diff := cmp.Diff(ventricle.Properties, gotVentricle.Properties); diff != "" {
		t.Errorf("Ventricle properties mismatch (-want +got):\n%s", diff)
	}

	gotLiver := loaded.Organs["Liver"]
	require.NotNil(t, gotLiver)
	assert.Equal(t, "/models/liver.obj", gotLiver.MeshFile)
	assert.Nil(t, gotLiver.Mesh, "geometry is never embedded in the record")
}

func TestRecordOmitsGeometry(t *testing.T) {
	organ := NewOrgan("Heart")
	organ.SetMesh(cubeMesh())
	require.NoError(t, organ.Voxelize())

	data, err := json.Marshal(organ)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "name")
	assert.Contains(t, raw, "properties")
	assert.NotContains(t, raw, "mesh")
	assert.NotContains(t, raw, "voxel_grid")
	// No mesh file was recorded, so the reference is omitted entirely.
	assert.NotContains(t, raw, "mesh_file")
}

func TestLoadFromMissingFileYieldsEmptyBody(t *testing.T) {
	body := NewHumanBody()
	body.AddOrgan(NewOrgan("Stale"))

	require.NoError(t, body.LoadFromFile(filepath.Join(t.TempDir(), "nope.json")))
	assert.Empty(t, body.Organs, "a failed load must leave an empty body, not a stale one")
}

func TestLoadFromInvalidJSONYieldsEmptyBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	body := NewHumanBody()
	body.AddOrgan(NewOrgan("Stale"))
	require.NoError(t, body.LoadFromFile(path))
	assert.Empty(t, body.Organs)
}

func TestLoadSkipsMalformedRecords(t *testing.T) {
	src := `{
  "Good": {"name": "Good", "properties": {"density": 1200.0}},
  "Bad": 42,
  "AlsoGood": {
    "name": "AlsoGood",
    "sub_organs": {
      "BadChild": "nope",
      "GoodChild": {"name": "GoodChild"}
    }
  }
}`
	path := filepath.Join(t.TempDir(), "mixed.json")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	body := NewHumanBody()
	require.NoError(t, body.LoadFromFile(path))

	require.Len(t, body.Organs, 2, "the malformed record is skipped, its siblings load")
	assert.Equal(t, 1200.0, body.Organs["Good"].Properties.Density)

	alsoGood := body.Organs["AlsoGood"]
	require.NotNil(t, alsoGood)
	require.Len(t, alsoGood.SubOrgans, 1)
	assert.NotNil(t, alsoGood.SubOrgans["GoodChild"])
}

func TestLoadAppliesDefaultsForMissingFields(t *testing.T) {
	src := `{"Minimal": {"name": "Minimal"}}`
	path := filepath.Join(t.TempDir(), "minimal.json")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	body := NewHumanBody()
	require.NoError(t, body.LoadFromFile(path))

	organ := body.Organs["Minimal"]
	require.NotNil(t, organ)
	assert.Equal(t, 1.0, organ.VoxelResolution)
	if diff := cmp.Diff(DefaultProperties(), organ.Properties); diff != "" {
		t.Errorf("Default properties mismatch (-want +got):\n%s", diff)
	}
}

func TestSavedRecordShape(t *testing.T) {
	body := NewHumanBody()
	heart := NewOrgan("Heart")
	heart.MeshFile = "heart.obj"
	body.AddOrgan(heart)

	path := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, body.SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]struct {
		Name       string             `json:"name"`
		MeshFile   string             `json:"mesh_file"`
		Properties map[string]float64 `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	rec, ok := raw["Heart"]
	require.True(t, ok)
	assert.Equal(t, "Heart", rec.Name)
	assert.Equal(t, "heart.obj", rec.MeshFile)
	assert.Equal(t, 1000.0, rec.Properties["density"])
	assert.Equal(t, 1.0, rec.Properties["permeability"])
}
