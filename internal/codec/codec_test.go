package codec

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"cadtoh5m/internal/domain"
)

const yamlJobText = `
h5m_filename: out/dagmc.h5m
graveyard: 500
imprint: false
implicit_complement_material_tag: air
files_with_tags:
  - cad_filename: blanket.stp
    material_tag: fuel
    transforms:
      scale: 2
      move: [[3, 7], [[0, 0, 10], [0, 0, -10]]]
      rotate: [180, 0, 0, 0, 0, 0, 1]
  - filename: coils.step
    tet_mesh: size 0.5
  - cad_filename: wedge.sat
    material_tag: steel
    reflecting_wedge: true
    surface_reflectivity:
      12: {reflector: true}
      13: {reflector: false}
`

func TestYAMLCodecParse(t *testing.T) {
	job, err := NewYAMLCodec().Parse(strings.NewReader(yamlJobText))
	require.NoError(t, err)
	require.Len(t, job.Entries, 3)

	blanket := job.Entries[0]
	assert.Equal(t, "blanket.stp", blanket.CADFilename)
	assert.Equal(t, "fuel", blanket.MaterialTag)
	require.NotNil(t, blanket.Transforms)
	assert.Equal(t, &domain.Scale{Factor: 2}, blanket.Transforms.Scale)
	assert.Equal(t, &domain.Move{
		Volumes: []int{3, 7},
		Vectors: []r3.Vec{{Z: 10}, {Z: -10}},
		Paired:  true,
	}, blanket.Transforms.Move)
	assert.Equal(t, r3.Vec{Z: 1}, blanket.Transforms.Rotate.Direction)

	assert.Equal(t, "coils.step", job.Entries[1].CADFilename, "filename is an alias")
	assert.Equal(t, "size 0.5", job.Entries[1].TetMesh)

	wedge := job.Entries[2]
	assert.True(t, wedge.ReflectingWedge)
	assert.Equal(t, domain.Reflectivity{12: {Reflector: true}, 13: {Reflector: false}}, wedge.SurfaceReflectivity)

	opts := job.Options.Apply(domain.DefaultOptions())
	assert.Equal(t, "out/dagmc.h5m", opts.H5MFilename)
	assert.Equal(t, 500.0, opts.Graveyard)
	assert.False(t, opts.Imprint)
	assert.True(t, opts.MakeWatertight, "unset overrides keep the base value")
	assert.Equal(t, "air", opts.ImplicitComplementMaterialTag)
}

func TestYAMLCodecParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:  "missing filename",
			input: "files_with_tags:\n  - material_tag: fuel\n",
		},
		{
			name:    "unknown transform",
			input:   "files_with_tags:\n  - cad_filename: a.stp\n    transforms:\n      shear: 2\n",
			wantErr: domain.ErrInvalidTransform,
		},
		{
			name:    "paired move count mismatch",
			input:   "files_with_tags:\n  - cad_filename: a.stp\n    transforms:\n      move: [[1, 2, 3], [[0, 0, 1], [0, 0, 2]]]\n",
			wantErr: domain.ErrInvalidTransform,
		},
		{
			name:  "unknown field",
			input: "h5m_file: x.h5m\nfiles_with_tags: []\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewYAMLCodec().Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
		})
	}
}

func TestYAMLCodecRoundTrip(t *testing.T) {
	moves := map[string]*domain.Move{
		"uniform":       {Vectors: []r3.Vec{{X: 1, Y: 2, Z: 3}}},
		"subset":        {Volumes: []int{4, 5}, Vectors: []r3.Vec{{X: -1}}},
		"paired":        {Volumes: []int{4, 5}, Vectors: []r3.Vec{{Z: 1}, {Z: 2.5}}, Paired: true},
		"paired single": {Volumes: []int{4}, Vectors: []r3.Vec{{Z: 1}}, Paired: true},
	}

	for name, move := range moves {
		t.Run(name, func(t *testing.T) {
			in := []domain.GeometryEntry{{
				CADFilename: "part.stp",
				MaterialTag: "fuel",
				Transforms:  &domain.TransformSpec{Move: move, Scale: &domain.Scale{Factor: 10}},
			}}

			var buf bytes.Buffer
			require.NoError(t, NewYAMLCodec().Export(in, &buf))

			job, err := NewYAMLCodec().Parse(&buf)
			require.NoError(t, err)
			if diff := cmp.Diff(in, job.Entries); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSONCodecParse(t *testing.T) {
	t.Run("job object", func(t *testing.T) {
		input := `{"h5m_filename": "a.h5m", "merge_tolerance": 0.001,
			"files_with_tags": [{"cad_filename": "a.stp", "material_tag": "fuel", "transforms": {"scale": 3}}]}`
		job, err := NewJSONCodec().Parse(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, job.Entries, 1)
		assert.Equal(t, 3.0, job.Entries[0].Transforms.Scale.Factor)

		opts := job.Options.Apply(domain.DefaultOptions())
		assert.Equal(t, "a.h5m", opts.H5MFilename)
		assert.Equal(t, 0.001, opts.MergeTolerance)
	})

	t.Run("entry list", func(t *testing.T) {
		input := `
		[{"cad_filename": "w.sat", "reflecting_wedge": true, "volumes": [1],
		  "surface_reflectivity": {"3": {"reflector": true}}}]`
		job, err := NewJSONCodec().Parse(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, job.Entries, 1)
		assert.Equal(t, domain.Reflectivity{3: {Reflector: true}}, job.Entries[0].SurfaceReflectivity)
		assert.Equal(t, []int{1}, job.Entries[0].Volumes)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := NewJSONCodec().Parse(strings.NewReader("  "))
		assert.Error(t, err)
	})
}

func TestGeometryDetailsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "details.json")
	entries := []domain.GeometryEntry{{
		CADFilename: "fuel.stp",
		MaterialTag: "fuel",
		Volumes:     []int{1, 2, 3},
	}}

	require.NoError(t, WriteGeometryDetails(path, entries))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"material_tag": "fuel"`)

	got, err := ReadGeometryDetails(path)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestReadJob(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlJobText), 0644))

	job, err := ReadJob(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "blanket.stp"), job.Entries[0].CADFilename)

	_, err = ReadJob(filepath.Join(dir, "job.toml"))
	assert.Error(t, err)
}
