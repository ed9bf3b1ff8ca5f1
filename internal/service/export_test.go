package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadtoh5m/internal/codec"
	"cadtoh5m/internal/domain"
	"cadtoh5m/internal/kernel/sim"
)

func TestCleaner(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		imprint    bool
		wantMerged bool
		want       []string
	}{
		{"single volume", 1, true, false, nil},
		{"imprint and merge", 3, true, true, []string{"imprint body all", "merge tolerance 0.0001", "merge vol all group_results"}},
		{"merge only", 2, false, true, []string{"merge tolerance 0.0001", "merge vol all group_results"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := sim.New()
			opts := domain.DefaultOptions()
			opts.Imprint = tt.imprint

			merged, err := NewCleaner(nil).Clean(context.Background(), k, tt.total, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMerged, merged)
			assert.Equal(t, tt.want, k.Commands())
		})
	}
}

func TestExporterWritesOutputs(t *testing.T) {
	out := t.TempDir()
	k := sim.New().AddPart("coils.stp", sim.Boxes("coil", 2))
	entries := loaded(t, k, []domain.GeometryEntry{
		{CADFilename: writeCAD(t, t.TempDir(), "coils.stp"), MaterialTag: "copper", TetMesh: "size 0.5"},
		{CADFilename: writeCAD(t, t.TempDir(), "shield.sat")},
	})

	opts := domain.DefaultOptions()
	opts.H5MFilename = filepath.Join(out, "h5m", "dagmc.h5m")
	opts.ExoFilename = filepath.Join(out, "mesh", "tets.exo")
	opts.CubitFilename = filepath.Join(out, "cub", "model.cub5")
	opts.GeometryDetailsFilename = filepath.Join(out, "details", "geometry_details.json")
	opts.MakeWatertight = false

	require.NoError(t, NewExporter(nil).Export(context.Background(), k, entries, opts))

	for _, path := range []string{opts.H5MFilename, opts.ExoFilename, opts.CubitFilename, opts.GeometryDetailsFilename} {
		assert.FileExists(t, path)
	}
	assert.Equal(t, "on", k.Setting("attribute"))
	assert.Contains(t, k.Commands(), `export dagmc "`+opts.H5MFilename+`" faceting_tolerance 0.01`)
	assert.Equal(t, "1.3", k.Setting("trimesher_gradation"))

	for _, id := range entries[0].Volumes {
		info, ok := k.Volume(id)
		require.True(t, ok)
		assert.True(t, info.Meshed, "volume %d", id)
		assert.Contains(t, info.Sizing, "size 0.5")
	}
	info, ok := k.Volume(entries[1].Volumes[0])
	require.True(t, ok)
	assert.False(t, info.Meshed)

	details, err := codec.ReadGeometryDetails(opts.GeometryDetailsFilename)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, entries[0].Volumes, details[0].Volumes)

	data, err := os.ReadFile(opts.H5MFilename)
	require.NoError(t, err)
	var h5m map[string]any
	require.NoError(t, json.Unmarshal(data, &h5m))
	assert.Equal(t, false, h5m["make_watertight"])
	assert.Equal(t, true, h5m["attributes"])
}

func TestExporterSkipsTetMeshSetup(t *testing.T) {
	k := sim.New()
	entries := loaded(t, k, []domain.GeometryEntry{{CADFilename: writeCAD(t, t.TempDir(), "part.step")}})

	require.NoError(t, NewExporter(nil).Export(context.Background(), k, entries, testOptions(t)))
	assert.Empty(t, commandsWithPrefix(k, "Trimesher"))
	assert.Empty(t, commandsWithPrefix(k, "mesh volume"))
	assert.Empty(t, commandsWithPrefix(k, "export mesh"))
	assert.Empty(t, commandsWithPrefix(k, "save as"))
}
