package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadtoh5m/internal/domain"
	"cadtoh5m/internal/kernel/sim"
)

func TestLoaderRecordsNewVolumes(t *testing.T) {
	dir := t.TempDir()
	k := sim.New().
		AddPart("coils.stp", sim.Boxes("coil", 3)).
		AddPart("shield.sat", sim.Boxes("shield", 1))

	entries := []domain.GeometryEntry{
		{CADFilename: writeCAD(t, dir, "coils.stp")},
		{CADFilename: writeCAD(t, dir, "shield.sat")},
	}

	total, err := NewLoader(nil).Load(context.Background(), k, entries)
	require.NoError(t, err)

	assert.Equal(t, 4, total)
	assert.Equal(t, []int{1, 2, 3}, entries[0].Volumes)
	assert.Equal(t, []int{4}, entries[1].Volumes)
	assert.Equal(t, []string{"volume 1", "volume 2", "volume 3"}, k.Group("coils.stp"))
	assert.Equal(t, []string{"volume 4"}, k.Group("shield.sat"))
	assert.Empty(t, commandsWithPrefix(k, "unite"), "untagged entries are not united")

	cmds := k.Commands()
	require.GreaterOrEqual(t, len(cmds), 2)
	assert.Equal(t, []string{"separate body all", "validate vol all"}, cmds[len(cmds)-2:])
	assert.Contains(t, cmds, `import acis "`+entries[1].CADFilename+`" separate_bodies no_surfaces no_curves no_vertices`)
}

func TestLoaderUnitesTaggedVolumes(t *testing.T) {
	dir := t.TempDir()
	pair := sim.Boxes("magnet", 2)
	pair.Fused = true
	k := sim.New().
		AddPart("first.stp", sim.Boxes("first", 4)).
		AddPart("magnet.stp", pair)

	entries := []domain.GeometryEntry{
		{CADFilename: writeCAD(t, dir, "first.stp")},
		{CADFilename: writeCAD(t, dir, "magnet.stp"), MaterialTag: "copper"},
	}
	loaded(t, k, entries)

	assert.Equal(t, []string{"unite vol 5 6 with vol 5 6"}, commandsWithPrefix(k, "unite"))
	assert.Equal(t, []int{7}, entries[1].Volumes, "volumes come from the snapshot after the union")
	assert.Equal(t, []string{"volume 7"}, k.Group("magnet.stp"))
}

func TestLoaderKeepsDisjointLumps(t *testing.T) {
	k := sim.New().AddPart("fuel.stp", sim.Boxes("fuel", 3))
	entries := []domain.GeometryEntry{
		{CADFilename: writeCAD(t, t.TempDir(), "fuel.stp"), MaterialTag: "fuel"},
	}
	loaded(t, k, entries)

	assert.Len(t, commandsWithPrefix(k, "unite"), 1)
	assert.Equal(t, []int{1, 2, 3}, entries[0].Volumes)
}

func TestLoaderRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		wantErr error
	}{
		{"unsupported extension", writeCAD(t, dir, "part.iges"), domain.ErrUnsupportedInputFormat},
		{"missing file", filepath.Join(dir, "absent.stp"), domain.ErrFileNotFound},
		{"directory", filepath.Join(dir, "sub.step"), domain.ErrFileNotFound},
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.step"), 0755))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := sim.New()
			_, err := NewLoader(nil).Load(context.Background(), k, []domain.GeometryEntry{{CADFilename: tt.file}})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Empty(t, k.Commands())
		})
	}
}

func TestLoaderStopsOnKernelFailure(t *testing.T) {
	k := sim.New().FailOn("healer")
	entries := []domain.GeometryEntry{{CADFilename: writeCAD(t, t.TempDir(), "part.stp")}}

	_, err := NewLoader(nil).Load(context.Background(), k, entries)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrKernelCommand))
	assert.Empty(t, commandsWithPrefix(k, "group"))
}
