package sim

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadtoh5m/internal/kernel"
)

func writeCAD(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("ISO-10303-21;"), 0644))
	return path
}

func TestImportAndList(t *testing.T) {
	ctx := context.Background()
	k := New().AddPart("coils.stp", Boxes("coil", 3))
	path := writeCAD(t, "coils.stp")

	require.NoError(t, k.Cmd(ctx, kernel.Import("step", path)))

	vols, err := k.ParseList(ctx, kernel.EntityVolume, "all")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, vols)

	name, err := k.EntityName(ctx, kernel.EntityVolume, 2)
	require.NoError(t, err)
	assert.Equal(t, "coil@2", name)

	surfaces, err := k.ParseList(ctx, kernel.EntitySurface, " in volume 1")
	require.NoError(t, err)
	assert.Len(t, surfaces, 6)

	verts, err := k.ParseList(ctx, kernel.EntityVertex, kernel.InSurface(surfaces[0]))
	require.NoError(t, err)
	assert.Len(t, verts, 4)
}

func TestImportMissingFile(t *testing.T) {
	k := New()
	err := k.Cmd(context.Background(), kernel.Import("step", "/nonexistent/part.stp"))
	assert.Error(t, err)
}

func TestUniteFusedAndDisjoint(t *testing.T) {
	ctx := context.Background()
	fused := Boxes("shield", 2)
	fused.Fused = true
	k := New().
		AddPart("fused.stp", fused).
		AddPart("apart.stp", Boxes("coil", 2))

	require.NoError(t, k.Cmd(ctx, kernel.Import("step", writeCAD(t, "apart.stp"))))
	require.NoError(t, k.Cmd(ctx, kernel.Unite([]int{1, 2})))
	assert.Equal(t, []int{1, 2}, k.Volumes(), "disjoint volumes stay separate")

	require.NoError(t, k.Cmd(ctx, kernel.Import("step", writeCAD(t, "fused.stp"))))
	require.NoError(t, k.Cmd(ctx, kernel.Unite([]int{3, 4})))
	assert.Equal(t, []int{1, 2, 5}, k.Volumes(), "fused volumes become one new volume")

	v, ok := k.Volume(5)
	require.True(t, ok)
	assert.Len(t, v.Surfaces, 12)
}

func TestGraveyardShell(t *testing.T) {
	ctx := context.Background()
	k := New()

	require.NoError(t, k.Cmd(ctx, kernel.CreateBrick(100)))
	require.NoError(t, k.Cmd(ctx, kernel.CreateBrick(105)))
	require.NoError(t, k.Cmd(ctx, kernel.Subtract(1, 2)))

	assert.Equal(t, []int{3}, k.Volumes())
	v, _ := k.Volume(3)
	require.NotNil(t, v.Shell)
	assert.Equal(t, Shell{Inner: 100, Outer: 105}, *v.Shell)

	assert.Error(t, k.Cmd(ctx, kernel.Subtract(3, 3)))
}

func TestCommandsAndFailures(t *testing.T) {
	ctx := context.Background()
	k := New().FailOn("merge vol")

	require.NoError(t, k.Cmd(ctx, "set echo off"))
	assert.Equal(t, "off", k.Setting("echo"))

	require.NoError(t, k.Cmd(ctx, kernel.MergeTolerance(1e-3)))
	assert.Equal(t, 1e-3, k.MergeTolerance())

	assert.Error(t, k.Cmd(ctx, kernel.MergeAll()))
	assert.Error(t, k.Cmd(ctx, "frobnicate everything"))

	assert.Equal(t, []string{
		"set echo off",
		"merge tolerance 0.001",
		"merge vol all group_results",
		"frobnicate everything",
	}, k.Commands())
}

func TestGroupsAndExport(t *testing.T) {
	ctx := context.Background()
	k := New()
	path := writeCAD(t, "wedge.sat")
	k.AddPart("wedge.sat", Part{Volumes: []Volume{Wedge("wedge")}})

	require.NoError(t, k.Cmd(ctx, kernel.Import("acis", path)))
	require.NoError(t, k.Cmd(ctx, kernel.GroupVolumes("mat:steel", []int{1})))
	require.NoError(t, k.Cmd(ctx, kernel.GroupSurface("reflective", 1)))
	require.NoError(t, k.Cmd(ctx, kernel.SurfaceVisible(1)))
	assert.Error(t, k.Cmd(ctx, kernel.GroupVolumes("mat:steel", []int{42})))

	assert.Equal(t, []string{"volume 1"}, k.Group("mat:steel"))
	assert.Equal(t, []string{"surface 1"}, k.Group("reflective"))
	assert.True(t, k.SurfaceVisible(1))

	out := filepath.Join(t.TempDir(), "dagmc.h5m")
	require.NoError(t, k.Cmd(ctx, kernel.ExportDAGMC(out, 0.01, true)))
	assert.FileExists(t, out)

	require.NoError(t, k.Cmd(ctx, kernel.Reset()))
	assert.Empty(t, k.Volumes())
	assert.Equal(t, 1, k.Resets())
}

func TestReplaceSurface(t *testing.T) {
	ctx := context.Background()
	k := New()
	require.NoError(t, k.Cmd(ctx, kernel.CreateBrick(10)))

	newID, err := k.ReplaceSurface(1, 2, Surface{Planar: false, Vertices: 4})
	require.NoError(t, err)
	assert.Equal(t, 7, newID)

	planar, err := k.IsPlanar(ctx, newID)
	require.NoError(t, err)
	assert.False(t, planar)

	_, err = k.IsPlanar(ctx, 2)
	assert.Error(t, err)
}

func TestTetMeshCommands(t *testing.T) {
	ctx := context.Background()
	k := New()
	require.NoError(t, k.Cmd(ctx, kernel.CreateBrick(10)))

	for _, c := range kernel.TetMeshSetup() {
		require.NoError(t, k.Cmd(ctx, c))
	}
	for _, c := range kernel.TetMeshVolume(1, "size 0.5") {
		require.NoError(t, k.Cmd(ctx, c))
	}

	v, _ := k.Volume(1)
	assert.True(t, v.Meshed)
	assert.Contains(t, v.Sizing, "size 0.5")
	assert.Equal(t, "1.3", k.Setting("trimesher_gradation"))
}
