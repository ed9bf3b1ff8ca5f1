package kernel

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// QuietCommands silence the kernel's echo, info, journal and warning output
var QuietCommands = []string{
	"set echo off",
	"set info off",
	"set journal off",
	"set warning off",
}

// Import loads a CAD file with each body as its own volume
func Import(format, path string) string {
	return fmt.Sprintf(`import %s "%s" separate_bodies no_surfaces no_curves no_vertices`, format, path)
}

// Autoheal repairs all volumes
func Autoheal() string {
	return "healer autoheal vol all"
}

// Unite fuses volumes into one
func Unite(ids []int) string {
	list := FormatIDs(ids)
	return fmt.Sprintf("unite vol %s with vol %s", list, list)
}

// SeparateBodies splits multi-volume bodies again
func SeparateBodies() string {
	return "separate body all"
}

// ValidateVolumes checks every volume for geometry errors
func ValidateVolumes() string {
	return "validate vol all"
}

// GroupVolumes adds volumes to a named group
func GroupVolumes(group string, ids []int) string {
	return fmt.Sprintf(`group "%s" add volume %s`, group, FormatIDs(ids))
}

// GroupSurface adds a surface to a named group
func GroupSurface(group string, id int) string {
	return fmt.Sprintf(`group "%s" add surf %d`, group, id)
}

// SurfaceVisible forces a surface visible
func SurfaceVisible(id int) string {
	return fmt.Sprintf("surface %d visibility on", id)
}

// ScaleVolumes scales volumes about their centroid
func ScaleVolumes(ids []int, factor float64) string {
	return fmt.Sprintf("volume %s scale %s", FormatIDs(ids), FormatFloat(factor))
}

// MoveVolumes translates volumes
func MoveVolumes(ids []int, v r3.Vec) string {
	return fmt.Sprintf("volume %s move %s", FormatIDs(ids), formatVec(v))
}

// RotateVolumes rotates volumes about an axis
func RotateVolumes(ids []int, angle float64, origin, direction r3.Vec) string {
	return fmt.Sprintf("rotate volume %s angle %s about origin %s direction %s",
		FormatIDs(ids), FormatFloat(angle), formatVec(origin), formatVec(direction))
}

// CreateBrick creates a cube of the given side length at the origin
func CreateBrick(side float64) string {
	return "create brick x " + FormatFloat(side)
}

// Subtract removes tool from target, leaving the remainder in place
func Subtract(tool, target int) string {
	return fmt.Sprintf("subtract vol %d from vol %d", tool, target)
}

// Imprint aligns coincident boundaries across all bodies
func Imprint() string {
	return "imprint body all"
}

// MergeTolerance sets the distance under which surfaces merge
func MergeTolerance(tol float64) string {
	return "merge tolerance " + FormatFloat(tol)
}

// MergeAll merges coincident geometry across all volumes
func MergeAll() string {
	return "merge vol all group_results"
}

// AttributesOn keeps entity attributes (names, groups) through export
func AttributesOn() string {
	return "set attribute on"
}

// ExportDAGMC writes the faceted h5m file
func ExportDAGMC(path string, facetingTolerance float64, watertight bool) string {
	cmd := fmt.Sprintf(`export dagmc "%s" faceting_tolerance %s`, path, FormatFloat(facetingTolerance))
	if watertight {
		cmd += " make_watertight"
	}
	return cmd
}

// TetMeshSetup returns the global sizing commands issued once before any
// volume is tet meshed.
func TetMeshSetup() []string {
	return []string{
		"Trimesher volume gradation 1.3",
		"volume all size auto factor 5",
	}
}

// TetMeshVolume returns the commands that tet mesh one volume with a sizing
// directive such as "size 0.5".
func TetMeshVolume(id int, directive string) []string {
	return []string{
		fmt.Sprintf("volume %d size auto factor 6", id),
		"volume all scheme tetmesh proximity layers off",
		fmt.Sprintf("volume %d %s", id, directive),
		fmt.Sprintf("mesh volume %d", id),
	}
}

// ExportMesh writes the mesh in exodus format
func ExportMesh(path string) string {
	return fmt.Sprintf(`export mesh "%s" overwrite`, path)
}

// SaveAs saves the kernel session in native format
func SaveAs(path string) string {
	return fmt.Sprintf(`save as "%s" overwrite`, path)
}

// Reset clears the kernel workspace
func Reset() string {
	return "reset"
}

// InVolumes is the ParseList filter for entities inside volumes
func InVolumes(ids []int) string {
	return "in volume " + FormatIDs(ids)
}

// InSurface is the ParseList filter for entities inside a surface
func InSurface(id int) string {
	return fmt.Sprintf("in surface %d", id)
}

func formatVec(v r3.Vec) string {
	return fmt.Sprintf("%s %s %s", FormatFloat(v.X), FormatFloat(v.Y), FormatFloat(v.Z))
}
