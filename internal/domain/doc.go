// Package domain defines the core types for converting CAD geometry into a
// tagged DAGMC surface mesh.
//
// Nothing in this package talks to the geometry kernel. It holds the
// bookkeeping that the conversion pipeline mutates while it drives the
// kernel: one GeometryEntry per input CAD file, the transforms applied to
// it, the volume ids the kernel assigned, and the provenance written to the
// sidecar file.
//
// # Geometry Entries
//
// GeometryEntry mirrors one item of a "files with tags" job: the CAD file,
// an optional material tag, optional transforms, an optional tet-mesh
// directive and, for a reflecting wedge, the per-surface reflectivity record.
//
// # Transforms
//
// TransformSpec is a tagged union of Move, Scale and Rotate. The variants are
// always applied in the order move, scale, rotate regardless of how the job
// file lists them.
//
// # Volume Snapshots
//
// Snapshot captures the kernel's volume ids at one instant. Diffing two
// snapshots yields the volumes an import (or unite, or subtract) introduced.
// Volume ids are opaque and only meaningful inside one kernel session.
//
// # Reflectivity
//
// Reflectivity maps surface ids of the wedge volume to a reflector flag and
// is reconciled against the live surface set on every run.
package domain
