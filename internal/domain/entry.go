package domain

import (
	"fmt"
	"path/filepath"
)

// GeometryEntry is one input CAD file and everything the conversion learns
// about it. The loader fills Volumes; transforms and merges mutate the
// kernel state behind those ids.
type GeometryEntry struct {
	CADFilename string         `json:"cad_filename"`
	MaterialTag string         `json:"material_tag,omitempty"`
	Transforms  *TransformSpec `json:"transforms,omitempty"`
	// TetMesh is a kernel sizing directive such as "size 0.5". When set the
	// entry's volumes are tet meshed after the DAGMC export.
	TetMesh string `json:"tet_mesh,omitempty"`
	// ReflectingWedge marks the entry whose planar quad surfaces become
	// reflecting boundaries.
	ReflectingWedge     bool         `json:"reflecting_wedge,omitempty"`
	SurfaceReflectivity Reflectivity `json:"surface_reflectivity,omitempty"`
	Volumes             []int        `json:"volumes"`
}

// HasMaterialTag reports whether the entry declares its own tag
func (e *GeometryEntry) HasMaterialTag() bool {
	return e.MaterialTag != ""
}

// ShortName is the base name of the CAD file, used as its kernel group
func (e *GeometryEntry) ShortName() string {
	return filepath.Base(e.CADFilename)
}

// Validate checks the parts of an entry that need no filesystem or kernel
func (e *GeometryEntry) Validate() error {
	if e.CADFilename == "" {
		return fmt.Errorf("entry has no cad_filename")
	}
	if _, err := DetectInputFormat(e.CADFilename); err != nil {
		return err
	}
	if e.HasMaterialTag() {
		if err := ValidateMaterialTag(e.MaterialTag); err != nil {
			return err
		}
	}
	if e.Transforms != nil {
		if err := e.Transforms.Validate(); err != nil {
			return fmt.Errorf("%s: %w", e.CADFilename, err)
		}
	}
	return nil
}
