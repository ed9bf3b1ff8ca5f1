package codec

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cadtoh5m/internal/domain"
)

// Importer interface for reading conversion jobs from various formats
type Importer interface {
	Parse(r io.Reader) (*Job, error)
	Format() string
}

// Exporter interface for writing geometry entries to various formats
type Exporter interface {
	Export(entries []domain.GeometryEntry, w io.Writer) error
	Format() string
}

// Job is a conversion request: the files to convert plus option overrides
type Job struct {
	Entries []domain.GeometryEntry
	Options JobOptions
}

// JobOptions overrides conversion options. Nil fields keep the base value.
type JobOptions struct {
	H5MFilename                   *string  `json:"h5m_filename,omitempty" yaml:"h5m_filename,omitempty"`
	CubitFilename                 *string  `json:"cubit_filename,omitempty" yaml:"cubit_filename,omitempty"`
	ExoFilename                   *string  `json:"exo_filename,omitempty" yaml:"exo_filename,omitempty"`
	GeometryDetailsFilename       *string  `json:"geometry_details_filename,omitempty" yaml:"geometry_details_filename,omitempty"`
	MergeTolerance                *float64 `json:"merge_tolerance,omitempty" yaml:"merge_tolerance,omitempty"`
	FacetingTolerance             *float64 `json:"faceting_tolerance,omitempty" yaml:"faceting_tolerance,omitempty"`
	MakeWatertight                *bool    `json:"make_watertight,omitempty" yaml:"make_watertight,omitempty"`
	Imprint                       *bool    `json:"imprint,omitempty" yaml:"imprint,omitempty"`
	SurfaceReflectivityName       *string  `json:"surface_reflectivity_name,omitempty" yaml:"surface_reflectivity_name,omitempty"`
	ImplicitComplementMaterialTag *string  `json:"implicit_complement_material_tag,omitempty" yaml:"implicit_complement_material_tag,omitempty"`
	Graveyard                     *float64 `json:"graveyard,omitempty" yaml:"graveyard,omitempty"`
	Verbose                       *bool    `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// Apply returns base with every set override applied
func (o JobOptions) Apply(base domain.Options) domain.Options {
	setString(&base.H5MFilename, o.H5MFilename)
	setString(&base.CubitFilename, o.CubitFilename)
	setString(&base.ExoFilename, o.ExoFilename)
	setString(&base.GeometryDetailsFilename, o.GeometryDetailsFilename)
	setFloat(&base.MergeTolerance, o.MergeTolerance)
	setFloat(&base.FacetingTolerance, o.FacetingTolerance)
	setBool(&base.MakeWatertight, o.MakeWatertight)
	setBool(&base.Imprint, o.Imprint)
	setString(&base.SurfaceReflectivityName, o.SurfaceReflectivityName)
	setString(&base.ImplicitComplementMaterialTag, o.ImplicitComplementMaterialTag)
	setFloat(&base.Graveyard, o.Graveyard)
	setBool(&base.Verbose, o.Verbose)
	return base
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// ForFilename picks the importer matching a job file's extension
func ForFilename(path string) (Importer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYAMLCodec(), nil
	case ".json":
		return NewJSONCodec(), nil
	}
	return nil, fmt.Errorf("unsupported job file %s (use .yaml, .yml or .json)", path)
}

// ReadJob parses a job file. Relative CAD paths are resolved against the
// job file's directory.
func ReadJob(path string) (*Job, error) {
	importer, err := ForFilename(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open job file: %w", err)
	}
	defer f.Close()

	job, err := importer.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range job.Entries {
		name := job.Entries[i].CADFilename
		if name != "" && !filepath.IsAbs(name) {
			job.Entries[i].CADFilename = filepath.Join(dir, name)
		}
	}
	return job, nil
}
