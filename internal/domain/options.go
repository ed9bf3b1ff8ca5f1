package domain

import "fmt"

// Default conversion settings, matching what the DAGMC toolchain expects
// when nothing else is configured.
const (
	DefaultH5MFilename             = "dagmc.h5m"
	DefaultMergeTolerance          = 1e-4
	DefaultFacetingTolerance       = 1e-2
	DefaultSurfaceReflectivityName = "reflective"

	// GraveyardWallThickness is added to the graveyard side length to size
	// the outer cube of the shell.
	GraveyardWallThickness = 5.0
)

// Options is the configuration surface of one conversion
type Options struct {
	// H5MFilename is the DAGMC output; must end with .h5m
	H5MFilename string `json:"h5m_filename" yaml:"h5m_filename"`
	// CubitFilename optionally saves the kernel session (.cub or .cub5)
	CubitFilename string `json:"cubit_filename,omitempty" yaml:"cubit_filename,omitempty"`
	// ExoFilename optionally exports the tet mesh (.exo)
	ExoFilename string `json:"exo_filename,omitempty" yaml:"exo_filename,omitempty"`
	// GeometryDetailsFilename optionally receives the JSON sidecar
	GeometryDetailsFilename string `json:"geometry_details_filename,omitempty" yaml:"geometry_details_filename,omitempty"`

	MergeTolerance    float64 `json:"merge_tolerance" yaml:"merge_tolerance"`
	FacetingTolerance float64 `json:"faceting_tolerance" yaml:"faceting_tolerance"`
	MakeWatertight    bool    `json:"make_watertight" yaml:"make_watertight"`
	Imprint           bool    `json:"imprint" yaml:"imprint"`

	// SurfaceReflectivityName is the group reflecting surfaces join.
	// "reflective" for OpenMC and MCNP.
	SurfaceReflectivityName string `json:"surface_reflectivity_name" yaml:"surface_reflectivity_name"`
	// ImplicitComplementMaterialTag is assigned to the implicit complement
	// through the graveyard volume. Empty leaves the complement as vacuum.
	ImplicitComplementMaterialTag string `json:"implicit_complement_material_tag,omitempty" yaml:"implicit_complement_material_tag,omitempty"`
	// Graveyard is the inner side length of a synthesized graveyard shell.
	// Zero disables it.
	Graveyard float64 `json:"graveyard,omitempty" yaml:"graveyard,omitempty"`

	Verbose bool `json:"verbose" yaml:"verbose"`
}

// DefaultOptions returns the settings used when nothing is configured
func DefaultOptions() Options {
	return Options{
		H5MFilename:             DefaultH5MFilename,
		MergeTolerance:          DefaultMergeTolerance,
		FacetingTolerance:       DefaultFacetingTolerance,
		MakeWatertight:          true,
		Imprint:                 true,
		SurfaceReflectivityName: DefaultSurfaceReflectivityName,
		Verbose:                 true,
	}
}

// Validate checks the options without touching the kernel. Output
// extensions are checked first so a bad filename never reaches the kernel.
func (o Options) Validate() error {
	if o.H5MFilename == "" {
		return fmt.Errorf("%w: h5m_filename is required", ErrInvalidOutputExtension)
	}
	if err := checkExtension("h5m_filename", o.H5MFilename, ".h5m"); err != nil {
		return err
	}
	if err := checkExtension("exo_filename", o.ExoFilename, ".exo"); err != nil {
		return err
	}
	if err := checkExtension("cubit_filename", o.CubitFilename, ".cub", ".cub5"); err != nil {
		return err
	}
	if o.MergeTolerance < 0 {
		return fmt.Errorf("merge_tolerance must not be negative, got %g", o.MergeTolerance)
	}
	if o.FacetingTolerance <= 0 {
		return fmt.Errorf("faceting_tolerance must be positive, got %g", o.FacetingTolerance)
	}
	if o.Graveyard < 0 {
		return fmt.Errorf("graveyard side length must not be negative, got %g", o.Graveyard)
	}
	if o.SurfaceReflectivityName == "" {
		return fmt.Errorf("surface_reflectivity_name is required")
	}
	return nil
}

// GraveyardOuter returns the side length of the graveyard's outer cube
func (o Options) GraveyardOuter() float64 {
	return o.Graveyard + GraveyardWallThickness
}
