package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"cadtoh5m/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML job files
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlJob represents the YAML structure of a job file
type yamlJob struct {
	JobOptions    `yaml:",inline"`
	FilesWithTags []yamlEntry `yaml:"files_with_tags"`
}

type yamlEntry struct {
	CADFilename string `yaml:"cad_filename,omitempty"`
	// Filename is accepted as an alias of cad_filename
	Filename            string                `yaml:"filename,omitempty"`
	MaterialTag         string                `yaml:"material_tag,omitempty"`
	Transforms          map[string]any        `yaml:"transforms,omitempty"`
	TetMesh             string                `yaml:"tet_mesh,omitempty"`
	ReflectingWedge     bool                  `yaml:"reflecting_wedge,omitempty"`
	SurfaceReflectivity map[int]yamlReflector `yaml:"surface_reflectivity,omitempty"`
}

type yamlReflector struct {
	Reflector bool `yaml:"reflector"`
}

// Parse imports a job from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*Job, error) {
	var yj yamlJob
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&yj); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	job := &Job{
		Entries: make([]domain.GeometryEntry, 0, len(yj.FilesWithTags)),
		Options: yj.JobOptions,
	}

	for i, ye := range yj.FilesWithTags {
		entry := domain.GeometryEntry{
			CADFilename:     ye.CADFilename,
			MaterialTag:     ye.MaterialTag,
			TetMesh:         ye.TetMesh,
			ReflectingWedge: ye.ReflectingWedge,
		}
		if entry.CADFilename == "" {
			entry.CADFilename = ye.Filename
		}
		if entry.CADFilename == "" {
			return nil, fmt.Errorf("files_with_tags[%d]: cad_filename is required", i)
		}

		if len(ye.Transforms) > 0 {
			spec, err := domain.ParseTransformSpec(ye.Transforms)
			if err != nil {
				return nil, fmt.Errorf("files_with_tags[%d]: %w", i, err)
			}
			entry.Transforms = spec
		}

		if len(ye.SurfaceReflectivity) > 0 {
			entry.SurfaceReflectivity = make(domain.Reflectivity, len(ye.SurfaceReflectivity))
			for id, rec := range ye.SurfaceReflectivity {
				entry.SurfaceReflectivity[id] = domain.SurfaceRecord{Reflector: rec.Reflector}
			}
		}

		job.Entries = append(job.Entries, entry)
	}

	return job, nil
}

// Export writes entries as a YAML job that converts them again
func (c *YAMLCodec) Export(entries []domain.GeometryEntry, w io.Writer) error {
	yj := yamlJob{
		FilesWithTags: make([]yamlEntry, 0, len(entries)),
	}

	for _, entry := range entries {
		ye := yamlEntry{
			CADFilename:     entry.CADFilename,
			MaterialTag:     entry.MaterialTag,
			TetMesh:         entry.TetMesh,
			ReflectingWedge: entry.ReflectingWedge,
		}
		if !entry.Transforms.IsEmpty() {
			raw, err := transformsToMap(entry.Transforms)
			if err != nil {
				return err
			}
			ye.Transforms = raw
		}
		if len(entry.SurfaceReflectivity) > 0 {
			ye.SurfaceReflectivity = make(map[int]yamlReflector, len(entry.SurfaceReflectivity))
			for id, rec := range entry.SurfaceReflectivity {
				ye.SurfaceReflectivity[id] = yamlReflector{Reflector: rec.Reflector}
			}
		}
		yj.FilesWithTags = append(yj.FilesWithTags, ye)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&yj); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}

// transformsToMap renders a spec in its list form, the same shape
// ParseTransformSpec reads back
func transformsToMap(spec *domain.TransformSpec) (map[string]any, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transforms: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to encode transforms: %w", err)
	}
	return raw, nil
}
