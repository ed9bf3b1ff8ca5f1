package domain

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// TransformKind names a transform variant
type TransformKind string

const (
	TransformMove   TransformKind = "move"
	TransformScale  TransformKind = "scale"
	TransformRotate TransformKind = "rotate"
)

// Transform is one variant of a TransformSpec
type Transform interface {
	Kind() TransformKind
	Validate() error
}

// MoveShape describes how a Move pairs vectors with volumes
type MoveShape int

const (
	// MoveUniform applies one vector to every volume of the entry
	MoveUniform MoveShape = iota
	// MoveSubset applies one vector to an explicit list of volumes
	MoveSubset
	// MovePaired applies Vectors[i] to Volumes[i]
	MovePaired
)

// Move translates volumes
type Move struct {
	// Volumes restricts the move to explicit kernel volume ids.
	// Empty means all volumes of the entry.
	Volumes []int
	Vectors []r3.Vec
	// Paired is set when the move was written as a list of vectors,
	// one per volume, even when the list holds a single vector.
	Paired bool
}

// Kind implements Transform
func (m *Move) Kind() TransformKind { return TransformMove }

// Shape classifies the move
func (m *Move) Shape() MoveShape {
	switch {
	case len(m.Volumes) == 0:
		return MoveUniform
	case len(m.Vectors) == 1 && !m.Paired:
		return MoveSubset
	default:
		return MovePaired
	}
}

// Validate implements Transform
func (m *Move) Validate() error {
	if len(m.Vectors) == 0 {
		return fmt.Errorf("%w: move has no translation vector", ErrInvalidTransform)
	}
	if len(m.Volumes) == 0 && len(m.Vectors) != 1 {
		return fmt.Errorf("%w: move without volumes takes exactly one vector, got %d", ErrInvalidTransform, len(m.Vectors))
	}
	if (m.Paired || len(m.Vectors) > 1) && len(m.Vectors) != len(m.Volumes) {
		return fmt.Errorf("%w: move pairs %d vectors with %d volumes", ErrInvalidTransform, len(m.Vectors), len(m.Volumes))
	}
	return nil
}

// Scale multiplies volume dimensions by Factor
type Scale struct {
	Factor float64
}

// Kind implements Transform
func (s *Scale) Kind() TransformKind { return TransformScale }

// Validate implements Transform
func (s *Scale) Validate() error {
	if s.Factor <= 0 {
		return fmt.Errorf("%w: scale factor must be positive, got %g", ErrInvalidTransform, s.Factor)
	}
	return nil
}

// Rotate turns volumes by Angle degrees about the axis through Origin
// along Direction.
type Rotate struct {
	Angle     float64
	Origin    r3.Vec
	Direction r3.Vec
}

// Kind implements Transform
func (r *Rotate) Kind() TransformKind { return TransformRotate }

// Validate implements Transform
func (r *Rotate) Validate() error {
	if r3.Norm(r.Direction) == 0 {
		return fmt.Errorf("%w: rotation direction must not be zero", ErrInvalidTransform)
	}
	return nil
}

// TransformSpec holds at most one transform of each kind
type TransformSpec struct {
	Move   *Move
	Scale  *Scale
	Rotate *Rotate
}

// Ordered returns the present transforms in application order:
// move, then scale, then rotate.
func (t *TransformSpec) Ordered() []Transform {
	if t == nil {
		return nil
	}
	var out []Transform
	if t.Move != nil {
		out = append(out, t.Move)
	}
	if t.Scale != nil {
		out = append(out, t.Scale)
	}
	if t.Rotate != nil {
		out = append(out, t.Rotate)
	}
	return out
}

// Validate checks every present transform
func (t *TransformSpec) Validate() error {
	for _, tr := range t.Ordered() {
		if err := tr.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsEmpty reports whether no transform is set
func (t *TransformSpec) IsEmpty() bool {
	return len(t.Ordered()) == 0
}

// ParseTransformSpec builds a spec from a decoded JSON or YAML mapping:
//
//	scale:  10
//	move:   [x, y, z] | [[ids...], [x, y, z]] | [[ids...], [[x, y, z], ...]]
//	rotate: [angle, ox, oy, oz, dx, dy, dz]
//
// Unknown keys are rejected.
func ParseTransformSpec(raw map[string]any) (*TransformSpec, error) {
	spec := &TransformSpec{}
	for key, value := range raw {
		switch TransformKind(key) {
		case TransformScale:
			f, ok := toFloat(value)
			if !ok {
				return nil, fmt.Errorf("%w: scale must be a number, got %v", ErrInvalidTransform, value)
			}
			spec.Scale = &Scale{Factor: f}
		case TransformMove:
			m, err := parseMove(value)
			if err != nil {
				return nil, err
			}
			spec.Move = m
		case TransformRotate:
			r, err := parseRotate(value)
			if err != nil {
				return nil, err
			}
			spec.Rotate = r
		default:
			return nil, fmt.Errorf("%w: unknown transform %q", ErrInvalidTransform, key)
		}
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func parseMove(value any) (*Move, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: move must be a list, got %T", ErrInvalidTransform, value)
	}

	// [x, y, z]
	if v, err := toVec(list); err == nil {
		return &Move{Vectors: []r3.Vec{v}}, nil
	}

	// [[ids...], vector-or-vectors]
	if len(list) != 2 {
		return nil, fmt.Errorf("%w: move must be [x, y, z] or [volumes, vectors]", ErrInvalidTransform)
	}
	idList, ok := list[0].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: move volumes must be a list", ErrInvalidTransform)
	}
	volumes := make([]int, 0, len(idList))
	for _, item := range idList {
		f, ok := toFloat(item)
		if !ok || f != float64(int(f)) {
			return nil, fmt.Errorf("%w: move volume id %v is not an integer", ErrInvalidTransform, item)
		}
		volumes = append(volumes, int(f))
	}

	second, ok := list[1].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: move translation must be a list", ErrInvalidTransform)
	}
	if v, err := toVec(second); err == nil {
		return &Move{Volumes: volumes, Vectors: []r3.Vec{v}}, nil
	}
	vectors := make([]r3.Vec, 0, len(second))
	for _, item := range second {
		inner, ok := item.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: move translation %v is not a vector", ErrInvalidTransform, item)
		}
		v, err := toVec(inner)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	return &Move{Volumes: volumes, Vectors: vectors, Paired: true}, nil
}

func parseRotate(value any) (*Rotate, error) {
	list, ok := value.([]any)
	if !ok || len(list) != 7 {
		return nil, fmt.Errorf("%w: rotate takes [angle, ox, oy, oz, dx, dy, dz]", ErrInvalidTransform)
	}
	nums := make([]float64, 7)
	for i, item := range list {
		f, ok := toFloat(item)
		if !ok {
			return nil, fmt.Errorf("%w: rotate component %v is not a number", ErrInvalidTransform, item)
		}
		nums[i] = f
	}
	return &Rotate{
		Angle:     nums[0],
		Origin:    r3.Vec{X: nums[1], Y: nums[2], Z: nums[3]},
		Direction: r3.Vec{X: nums[4], Y: nums[5], Z: nums[6]},
	}, nil
}

func toVec(list []any) (r3.Vec, error) {
	if len(list) != 3 {
		return r3.Vec{}, fmt.Errorf("%w: vector needs 3 components, got %d", ErrInvalidTransform, len(list))
	}
	var c [3]float64
	for i, item := range list {
		f, ok := toFloat(item)
		if !ok {
			return r3.Vec{}, fmt.Errorf("%w: vector component %v is not a number", ErrInvalidTransform, item)
		}
		c[i] = f
	}
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

// toFloat accepts the numeric types produced by encoding/json and yaml.v3
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// MarshalJSON writes the spec in the same shapes ParseTransformSpec reads
func (t TransformSpec) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 3)
	if t.Scale != nil {
		out[string(TransformScale)] = t.Scale.Factor
	}
	if t.Move != nil {
		out[string(TransformMove)] = t.Move.raw()
	}
	if t.Rotate != nil {
		r := t.Rotate
		out[string(TransformRotate)] = []float64{
			r.Angle, r.Origin.X, r.Origin.Y, r.Origin.Z,
			r.Direction.X, r.Direction.Y, r.Direction.Z,
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler
func (t *TransformSpec) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	spec, err := ParseTransformSpec(raw)
	if err != nil {
		return err
	}
	*t = *spec
	return nil
}

func (m *Move) raw() any {
	vec := func(v r3.Vec) []float64 { return []float64{v.X, v.Y, v.Z} }
	switch m.Shape() {
	case MoveUniform:
		return vec(m.Vectors[0])
	case MoveSubset:
		return []any{m.Volumes, vec(m.Vectors[0])}
	default:
		vectors := make([][]float64, len(m.Vectors))
		for i, v := range m.Vectors {
			vectors[i] = vec(v)
		}
		return []any{m.Volumes, vectors}
	}
}
