package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestParseTransformSpecMoveShapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       map[string]any
		wantShape MoveShape
		wantMove  *Move
	}{
		{
			name:      "uniform vector",
			raw:       map[string]any{"move": []any{0.0, 0.0, 10.0}},
			wantShape: MoveUniform,
			wantMove:  &Move{Vectors: []r3.Vec{{Z: 10}}},
		},
		{
			name:      "subset of volumes",
			raw:       map[string]any{"move": []any{[]any{3, 7}, []any{0, 0, 10}}},
			wantShape: MoveSubset,
			wantMove:  &Move{Volumes: []int{3, 7}, Vectors: []r3.Vec{{Z: 10}}},
		},
		{
			name: "paired vectors",
			raw: map[string]any{"move": []any{
				[]any{3, 7},
				[]any{[]any{0, 0, 10}, []any{0, 0, -10}},
			}},
			wantShape: MovePaired,
			wantMove:  &Move{Volumes: []int{3, 7}, Vectors: []r3.Vec{{Z: 10}, {Z: -10}}, Paired: true},
		},
		{
			name: "paired single volume",
			raw: map[string]any{"move": []any{
				[]any{4},
				[]any{[]any{1, 0, 0}},
			}},
			wantShape: MovePaired,
			wantMove:  &Move{Volumes: []int{4}, Vectors: []r3.Vec{{X: 1}}, Paired: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := ParseTransformSpec(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if spec.Move.Shape() != tt.wantShape {
				t.Errorf("Shape() = %v, want %v", spec.Move.Shape(), tt.wantShape)
			}
			if diff := cmp.Diff(tt.wantMove, spec.Move); diff != "" {
				t.Errorf("move mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseTransformSpecErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"unknown key", map[string]any{"shear": 1.0}},
		{"scale not a number", map[string]any{"scale": "big"}},
		{"scale zero", map[string]any{"scale": 0.0}},
		{"move short vector", map[string]any{"move": []any{1.0, 2.0}}},
		{"move count mismatch", map[string]any{"move": []any{
			[]any{3, 7, 9},
			[]any{[]any{0, 0, 1}, []any{0, 0, 2}},
		}}},
		{"move paired single vector for many volumes", map[string]any{"move": []any{
			[]any{1, 2, 3},
			[]any{[]any{0, 0, 1}},
		}}},
		{"move fractional id", map[string]any{"move": []any{[]any{1.5}, []any{0, 0, 1}}}},
		{"rotate too short", map[string]any{"rotate": []any{90.0, 0.0, 0.0}}},
		{"rotate zero axis", map[string]any{"rotate": []any{90, 0, 0, 0, 0, 0, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTransformSpec(tt.raw)
			if !errors.Is(err, ErrInvalidTransform) {
				t.Fatalf("error = %v, want ErrInvalidTransform", err)
			}
		})
	}
}

func TestTransformSpecOrdered(t *testing.T) {
	spec, err := ParseTransformSpec(map[string]any{
		"rotate": []any{180, 0, 0, 0, 0, 0, 1},
		"scale":  10,
		"move":   []any{0, 0, 10},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var kinds []TransformKind
	for _, tr := range spec.Ordered() {
		kinds = append(kinds, tr.Kind())
	}
	want := []TransformKind{TransformMove, TransformScale, TransformRotate}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("Ordered() mismatch:\n%s", diff)
	}

	var nilSpec *TransformSpec
	if len(nilSpec.Ordered()) != 0 {
		t.Error("nil spec should have no transforms")
	}
}

func TestTransformSpecJSON(t *testing.T) {
	input := `{"move":[[3,7],[[0,0,10],[0,0,-10]]],"rotate":[180,0,0,0,0,0,1],"scale":10}`

	var spec TransformSpec
	if err := json.Unmarshal([]byte(input), &spec); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if spec.Scale.Factor != 10 {
		t.Errorf("scale = %g, want 10", spec.Scale.Factor)
	}
	if spec.Rotate.Angle != 180 || spec.Rotate.Direction != (r3.Vec{Z: 1}) {
		t.Errorf("rotate = %+v", spec.Rotate)
	}

	out, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != input {
		t.Errorf("Marshal() = %s, want %s", out, input)
	}
}

func TestMoveJSONKeepsPairedShape(t *testing.T) {
	input := `{"move":[[4],[[1,0,0]]]}`

	var spec TransformSpec
	if err := json.Unmarshal([]byte(input), &spec); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if spec.Move.Shape() != MovePaired {
		t.Fatalf("Shape() = %v, want MovePaired", spec.Move.Shape())
	}

	out, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != input {
		t.Errorf("Marshal() = %s, want %s", out, input)
	}
}
