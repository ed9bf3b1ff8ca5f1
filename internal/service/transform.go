package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cadtoh5m/internal/domain"
	"cadtoh5m/internal/kernel"
)

// Transformer applies per-entry transforms
type Transformer struct {
	logger *zap.Logger
}

// NewTransformer creates a new transformer
func NewTransformer(logger *zap.Logger) *Transformer {
	return &Transformer{logger: nopIfNil(logger)}
}

// Apply moves, scales and rotates the volumes of each entry, in that order
// regardless of how the transforms were written, then heals the geometry
// once.
func (t *Transformer) Apply(ctx context.Context, ks kernel.Session, entries []domain.GeometryEntry) error {
	s := session{ks}

	for i := range entries {
		entry := &entries[i]
		if entry.Transforms.IsEmpty() {
			continue
		}
		if len(entry.Volumes) == 0 {
			t.logger.Warn("skipping transforms of entry without volumes", zap.String("file", entry.ShortName()))
			continue
		}
		if err := entry.Transforms.Validate(); err != nil {
			return fmt.Errorf("%s: %w", entry.ShortName(), err)
		}
		for _, tr := range entry.Transforms.Ordered() {
			commands, err := transformCommands(tr, entry.Volumes)
			if err != nil {
				return fmt.Errorf("%s: %w", entry.ShortName(), err)
			}
			t.logger.Debug("applying transform",
				zap.String("file", entry.ShortName()),
				zap.String("kind", string(tr.Kind())))
			if err := s.run(ctx, commands...); err != nil {
				return err
			}
		}
	}

	return s.run(ctx, kernel.Autoheal())
}

// transformCommands renders one transform against an entry's volumes
func transformCommands(tr domain.Transform, volumes []int) ([]string, error) {
	switch v := tr.(type) {
	case *domain.Move:
		switch v.Shape() {
		case domain.MoveUniform:
			return []string{kernel.MoveVolumes(volumes, v.Vectors[0])}, nil
		case domain.MoveSubset:
			return []string{kernel.MoveVolumes(v.Volumes, v.Vectors[0])}, nil
		default:
			if len(v.Vectors) != len(v.Volumes) {
				return nil, fmt.Errorf("%w: move pairs %d vectors with %d volumes",
					domain.ErrInvalidTransform, len(v.Vectors), len(v.Volumes))
			}
			commands := make([]string, len(v.Volumes))
			for i, id := range v.Volumes {
				commands[i] = kernel.MoveVolumes([]int{id}, v.Vectors[i])
			}
			return commands, nil
		}
	case *domain.Scale:
		return []string{kernel.ScaleVolumes(volumes, v.Factor)}, nil
	case *domain.Rotate:
		return []string{kernel.RotateVolumes(volumes, v.Angle, v.Origin, v.Direction)}, nil
	}
	return nil, fmt.Errorf("%w: unknown transform %T", domain.ErrInvalidTransform, tr)
}
