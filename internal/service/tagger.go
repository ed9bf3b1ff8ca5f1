package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cadtoh5m/internal/domain"
	"cadtoh5m/internal/kernel"
)

// Tagger assigns material tags to volumes through kernel groups
type Tagger struct {
	logger *zap.Logger
}

// NewTagger creates a new tagger
func NewTagger(logger *zap.Logger) *Tagger {
	return &Tagger{logger: nopIfNil(logger)}
}

// Tag groups every entry's volumes under "mat:<tag>" and, when
// opts.Graveyard is set, adds a graveyard shell around the model. It
// returns which volumes received which tag, in the order they were tagged.
func (t *Tagger) Tag(ctx context.Context, ks kernel.Session, entries []domain.GeometryEntry, opts domain.Options) ([]domain.VolumeMaterial, error) {
	s := session{ks}
	var materials []domain.VolumeMaterial

	for i := range entries {
		entry := &entries[i]
		if entry.HasMaterialTag() {
			if err := domain.ValidateMaterialTag(entry.MaterialTag); err != nil {
				return materials, err
			}
			if len(entry.Volumes) == 0 {
				t.logger.Warn("no volumes to tag", zap.String("file", entry.ShortName()))
				continue
			}
			if err := s.run(ctx, kernel.GroupVolumes(domain.MaterialGroup(entry.MaterialTag), entry.Volumes)); err != nil {
				return materials, err
			}
			materials = append(materials, domain.VolumeMaterial{
				Volumes:     append([]int(nil), entry.Volumes...),
				MaterialTag: entry.MaterialTag,
			})

			if domain.IsGraveyardTag(entry.MaterialTag) && opts.ImplicitComplementMaterialTag != "" {
				group := domain.ComplementGroup(opts.ImplicitComplementMaterialTag)
				if err := s.run(ctx, kernel.GroupVolumes(group, entry.Volumes[:1])); err != nil {
					return materials, err
				}
			}
			continue
		}

		t.logger.Warn("entry has no material_tag, using volume names",
			zap.String("file", entry.ShortName()))
		for _, id := range entry.Volumes {
			name, err := s.EntityName(ctx, kernel.EntityVolume, id)
			if err != nil {
				return materials, fmt.Errorf("name of volume %d: %w", id, err)
			}
			tag := domain.MaterialFromEntityName(name)
			if err := domain.ValidateMaterialTag(tag); err != nil {
				return materials, fmt.Errorf("volume %d: %w", id, err)
			}
			if err := s.run(ctx, kernel.GroupVolumes(domain.MaterialGroup(tag), []int{id})); err != nil {
				return materials, err
			}
			materials = append(materials, domain.VolumeMaterial{Volumes: []int{id}, MaterialTag: tag})
		}
	}

	if opts.Graveyard > 0 {
		shell, err := t.graveyard(ctx, s, opts)
		if err != nil {
			return materials, err
		}
		materials = append(materials, domain.VolumeMaterial{Volumes: []int{shell}, MaterialTag: domain.GraveyardTag})
	}

	t.logger.Info("tagged materials", zap.Int("groups", len(materials)))
	return materials, nil
}

// graveyard builds a hollow cube with inner side opts.Graveyard and wall
// thickness domain.GraveyardWallThickness and tags it. Volume ids come from
// snapshots around each kernel operation.
func (t *Tagger) graveyard(ctx context.Context, s session, opts domain.Options) (int, error) {
	inner, err := t.createBrick(ctx, s, opts.Graveyard)
	if err != nil {
		return 0, err
	}
	outer, err := t.createBrick(ctx, s, opts.GraveyardOuter())
	if err != nil {
		return 0, err
	}

	before, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.run(ctx, kernel.Subtract(inner, outer)); err != nil {
		return 0, err
	}
	after, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}

	var created []int
	for _, id := range before.Diff(after) {
		if after.Contains(id) {
			created = append(created, id)
		}
	}
	var shell int
	switch {
	case len(created) == 1:
		shell = created[0]
	case len(created) == 0 && after.Contains(outer) && !after.Contains(inner):
		// the kernel kept the outer brick's id for the result
		shell = outer
	default:
		return 0, fmt.Errorf("%w: subtract produced volumes %v, expected one shell", domain.ErrGraveyard, created)
	}

	if err := s.run(ctx, kernel.GroupVolumes(domain.MaterialGroup(domain.GraveyardTag), []int{shell})); err != nil {
		return 0, err
	}
	if opts.ImplicitComplementMaterialTag != "" {
		group := domain.ComplementGroup(opts.ImplicitComplementMaterialTag)
		if err := s.run(ctx, kernel.GroupVolumes(group, []int{shell})); err != nil {
			return 0, err
		}
	}

	t.logger.Info("created graveyard",
		zap.Int("volume", shell),
		zap.Float64("inner", opts.Graveyard),
		zap.Float64("outer", opts.GraveyardOuter()))
	return shell, nil
}

func (t *Tagger) createBrick(ctx context.Context, s session, side float64) (int, error) {
	before, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.run(ctx, kernel.CreateBrick(side)); err != nil {
		return 0, err
	}
	after, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	created := before.Diff(after)
	if len(created) != 1 {
		return 0, fmt.Errorf("%w: brick of side %g produced volumes %v", domain.ErrGraveyard, side, created)
	}
	return created[0], nil
}
