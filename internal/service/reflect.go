package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cadtoh5m/internal/domain"
	"cadtoh5m/internal/kernel"
)

// ReflectorDetector marks the reflecting surfaces of a wedge model
type ReflectorDetector struct {
	logger *zap.Logger
}

// NewReflectorDetector creates a new detector
func NewReflectorDetector(logger *zap.Logger) *ReflectorDetector {
	return &ReflectorDetector{logger: nopIfNil(logger)}
}

// Detect reconciles the surface record of the first entry flagged
// ReflectingWedge with the live geometry, then adds every reflecting
// surface to the group named groupName and makes it visible. Records of
// surfaces that no longer exist are dropped and new surfaces are classified
// as reflecting when planar with exactly four vertices. It returns the
// wedge entry's volumes, or nil when no entry is a wedge.
func (d *ReflectorDetector) Detect(ctx context.Context, ks kernel.Session, entries []domain.GeometryEntry, groupName string) ([]int, error) {
	s := session{ks}

	var wedge *domain.GeometryEntry
	for i := range entries {
		if !entries[i].ReflectingWedge {
			continue
		}
		if wedge != nil {
			d.logger.Warn("only the first reflecting wedge is processed",
				zap.String("ignored", entries[i].ShortName()),
				zap.String("wedge", wedge.ShortName()))
			continue
		}
		wedge = &entries[i]
	}
	if wedge == nil {
		return nil, nil
	}
	if len(wedge.Volumes) == 0 {
		d.logger.Warn("reflecting wedge has no volumes", zap.String("file", wedge.ShortName()))
		return nil, nil
	}

	live, err := s.ParseList(ctx, kernel.EntitySurface, kernel.InVolumes(wedge.Volumes))
	if err != nil {
		return nil, fmt.Errorf("list surfaces of %s: %w", wedge.ShortName(), err)
	}

	if wedge.SurfaceReflectivity == nil {
		wedge.SurfaceReflectivity = make(domain.Reflectivity, len(live))
	}
	result, err := wedge.SurfaceReflectivity.Reconcile(live, func(id int) (bool, error) {
		return d.classify(ctx, s, id)
	})
	if err != nil {
		return nil, err
	}
	if len(result.Dropped) > 0 {
		d.logger.Info("dropped stale surface records",
			zap.String("file", wedge.ShortName()),
			zap.Ints("surfaces", result.Dropped))
	}

	reflectors := wedge.SurfaceReflectivity.Reflectors()
	for _, id := range reflectors {
		if err := s.run(ctx, kernel.GroupSurface(groupName, id), kernel.SurfaceVisible(id)); err != nil {
			return nil, err
		}
	}

	d.logger.Info("found reflecting surfaces",
		zap.String("file", wedge.ShortName()),
		zap.Ints("surfaces", reflectors),
		zap.Ints("classified", result.Added))
	return append([]int(nil), wedge.Volumes...), nil
}

func (d *ReflectorDetector) classify(ctx context.Context, s session, surfaceID int) (bool, error) {
	planar, err := s.IsPlanar(ctx, surfaceID)
	if err != nil {
		return false, fmt.Errorf("surface %d: %w", surfaceID, err)
	}
	if !planar {
		return false, nil
	}
	vertices, err := s.ParseList(ctx, kernel.EntityVertex, kernel.InSurface(surfaceID))
	if err != nil {
		return false, fmt.Errorf("vertices of surface %d: %w", surfaceID, err)
	}
	return domain.IsReflectingQuad(planar, len(vertices)), nil
}
