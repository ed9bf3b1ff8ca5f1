package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"cadtoh5m/internal/codec"
	"cadtoh5m/internal/domain"
	"cadtoh5m/internal/kernel"
)

// Exporter writes the conversion outputs
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates a new exporter
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: nopIfNil(logger)}
}

// Export writes the geometry-details sidecar when configured, the DAGMC
// h5m file, tet meshes for entries that ask for one, and the optional exodus
// and native session files.
func (e *Exporter) Export(ctx context.Context, ks kernel.Session, entries []domain.GeometryEntry, opts domain.Options) error {
	s := session{ks}

	if err := s.run(ctx, kernel.AttributesOn()); err != nil {
		return err
	}

	if opts.GeometryDetailsFilename != "" {
		if err := codec.WriteGeometryDetails(opts.GeometryDetailsFilename, entries); err != nil {
			return fmt.Errorf("write geometry details: %w", err)
		}
		e.logger.Info("wrote geometry details", zap.String("file", opts.GeometryDetailsFilename))
	}

	if err := ensureParent(opts.H5MFilename); err != nil {
		return err
	}
	e.logger.Debug("exporting DAGMC",
		zap.String("file", opts.H5MFilename),
		zap.Float64("faceting_tolerance", opts.FacetingTolerance),
		zap.Bool("watertight", opts.MakeWatertight))
	if err := s.run(ctx, kernel.ExportDAGMC(opts.H5MFilename, opts.FacetingTolerance, opts.MakeWatertight)); err != nil {
		return err
	}

	if err := e.tetMesh(ctx, s, entries); err != nil {
		return err
	}

	if opts.ExoFilename != "" {
		if err := ensureParent(opts.ExoFilename); err != nil {
			return err
		}
		if err := s.run(ctx, kernel.ExportMesh(opts.ExoFilename)); err != nil {
			return err
		}
	}

	if opts.CubitFilename != "" {
		if err := ensureParent(opts.CubitFilename); err != nil {
			return err
		}
		if err := s.run(ctx, kernel.SaveAs(opts.CubitFilename)); err != nil {
			return err
		}
	}

	e.logger.Info("exported", zap.String("h5m", opts.H5MFilename))
	return nil
}

func (e *Exporter) tetMesh(ctx context.Context, s session, entries []domain.GeometryEntry) error {
	var meshed []*domain.GeometryEntry
	for i := range entries {
		if entries[i].TetMesh != "" {
			meshed = append(meshed, &entries[i])
		}
	}
	if len(meshed) == 0 {
		return nil
	}

	if err := s.run(ctx, kernel.TetMeshSetup()...); err != nil {
		return err
	}
	for _, entry := range meshed {
		for _, id := range entry.Volumes {
			if err := s.run(ctx, kernel.TetMeshVolume(id, entry.TetMesh)...); err != nil {
				return err
			}
		}
		e.logger.Info("tet meshed", zap.String("file", entry.ShortName()), zap.Ints("volumes", entry.Volumes))
	}
	return nil
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
