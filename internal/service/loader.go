package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"cadtoh5m/internal/domain"
	"cadtoh5m/internal/kernel"
)

// Loader imports CAD files into a kernel session
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new loader
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: nopIfNil(logger)}
}

// Load imports every entry in order and records the volumes each file
// produced in entry.Volumes. Entries with a material tag that import as
// several volumes are united first. It returns the number of volumes in the
// session afterwards.
func (l *Loader) Load(ctx context.Context, ks kernel.Session, entries []domain.GeometryEntry) (int, error) {
	s := session{ks}

	for i := range entries {
		if err := l.loadEntry(ctx, s, &entries[i]); err != nil {
			return 0, err
		}
	}

	// unite leaves multi-volume bodies behind; split them before validating
	if err := s.run(ctx, kernel.SeparateBodies(), kernel.ValidateVolumes()); err != nil {
		return 0, err
	}

	all, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return all.Len(), nil
}

func (l *Loader) loadEntry(ctx context.Context, s session, entry *domain.GeometryEntry) error {
	format, err := domain.DetectInputFormat(entry.CADFilename)
	if err != nil {
		return err
	}
	if err := checkFile(entry.CADFilename); err != nil {
		return err
	}

	l.logger.Info("loading CAD file",
		zap.String("file", entry.CADFilename),
		zap.String("format", string(format)))

	before, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	if err := s.run(ctx, kernel.Import(string(format), entry.CADFilename), kernel.Autoheal()); err != nil {
		return err
	}
	after, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	volumes := before.Diff(after)

	if entry.HasMaterialTag() && len(volumes) > 1 {
		if err := s.run(ctx, kernel.Unite(volumes)); err != nil {
			return err
		}
		united, err := s.snapshot(ctx)
		if err != nil {
			return err
		}
		l.logger.Debug("united volumes",
			zap.String("file", entry.ShortName()),
			zap.Ints("from", volumes),
			zap.Ints("to", before.Diff(united)))
		volumes = before.Diff(united)
	}
	entry.Volumes = volumes

	if len(volumes) == 0 {
		l.logger.Warn("import produced no volumes", zap.String("file", entry.CADFilename))
		return nil
	}
	if err := s.run(ctx, kernel.GroupVolumes(entry.ShortName(), volumes)); err != nil {
		return err
	}

	l.logger.Info("loaded CAD file",
		zap.String("file", entry.ShortName()),
		zap.Ints("volumes", volumes))
	return nil
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", domain.ErrFileNotFound, path)
	}
	return nil
}
