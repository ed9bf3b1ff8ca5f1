package service

import (
	"context"

	"go.uber.org/zap"

	"cadtoh5m/internal/domain"
	"cadtoh5m/internal/kernel"
)

// Cleaner imprints and merges shared topology between volumes
type Cleaner struct {
	logger *zap.Logger
}

// NewCleaner creates a new cleaner
func NewCleaner(logger *zap.Logger) *Cleaner {
	return &Cleaner{logger: nopIfNil(logger)}
}

// Clean imprints (when enabled) and merges all volumes. A single volume has
// nothing to share, so Clean reports false and issues no command.
func (c *Cleaner) Clean(ctx context.Context, ks kernel.Session, totalVolumes int, opts domain.Options) (bool, error) {
	if totalVolumes <= 1 {
		return false, nil
	}
	s := session{ks}

	if opts.Imprint {
		if err := s.run(ctx, kernel.Imprint()); err != nil {
			return false, err
		}
	}
	if err := s.run(ctx, kernel.MergeTolerance(opts.MergeTolerance), kernel.MergeAll()); err != nil {
		return false, err
	}

	c.logger.Info("merged topology",
		zap.Int("volumes", totalVolumes),
		zap.Bool("imprint", opts.Imprint),
		zap.Float64("tolerance", opts.MergeTolerance))
	return true, nil
}
