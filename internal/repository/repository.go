package repository

import (
	"context"

	"cadtoh5m/internal/domain"
)

// RunRepository defines the interface for conversion history access
type RunRepository interface {
	// Read operations
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
	LatestReflectivity(ctx context.Context, cadFilename string) (domain.Reflectivity, error)

	// Write operations
	SaveRun(ctx context.Context, run *domain.Run) error
	DeleteRun(ctx context.Context, id string) error

	// Close releases resources
	Close() error
}
