package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cadtoh5m/internal/domain"
	"cadtoh5m/internal/kernel"
)

// History stores conversion runs
type History interface {
	SaveRun(ctx context.Context, run *domain.Run) error
	LatestReflectivity(ctx context.Context, cadFilename string) (domain.Reflectivity, error)
}

// Result is the outcome of a successful conversion
type Result struct {
	RunID           string
	H5MFilename     string
	TotalVolumes    int
	Entries         []domain.GeometryEntry
	VolumeMaterials []domain.VolumeMaterial
	// WedgeVolumes are the volumes of the reflecting wedge, if any
	WedgeVolumes []int
}

// Converter runs the full CAD to DAGMC pipeline on one kernel session
type Converter struct {
	open    kernel.Opener
	logger  *zap.Logger
	events  *EventBus
	history History
	now     func() time.Time

	loader      *Loader
	transformer *Transformer
	tagger      *Tagger
	cleaner     *Cleaner
	reflectors  *ReflectorDetector
	exporter    *Exporter
}

// ConverterOption configures a Converter
type ConverterOption func(*Converter)

// WithEventBus publishes stage events on bus
func WithEventBus(bus *EventBus) ConverterOption {
	return func(c *Converter) {
		c.events = bus
	}
}

// WithHistory records runs in h and seeds wedge records from it
func WithHistory(h History) ConverterOption {
	return func(c *Converter) {
		c.history = h
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) ConverterOption {
	return func(c *Converter) {
		c.now = now
	}
}

// NewConverter creates a converter that opens sessions with open
func NewConverter(open kernel.Opener, logger *zap.Logger, opts ...ConverterOption) *Converter {
	logger = nopIfNil(logger)
	c := &Converter{
		open:        open,
		logger:      logger,
		now:         time.Now,
		loader:      NewLoader(logger.Named("loader")),
		transformer: NewTransformer(logger.Named("transform")),
		tagger:      NewTagger(logger.Named("tagger")),
		cleaner:     NewCleaner(logger.Named("cleaner")),
		reflectors:  NewReflectorDetector(logger.Named("reflect")),
		exporter:    NewExporter(logger.Named("export")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert turns the CAD files of entries into one DAGMC file. Entries are
// updated in place with the volumes and surface records the run produced.
// Options and entries are validated before the kernel is opened, so bad
// input never issues a kernel command.
func (c *Converter) Convert(ctx context.Context, entries []domain.GeometryEntry, opts domain.Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("no geometry entries to convert")
	}
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return nil, err
		}
	}

	run := &domain.Run{
		ID:          uuid.NewString(),
		StartedAt:   c.now(),
		H5MFilename: opts.H5MFilename,
		Options:     opts,
	}
	logger := c.logger.With(zap.String("run", run.ID))

	ks, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := ks.Close(); cerr != nil {
			logger.Warn("closing kernel session", zap.Error(cerr))
		}
	}()

	c.publish(run.ID, EventRunStarted, map[string]any{"entries": len(entries)})

	result, err := c.convert(ctx, ks, run.ID, entries, opts)
	run.FinishedAt = c.now()
	run.Entries = entries
	if err != nil {
		run.Status = domain.RunFailed
		run.Error = err.Error()
		c.record(ctx, logger, run)
		c.publish(run.ID, EventRunFailed, map[string]any{"error": err.Error()})
		return nil, err
	}

	run.Status = domain.RunSucceeded
	run.VolumeMaterials = result.VolumeMaterials
	run.WedgeVolumes = result.WedgeVolumes
	c.record(ctx, logger, run)

	if err := (session{ks}).run(ctx, kernel.Reset()); err != nil {
		return nil, err
	}

	c.publish(run.ID, EventRunFinished, map[string]any{
		"h5m":      opts.H5MFilename,
		"duration": run.Duration().String(),
	})
	logger.Info("conversion finished",
		zap.String("h5m", opts.H5MFilename),
		zap.Int("volumes", result.TotalVolumes),
		zap.Duration("duration", run.Duration()))
	return result, nil
}

func (c *Converter) convert(ctx context.Context, ks kernel.Session, runID string, entries []domain.GeometryEntry, opts domain.Options) (*Result, error) {
	s := session{ks}

	if !opts.Verbose {
		if err := s.run(ctx, kernel.QuietCommands...); err != nil {
			return nil, err
		}
	}

	c.seedReflectivity(ctx, entries)

	total, err := c.loader.Load(ctx, ks, entries)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	c.publish(runID, EventVolumesLoaded, map[string]any{"volumes": total})

	if err := c.transformer.Apply(ctx, ks, entries); err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	c.publish(runID, EventTransformsApplied, nil)

	materials, err := c.tagger.Tag(ctx, ks, entries, opts)
	if err != nil {
		return nil, fmt.Errorf("tag materials: %w", err)
	}
	c.publish(runID, EventMaterialsTagged, map[string]any{"groups": len(materials)})

	merged, err := c.cleaner.Clean(ctx, ks, total, opts)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	c.publish(runID, EventTopologyMerged, map[string]any{"merged": merged})

	wedge, err := c.reflectors.Detect(ctx, ks, entries, opts.SurfaceReflectivityName)
	if err != nil {
		return nil, fmt.Errorf("reflecting surfaces: %w", err)
	}
	if wedge != nil {
		c.publish(runID, EventReflectorsFound, map[string]any{"volumes": wedge})
	}

	if err := c.exporter.Export(ctx, ks, entries, opts); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	c.publish(runID, EventExported, map[string]any{"h5m": opts.H5MFilename})

	return &Result{
		RunID:           runID,
		H5MFilename:     opts.H5MFilename,
		TotalVolumes:    total,
		Entries:         entries,
		VolumeMaterials: materials,
		WedgeVolumes:    wedge,
	}, nil
}

// seedReflectivity gives wedge entries without a record the one stored by
// the latest run of the same file
func (c *Converter) seedReflectivity(ctx context.Context, entries []domain.GeometryEntry) {
	if c.history == nil {
		return
	}
	for i := range entries {
		entry := &entries[i]
		if !entry.ReflectingWedge || entry.SurfaceReflectivity != nil {
			continue
		}
		record, err := c.history.LatestReflectivity(ctx, entry.CADFilename)
		if err != nil {
			c.logger.Warn("reading previous reflectivity", zap.String("file", entry.CADFilename), zap.Error(err))
			continue
		}
		if len(record) > 0 {
			entry.SurfaceReflectivity = record
			c.logger.Debug("seeded reflectivity from history",
				zap.String("file", entry.ShortName()),
				zap.Int("surfaces", len(record)))
		}
	}
}

func (c *Converter) record(ctx context.Context, logger *zap.Logger, run *domain.Run) {
	if c.history == nil {
		return
	}
	if err := c.history.SaveRun(ctx, run); err != nil {
		logger.Warn("saving run history", zap.Error(err))
	}
}

func (c *Converter) publish(runID string, t EventType, payload map[string]any) {
	c.events.Publish(Event{Type: t, RunID: runID, Payload: payload})
}
