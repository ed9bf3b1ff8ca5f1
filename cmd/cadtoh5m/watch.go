package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cadtoh5m/internal/domain"
	"cadtoh5m/internal/service"
	"cadtoh5m/internal/watcher"
)

// watchCmd reruns the conversion whenever an input changes
var watchCmd = &cobra.Command{
	Use:   "watch [cad files...]",
	Short: "Convert, then convert again whenever an input file changes",
	Long: `Runs a conversion, then watches every CAD file (and the job file, if any)
and converts again after each burst of changes settles. A failed conversion is
logged and the watch continues. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	addConversionFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job, opts, err := loadJob(cmd, args)
	if err != nil {
		return err
	}
	open, err := buildOpener(cfg, logger)
	if err != nil {
		return err
	}
	repo, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if repo != nil {
		defer repo.Close()
	}

	bus := service.NewEventBus()
	events := make(chan service.Event, 32)
	done := make(chan struct{})
	bus.Subscribe(events)
	go logEvents(events, done)
	defer func() {
		close(events)
		<-done
	}()
	conv := newConverter(open, repo, bus)

	paths := watchPaths(job.Entries, jobPath)
	w := watcher.New(paths, logger.Named("watch")).WithDebounce(cfg.WatchDebounce())

	changes := make(chan []string, 1)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.Watch(gctx, func(ctx context.Context, changed []string) {
			select {
			case changes <- changed:
			default:
				logger.Debug("conversion already queued", zap.Strings("files", changed))
			}
		})
	})

	g.Go(func() error {
		entries := job.Entries
		last := runOnce(gctx, conv, entries, nil, opts, cmd.OutOrStdout())
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case changed := <-changes:
				if jobPath != "" && containsPath(changed, jobPath) {
					reloaded, reloadedOpts, err := loadJob(cmd, nil)
					if err != nil {
						logger.Warn("job file is invalid, keeping the previous one", zap.Error(err))
					} else {
						entries, opts = reloaded.Entries, reloadedOpts
					}
				}
				if result := runOnce(gctx, conv, entries, last, opts, cmd.OutOrStdout()); result != nil {
					last = result
				}
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runOnce converts fresh copies of entries and reports the outcome. A
// failure is logged and nil is returned.
func runOnce(ctx context.Context, conv *service.Converter, entries []domain.GeometryEntry, last *service.Result, opts domain.Options, out io.Writer) *service.Result {
	var previous []domain.GeometryEntry
	if last != nil {
		previous = last.Entries
	}
	result, err := conv.Convert(ctx, freshEntries(entries, previous), opts)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("conversion failed", zap.Error(err))
			fmt.Fprintf(out, "Conversion failed: %v\n", err)
		}
		return nil
	}
	printResult(out, result)
	return result
}

// freshEntries copies entries without kernel state. Surface records of the
// previous successful run carry over per CAD file.
func freshEntries(entries, previous []domain.GeometryEntry) []domain.GeometryEntry {
	records := make(map[string]domain.Reflectivity, len(previous))
	for _, e := range previous {
		if len(e.SurfaceReflectivity) > 0 {
			records[e.CADFilename] = e.SurfaceReflectivity
		}
	}

	out := make([]domain.GeometryEntry, len(entries))
	for i, e := range entries {
		e.Volumes = nil
		if e.SurfaceReflectivity == nil {
			e.SurfaceReflectivity = records[e.CADFilename]
		}
		e.SurfaceReflectivity = e.SurfaceReflectivity.Clone()
		out[i] = e
	}
	return out
}

func watchPaths(entries []domain.GeometryEntry, job string) []string {
	var paths []string
	if job != "" {
		paths = append(paths, job)
	}
	for _, e := range entries {
		paths = append(paths, e.CADFilename)
	}
	return paths
}

func containsPath(paths []string, target string) bool {
	abs, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	for _, p := range paths {
		if p == abs {
			return true
		}
	}
	return false
}
