package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cadtoh5m/internal/codec"
	"cadtoh5m/internal/domain"
	"cadtoh5m/internal/service"
)

// conversion flags, shared by convert and watch
var (
	jobPath           string
	materialTags      map[string]string
	tetMeshes         map[string]string
	wedgeFile         string
	h5mFilename       string
	exoFilename       string
	cubitFilename     string
	detailsFilename   string
	mergeTolerance    float64
	facetingTolerance float64
	graveyard         float64
	complementTag     string
	noImprint         bool
	noWatertight      bool
)

// convertCmd converts CAD files once
var convertCmd = &cobra.Command{
	Use:   "convert [cad files...]",
	Short: "Convert CAD files into a DAGMC h5m file",
	Long: `Converts STEP (.stp, .step) and ACIS (.sat) files into one DAGMC h5m file.

Files come either from a job file (--job) or from the command line, with
material tags given per file base name:

  cadtoh5m convert --job job.yaml
  cadtoh5m convert fw.step blanket.step --tag fw.step=tungsten --tag blanket.step=li4sio4

Flags override the job file, which overrides the config file.`,
	RunE: runConvert,
}

func init() {
	addConversionFlags(convertCmd)
}

func addConversionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&jobPath, "job", "j", "", "Job file (.yaml or .json)")
	f.StringToStringVarP(&materialTags, "tag", "t", nil, "Material tag per CAD file base name (file=tag)")
	f.StringToStringVar(&tetMeshes, "tet-mesh", nil, "Tet mesh sizing per CAD file base name (file=\"size 0.5\")")
	f.StringVar(&wedgeFile, "reflecting-wedge", "", "Base name of the CAD file whose planar quad faces reflect")
	f.StringVarP(&h5mFilename, "output", "o", "", "DAGMC output file (.h5m)")
	f.StringVar(&exoFilename, "exo", "", "Tet mesh output file (.exo)")
	f.StringVar(&cubitFilename, "cub", "", "Kernel session output file (.cub or .cub5)")
	f.StringVar(&detailsFilename, "geometry-details", "", "JSON file receiving the geometry entries after conversion")
	f.Float64Var(&mergeTolerance, "merge-tolerance", domain.DefaultMergeTolerance, "Merge tolerance")
	f.Float64Var(&facetingTolerance, "faceting-tolerance", domain.DefaultFacetingTolerance, "Faceting tolerance")
	f.Float64Var(&graveyard, "graveyard", 0, "Inner side length of a graveyard shell (0 disables it)")
	f.StringVar(&complementTag, "implicit-complement", "", "Material tag of the implicit complement")
	f.BoolVar(&noImprint, "no-imprint", false, "Skip imprinting before the merge")
	f.BoolVar(&noWatertight, "no-watertight", false, "Skip making the DAGMC model watertight")
}

func runConvert(cmd *cobra.Command, args []string) error {
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

	result, err := newConverter(open, repo, bus).Convert(ctx, job.Entries, opts)
	close(events)
	<-done
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), result)
	return nil
}

// loadJob builds the conversion request from the job file or the
// positional arguments, then applies flag overrides
func loadJob(cmd *cobra.Command, args []string) (*codec.Job, domain.Options, error) {
	var job *codec.Job
	switch {
	case jobPath != "" && len(args) > 0:
		return nil, domain.Options{}, fmt.Errorf("pass either --job or CAD files, not both")
	case jobPath != "":
		var err error
		job, err = codec.ReadJob(jobPath)
		if err != nil {
			return nil, domain.Options{}, err
		}
		logger.Info("loaded job", zap.String("file", jobPath), zap.Int("entries", len(job.Entries)))
	case len(args) > 0:
		job = &codec.Job{Entries: entriesFromArgs(args, materialTags, tetMeshes, wedgeFile)}
	default:
		return nil, domain.Options{}, fmt.Errorf("no CAD files given (pass files or --job)")
	}

	opts := job.Options.Apply(cfg.Options())
	applyFlagOverrides(cmd, &opts)
	return job, opts, nil
}

// entriesFromArgs turns CAD paths into entries. Tags, tet mesh directives
// and the wedge flag are keyed by file base name or by the path as given.
func entriesFromArgs(args []string, tags, meshes map[string]string, wedge string) []domain.GeometryEntry {
	lookup := func(m map[string]string, path string) string {
		if v, ok := m[path]; ok {
			return v
		}
		return m[filepath.Base(path)]
	}

	entries := make([]domain.GeometryEntry, 0, len(args))
	for _, path := range args {
		entries = append(entries, domain.GeometryEntry{
			CADFilename:     path,
			MaterialTag:     lookup(tags, path),
			TetMesh:         lookup(meshes, path),
			ReflectingWedge: wedge != "" && (wedge == path || wedge == filepath.Base(path)),
		})
	}
	return entries
}

func applyFlagOverrides(cmd *cobra.Command, opts *domain.Options) {
	f := cmd.Flags()
	if f.Changed("output") {
		opts.H5MFilename = h5mFilename
	}
	if f.Changed("exo") {
		opts.ExoFilename = exoFilename
	}
	if f.Changed("cub") {
		opts.CubitFilename = cubitFilename
	}
	if f.Changed("geometry-details") {
		opts.GeometryDetailsFilename = detailsFilename
	}
	if f.Changed("merge-tolerance") {
		opts.MergeTolerance = mergeTolerance
	}
	if f.Changed("faceting-tolerance") {
		opts.FacetingTolerance = facetingTolerance
	}
	if f.Changed("graveyard") {
		opts.Graveyard = graveyard
	}
	if f.Changed("implicit-complement") {
		opts.ImplicitComplementMaterialTag = complementTag
	}
	if f.Changed("no-imprint") {
		opts.Imprint = !noImprint
	}
	if f.Changed("no-watertight") {
		opts.MakeWatertight = !noWatertight
	}
	if f.Changed("verbose") {
		opts.Verbose = verbose
	}
}

func printResult(w io.Writer, result *service.Result) {
	fmt.Fprintf(w, "Wrote %s (%d volumes, run %s)\n", result.H5MFilename, result.TotalVolumes, result.RunID)
	for _, vm := range result.VolumeMaterials {
		fmt.Fprintf(w, "  mat:%-27s volumes %v\n", vm.MaterialTag, vm.Volumes)
	}
	if len(result.WedgeVolumes) > 0 {
		fmt.Fprintf(w, "  reflecting wedge volumes %v\n", result.WedgeVolumes)
	}
}
