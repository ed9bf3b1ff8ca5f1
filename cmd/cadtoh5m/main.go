package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cadtoh5m/internal/config"
	"cadtoh5m/internal/kernel"
	"cadtoh5m/internal/kernel/sim"
	"cadtoh5m/internal/repository/sqlite"
	"cadtoh5m/internal/service"
)

var (
	// Global flags
	verbose    bool
	configPath string
	kernelFlag string
	noHistory  bool

	logger *zap.Logger
	cfg    *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cadtoh5m",
	Short: "Convert CAD geometry into DAGMC h5m files",
	Long: `cadtoh5m drives a Cubit geometry kernel to turn STEP and ACIS files into
a material-tagged, watertight DAGMC surface mesh for particle transport codes.

The kernel runs locally, on a remote host over SSH, or as an in-memory
simulation (--kernel sim) that checks a job without meshing anything.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		var path string
		if configPath != "" {
			cfg, path, err = config.LoadFromPath(configPath)
		} else {
			cfg, path, err = config.Load(jobPath)
		}
		if err != nil {
			return err
		}
		if kernelFlag != "" {
			cfg.Kernel.Transport = config.Transport(kernelFlag)
		}
		logger.Debug("loaded config", zap.String("path", path), zap.String("summary", cfg.Summary()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging and kernel output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: search "+config.EnvConfigPath+", ./"+config.ConfigFileName+", XDG dirs)")
	rootCmd.PersistentFlags().StringVar(&kernelFlag, "kernel", "", "Kernel transport: local, ssh or sim")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "Do not read or record run history")

	rootCmd.AddCommand(convertCmd, watchCmd, runsCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildOpener returns the kernel opener the config selects
func buildOpener(c *config.Config, log *zap.Logger) (kernel.Opener, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	klog := log.Named("kernel")

	switch c.Kernel.Transport {
	case config.TransportSim:
		// a fresh simulated kernel per session
		return func(ctx context.Context) (kernel.Session, error) {
			return sim.New().Opener()(ctx)
		}, nil

	case config.TransportSSH:
		s := c.Kernel.SSH
		opts := []kernel.SSHOption{kernel.WithRemoteStderr(kernelStderr())}
		if s.Port != 0 {
			opts = append(opts, kernel.WithPort(s.Port))
		}
		if s.User != "" {
			opts = append(opts, kernel.WithUser(s.User))
		}
		if s.KeyPath != nil {
			opts = append(opts, kernel.WithKeyFile(*s.KeyPath, s.Passphrase))
		}
		if s.Password != "" {
			opts = append(opts, kernel.WithPassword(s.Password))
		}
		if s.KnownHosts != "" {
			opts = append(opts, kernel.WithKnownHosts(s.KnownHosts))
		}
		if s.CubitPath != "" {
			opts = append(opts, kernel.WithRemoteCubitPath(s.CubitPath))
		}
		if s.Python != "" {
			opts = append(opts, kernel.WithRemotePython(s.Python))
		}
		if s.DialTimeout != nil {
			opts = append(opts, kernel.WithDialTimeout(s.DialTimeout.Duration()))
		}
		return kernel.NewOpener(kernel.NewSSHTransport(s.Host, opts...), klog), nil

	default:
		t := kernel.NewLocalTransport(c.Kernel.CubitPath,
			kernel.WithPython(c.Kernel.Python),
			kernel.WithStderr(kernelStderr()))
		return kernel.NewOpener(t, klog), nil
	}
}

func kernelStderr() io.Writer {
	if verbose {
		return os.Stderr
	}
	return io.Discard
}

// openHistory opens the run history, or returns nil when it is disabled
func openHistory(c *config.Config) (*sqlite.Repository, error) {
	if noHistory || !c.HistoryEnabled() {
		return nil, nil
	}
	repo, err := sqlite.New(c.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	logger.Debug("run history opened", zap.String("path", c.History.Path))
	return repo, nil
}

// newConverter wires a converter; repo may be nil
func newConverter(open kernel.Opener, repo *sqlite.Repository, bus *service.EventBus) *service.Converter {
	opts := []service.ConverterOption{service.WithEventBus(bus)}
	if repo != nil {
		opts = append(opts, service.WithHistory(repo))
	}
	return service.NewConverter(open, logger, opts...)
}

// logEvents logs stage events until events is closed, then closes done
func logEvents(events <-chan service.Event, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		logger.Debug("stage", zap.String("event", string(ev.Type)), zap.String("run", ev.RunID), zap.Any("payload", ev.Payload))
	}
}
