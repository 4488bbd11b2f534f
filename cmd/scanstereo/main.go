package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"scanstereo/pkg/config"
	"scanstereo/pkg/matching"
	"scanstereo/pkg/reconstruction"
)

// Exit statuses
const (
	exitFailure  = 1
	exitInternal = 2
)

type options struct {
	configPath       string
	occlusionCost    int
	workers          int
	fullCoverage     bool
	saveIntermediary bool
	intermediaryDir  string
	reportFile       string
	stlFile          string
	verbose          bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if code := exitCode(err); code != 0 {
		os.Exit(code)
	}
}

// exitCode maps the error returned by the command to a process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, matching.ErrInconsistentTrace):
		return exitInternal
	default:
		return exitFailure
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "scanstereo <left-image> <right-image> <output-image>",
		Short: "Estimate a depth map from a rectified stereo pair",
		Long: `scanstereo matches every scanline of a rectified stereo pair with dynamic
programming and writes the resulting disparities as a grayscale depth map.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Arguments are valid past this point; failures are logged by run
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			return run(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "scanstereo.yaml", "YAML configuration file (defaults are used if it does not exist)")
	flags.IntVar(&opts.occlusionCost, "occlusion-cost", matching.DefaultOcclusionCost, "penalty for leaving a pixel unmatched")
	flags.IntVar(&opts.workers, "workers", 0, "scanlines matched concurrently; 0 uses all CPUs")
	flags.BoolVar(&opts.fullCoverage, "full-coverage", false, "also trace the first pixel of every scanline")
	flags.BoolVar(&opts.saveIntermediary, "save-intermediary", false, "save intermediary results")
	flags.StringVar(&opts.intermediaryDir, "intermediary-dir", "intermediary_results", "directory for intermediary results")
	flags.StringVar(&opts.reportFile, "report", "", "write a YAML disparity report to this path")
	flags.StringVar(&opts.stlFile, "stl", "", "write the depth map as an STL relief mesh to this path")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newInitConfigCmd())

	return cmd
}

func newInitConfigCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write the default configuration to a YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "scanstereo.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite it", path)
			}
			if err := config.CreateDefaultConfigFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}

func run(cmd *cobra.Command, opts *options, args []string) error {
	logger := initLogger(opts.verbose)

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		logger.WithError(err).Error("Failed to load configuration")
		return err
	}
	applyFlags(cmd, opts, cfg)
	if cfg.Output.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Error("Invalid configuration")
		return err
	}

	params := &reconstruction.Params{
		LeftPath:                args[0],
		RightPath:               args[1],
		OutputFile:              args[2],
		OcclusionCost:           cfg.Matching.OcclusionCost,
		FullCoverage:            cfg.Matching.FullCoverage,
		NumWorkers:              cfg.Processing.NumWorkers,
		FlatLevel:               cfg.Render.FlatLevel,
		Background:              cfg.Render.Background,
		SaveIntermediaryResults: cfg.Output.SaveIntermediaryResults,
		IntermediaryDir:         cfg.Output.IntermediaryDir,
		ReportFile:              cfg.Output.ReportFile,
		STLFile:                 cfg.Output.STLFile,
		STLScale:                cfg.Output.STLScale,
	}

	logger.WithFields(logrus.Fields{
		"left":   params.LeftPath,
		"right":  params.RightPath,
		"output": params.OutputFile,
	}).Info("Starting scanline stereo matching")

	start := time.Now()
	r := reconstruction.NewReconstructor(params, logger)
	if err := r.Process(cmd.Context()); err != nil {
		switch {
		case errors.Is(err, reconstruction.ErrDimensionMismatch):
			logger.WithError(err).Error("Images are incompatible sizes. Terminating.")
		case errors.Is(err, matching.ErrInconsistentTrace):
			logger.WithError(err).Error("Internal error: scanline traceback failed")
		default:
			logger.WithError(err).Error("Depth reconstruction failed")
		}
		return err
	}

	metrics := r.GetMetrics()
	logger.WithFields(logrus.Fields{
		"elapsed":         time.Since(start).Round(time.Millisecond),
		"traced":          metrics.Traced,
		"coverage":        fmt.Sprintf("%.3f", metrics.Coverage),
		"min":             metrics.Min,
		"max":             metrics.Max,
		"mean":            fmt.Sprintf("%.3f", metrics.Mean),
		"std_dev":         fmt.Sprintf("%.3f", metrics.StdDev),
		"occlusion_ratio": fmt.Sprintf("%.3f", metrics.OcclusionRatio),
		"discontinuities": metrics.Discontinuities,
	}).Info("Depth map completed")

	return nil
}

// applyFlags overrides configuration values with flags the user set explicitly
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("occlusion-cost") {
		cfg.Matching.OcclusionCost = opts.occlusionCost
	}
	if flags.Changed("workers") {
		cfg.Processing.NumWorkers = opts.workers
		if opts.workers == 0 {
			cfg.Processing.NumWorkers = runtime.NumCPU()
		}
	}
	if flags.Changed("full-coverage") {
		cfg.Matching.FullCoverage = opts.fullCoverage
	}
	if flags.Changed("save-intermediary") {
		cfg.Output.SaveIntermediaryResults = opts.saveIntermediary
	}
	if flags.Changed("intermediary-dir") {
		cfg.Output.IntermediaryDir = opts.intermediaryDir
	}
	if flags.Changed("report") {
		cfg.Output.ReportFile = opts.reportFile
	}
	if flags.Changed("stl") {
		cfg.Output.STLFile = opts.stlFile
	}
	if opts.verbose {
		cfg.Output.Verbose = true
	}
}

// initLogger initializes the logger with appropriate level
func initLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.00",
	})

	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return logger
}
