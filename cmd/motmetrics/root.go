package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.viam.com/rdk/logging"

	"github.com/viam-modules/motmetrics/distance"
	"github.com/viam-modules/motmetrics/evaluator"
	"github.com/viam-modules/motmetrics/lap"
	"github.com/viam-modules/motmetrics/metrics"
	"github.com/viam-modules/motmetrics/report"
)

type options struct {
	logLevel      string
	format        string
	solver        string
	idSolver      string
	excludeID     bool
	dataPath      string
	configPath    string
	distance      string
	threshold     float64
	metrics       []string
	workers       int
	eventsDB      string
	eventsParquet string
}

func newRootCommand() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "motmetrics",
		Short: "Compute multiple object tracking metrics against MOTChallenge ground truth",
		Long: `Compute multiple object tracking metrics against MOTChallenge ground truth.

Layout of the data directory:
    <dataPath>/gt/gt/<SEQUENCE>.txt   ground truth
    <dataPath>/tst/<SEQUENCE>.txt     tracker output

Ground truth and tracker files are matched by sequence name.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return run(ctx, cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.logLevel, "loglevel", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.format, "fmt", "", "Data format (mot15-2D, mot16)")
	flags.StringVar(&opts.solver, "solver", "", "LAP solver used for matching between frames ("+strings.Join(lap.Names(), ", ")+")")
	flags.StringVar(&opts.idSolver, "id_solver", "", "LAP solver used for ID metrics, defaults to --solver")
	flags.BoolVar(&opts.excludeID, "exclude_id", false, "Disable ID metrics")
	flags.StringVar(&opts.dataPath, "dataPath", "", "Root of the ground truth and test data")
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&opts.distance, "distance", "", "Distance metric ("+strings.Join(distance.Names(), ", ")+")")
	flags.Float64Var(&opts.threshold, "threshold", evaluator.DefaultDistanceThreshold, "Maximum distance of a feasible match")
	flags.StringSliceVar(&opts.metrics, "metrics", nil, "Metrics to report, defaults to the MOTChallenge set")
	flags.IntVar(&opts.workers, "workers", 0, "Sequences evaluated in parallel, defaults to the number of CPUs")
	flags.StringVar(&opts.eventsDB, "events-db", "", "SQLite database receiving the run summary and events")
	flags.StringVar(&opts.eventsParquet, "events-parquet", "", "Parquet file receiving the event logs")
	return cmd
}

// loadConfig reads the configuration file, if any, and applies the flags set on the command
// line on top of it.
func loadConfig(cmd *cobra.Command, opts options) (evaluator.Config, error) {
	cfg := evaluator.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = evaluator.LoadConfig(opts.configPath); err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("fmt") {
		cfg.Format = opts.format
	}
	if flags.Changed("solver") {
		cfg.Solver = opts.solver
	}
	if flags.Changed("id_solver") {
		cfg.IDSolver = opts.idSolver
	}
	if flags.Changed("exclude_id") {
		cfg.IncludeIDMetrics = !opts.excludeID
	}
	if flags.Changed("distance") {
		cfg.DistanceMetric = opts.distance
	}
	if flags.Changed("threshold") {
		cfg.DistanceThreshold = opts.threshold
	}
	if flags.Changed("metrics") {
		cfg.Metrics = opts.metrics
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cobra.Command, opts options) error {
	level, err := logging.LevelFromString(opts.logLevel)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", opts.logLevel)
	}
	logger := logging.NewLogger("motmetrics")
	logger.SetLevel(level)

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	eval, err := evaluator.New(cfg, logger)
	if err != nil {
		return err
	}
	logger.Infof("available LAP solvers %v", lap.Names())
	logger.Infof("LAP solver %q", cfg.Solver)

	gts, hyps, err := eval.LoadDirectory(opts.dataPath)
	if err != nil {
		return err
	}
	res, err := eval.Evaluate(ctx, gts, hyps)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), report.RenderSummary(res.Summary, metrics.MOTChallengeNames)); err != nil {
		return err
	}

	logs := make([]report.NamedLog, len(res.Sequences))
	for i, seq := range res.Sequences {
		logs[i] = report.NamedLog{Name: seq.Name, Log: seq.Log}
	}
	if opts.eventsParquet != "" {
		if err := report.WriteEventsParquet(opts.eventsParquet, logs); err != nil {
			return err
		}
		logger.Infof("wrote events to %s", opts.eventsParquet)
	}
	if opts.eventsDB != "" {
		store, err := report.OpenStore(ctx, opts.eventsDB)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warnw("closing result store", "error", err)
			}
		}()
		runID, err := store.SaveRun(ctx, cfg, res.Summary, logs)
		if err != nil {
			return err
		}
		logger.Infof("stored run %s in %s", runID, opts.eventsDB)
	}
	logger.Info("completed")
	return nil
}
