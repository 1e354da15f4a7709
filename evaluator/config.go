package evaluator

import (
	"bytes"
	"math"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gopkg.in/yaml.v3"

	"github.com/viam-modules/motmetrics/distance"
	"github.com/viam-modules/motmetrics/lap"
	"github.com/viam-modules/motmetrics/metrics"
	"github.com/viam-modules/motmetrics/trajectory"
)

// Defaults for an empty configuration.
const (
	DefaultDistanceThreshold = 0.5
	DefaultMinConfidence     = 1.0
)

// Config holds the evaluation options.
type Config struct {
	DistanceMetric    string   `json:"distance_metric" yaml:"distance_metric"`
	DistanceThreshold float64  `json:"distance_threshold" yaml:"distance_threshold"`
	Solver            string   `json:"solver" yaml:"solver"`
	IDSolver          string   `json:"id_solver,omitempty" yaml:"id_solver,omitempty"`
	Metrics           []string `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	IncludeIDMetrics  bool     `json:"include_id_metrics" yaml:"include_id_metrics"`
	MinConfidence     float64  `json:"min_confidence" yaml:"min_confidence"`
	Format            string   `json:"format" yaml:"format"`
	Classes           []int    `json:"classes,omitempty" yaml:"classes,omitempty"`
	Workers           int      `json:"workers,omitempty" yaml:"workers,omitempty"`
	GenerateOverall   bool     `json:"generate_overall" yaml:"generate_overall"`
}

// DefaultConfig returns the MOTChallenge evaluation setup.
func DefaultConfig() Config {
	return Config{
		DistanceMetric:    distance.DefaultName,
		DistanceThreshold: DefaultDistanceThreshold,
		Solver:            lap.DefaultName,
		IncludeIDMetrics:  true,
		MinConfidence:     DefaultMinConfidence,
		Format:            trajectory.DefaultFormat,
		GenerateOverall:   true,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, &ConfigurationError{Path: path, Err: errors.Wrap(err, "parse")}
	}
	return cfg, nil
}

// ConfigurationError reports an invalid option. It is always fatal and is raised before any
// sequence is evaluated.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return utils.NewConfigValidationError(e.Path, e.Err).Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err was caused by an invalid configuration.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// Validate checks every option and returns a *ConfigurationError for the first bad one.
func (cfg *Config) Validate(path string) error {
	fail := func(err error) error {
		return &ConfigurationError{Path: path, Err: err}
	}
	if _, err := distance.Lookup(cfg.DistanceMetric); err != nil {
		return fail(err)
	}
	if math.IsNaN(cfg.DistanceThreshold) || math.IsInf(cfg.DistanceThreshold, 0) || cfg.DistanceThreshold < 0 {
		return fail(errors.Errorf(`"distance_threshold" must be a finite non-negative number, got %v`, cfg.DistanceThreshold))
	}
	if _, err := lap.Lookup(cfg.Solver); err != nil {
		return fail(err)
	}
	if cfg.IDSolver != "" {
		if _, err := lap.Lookup(cfg.IDSolver); err != nil {
			return fail(errors.Wrap(err, `"id_solver"`))
		}
	}
	if math.IsNaN(cfg.MinConfidence) {
		return fail(errors.New(`"min_confidence" must be a number`))
	}
	if err := trajectory.ValidateFormat(cfg.Format); err != nil {
		return fail(err)
	}
	if cfg.Workers < 0 {
		return fail(errors.Errorf(`"workers" must not be negative, got %d`, cfg.Workers))
	}
	if _, err := metrics.Standard().Plan(cfg.MetricNames()); err != nil {
		return fail(err)
	}
	return nil
}

// MetricNames returns the metrics to report: the configured list, or the MOTChallenge set,
// without identity metrics when those are excluded.
func (cfg *Config) MetricNames() []string {
	names := cfg.Metrics
	if len(names) == 0 {
		names = metrics.MOTChallengeMetrics
	}
	if cfg.IncludeIDMetrics {
		return append([]string(nil), names...)
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if d, ok := metrics.Standard().Lookup(name); ok && d.Identity {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (cfg *Config) workers() int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	return runtime.NumCPU()
}

func (cfg *Config) idSolverName() string {
	if cfg.IDSolver != "" {
		return cfg.IDSolver
	}
	return cfg.Solver
}
