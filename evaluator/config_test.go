package evaluator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/test"

	"github.com/viam-modules/motmetrics/distance"
	"github.com/viam-modules/motmetrics/lap"
	"github.com/viam-modules/motmetrics/metrics"
	"github.com/viam-modules/motmetrics/trajectory"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	test.That(t, cfg.Validate("test"), test.ShouldBeNil)
	test.That(t, cfg.DistanceMetric, test.ShouldEqual, distance.IoUName)
	test.That(t, cfg.DistanceThreshold, test.ShouldEqual, 0.5)
	test.That(t, cfg.Solver, test.ShouldEqual, lap.MunkresName)
	test.That(t, cfg.idSolverName(), test.ShouldEqual, lap.MunkresName)
	test.That(t, cfg.MetricNames(), test.ShouldResemble, metrics.MOTChallengeMetrics)
	test.That(t, cfg.workers(), test.ShouldBeGreaterThan, 0)
}

func TestConfigValidation(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
		cause  error
	}{
		{"unknown distance", func(c *Config) { c.DistanceMetric = "manhattan" }, distance.ErrUnknownMetric},
		{"unknown solver", func(c *Config) { c.Solver = "auction" }, lap.ErrUnknownSolver},
		{"unknown id solver", func(c *Config) { c.IDSolver = "auction" }, lap.ErrUnknownSolver},
		{"unknown metric", func(c *Config) { c.Metrics = []string{metrics.MOTA, "hota"} }, metrics.ErrUnknownMetric},
		{"unknown format", func(c *Config) { c.Format = "kitti" }, trajectory.ErrUnknownFormat},
		{"negative threshold", func(c *Config) { c.DistanceThreshold = -1 }, nil},
		{"negative workers", func(c *Config) { c.Workers = -2 }, nil},
		{
			"only identity metrics excluded",
			func(c *Config) {
				c.Metrics = []string{metrics.IDF1}
				c.IncludeIDMetrics = false
			},
			metrics.ErrUnknownMetric,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate("test")
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, IsConfigurationError(err), test.ShouldBeTrue)
			if tc.cause != nil {
				test.That(t, errors.Is(err, tc.cause), test.ShouldBeTrue)
			}

			_, err = New(cfg, logging.NewTestLogger(t))
			test.That(t, IsConfigurationError(err), test.ShouldBeTrue)
		})
	}
}

func TestExcludeIdentityMetrics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeIDMetrics = false
	names := cfg.MetricNames()
	for _, name := range []string{metrics.IDF1, metrics.IDP, metrics.IDR} {
		test.That(t, names, test.ShouldNotContain, name)
	}
	test.That(t, names, test.ShouldContain, metrics.MOTA)

	e, err := New(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e.Plan().Closure(), test.ShouldNotContain, metrics.IDTP)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eval.yaml")
	data := []byte(`distance_threshold: 0.3
solver: munkres
id_solver: greedy
metrics: [mota, motp, idf1]
workers: 3
generate_overall: false
classes: [1, 2]
`)
	test.That(t, os.WriteFile(path, data, 0o600), test.ShouldBeNil)

	cfg, err := LoadConfig(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Validate(path), test.ShouldBeNil)
	test.That(t, cfg.DistanceThreshold, test.ShouldEqual, 0.3)
	test.That(t, cfg.Solver, test.ShouldEqual, lap.MunkresName)
	test.That(t, cfg.idSolverName(), test.ShouldEqual, lap.GreedyName)
	test.That(t, cfg.Metrics, test.ShouldResemble, []string{metrics.MOTA, metrics.MOTP, metrics.IDF1})
	test.That(t, cfg.Workers, test.ShouldEqual, 3)
	test.That(t, cfg.GenerateOverall, test.ShouldBeFalse)
	test.That(t, cfg.Classes, test.ShouldResemble, []int{1, 2})
	// untouched keys keep their defaults
	test.That(t, cfg.DistanceMetric, test.ShouldEqual, distance.IoUName)
	test.That(t, cfg.IncludeIDMetrics, test.ShouldBeTrue)
	test.That(t, cfg.MinConfidence, test.ShouldEqual, 1.0)

	bad := filepath.Join(dir, "bad.yaml")
	test.That(t, os.WriteFile(bad, []byte("distance_treshold: 0.3\n"), 0o600), test.ShouldBeNil)
	_, err = LoadConfig(bad)
	test.That(t, IsConfigurationError(err), test.ShouldBeTrue)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, IsConfigurationError(err), test.ShouldBeFalse)
}
