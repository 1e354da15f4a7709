package trajectory

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/utils"

	"github.com/viam-modules/motmetrics/distance"
)

// Supported MOTChallenge text formats. Both share the column layout
// frame, id, x, y, w, h, confidence, class, visibility, ...
const (
	FormatMOT15 = "mot15-2D"
	FormatMOT16 = "mot16"
)

// DefaultFormat is the format used when none is configured.
const DefaultFormat = FormatMOT15

// minColumns is frame, id and the four box values.
const minColumns = 6

var (
	// ErrUnknownFormat is returned for format names outside the supported set.
	ErrUnknownFormat = errors.New("unknown trajectory format")
	// ErrMalformedObservation marks a row that could not be parsed.
	ErrMalformedObservation = errors.New("malformed observation")
)

// LoadStats summarises one parsed file.
type LoadStats struct {
	Rows    int
	Kept    int
	Dropped int
}

// ValidateFormat checks that format is supported. An empty format selects the default.
func ValidateFormat(format string) error {
	switch format {
	case "", FormatMOT15, FormatMOT16:
		return nil
	default:
		return errors.Wrapf(ErrUnknownFormat, "%q", format)
	}
}

// Load reads a MOTChallenge file into a sequence named name.
func Load(path, name, format string, filter Filter, logger logging.Logger) (Sequence, LoadStats, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return Sequence{}, LoadStats{}, errors.Wrapf(err, "open %s", path)
	}
	defer utils.UncheckedErrorFunc(f.Close)

	obs, stats, err := Parse(f, format, logger.Sublogger(name))
	if err != nil {
		return Sequence{}, stats, errors.Wrapf(err, "parse %s", path)
	}
	if filter != nil {
		obs = filter(obs)
		stats.Kept = len(obs)
	}
	return NewSequence(name, obs), stats, nil
}

// Parse reads MOTChallenge rows. Rows that cannot be parsed are dropped with a warning and
// counted in the returned stats; they never abort the file.
func Parse(r io.Reader, format string, logger logging.Logger) ([]Observation, LoadStats, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, LoadStats{}, err
	}
	var (
		out   []Observation
		stats LoadStats
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		stats.Rows++
		o, err := parseRow(text)
		if err != nil {
			stats.Dropped++
			logger.Warnw("dropping observation", "line", line, "error", err)
			continue
		}
		out = append(out, o)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, errors.Wrap(err, "scan")
	}
	stats.Kept = len(out)
	return out, stats, nil
}

func splitRow(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

func parseRow(text string) (Observation, error) {
	fields := splitRow(text)
	if len(fields) < minColumns {
		return Observation{}, errors.Wrapf(ErrMalformedObservation, "want at least %d columns, got %d", minColumns, len(fields))
	}
	values := make([]float64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return Observation{}, errors.Wrapf(ErrMalformedObservation, "column %d: %q", i+1, field)
		}
		values[i] = v
	}
	for i := 0; i < minColumns; i++ {
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return Observation{}, errors.Wrapf(ErrMalformedObservation, "column %d is not finite", i+1)
		}
	}
	if values[0] != math.Trunc(values[0]) || values[1] != math.Trunc(values[1]) {
		return Observation{}, errors.Wrapf(ErrMalformedObservation, "frame %v and id %v must be integers", values[0], values[1])
	}
	// the lowest int64 marks an absent id in event logs
	if !fitsInt(values[0]) || values[1] <= math.MinInt64 || values[1] >= math.MaxInt64 {
		return Observation{}, errors.Wrapf(ErrMalformedObservation, "frame %v or id %v out of range", values[0], values[1])
	}
	if len(values) > 7 && (values[7] != math.Trunc(values[7]) || !fitsInt(values[7])) {
		return Observation{}, errors.Wrapf(ErrMalformedObservation, "class %v", values[7])
	}

	o := Observation{
		Frame:      int(values[0]),
		ID:         int64(values[1]),
		Box:        distance.Box{X: values[2], Y: values[3], W: values[4], H: values[5]},
		Confidence: 1,
		Class:      -1,
		Visibility: 1,
	}
	if len(values) > 6 {
		o.Confidence = values[6]
	}
	if len(values) > 7 {
		o.Class = int(values[7])
	}
	if len(values) > 8 {
		o.Visibility = values[8]
	}
	return o, nil
}

func fitsInt(v float64) bool {
	return v >= math.MinInt && v < math.MaxInt
}
