package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/viam-modules/motmetrics/accumulator"
	"github.com/viam-modules/motmetrics/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	config     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS summary_values (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	row_idx  INTEGER NOT NULL,
	sequence TEXT NOT NULL,
	metric   TEXT NOT NULL,
	col_idx  INTEGER NOT NULL,
	value    REAL,
	PRIMARY KEY (run_id, row_idx, col_idx)
);
CREATE TABLE IF NOT EXISTS events (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	sequence TEXT NOT NULL,
	seq      INTEGER NOT NULL,
	frame    INTEGER NOT NULL,
	type     TEXT NOT NULL,
	gt_id    INTEGER,
	hyp_id   INTEGER,
	distance REAL,
	PRIMARY KEY (run_id, sequence, seq)
);
CREATE INDEX IF NOT EXISTS events_by_type ON events (run_id, sequence, type);
`

// NamedLog is the event log of one sequence.
type NamedLog struct {
	Name string
	Log  *accumulator.Log
}

// Store persists evaluation runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens or creates the database at path.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, errors.Wrapf(err, "apply pragma %q", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init schema")
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores the configuration, summary and event logs of one run in a single transaction
// and returns the new run id.
func (s *Store) SaveRun(ctx context.Context, config any, summary metrics.Summary, logs []NamedLog) (string, error) {
	cfgJSON, err := json.Marshal(config)
	if err != nil {
		return "", errors.Wrap(err, "encode config")
	}
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, config) VALUES (?, ?, ?)`,
		runID, time.Now().UnixNano(), string(cfgJSON)); err != nil {
		return "", errors.Wrap(err, "insert run")
	}

	valueStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO summary_values (run_id, row_idx, sequence, metric, col_idx, value) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", errors.Wrap(err, "prepare summary insert")
	}
	defer func() { _ = valueStmt.Close() }()
	for r, row := range summary.Rows {
		for c, name := range summary.Metrics {
			if _, err := valueStmt.ExecContext(ctx, runID, r, row.Name, name, c, nullFloat(row.Values[name])); err != nil {
				return "", errors.Wrapf(err, "insert %s/%s", row.Name, name)
			}
		}
	}

	eventStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (run_id, sequence, seq, frame, type, gt_id, hyp_id, distance) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", errors.Wrap(err, "prepare event insert")
	}
	defer func() { _ = eventStmt.Close() }()
	for _, nl := range logs {
		for i, e := range nl.Log.Events() {
			if _, err := eventStmt.ExecContext(ctx, runID, nl.Name, i, e.Frame, e.Type.String(),
				nullID(e.GT), nullID(e.Hyp), nullFloat(e.Distance)); err != nil {
				return "", errors.Wrapf(err, "insert event %d of %s", i, nl.Name)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "commit")
	}
	return runID, nil
}

// LoadSummary reads back the summary stored for runID.
func (s *Store) LoadSummary(ctx context.Context, runID string) (metrics.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT row_idx, sequence, metric, col_idx, value FROM summary_values
		 WHERE run_id = ? ORDER BY row_idx, col_idx`, runID)
	if err != nil {
		return metrics.Summary{}, errors.Wrap(err, "query summary")
	}
	defer func() { _ = rows.Close() }()

	var out metrics.Summary
	lastRow := -1
	for rows.Next() {
		var (
			rowIdx, colIdx int
			seq, metric    string
			value          sql.NullFloat64
		)
		if err := rows.Scan(&rowIdx, &seq, &metric, &colIdx, &value); err != nil {
			return metrics.Summary{}, errors.Wrap(err, "scan summary")
		}
		if rowIdx != lastRow {
			out.Rows = append(out.Rows, metrics.Row{Name: seq, Values: metrics.Values{}})
			lastRow = rowIdx
		}
		if rowIdx == 0 {
			out.Metrics = append(out.Metrics, metric)
		}
		v := math.NaN()
		if value.Valid {
			v = value.Float64
		}
		out.Rows[len(out.Rows)-1].Values[metric] = v
	}
	if err := rows.Err(); err != nil {
		return metrics.Summary{}, errors.Wrap(err, "read summary")
	}
	if len(out.Rows) == 0 {
		return metrics.Summary{}, errors.Errorf("no summary for run %s", runID)
	}
	return out, nil
}

// CountEvents returns the number of stored events of one type for a sequence of a run.
func (s *Store) CountEvents(ctx context.Context, runID, sequence string, t accumulator.EventType) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE run_id = ? AND sequence = ? AND type = ?`,
		runID, sequence, t.String()).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count events")
	}
	return n, nil
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func nullID(id int64) sql.NullInt64 {
	if id == accumulator.NoID {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}
