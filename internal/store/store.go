// Package store persists finalized sweep runs in SQLite. Only aggregated
// histograms are stored, never raw per-event data; a stored run can be
// listed, reloaded for export, or merged with a geometry-compatible run.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/hepsim/stringsweep/internal/hist"
)

// RunInfo identifies one stored sweep run.
type RunInfo struct {
	ID        int64
	CreatedAt time.Time
	Note      string
	Config    string
}

// RunSeries is one finalized series of a stored run.
type RunSeries struct {
	Position int
	Label    string
	Color    string
	Value    float64

	Lo        float64
	Hi        float64
	Bins      int
	Counts    []int64
	Underflow int64
	Overflow  int64

	Trials   int
	Failures int
}

// Histogram rebuilds the series' histogram from the stored counters.
func (s RunSeries) Histogram() (*hist.Histogram, error) {
	h, err := hist.New(s.Lo, s.Hi, s.Bins)
	if err != nil {
		return nil, err
	}
	if err := h.SetCounts(s.Counts, s.Underflow, s.Overflow); err != nil {
		return nil, err
	}
	return h, nil
}

// Store is a SQLite-backed run store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the run database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores one completed sweep and returns its run id. The series
// must be given in sweep order.
func (s *Store) SaveRun(ctx context.Context, note, config string, series []RunSeries) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (created_at, note, config) VALUES (?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), note, config)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for i, sr := range series {
		counts, err := json.Marshal(sr.Counts)
		if err != nil {
			return 0, fmt.Errorf("encode counts for %q: %w", sr.Label, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO series
			(run_id, position, label, color, value, lo, hi, bins, counts, underflow, overflow, trials, failures)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, sr.Label, sr.Color, sr.Value,
			sr.Lo, sr.Hi, sr.Bins, string(counts), sr.Underflow, sr.Overflow,
			sr.Trials, sr.Failures)
		if err != nil {
			return 0, fmt.Errorf("insert series %q: %w", sr.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// ListRuns returns all stored runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, note, config FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var (
			info    RunInfo
			created string
		)
		if err := rows.Scan(&info.ID, &created, &info.Note, &info.Config); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if info.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parse run timestamp: %w", err)
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// LoadRun returns one run and its series in sweep order.
func (s *Store) LoadRun(ctx context.Context, id int64) (RunInfo, []RunSeries, error) {
	var (
		info    RunInfo
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, note, config FROM runs WHERE id = ?`, id).
		Scan(&info.ID, &created, &info.Note, &info.Config)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return RunInfo{}, nil, fmt.Errorf("query run %d: %w", id, err)
	}
	if info.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return RunInfo{}, nil, fmt.Errorf("parse run timestamp: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, label, color, value, lo, hi, bins, counts, underflow, overflow, trials, failures
		FROM series WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return RunInfo{}, nil, fmt.Errorf("query series for run %d: %w", id, err)
	}
	defer rows.Close()

	var series []RunSeries
	for rows.Next() {
		var (
			sr     RunSeries
			counts string
		)
		err := rows.Scan(&sr.Position, &sr.Label, &sr.Color, &sr.Value,
			&sr.Lo, &sr.Hi, &sr.Bins, &counts, &sr.Underflow, &sr.Overflow,
			&sr.Trials, &sr.Failures)
		if err != nil {
			return RunInfo{}, nil, fmt.Errorf("scan series: %w", err)
		}
		if err := json.Unmarshal([]byte(counts), &sr.Counts); err != nil {
			return RunInfo{}, nil, fmt.Errorf("decode counts for %q: %w", sr.Label, err)
		}
		series = append(series, sr)
	}
	return info, series, rows.Err()
}
