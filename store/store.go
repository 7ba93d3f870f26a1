// Package store persists verification runs to SQLite: one row per run
// with its aggregate counters, plus the retained mismatch records for
// the report server to query later.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/bictech/transcheck/catalog"
	"github.com/bictech/transcheck/verify"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	finished_at INTEGER,
	total INTEGER NOT NULL DEFAULT 0,
	by_language TEXT NOT NULL DEFAULT '{}',
	anomalies INTEGER NOT NULL DEFAULT 0,
	dropped INTEGER NOT NULL DEFAULT 0,
	pages_ok INTEGER NOT NULL DEFAULT 0,
	page_errors TEXT NOT NULL DEFAULT '[]',
	passed INTEGER
);
CREATE TABLE IF NOT EXISTS results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id),
	page TEXT NOT NULL,
	locator TEXT NOT NULL,
	language TEXT NOT NULL,
	actual TEXT NOT NULL,
	expected TEXT,
	matched INTEGER NOT NULL,
	cat_key TEXT NOT NULL DEFAULT '',
	screenshot TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
`

// Store persists runs and their mismatch records. Mismatches are
// written asynchronously in batches so screenshot-heavy pages do not
// stall the verification loop.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	ch    chan row
	flush chan chan struct{}
	done  chan struct{}
	once  sync.Once
}

type row struct {
	runID  string
	result verify.ComparisonResult
}

// Open opens (creating if needed) the run database at path with WAL
// and a busy timeout applied, and starts the async writer.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		ch:     make(chan row, 1024),
		flush:  make(chan chan struct{}),
		done:   make(chan struct{}),
	}
	go s.flushLoop()
	return s, nil
}

// DB exposes the underlying handle, mainly for tests.
func (s *Store) DB() *sql.DB { return s.db }

// StartRun registers a new run and returns its id. Run ids are UUIDv7
// so lexical order follows start time.
func (s *Store) StartRun(ctx context.Context) (string, error) {
	id := newRunID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		id, time.Now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("store: start run: %w", err)
	}
	return id, nil
}

// RecordAsync queues one mismatch record for persistence. Non-blocking;
// drops when the buffer is full rather than stalling the checker.
func (s *Store) RecordAsync(runID string, r verify.ComparisonResult) {
	select {
	case s.ch <- row{runID: runID, result: r}:
	default:
		s.logger.Warn("store: result buffer full, dropping record",
			"run", runID, "page", r.Page, "locator", r.Locator)
	}
}

// Flush blocks until all queued records are written.
func (s *Store) Flush() {
	ack := make(chan struct{})
	select {
	case s.flush <- ack:
		<-ack
	case <-s.done:
	}
}

// FinishRun flushes pending records and writes the run's final
// counters and verdict.
func (s *Store) FinishRun(ctx context.Context, runID string, stats *verify.RunStatistics) error {
	s.Flush()

	byLang, err := json.Marshal(stats.ByLanguage)
	if err != nil {
		return fmt.Errorf("store: encode counters: %w", err)
	}
	pageErrs, err := json.Marshal(stats.PageErrors)
	if err != nil {
		return fmt.Errorf("store: encode page errors: %w", err)
	}

	passed := 0
	if stats.Passed() {
		passed = 1
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, total = ?, by_language = ?,
			anomalies = ?, dropped = ?, pages_ok = ?, page_errors = ?, passed = ?
		WHERE id = ?`,
		time.Now().UnixMilli(), stats.Total, string(byLang),
		stats.Anomalies, stats.Dropped, stats.PagesOK, string(pageErrs), passed,
		runID)
	if err != nil {
		return fmt.Errorf("store: finish run: %w", err)
	}
	return nil
}

// Close drains the writer and closes the database.
func (s *Store) Close() error {
	s.once.Do(func() {
		close(s.ch)
		<-s.done
	})
	return s.db.Close()
}

func (s *Store) flushLoop() {
	defer close(s.done)

	batch := make([]row, 0, 64)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				s.flushBatch(batch)
				return
			}
			batch = append(batch, r)
			if len(batch) >= 64 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		case ack := <-s.flush:
			// Drain whatever is already queued before acking.
			for {
				select {
				case r, ok := <-s.ch:
					if !ok {
						s.flushBatch(batch)
						close(ack)
						return
					}
					batch = append(batch, r)
					continue
				default:
				}
				break
			}
			s.flushBatch(batch)
			batch = batch[:0]
			close(ack)
		case <-ticker.C:
			if len(batch) > 0 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *Store) flushBatch(batch []row) {
	if len(batch) == 0 {
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		s.logger.Error("store: begin tx", "err", err)
		return
	}
	stmt, err := tx.Prepare(`INSERT INTO results
		(run_id, page, locator, language, actual, expected, matched, cat_key, screenshot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		s.logger.Error("store: prepare insert", "err", err)
		return
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, r := range batch {
		res := r.result
		var expected any
		if res.Expected != nil {
			expected = *res.Expected
		}
		matched := 0
		if res.Matched {
			matched = 1
		}
		if _, err := stmt.Exec(r.runID, res.Page, res.Locator, string(res.Language),
			res.Actual, expected, matched, res.Key, res.Screenshot, now); err != nil {
			s.logger.Error("store: insert result", "err", err)
		}
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("store: commit", "err", err)
	}
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID         string                                      `json:"id"`
	StartedAt  time.Time                                   `json:"started_at"`
	FinishedAt time.Time                                   `json:"finished_at"`
	Total      int                                         `json:"total"`
	ByLanguage map[catalog.Language]*verify.LanguageCounts `json:"by_language"`
	Anomalies  int                                         `json:"anomalies"`
	Dropped    int                                         `json:"dropped"`
	PagesOK    int                                         `json:"pages_ok"`
	PageErrors []string                                    `json:"page_errors"`
	Passed     bool                                        `json:"passed"`
	Finished   bool                                        `json:"finished"`
}

// RunDetail is a run with its retained mismatch records.
type RunDetail struct {
	RunSummary
	Mismatches []verify.ComparisonResult `json:"mismatches"`
}

// Runs lists finished and running runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, total, by_language,
			anomalies, dropped, pages_ok, page_errors, passed
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run returns one run with its mismatches. The bool reports existence.
func (s *Store) Run(ctx context.Context, id string) (*RunDetail, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, total, by_language,
			anomalies, dropped, pages_ok, page_errors, passed
		FROM runs WHERE id = ?`, id)
	if err != nil {
		return nil, false, fmt.Errorf("store: get run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, false, rows.Err()
	}
	summary, err := scanRun(rows)
	if err != nil {
		return nil, false, err
	}
	rows.Close()

	detail := &RunDetail{RunSummary: summary}
	mrows, err := s.db.QueryContext(ctx, `
		SELECT page, locator, language, actual, expected, matched, cat_key, screenshot
		FROM results WHERE run_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, false, fmt.Errorf("store: get results: %w", err)
	}
	defer mrows.Close()

	for mrows.Next() {
		var r verify.ComparisonResult
		var lang string
		var expected sql.NullString
		var matched int
		if err := mrows.Scan(&r.Page, &r.Locator, &lang, &r.Actual,
			&expected, &matched, &r.Key, &r.Screenshot); err != nil {
			return nil, false, fmt.Errorf("store: scan result: %w", err)
		}
		r.Language = catalog.Language(lang)
		if expected.Valid {
			v := expected.String
			r.Expected = &v
		}
		r.Matched = matched != 0
		detail.Mismatches = append(detail.Mismatches, r)
	}
	return detail, true, mrows.Err()
}

// LastRun returns the most recently started run.
func (s *Store) LastRun(ctx context.Context) (*RunDetail, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: last run: %w", err)
	}
	return s.Run(ctx, id)
}

func scanRun(rows *sql.Rows) (RunSummary, error) {
	var r RunSummary
	var started int64
	var finished, passed sql.NullInt64
	var byLang, pageErrs string
	if err := rows.Scan(&r.ID, &started, &finished, &r.Total, &byLang,
		&r.Anomalies, &r.Dropped, &r.PagesOK, &pageErrs, &passed); err != nil {
		return r, fmt.Errorf("store: scan run: %w", err)
	}
	r.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		r.FinishedAt = time.UnixMilli(finished.Int64)
		r.Finished = true
	}
	r.Passed = passed.Valid && passed.Int64 != 0
	if err := json.Unmarshal([]byte(byLang), &r.ByLanguage); err != nil {
		return r, fmt.Errorf("store: decode counters: %w", err)
	}
	if err := json.Unmarshal([]byte(pageErrs), &r.PageErrors); err != nil {
		return r, fmt.Errorf("store: decode page errors: %w", err)
	}
	return r, nil
}
