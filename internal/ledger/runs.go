package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, mode, started_at, finished_at, outcome, source_title, clip_count, cycles, published, failed, remaining, cleaned_up, error_message"

// ErrRunNotFound is returned when a run id has no ledger row.
var ErrRunNotFound = errors.New("run not found")

// StartRun inserts a new run row.
func (s *Store) StartRun(ctx context.Context, id string, mode Mode) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("start run: id required")
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, mode, started_at) VALUES (?, ?, ?)`,
		id, string(mode), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// SetSource records the movie a run is working on and how many clips it produced.
func (s *Store) SetSource(ctx context.Context, id, title string, clipCount int) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET source_title = ?, clip_count = ? WHERE id = ?`,
		nullableString(title), clipCount, id,
	)
	if err != nil {
		return fmt.Errorf("update run source: %w", err)
	}
	return expectRow(res, id)
}

// FinishRun stamps the terminal outcome on a run.
func (s *Store) FinishRun(ctx context.Context, id string, summary RunSummary) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET finished_at = ?, outcome = ?, cycles = ?, published = ?,
            failed = ?, remaining = ?, cleaned_up = ?, error_message = ?
         WHERE id = ?`,
		formatTime(time.Now()),
		summary.Outcome,
		summary.Cycles,
		summary.Published,
		summary.Failed,
		summary.Remaining,
		boolToInt(summary.CleanedUp),
		nullableString(summary.Error),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return expectRow(res, id)
}

// GetRun fetches one run.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// LastRun returns the most recently started run, or nil when none exist.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		mode        string
		startedRaw  string
		finishedRaw sql.NullString
		outcome     sql.NullString
		sourceTitle sql.NullString
		cleanedUp   int64
		errorMsg    sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&mode,
		&startedRaw,
		&finishedRaw,
		&outcome,
		&sourceTitle,
		&run.ClipCount,
		&run.Cycles,
		&run.Published,
		&run.Failed,
		&run.Remaining,
		&cleanedUp,
		&errorMsg,
	); err != nil {
		return nil, err
	}
	run.Mode = Mode(mode)
	run.Outcome = outcome.String
	run.SourceTitle = sourceTitle.String
	run.CleanedUp = cleanedUp != 0
	run.ErrorMessage = errorMsg.String
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}

func expectRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
