package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = "id, kind, status, started_at, finished_at, input_dir, output_dir, records, seed, detail"

// StartRun inserts a running entry.
func (s *Store) StartRun(ctx context.Context, id string, kind Kind, inputDir, outputDir string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("run id is required")
	}
	started := time.Now().UTC()
	if _, err := s.exec(ctx,
		`INSERT INTO runs (id, kind, status, started_at, input_dir, output_dir) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(kind), string(StatusRunning), started.Format(timeLayout),
		nullableString(inputDir), nullableString(outputDir),
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Run{
		ID:        id,
		Kind:      kind,
		Status:    StatusRunning,
		StartedAt: started,
		InputDir:  inputDir,
		OutputDir: outputDir,
	}, nil
}

// FinishRun records the final state of a run.
func (s *Store) FinishRun(ctx context.Context, id string, finish Finish) error {
	if finish.Status == "" || finish.Status == StatusRunning {
		return fmt.Errorf("finish run %s: terminal status required", id)
	}
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, records = ?, seed = ?, detail = ? WHERE id = ?`,
		string(finish.Status), time.Now().UTC().Format(timeLayout), finish.Records,
		nullableSeed(finish.Seed), nullableString(finish.Detail), id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// RecordGroups stores per-group outcomes for a run, replacing any earlier
// entries for the same groups.
func (s *Store) RecordGroups(ctx context.Context, runID string, results []GroupResult) error {
	if len(results) == 0 {
		return nil
	}
	return withBusyRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin group tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO group_results
            (run_id, group_name, segments, exported, skipped, duration_ms, failure_kind, error)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare group insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range results {
			if _, err := stmt.ExecContext(ctx,
				runID, r.Group, r.Segments, r.Exported, r.Skipped, r.Duration.Milliseconds(),
				nullableString(r.FailureKind), nullableString(r.Error),
			); err != nil {
				return fmt.Errorf("insert group %s: %w", r.Group, err)
			}
		}
		return tx.Commit()
	})
}

// GetRun returns a run by id, or nil when it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GroupResults returns the groups recorded for a run in name order.
func (s *Store) GroupResults(ctx context.Context, runID string) ([]GroupResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_name, segments, exported, skipped, duration_ms, failure_kind, error
         FROM group_results WHERE run_id = ? ORDER BY group_name`, runID)
	if err != nil {
		return nil, fmt.Errorf("list group results: %w", err)
	}
	defer rows.Close()

	var results []GroupResult
	for rows.Next() {
		var (
			r          GroupResult
			durationMS int64
			kind       sql.NullString
			message    sql.NullString
		)
		if err := rows.Scan(&r.Group, &r.Segments, &r.Exported, &r.Skipped, &durationMS, &kind, &message); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.FailureKind = kind.String
		r.Error = message.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// MarkInterrupted closes out runs of kind left in the running state by a
// process that died, returning how many were updated. Callers must hold the
// lock that excludes other runs of the same kind.
func (s *Store) MarkInterrupted(ctx context.Context, kind Kind) (int64, error) {
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, detail = COALESCE(detail, ?) WHERE status = ? AND kind = ?`,
		string(StatusInterrupted), time.Now().UTC().Format(timeLayout), InterruptedDetail, string(StatusRunning), string(kind),
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

// Prune removes all but the newest keep runs, returning how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.exec(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		kind        string
		status      string
		startedRaw  string
		finishedRaw sql.NullString
		inputDir    sql.NullString
		outputDir   sql.NullString
		seed        sql.NullInt64
		detail      sql.NullString
	)
	if err := scanner.Scan(&run.ID, &kind, &status, &startedRaw, &finishedRaw, &inputDir, &outputDir, &run.Records, &seed, &detail); err != nil {
		return nil, err
	}
	run.Kind = Kind(kind)
	run.Status = Status(status)
	run.InputDir = inputDir.String
	run.OutputDir = outputDir.String
	run.Detail = detail.String
	if seed.Valid {
		run.Seed = uint64(seed.Int64)
	}
	if started, err := time.Parse(timeLayout, startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := time.Parse(timeLayout, finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// Seeds above math.MaxInt64 are stored by bit pattern.
func nullableSeed(seed uint64) any {
	if seed == 0 {
		return nil
	}
	return int64(seed)
}
