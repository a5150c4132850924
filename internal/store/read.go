package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a run id is not in the log.
var ErrNotFound = errors.New("run not found")

// ReadRun returns a run with its values. Values are ordered by their
// write position.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, source_path, fingerprint, status, objective, has_solution, nodes, duration_us, message, version
		FROM runs
		WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}

	r.Values, err = s.readValues(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

// ListRuns returns run headers without values, newest first by seq.
// A non-empty fingerprint restricts the listing to runs of that model;
// limit <= 0 means no limit.
//
// Returns an empty slice (not nil) when the log holds no matching run.
func (s *Store) ListRuns(ctx context.Context, fingerprint string, limit int) ([]Run, error) {
	query := `
		SELECT id, seq, source_path, fingerprint, status, objective, has_solution, nodes, duration_us, message, version
		FROM runs`
	var args []any
	if fingerprint != "" {
		query += ` WHERE fingerprint = ?`
		args = append(args, fingerprint)
	}
	query += ` ORDER BY seq DESC, id COLLATE BINARY ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	// Return empty slice instead of nil
	if runs == nil {
		runs = []Run{}
	}
	return runs, nil
}

func (s *Store) readValues(ctx context.Context, id string) ([]RunValue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT variable, idx, value
		FROM run_values
		WHERE run_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query run values: %w", err)
	}
	defer rows.Close()

	values := []RunValue{}
	for rows.Next() {
		var (
			v   RunValue
			idx string
		)
		if err := rows.Scan(&v.Variable, &idx, &v.Value); err != nil {
			return nil, fmt.Errorf("scan run value: %w", err)
		}
		if v.Index, err = unmarshalIndex(idx); err != nil {
			return nil, fmt.Errorf("run value %s: %w", v.Variable, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run values: %w", err)
	}
	return values, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r           Run
		hasSolution int
		durationUS  int64
	)
	err := sc.Scan(&r.ID, &r.Seq, &r.SourcePath, &r.Fingerprint, &r.Status, &r.Objective,
		&hasSolution, &r.Nodes, &durationUS, &r.Message, &r.Version)
	if err != nil {
		return Run{}, err
	}
	r.HasSolution = hasSolution != 0
	r.Duration = time.Duration(durationUS) * time.Microsecond
	return r, nil
}
