package store

import (
	"context"
	"database/sql"
	"fmt"
)

// WriteRun appends a run and its values in one transaction.
// Assigns r.ID from the store's generator when empty and r.Seq as the
// next logical sequence number. Uses ON CONFLICT(id) DO NOTHING for
// idempotency - rewriting an existing id is silently ignored and the
// returned Run carries the stored seq.
func (s *Store) WriteRun(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = s.ids.Generate()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return r, fmt.Errorf("write run: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, r.ID).Scan(&existing)
	switch {
	case err == nil:
		r.Seq = existing
		return r, nil
	case err != sql.ErrNoRows:
		return r, fmt.Errorf("write run: %w", err)
	}

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&r.Seq); err != nil {
		return r, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, source_path, fingerprint, status, objective, has_solution, nodes, duration_us, message, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		r.Seq,
		r.SourcePath,
		r.Fingerprint,
		r.Status,
		r.Objective,
		boolToInt(r.HasSolution),
		r.Nodes,
		r.Duration.Microseconds(),
		r.Message,
		r.Version,
	)
	if err != nil {
		return r, fmt.Errorf("write run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_values (run_id, variable, idx, position, value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return r, fmt.Errorf("write run values: %w", err)
	}
	defer stmt.Close()

	for i, v := range r.Values {
		idx, err := marshalIndex(v.Index)
		if err != nil {
			return r, fmt.Errorf("write run values: %s: %w", v.Variable, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, v.Variable, idx, i, v.Value); err != nil {
			return r, fmt.Errorf("write run values: %s%s: %w", v.Variable, v.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return r, fmt.Errorf("write run: commit: %w", err)
	}
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
