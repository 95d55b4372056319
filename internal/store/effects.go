package store

import (
	"context"
	"fmt"

	"github.com/roach88/sched2bt/internal/ir"
)

// EffectRecord is one row of the effect log.
type EffectRecord struct {
	RunID string
	Seq   int64
	Guard string
	Op    string // "add" or "remove"
	Fact  ir.Fact
}

// LogEffect appends rec to the effect log. A (run_id, seq) pair that was
// already logged is ignored.
func (s *Store) LogEffect(ctx context.Context, rec EffectRecord) error {
	if err := logEffect(ctx, s.db, rec); err != nil {
		return fmt.Errorf("log effect: %w", err)
	}
	return nil
}

func logEffect(ctx context.Context, db execer, rec EffectRecord) error {
	args, err := marshalArgs(rec.Fact)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO effects (run_id, seq, guard, op, predicate, args)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, rec.RunID, rec.Seq, rec.Guard, rec.Op, rec.Fact.Predicate(), args)
	return err
}

// Effects returns the log of one run in seq order.
func (s *Store) Effects(ctx context.Context, runID string) ([]EffectRecord, error) {
	return s.queryEffects(ctx, `
		SELECT run_id, seq, guard, op, predicate, args FROM effects
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// GuardEffects returns the writes one guard made during a run, in seq order.
func (s *Store) GuardEffects(ctx context.Context, runID, guard string) ([]EffectRecord, error) {
	return s.queryEffects(ctx, `
		SELECT run_id, seq, guard, op, predicate, args FROM effects
		WHERE run_id = ? AND guard = ?
		ORDER BY seq ASC
	`, runID, guard)
}

func (s *Store) queryEffects(ctx context.Context, query string, args ...any) ([]EffectRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read effects: %w", err)
	}
	defer rows.Close()

	var out []EffectRecord
	for rows.Next() {
		var rec EffectRecord
		var pred, factArgs string
		if err := rows.Scan(&rec.RunID, &rec.Seq, &rec.Guard, &rec.Op, &pred, &factArgs); err != nil {
			return nil, fmt.Errorf("scan effect: %w", err)
		}
		if rec.Fact, err = unmarshalFact(pred, factArgs); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MaxSeq returns the highest seq logged across all runs, 0 when empty.
// Resuming a clock from it keeps seq increasing across runs in one file.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM effects`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq, nil
}
