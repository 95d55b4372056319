package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/sched2bt/internal/ir"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Add records f as true. Adding a present fact is a no-op.
func (s *Store) Add(ctx context.Context, f ir.Fact) error {
	if err := addFact(ctx, s.db, f); err != nil {
		return fmt.Errorf("add fact: %w", err)
	}
	return nil
}

// Remove records f as false. Removing an absent fact is a no-op.
func (s *Store) Remove(ctx context.Context, f ir.Fact) error {
	if err := removeFact(ctx, s.db, f); err != nil {
		return fmt.Errorf("remove fact: %w", err)
	}
	return nil
}

// Has reports whether f is currently true.
func (s *Store) Has(ctx context.Context, f ir.Fact) (bool, error) {
	args, err := marshalArgs(f)
	if err != nil {
		return false, err
	}
	var n int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM facts WHERE predicate = ? AND args = ?`,
		f.Predicate(), args,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("has fact: %w", err)
	}
	return n > 0, nil
}

// Facts returns every true fact ordered by predicate, then arguments.
func (s *Store) Facts(ctx context.Context) ([]ir.Fact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT predicate, args FROM facts
		ORDER BY predicate COLLATE BINARY, args COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("read facts: %w", err)
	}
	defer rows.Close()

	var out []ir.Fact
	for rows.Next() {
		var pred, args string
		if err := rows.Scan(&pred, &args); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		f, err := unmarshalFact(pred, args)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Seed adds facts in one transaction, typically the problem's initial state.
func (s *Store) Seed(ctx context.Context, facts []ir.Fact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	defer tx.Rollback()

	for _, f := range facts {
		if err := addFact(ctx, tx, f); err != nil {
			return fmt.Errorf("seed %s: %w", ir.FormatFact(f), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}

func addFact(ctx context.Context, db execer, f ir.Fact) error {
	args, err := marshalArgs(f)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO facts (predicate, args) VALUES (?, ?)
		ON CONFLICT(predicate, args) DO NOTHING
	`, f.Predicate(), args)
	return err
}

func removeFact(ctx context.Context, db execer, f ir.Fact) error {
	args, err := marshalArgs(f)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`DELETE FROM facts WHERE predicate = ? AND args = ?`,
		f.Predicate(), args)
	return err
}
