package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/sched2bt/internal/ir"
)

// RunSummary describes one run in the effect log.
type RunSummary struct {
	RunID    string
	Effects  int
	FirstSeq int64
	LastSeq  int64
}

// Runs lists every run in the effect log, ordered by first seq.
func (s *Store) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, COUNT(*), MIN(seq), MAX(seq) FROM effects
		GROUP BY run_id
		ORDER BY MIN(seq), run_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Effects, &r.FirstSeq, &r.LastSeq); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Replay applies log, in seq order, to the initial fact set and returns
// the resulting facts sorted the way Facts orders them. Replaying a run's
// log over the facts seeded before it reproduces the store's final state.
func Replay(initial []ir.Fact, log []EffectRecord) ([]ir.Fact, error) {
	state := make(map[string]ir.Fact, len(initial))
	keyOf := func(f ir.Fact) (string, error) {
		args, err := marshalArgs(f)
		if err != nil {
			return "", err
		}
		return f.Predicate() + "\x00" + args, nil
	}
	for _, f := range initial {
		k, err := keyOf(f)
		if err != nil {
			return nil, err
		}
		state[k] = f
	}

	ordered := append([]EffectRecord(nil), log...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })
	for _, rec := range ordered {
		k, err := keyOf(rec.Fact)
		if err != nil {
			return nil, err
		}
		switch rec.Op {
		case "add":
			state[k] = rec.Fact
		case "remove":
			delete(state, k)
		default:
			return nil, fmt.Errorf("replay: seq %d: unknown op %q", rec.Seq, rec.Op)
		}
	}

	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ir.Fact, 0, len(keys))
	for _, k := range keys {
		out = append(out, state[k])
	}
	return out, nil
}
