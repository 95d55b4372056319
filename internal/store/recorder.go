package store

import (
	"context"
	"fmt"

	"github.com/roach88/sched2bt/internal/engine"
)

// Recorder adapts a Store to engine.KnowledgeStore. Each effect updates
// the facts table and appends to the log in one transaction.
type Recorder struct {
	store *Store
}

// NewRecorder creates a recorder writing to s.
func NewRecorder(s *Store) *Recorder {
	return &Recorder{store: s}
}

// Apply implements engine.KnowledgeStore.
func (r *Recorder) Apply(ctx context.Context, e engine.Effect) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply effect: %w", err)
	}
	defer tx.Rollback()

	switch e.Op {
	case engine.EffectAdd:
		err = addFact(ctx, tx, e.Fact)
	case engine.EffectRemove:
		err = removeFact(ctx, tx, e.Fact)
	default:
		err = fmt.Errorf("unknown effect op %q", e.Op)
	}
	if err != nil {
		return fmt.Errorf("apply effect %d: %w", e.Seq, err)
	}

	rec := EffectRecord{RunID: e.RunID, Seq: e.Seq, Guard: e.Guard, Op: string(e.Op), Fact: e.Fact}
	if err := logEffect(ctx, tx, rec); err != nil {
		return fmt.Errorf("apply effect %d: %w", e.Seq, err)
	}
	return tx.Commit()
}
