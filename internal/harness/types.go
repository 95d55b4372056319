package harness

import (
	"fmt"

	"github.com/roach88/sched2bt/internal/assembler"
	"github.com/roach88/sched2bt/internal/compiler"
	"github.com/roach88/sched2bt/internal/engine"
	"github.com/roach88/sched2bt/internal/ir"
	"github.com/roach88/sched2bt/internal/store"
)

// Result is the outcome of a scenario: every intermediate product of the
// pipeline plus the expectation check.
type Result struct {
	// Pass is true when every expectation matched.
	Pass   bool
	Errors []string

	// Err is the pipeline error, nil when every stage completed.
	Err error

	Operations []ir.OperationInterval
	Encoding   *compiler.Encoding
	Artifacts  compiler.Artifacts
	Plan       string
	Actions    []ir.PlannedAction
	Tree       *assembler.Tree
	Report     *engine.Report
	Effects    []store.EffectRecord
	FinalFacts []string

	// Replayed is the effect log applied to the seeded facts. It must
	// equal FinalFacts.
	Replayed []string
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError records a failed expectation.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}
