// Package capability resolves an operation to the elementary actions it
// requires (pick, place, move_to).
//
// The lookup table is external data shaped as
//
//	{"jobs": {"j_1": {"operations": {"OP11": ["pick", "place"]}}}}
//
// and may be written as JSON or YAML.
package capability

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sched2bt/internal/config"
	"github.com/roach88/sched2bt/internal/ir"
)

//go:embed schema.cue
var schemaCUE []byte

// Resolver maps an operation of a job to its capability tags.
// Unknown operations resolve to an empty set, never an error.
type Resolver interface {
	Resolve(job, operation string) ir.TagSet
}

type wireTable struct {
	Jobs map[string]wireJob `yaml:"jobs" json:"jobs"`
}

type wireJob struct {
	Operations map[string][]string `yaml:"operations" json:"operations"`
}

// Table is an immutable capability table.
type Table struct {
	jobs map[string]map[string]ir.TagSet
}

var _ Resolver = (*Table)(nil)

// New builds a table from job -> operation -> tags. Duplicate tags are
// dropped, first occurrence wins.
func New(jobs map[string]map[string][]ir.Tag) *Table {
	t := &Table{jobs: make(map[string]map[string]ir.TagSet, len(jobs))}
	for job, ops := range jobs {
		m := make(map[string]ir.TagSet, len(ops))
		for op, tags := range ops {
			m[config.BaseOperation(op)] = dedupe(tags)
		}
		t.jobs[job] = m
	}
	return t
}

// Load reads a table from a JSON or YAML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ir.IOError{Op: "read", Path: path, Err: err}
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("capabilities %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes and validates a table. JSON is accepted as YAML.
func Parse(data []byte) (*Table, error) {
	var w wireTable
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, &ir.ParseError{Source: "capabilities", Text: firstLine(data), Reason: err.Error()}
	}
	if err := validate(&w); err != nil {
		return nil, err
	}

	jobs := make(map[string]map[string][]ir.Tag, len(w.Jobs))
	for job, j := range w.Jobs {
		ops := make(map[string][]ir.Tag, len(j.Operations))
		for op, tags := range j.Operations {
			for _, tag := range tags {
				ops[op] = append(ops[op], ir.Tag(tag))
			}
		}
		jobs[job] = ops
	}
	return New(jobs), nil
}

// Resolve returns the tags of an operation. The collaborative suffix of
// the operation name is ignored.
func (t *Table) Resolve(job, operation string) ir.TagSet {
	tags := t.jobs[job][config.BaseOperation(operation)]
	if len(tags) == 0 {
		return nil
	}
	return append(ir.TagSet(nil), tags...)
}

// Len returns the number of operations in the table.
func (t *Table) Len() int {
	n := 0
	for _, ops := range t.jobs {
		n += len(ops)
	}
	return n
}

func validate(w *wireTable) error {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Table")).Unify(ctx.Encode(w))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return &ir.ParseError{Source: "capabilities", Reason: "schema violation", Text: err.Error()}
	}
	return nil
}

func dedupe(tags []ir.Tag) ir.TagSet {
	out := make(ir.TagSet, 0, len(tags))
	for _, tag := range tags {
		if !out.Has(tag) {
			out = append(out, tag)
		}
	}
	return out
}

func firstLine(data []byte) string {
	s, _, _ := strings.Cut(string(data), "\n")
	return s
}
