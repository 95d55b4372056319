package compiler

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/sched2bt/internal/capability"
	"github.com/roach88/sched2bt/internal/config"
	"github.com/roach88/sched2bt/internal/ir"
	"github.com/roach88/sched2bt/internal/pddl"
)

// Names of the generated domain and problem.
const (
	DomainName  = "specific_plan"
	ProblemName = "specific_scenario"
)

// Encoding is the output of the domain encoder.
type Encoding struct {
	Domain  *pddl.Domain
	Problem *pddl.Problem

	// Steps is the chronological chain, waits included. Operation steps
	// without pick or place produce no schema but keep their slot.
	Steps []ir.Step

	Goal ir.Fact

	Agent       string
	Workstation string
}

// Schemas returns the names of the chained action schemas in chain order,
// excluding the two generic movement actions.
func (enc *Encoding) Schemas() []string {
	var names []string
	for _, a := range enc.Domain.Actions {
		if a.Name == actionMoveTo || a.Name == actionMoveToWorkstation {
			continue
		}
		names = append(names, a.Name)
	}
	return names
}

// WaitDurations maps each wait schema name to its scheduled gap.
func (enc *Encoding) WaitDurations() map[string]float64 {
	out := make(map[string]float64)
	for _, s := range enc.Steps {
		if s.Kind == ir.StepWait {
			out[s.Name] = float64(s.Duration())
		}
	}
	return out
}

const (
	actionMoveTo            = "move_to"
	actionMoveToWorkstation = "move_to_workstation"
)

// Encoder converts an ordered schedule into a STRIPS domain and problem
// whose only executable plan follows the schedule.
type Encoder struct {
	cfg      *config.Config
	resolver capability.Resolver
	logger   *slog.Logger
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Encoder) {
		e.logger = l
	}
}

// NewEncoder creates an encoder.
func NewEncoder(cfg *config.Config, resolver capability.Resolver, opts ...Option) *Encoder {
	e := &Encoder{
		cfg:      cfg,
		resolver: resolver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode builds the domain and problem for ops, which must already be in
// schedule order. Intervals on non-robot resources are dropped. An empty
// robot schedule is an EmptyResultError.
func (e *Encoder) Encode(ops []ir.OperationInterval) (*Encoding, error) {
	steps, err := e.buildSteps(ops)
	if err != nil {
		return nil, err
	}

	enc := &Encoding{
		Steps:       steps,
		Agent:       e.cfg.Agent,
		Workstation: e.cfg.WorkstationLocation,
	}
	enc.Domain = e.buildDomain(steps)
	enc.Goal = e.goal(steps)
	enc.Problem = e.buildProblem(steps, enc.Goal)

	e.logger.Debug("schedule encoded",
		"steps", len(steps),
		"schemas", len(enc.Domain.Actions),
		"goal", ir.FormatFact(enc.Goal))
	return enc, nil
}

// buildSteps names operations, resolves capabilities, allocates movement
// locations and inserts a wait wherever an operation starts after the
// previous one ended.
func (e *Encoder) buildSteps(ops []ir.OperationInterval) ([]ir.Step, error) {
	var steps []ir.Step
	seen := make(map[string]bool)
	locCounter := 1
	var prevEnd int64
	havePrev := false
	opCount := 0

	for _, op := range ops {
		if !e.cfg.IsRobotResource(op.Resource) {
			e.logger.Debug("skipping non-robot interval",
				"operation", op.Operation, "job", op.Job, "resource", op.Resource)
			continue
		}
		name, err := e.operationName(op)
		if err != nil {
			e.logger.Warn("skipping operation", "error", err)
			continue
		}
		if seen[name] {
			e.logger.Warn("skipping operation", "error",
				&ir.ResolutionError{Kind: "operation", Key: name, Reason: "duplicate operation name"})
			continue
		}
		seen[name] = true

		step := ir.Step{
			Kind:     ir.StepOperation,
			Name:     name,
			Job:      op.Job,
			Resource: op.Resource,
			Start:    op.Start,
			End:      op.End,
			Tags:     e.resolver.Resolve(op.Job, name),
		}
		if len(step.Tags) == 0 {
			e.logger.Debug("operation has no capabilities", "operation", name, "job", op.Job)
		}
		if step.Tags.NeedsTool() {
			step.Tool = "tool_" + strings.ToLower(name)
			if step.Tags.Has(ir.TagPlace) && !step.Tags.Has(ir.TagPick) {
				e.logger.Warn("place without pick can never be planned", "operation", name)
			}
		}
		if step.Tags.Has(ir.TagMoveTo) {
			step.From = fmt.Sprintf("loc_%d", locCounter)
			step.To = fmt.Sprintf("loc_%d", locCounter+1)
			locCounter += 2
		}

		if havePrev && op.Start > prevEnd {
			steps = append(steps, ir.Step{Kind: ir.StepWait, Name: "wait", Start: prevEnd, End: op.Start})
		}
		steps = append(steps, step)
		prevEnd = op.End
		havePrev = true
		opCount++
	}

	if opCount == 0 {
		return nil, &ir.EmptyResultError{Stage: "encode", Reason: "no operations on robot resources"}
	}

	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Start < steps[j].Start })

	n := 0
	for i := range steps {
		if steps[i].Kind == ir.StepWait {
			n++
			steps[i].Index = n
			steps[i].Name = fmt.Sprintf("wait_%d", n)
		}
	}
	return steps, nil
}

// operationName builds OP<job number><operation number>, suffixed _CO on
// the collaborative resource. Numbers are the text after the first '_'.
func (e *Encoder) operationName(op ir.OperationInterval) (string, error) {
	_, opNum, okOp := strings.Cut(op.Operation, "_")
	_, jobNum, okJob := strings.Cut(op.Job, "_")
	if !okOp || !okJob {
		return "", &ir.ResolutionError{
			Kind:   "operation",
			Key:    op.Operation + "/" + op.Job,
			Reason: "operation and job ids need a '_' separated number",
		}
	}
	opNum, _, _ = strings.Cut(opNum, "_")
	jobNum, _, _ = strings.Cut(jobNum, "_")
	name := "OP" + jobNum + opNum
	if e.cfg.IsCollaborative(op.Resource) {
		name += "_CO"
	}
	return name, nil
}

func (e *Encoder) buildDomain(steps []ir.Step) *pddl.Domain {
	d := &pddl.Domain{
		Name:         DomainName,
		Requirements: []string{":strips", ":typing"},
		Types:        []string{"agent", "tool", "location", "operation"},
	}

	agent := []pddl.Param{{Name: "a", Type: "agent"}}
	d.Predicates = []pddl.PredicateDecl{
		{Name: ir.PredAt, Params: []pddl.Param{{Name: "a", Type: "agent"}, {Name: "l", Type: "location"}}},
		{Name: ir.PredMoveToWorkstationDone, Params: agent},
		{Name: ir.PredMoveToDone, Params: agent},
		{Name: ir.PredHolding, Params: []pddl.Param{{Name: "a", Type: "agent"}, {Name: "t", Type: "tool"}}},
		{Name: ir.PredToolAt, Params: []pddl.Param{{Name: "t", Type: "tool"}, {Name: "l", Type: "location"}}},
		{Name: ir.PredCanOperate, Params: []pddl.Param{{Name: "t", Type: "tool"}, {Name: "op", Type: "operation"}}},
		{Name: ir.PredWaitDone, Params: agent},
		{Name: ir.PredPickDone, Params: agent},
		{Name: ir.PredPlaceDone, Params: agent},
	}
	for _, op := range toolOperations(steps) {
		d.Predicates = append(d.Predicates,
			pddl.PredicateDecl{Name: ir.PickDoneName(op)},
			pddl.PredicateDecl{Name: ir.PlaceDoneName(op)})
	}
	for _, s := range steps {
		if s.Kind == ir.StepWait {
			d.Predicates = append(d.Predicates, pddl.PredicateDecl{Name: ir.WaitStepDoneName(s.Index)})
		}
	}
	for _, loc := range e.locations(steps) {
		d.Predicates = append(d.Predicates, pddl.PredicateDecl{Name: ir.ArrivedName(loc)})
	}

	move := []pddl.Param{{Name: "a", Type: "agent"}, {Name: "from", Type: "location"}, {Name: "to", Type: "location"}}
	d.Actions = append(d.Actions,
		pddl.Action{
			Name:         actionMoveTo,
			Comment:      "Generic movement",
			Params:       move,
			Precondition: []pddl.Atom{pddl.A(ir.PredAt, "?a", "?from")},
			Effect: []pddl.Literal{
				pddl.Add(pddl.A(ir.PredAt, "?a", "?to")),
				pddl.Del(pddl.A(ir.PredAt, "?a", "?from")),
				pddl.Add(pddl.A(ir.PredMoveToDone, "?a")),
			},
		},
		pddl.Action{
			Name:         actionMoveToWorkstation,
			Comment:      "Movement to the workstation",
			Params:       move,
			Precondition: []pddl.Atom{pddl.A(ir.PredAt, "?a", "?from")},
			Effect: []pddl.Literal{
				pddl.Add(pddl.A(ir.PredAt, "?a", "?to")),
				pddl.Del(pddl.A(ir.PredAt, "?a", "?from")),
				pddl.Add(pddl.A(ir.PredMoveToWorkstationDone, "?a")),
			},
		},
	)

	ws := e.cfg.WorkstationLocation
	var prev *pddl.Atom
	chain := func(pre ...pddl.Atom) []pddl.Atom {
		if prev == nil {
			return pre
		}
		return append([]pddl.Atom{*prev}, pre...)
	}
	marker := func(name string) *pddl.Atom {
		a := pddl.A(name)
		return &a
	}

	for _, s := range steps {
		if s.Kind == ir.StepWait {
			d.Actions = append(d.Actions, pddl.Action{
				Name:         s.Name,
				Comment:      fmt.Sprintf("Idle from %d to %d", s.Start, s.End),
				Params:       agent,
				Precondition: chain(),
				Effect: []pddl.Literal{
					pddl.Add(pddl.A(ir.PredWaitDone, "?a")),
					pddl.Add(pddl.A(ir.WaitStepDoneName(s.Index))),
				},
			})
			prev = marker(ir.WaitStepDoneName(s.Index))
			continue
		}

		op := strings.ToLower(s.Name)
		if s.Tags.Has(ir.TagPick) {
			d.Actions = append(d.Actions, pddl.Action{
				Name:    "pick_" + op,
				Comment: "Pick for " + s.Name,
				Params: []pddl.Param{
					{Name: "a", Type: "agent"}, {Name: "t", Type: "tool"}, {Name: "l", Type: "location"},
				},
				Precondition: chain(
					pddl.A(ir.PredToolAt, "?t", "?l"),
					pddl.A(ir.PredCanOperate, "?t", op),
					pddl.A(ir.PredAt, "?a", "?l"),
					pddl.A(ir.PredMoveToDone, "?a"),
				),
				Effect: []pddl.Literal{
					pddl.Add(pddl.A(ir.PredHolding, "?a", "?t")),
					pddl.Del(pddl.A(ir.PredToolAt, "?t", "?l")),
					pddl.Add(pddl.A(ir.PickDoneName(op))),
				},
			})
			prev = marker(ir.PickDoneName(op))
		}
		if s.Tags.Has(ir.TagPlace) {
			d.Actions = append(d.Actions, pddl.Action{
				Name:    "place_" + op,
				Comment: "Place for " + s.Name,
				Params:  []pddl.Param{{Name: "a", Type: "agent"}, {Name: "t", Type: "tool"}},
				Precondition: []pddl.Atom{
					pddl.A(ir.PredHolding, "?a", "?t"),
					pddl.A(ir.PickDoneName(op)),
					pddl.A(ir.PredCanOperate, "?t", op),
					pddl.A(ir.PredAt, "?a", ws),
				},
				Effect: []pddl.Literal{
					pddl.Add(pddl.A(ir.PredToolAt, "?t", ws)),
					pddl.Del(pddl.A(ir.PredHolding, "?a", "?t")),
					pddl.Add(pddl.A(ir.PlaceDoneName(op))),
				},
			})
			prev = marker(ir.PlaceDoneName(op))
		}
	}
	return d
}

func (e *Encoder) buildProblem(steps []ir.Step, goal ir.Fact) *pddl.Problem {
	ops := toolOperations(steps)
	tools := make([]string, len(ops))
	for i, op := range ops {
		tools[i] = "tool_" + op
	}

	p := &pddl.Problem{
		Name:   ProblemName,
		Domain: DomainName,
		Objects: []pddl.ObjectGroup{
			{Names: tools, Type: "tool"},
			{Names: e.locations(steps), Type: "location"},
			{Names: []string{e.cfg.Agent}, Type: "agent"},
			{Names: ops, Type: "operation"},
		},
	}
	for _, tool := range tools {
		p.Init = append(p.Init, pddl.FromFact(ir.ToolAt{Tool: tool, Location: e.cfg.WorkstationLocation}))
	}
	p.Init = append(p.Init, pddl.FromFact(ir.At{Agent: e.cfg.Agent, Location: e.cfg.BaseLocation}))
	for i, op := range ops {
		p.Init = append(p.Init, pddl.FromFact(ir.CanOperate{Tool: tools[i], Operation: op}))
	}
	p.Goal = []pddl.Atom{pddl.FromFact(goal)}
	return p
}

// goal is the completion of the last operation that places a tool or
// moves, scanning backwards. Operations with neither are passed over.
func (e *Encoder) goal(steps []ir.Step) ir.Fact {
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if s.Kind == ir.StepWait {
			continue
		}
		if s.Tags.Has(ir.TagPlace) && s.Tags.NeedsTool() {
			return ir.PlaceDone{Operation: strings.ToLower(s.Name)}
		}
		if s.Tags.Has(ir.TagMoveTo) {
			return ir.At{Agent: e.cfg.Agent, Location: s.To}
		}
	}
	return ir.At{Agent: e.cfg.Agent, Location: e.cfg.WorkstationLocation}
}

// locations returns the base, the workstation and every movement
// endpoint, sorted.
func (e *Encoder) locations(steps []ir.Step) []string {
	set := map[string]bool{e.cfg.BaseLocation: true, e.cfg.WorkstationLocation: true}
	for _, s := range steps {
		if s.From != "" {
			set[s.From] = true
			set[s.To] = true
		}
	}
	out := make([]string, 0, len(set))
	for loc := range set {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// toolOperations returns the lower-cased names of operations needing a
// tool, sorted.
func toolOperations(steps []ir.Step) []string {
	var out []string
	for _, s := range steps {
		if s.Kind == ir.StepOperation && s.Tags.NeedsTool() {
			out = append(out, strings.ToLower(s.Name))
		}
	}
	sort.Strings(out)
	return out
}
