package compiler

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/sched2bt/internal/ir"
	"github.com/roach88/sched2bt/internal/pddl"
)

// PlanLine is one timestamped action of a grounded plan.
type PlanLine struct {
	Time     float64
	Action   pddl.GroundAction
	Duration float64
}

// Linearize returns the plan the encoding forces: the chained schemas in
// order, with a generic move_to inserted wherever a step needs the agent
// somewhere else, and a final move when the goal is a location. Moves are
// the only freedom the domain leaves, so this is the plan any planner
// returns up to movement choices.
//
// Operations tagged only move_to move the agent to their destination.
// Timestamps advance by one per action and by the gap for waits.
// The result is checked with pddl.Simulate before it is returned.
func Linearize(enc *Encoding) ([]PlanLine, error) {
	agent := enc.Agent
	state := pddl.NewState(enc.Problem.Init...)

	var lines []PlanLine
	now := 0.0
	emit := func(dur float64, name string, args ...string) error {
		g := pddl.GroundAction{Name: name, Args: args}
		if err := pddl.Apply(enc.Domain, enc.Problem, state, g); err != nil {
			return &pddl.SimulationError{Step: len(lines), Action: g.String(), Reason: err.Error()}
		}
		lines = append(lines, PlanLine{Time: now, Action: g, Duration: dur})
		now += dur
		return nil
	}
	location := func() string {
		for _, a := range state.Atoms() {
			if a.Predicate == ir.PredAt && len(a.Terms) == 2 && strings.EqualFold(a.Terms[0], agent) {
				return a.Terms[1]
			}
		}
		return ""
	}
	moveTo := func(dest string, force bool) error {
		from := location()
		if !force && strings.EqualFold(from, dest) {
			return nil
		}
		return emit(1, actionMoveTo, agent, from, dest)
	}

	for _, s := range enc.Steps {
		if s.Kind == ir.StepWait {
			if err := emit(float64(s.Duration()), s.Name, agent); err != nil {
				return nil, err
			}
			continue
		}

		op := strings.ToLower(s.Name)
		if !s.Tags.NeedsTool() && s.Tags.Has(ir.TagMoveTo) {
			if err := moveTo(s.To, false); err != nil {
				return nil, err
			}
		}
		if s.Tags.Has(ir.TagPick) {
			loc := toolLocation(state, s.Tool)
			needMarker := !state.Holds(pddl.FromFact(ir.MoveToDone{Agent: agent}))
			if err := moveTo(loc, needMarker); err != nil {
				return nil, err
			}
			if err := emit(1, "pick_"+op, agent, s.Tool, loc); err != nil {
				return nil, err
			}
		}
		if s.Tags.Has(ir.TagPlace) {
			if err := moveTo(enc.Workstation, false); err != nil {
				return nil, err
			}
			if err := emit(1, "place_"+op, agent, s.Tool); err != nil {
				return nil, err
			}
		}
	}

	if at, ok := enc.Goal.(ir.At); ok {
		if err := moveTo(at.Location, false); err != nil {
			return nil, err
		}
	}

	plan := make([]pddl.GroundAction, len(lines))
	for i, l := range lines {
		plan[i] = l.Action
	}
	if _, err := pddl.Simulate(enc.Domain, enc.Problem, plan); err != nil {
		return nil, fmt.Errorf("linearized plan does not solve the problem: %w", err)
	}
	return lines, nil
}

// WritePlan writes lines in the planner output grammar:
//
//	0.000: (move_to agent_r loc_base loc_workstation) [1.000]
func WritePlan(w io.Writer, lines []PlanLine) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		fmt.Fprintf(bw, "%.3f: %s [%.3f]\n", l.Time, l.Action, l.Duration)
	}
	return bw.Flush()
}

func toolLocation(s pddl.State, tool string) string {
	for _, a := range s.Atoms() {
		if a.Predicate == ir.PredToolAt && len(a.Terms) == 2 && strings.EqualFold(a.Terms[0], tool) {
			return a.Terms[1]
		}
	}
	return ""
}
