package pddl

import (
	"fmt"
	"sort"
	"strings"
)

// GroundAction is one instantiated plan step, "(pick_op11 agent_r tool_op11 loc_workstation)".
type GroundAction struct {
	Name string
	Args []string
}

func (g GroundAction) String() string {
	return "(" + joinNonEmpty(g.Name, strings.Join(g.Args, " ")) + ")"
}

// State is a set of ground atoms keyed by Atom.Key.
type State map[string]Atom

// NewState builds a state from atoms.
func NewState(atoms ...Atom) State {
	s := make(State, len(atoms))
	for _, a := range atoms {
		s[a.Key()] = a
	}
	return s
}

// Holds reports whether a ground atom is true.
func (s State) Holds(a Atom) bool {
	_, ok := s[a.Key()]
	return ok
}

// Atoms returns the true atoms sorted by key.
func (s State) Atoms() []Atom {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Atom, len(keys))
	for i, k := range keys {
		out[i] = s[k]
	}
	return out
}

// SimulationError reports the first plan step that cannot execute, or an
// unmet goal when Step is -1.
type SimulationError struct {
	Step   int
	Action string
	Reason string
}

func (e *SimulationError) Error() string {
	if e.Step < 0 {
		return "goal not satisfied: " + e.Reason
	}
	return fmt.Sprintf("step %d %s: %s", e.Step, e.Action, e.Reason)
}

// Apply executes one ground action against s under STRIPS semantics:
// every precondition must hold, deletes apply before adds.
func Apply(d *Domain, p *Problem, s State, g GroundAction) error {
	schema, ok := d.Action(g.Name)
	if !ok {
		return fmt.Errorf("unknown action %q", g.Name)
	}
	if len(g.Args) != len(schema.Params) {
		return fmt.Errorf("expected %d arguments, got %d", len(schema.Params), len(g.Args))
	}

	binding := make(map[string]string, len(g.Args))
	for i, param := range schema.Params {
		arg := g.Args[i]
		typ, ok := p.ObjectType(arg)
		if !ok {
			return fmt.Errorf("unknown object %q", arg)
		}
		if !strings.EqualFold(typ, param.Type) {
			return fmt.Errorf("object %q is a %s, parameter ?%s wants %s", arg, typ, param.Name, param.Type)
		}
		binding[param.Name] = arg
	}

	for _, pre := range schema.Precondition {
		atom := bind(pre, binding)
		if !s.Holds(atom) {
			return fmt.Errorf("precondition %s does not hold", RenderAtom(atom))
		}
	}
	for _, eff := range schema.Effect {
		if eff.Negated {
			delete(s, bind(eff.Atom, binding).Key())
		}
	}
	for _, eff := range schema.Effect {
		if !eff.Negated {
			atom := bind(eff.Atom, binding)
			s[atom.Key()] = atom
		}
	}
	return nil
}

// Simulate runs plan from the problem's initial state and checks the goal.
// It returns the final state, also on error.
func Simulate(d *Domain, p *Problem, plan []GroundAction) (State, error) {
	s := NewState(p.Init...)
	for i, g := range plan {
		if err := Apply(d, p, s, g); err != nil {
			return s, &SimulationError{Step: i, Action: g.String(), Reason: err.Error()}
		}
	}
	for _, goal := range p.Goal {
		if !s.Holds(goal) {
			return s, &SimulationError{Step: -1, Reason: RenderAtom(goal)}
		}
	}
	return s, nil
}

// Applicable returns the candidates that can execute in s, leaving s
// unchanged.
func Applicable(d *Domain, p *Problem, s State, candidates []GroundAction) []GroundAction {
	var out []GroundAction
	for _, g := range candidates {
		trial := make(State, len(s))
		for k, v := range s {
			trial[k] = v
		}
		if Apply(d, p, trial, g) == nil {
			out = append(out, g)
		}
	}
	return out
}

func bind(a Atom, binding map[string]string) Atom {
	terms := make([]string, len(a.Terms))
	for i, t := range a.Terms {
		if name, ok := strings.CutPrefix(t, "?"); ok {
			terms[i] = binding[name]
		} else {
			terms[i] = t
		}
	}
	return Atom{Predicate: a.Predicate, Terms: terms}
}
