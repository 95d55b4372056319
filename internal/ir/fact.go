package ir

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Fixed predicate names of the planning vocabulary.
const (
	PredAt                    = "at"
	PredToolAt                = "tool_at"
	PredHolding               = "holding"
	PredCanOperate            = "can_operate"
	PredWaitDone              = "wait_done"
	PredMoveToDone            = "move_to_done"
	PredMoveToWorkstationDone = "move_to_workstation_done"
	PredPickDone              = "pick_done"
	PredPlaceDone             = "place_done"
)

// Fact is a ground predicate instance. Each variant has a fixed, ordered
// parameter list, so a fact can never be missing an argument.
type Fact interface {
	Predicate() string
	Bindings() []Binding
	fact() // sealed
}

// Binding names one parameter of a fact (a, l, t, op).
type Binding struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// At is at(agent, location).
type At struct{ Agent, Location string }

// ToolAt is tool_at(tool, location).
type ToolAt struct{ Tool, Location string }

// Holding is holding(agent, tool).
type Holding struct{ Agent, Tool string }

// CanOperate is can_operate(tool, operation).
type CanOperate struct{ Tool, Operation string }

// WaitDone is wait_done(agent).
type WaitDone struct{ Agent string }

// MoveToDone is move_to_done(agent).
type MoveToDone struct{ Agent string }

// MoveToWorkstationDone is move_to_workstation_done(agent).
type MoveToWorkstationDone struct{ Agent string }

// PickDone is the zero-arity pick_<op>_done marker.
type PickDone struct{ Operation string }

// PlaceDone is the zero-arity place_<op>_done marker.
type PlaceDone struct{ Operation string }

// WaitStepDone is the zero-arity wait_<n>_done marker.
type WaitStepDone struct{ Index int }

// Arrived is the zero-arity move_to_<destination>_done marker.
type Arrived struct{ Destination string }

func (At) fact()                    {}
func (ToolAt) fact()                {}
func (Holding) fact()               {}
func (CanOperate) fact()            {}
func (WaitDone) fact()              {}
func (MoveToDone) fact()            {}
func (MoveToWorkstationDone) fact() {}
func (PickDone) fact()              {}
func (PlaceDone) fact()             {}
func (WaitStepDone) fact()          {}
func (Arrived) fact()               {}

func (At) Predicate() string                    { return PredAt }
func (ToolAt) Predicate() string                { return PredToolAt }
func (Holding) Predicate() string               { return PredHolding }
func (CanOperate) Predicate() string            { return PredCanOperate }
func (WaitDone) Predicate() string              { return PredWaitDone }
func (MoveToDone) Predicate() string            { return PredMoveToDone }
func (MoveToWorkstationDone) Predicate() string { return PredMoveToWorkstationDone }
func (f PickDone) Predicate() string            { return PickDoneName(f.Operation) }
func (f PlaceDone) Predicate() string           { return PlaceDoneName(f.Operation) }
func (f WaitStepDone) Predicate() string        { return WaitStepDoneName(f.Index) }
func (f Arrived) Predicate() string             { return ArrivedName(f.Destination) }

func (f At) Bindings() []Binding         { return []Binding{{"a", f.Agent}, {"l", f.Location}} }
func (f ToolAt) Bindings() []Binding     { return []Binding{{"t", f.Tool}, {"l", f.Location}} }
func (f Holding) Bindings() []Binding    { return []Binding{{"a", f.Agent}, {"t", f.Tool}} }
func (f CanOperate) Bindings() []Binding { return []Binding{{"t", f.Tool}, {"op", f.Operation}} }
func (f WaitDone) Bindings() []Binding   { return []Binding{{"a", f.Agent}} }
func (f MoveToDone) Bindings() []Binding { return []Binding{{"a", f.Agent}} }
func (f MoveToWorkstationDone) Bindings() []Binding {
	return []Binding{{"a", f.Agent}}
}
func (PickDone) Bindings() []Binding     { return nil }
func (PlaceDone) Bindings() []Binding    { return nil }
func (WaitStepDone) Bindings() []Binding { return nil }
func (Arrived) Bindings() []Binding      { return nil }

// PickDoneName returns the synthesized pick marker name for an operation.
func PickDoneName(op string) string { return "pick_" + strings.ToLower(op) + "_done" }

// PlaceDoneName returns the synthesized place marker name for an operation.
func PlaceDoneName(op string) string { return "place_" + strings.ToLower(op) + "_done" }

// WaitStepDoneName returns the marker name for the n-th wait.
func WaitStepDoneName(n int) string { return "wait_" + strconv.Itoa(n) + "_done" }

// ArrivedName returns the per-destination movement marker name.
func ArrivedName(dest string) string { return "move_to_" + strings.ToLower(dest) + "_done" }

// Args returns the fact's arguments in signature order.
func Args(f Fact) []string {
	bs := f.Bindings()
	args := make([]string, len(bs))
	for i, b := range bs {
		args[i] = b.Value
	}
	return args
}

// FormatFact renders a fact in PDDL syntax, e.g. "(at agent_r loc_base)".
func FormatFact(f Fact) string {
	args := Args(f)
	if len(args) == 0 {
		return "(" + f.Predicate() + ")"
	}
	return "(" + f.Predicate() + " " + strings.Join(args, " ") + ")"
}

// FactObject returns the canonical object form of a fact.
func FactObject(f Fact) Object {
	return ObjectOf(
		P("predicate", String(f.Predicate())),
		P("args", Strings(Args(f)...)),
	)
}

// NormalizeFact lower-cases every argument of a fact. PDDL identifiers are
// case-insensitive but the knowledge base compares bytes.
func NormalizeFact(f Fact) Fact {
	lc := strings.ToLower
	switch v := f.(type) {
	case At:
		return At{lc(v.Agent), lc(v.Location)}
	case ToolAt:
		return ToolAt{lc(v.Tool), lc(v.Location)}
	case Holding:
		return Holding{lc(v.Agent), lc(v.Tool)}
	case CanOperate:
		return CanOperate{lc(v.Tool), lc(v.Operation)}
	case WaitDone:
		return WaitDone{lc(v.Agent)}
	case MoveToDone:
		return MoveToDone{lc(v.Agent)}
	case MoveToWorkstationDone:
		return MoveToWorkstationDone{lc(v.Agent)}
	case PickDone:
		return PickDone{lc(v.Operation)}
	case PlaceDone:
		return PlaceDone{lc(v.Operation)}
	case Arrived:
		return Arrived{lc(v.Destination)}
	default:
		return f
	}
}

var (
	waitStepRe = regexp.MustCompile(`^wait_(\d+)_done$`)
	arrivedRe  = regexp.MustCompile(`^move_to_(.+)_done$`)
	pickRe     = regexp.MustCompile(`^pick_(.+)_done$`)
	placeRe    = regexp.MustCompile(`^place_(.+)_done$`)
)

// ParseFact rebuilds a fact from its predicate name and arguments.
// It is the inverse of Predicate/Args and is used when reading the
// knowledge store and behavior descriptions.
func ParseFact(predicate string, args []string) (Fact, error) {
	want := func(n int) error {
		if len(args) != n {
			return &ParseError{
				Source: "fact",
				Text:   predicate,
				Reason: fmt.Sprintf("expected %d arguments, got %d", n, len(args)),
			}
		}
		return nil
	}

	switch predicate {
	case PredAt:
		if err := want(2); err != nil {
			return nil, err
		}
		return At{args[0], args[1]}, nil
	case PredToolAt:
		if err := want(2); err != nil {
			return nil, err
		}
		return ToolAt{args[0], args[1]}, nil
	case PredHolding:
		if err := want(2); err != nil {
			return nil, err
		}
		return Holding{args[0], args[1]}, nil
	case PredCanOperate:
		if err := want(2); err != nil {
			return nil, err
		}
		return CanOperate{args[0], args[1]}, nil
	case PredWaitDone:
		if err := want(1); err != nil {
			return nil, err
		}
		return WaitDone{args[0]}, nil
	case PredMoveToDone:
		if err := want(1); err != nil {
			return nil, err
		}
		return MoveToDone{args[0]}, nil
	case PredMoveToWorkstationDone:
		if err := want(1); err != nil {
			return nil, err
		}
		return MoveToWorkstationDone{args[0]}, nil
	}

	if err := want(0); err != nil {
		return nil, err
	}
	if m := waitStepRe.FindStringSubmatch(predicate); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, &ParseError{Source: "fact", Text: predicate, Reason: err.Error()}
		}
		return WaitStepDone{n}, nil
	}
	if m := arrivedRe.FindStringSubmatch(predicate); m != nil {
		return Arrived{m[1]}, nil
	}
	if m := pickRe.FindStringSubmatch(predicate); m != nil {
		return PickDone{m[1]}, nil
	}
	if m := placeRe.FindStringSubmatch(predicate); m != nil {
		return PlaceDone{m[1]}, nil
	}
	return nil, &ParseError{Source: "fact", Text: predicate, Reason: "unknown predicate"}
}
