package ir

import "fmt"

// Resource identifies who carries out an operation in the solved schedule.
type Resource string

const (
	ResourceRobot         Resource = "R"
	ResourceHuman         Resource = "H"
	ResourceCollaborative Resource = "Co"
)

// OperationInterval is one retained record of the solved schedule.
// Invariant: Start < End (zero-length intervals never leave the loader).
type OperationInterval struct {
	Operation string   `json:"operation"`
	Job       string   `json:"job"`
	Resource  Resource `json:"resource"`
	Start     int64    `json:"start"`
	End       int64    `json:"end"`
}

// Duration returns End - Start.
func (o OperationInterval) Duration() int64 {
	return o.End - o.Start
}

// Tag is an elementary capability an operation requires.
type Tag string

const (
	TagPick   Tag = "pick"
	TagPlace  Tag = "place"
	TagMoveTo Tag = "move_to"
)

// ValidTags lists the closed tag vocabulary.
var ValidTags = map[Tag]bool{
	TagPick:   true,
	TagPlace:  true,
	TagMoveTo: true,
}

// TagSet is an ordered set of capability tags, in capability-table order.
type TagSet []Tag

// Has reports whether t is in the set.
func (s TagSet) Has(t Tag) bool {
	for _, x := range s {
		if x == t {
			return true
		}
	}
	return false
}

// NeedsTool reports whether the operation picks or places a tool.
func (s TagSet) NeedsTool() bool {
	return s.Has(TagPick) || s.Has(TagPlace)
}

// StepKind distinguishes scheduled operations from synthesized idle time.
type StepKind string

const (
	StepOperation StepKind = "operation"
	StepWait      StepKind = "wait"
)

// Step is one link of the chronological chain built by the encoder.
type Step struct {
	Kind     StepKind `json:"kind"`
	Name     string   `json:"name"` // OP11, OP22_CO, wait_1
	Job      string   `json:"job,omitempty"`
	Resource Resource `json:"resource,omitempty"`
	Start    int64    `json:"start"`
	End      int64    `json:"end"`
	Tags     TagSet   `json:"tags,omitempty"`

	// Tool is set when Tags.NeedsTool().
	Tool string `json:"tool,omitempty"`

	// From and To are set when Tags has move_to.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// Index is the 1-based wait number for wait steps.
	Index int `json:"index,omitempty"`
}

// Duration returns End - Start. For waits this is the idle gap.
func (s Step) Duration() int64 {
	return s.End - s.Start
}

// ActionKind is the kind of a grounded plan action.
type ActionKind string

const (
	ActionMoveTo ActionKind = "move_to"
	ActionPick   ActionKind = "pick"
	ActionPlace  ActionKind = "place"
	ActionWait   ActionKind = "wait"
)

// PlannedAction is one decoded line of a grounded plan.
// Produced by the plan decoder, consumed by the assembler, never mutated.
type PlannedAction struct {
	Key       string     `json:"key"`  // ACTION_NAME_<timestamp>
	Name      string     `json:"name"` // upper-cased action name
	Timestamp float64    `json:"timestamp"`
	Kind      ActionKind `json:"kind"`
	Agent     string     `json:"agent"`

	// move_to
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// pick / place; Location is empty for a two-parameter place.
	Tool     string `json:"tool,omitempty"`
	Location string `json:"location,omitempty"`
	OpKey    string `json:"op_key,omitempty"`

	// Duration is the planner's bracketed duration, or for waits the
	// execution duration.
	Duration float64 `json:"duration,omitempty"`
}

func (a PlannedAction) String() string {
	switch a.Kind {
	case ActionMoveTo:
		return fmt.Sprintf("%.3f %s %s %s->%s", a.Timestamp, a.Kind, a.Agent, a.From, a.To)
	case ActionPick, ActionPlace:
		return fmt.Sprintf("%.3f %s %s %s@%s (%s)", a.Timestamp, a.Kind, a.Agent, a.Tool, a.Location, a.OpKey)
	default:
		return fmt.Sprintf("%.3f %s %s", a.Timestamp, a.Kind, a.Agent)
	}
}
