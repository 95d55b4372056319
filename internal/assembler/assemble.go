// Package assembler compiles a decoded plan into a behavior description:
// a sequential root holding one guarded subtree per action, in plan order.
package assembler

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/sched2bt/internal/config"
	"github.com/roach88/sched2bt/internal/ir"
)

// RootName is the name of the description root.
const RootName = "RootSequence"

// Assembler builds behavior descriptions from planned actions.
type Assembler struct {
	cfg    *config.Config
	logger *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = l
	}
}

// New creates an assembler reading locations, poses and markers from cfg.
func New(cfg *config.Config, opts ...Option) *Assembler {
	a := &Assembler{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds the description. Actions that cannot be resolved are
// logged and skipped, except a pick whose location has no inversion,
// which aborts: its failure effects could not restore a consistent world.
func (a *Assembler) Assemble(actions []ir.PlannedAction) (*Tree, error) {
	if len(actions) == 0 {
		return nil, &ir.EmptyResultError{Stage: "assemble", Reason: "no actions"}
	}

	root := &Node{Kind: KindSequence, Name: RootName}
	for _, act := range actions {
		var sub *Node
		var err error
		switch act.Kind {
		case ir.ActionMoveTo:
			sub, err = a.move(act)
		case ir.ActionWait:
			sub = a.wait(act)
		case ir.ActionPick:
			sub, err = a.pick(act)
		case ir.ActionPlace:
			sub = a.place(act)
		default:
			err = &ir.ResolutionError{Kind: "action", Key: act.Key, Reason: "unknown kind " + string(act.Kind)}
		}
		if err != nil {
			if ir.IsFatal(err) {
				return nil, err
			}
			a.logger.Warn("skipping action", "key", act.Key, "error", err)
			continue
		}
		root.Children = append(root.Children, sub)
	}

	if len(root.Children) == 0 {
		return nil, &ir.EmptyResultError{Stage: "assemble", Reason: "every action was skipped"}
	}
	t := &Tree{Root: root}
	a.logger.Debug("description assembled", "subtrees", len(root.Children))
	return t, nil
}

func (a *Assembler) move(act ir.PlannedAction) (*Node, error) {
	agent, from, to := lc(act.Agent), lc(act.From), lc(act.To)
	pose, ok := a.cfg.Pose(to)
	if !ok {
		return nil, &ir.ResolutionError{Kind: "location", Key: to, Reason: "no coordinates"}
	}
	leaf := &Node{
		Kind:       KindLeaf,
		Name:       "Move to " + to,
		Capability: CapMoveBase,
		Params: []Param{
			{"location", to},
			{"x", num(pose.X)},
			{"y", num(pose.Y)},
			{"orientation_z", num(pose.OrientationZ)},
			{"orientation_w", num(pose.OrientationW)},
		},
	}
	return guard("MoveDecorator_"+act.Key, &Effects{
		SuccessAdd:    []ir.Fact{ir.At{Agent: agent, Location: to}, ir.Arrived{Destination: to}},
		SuccessRemove: []ir.Fact{ir.At{Agent: agent, Location: from}},
	}, sequence("MoveSequence_"+act.Key, leaf)), nil
}

func (a *Assembler) wait(act ir.PlannedAction) *Node {
	leaf := &Node{
		Kind:       KindLeaf,
		Name:       "WaitAction_" + act.Key,
		Capability: CapWait,
		Params:     []Param{{"duration", num(act.Duration)}},
	}
	return guard("WaitDecorator_"+act.Key, &Effects{
		SuccessAdd: []ir.Fact{ir.WaitDone{Agent: lc(act.Agent)}},
	}, sequence("WaitSequence_"+act.Key, leaf))
}

func (a *Assembler) pick(act ir.PlannedAction) (*Node, error) {
	agent, tool, loc, op := lc(act.Agent), lc(act.Tool), lc(act.Location), lc(act.OpKey)
	opposite, ok := a.cfg.Invert(loc)
	if !ok {
		return nil, &ir.ResolutionError{Kind: "inversion", Key: loc, Fatal: true, Reason: "no opposite location for pick failure recovery"}
	}
	marker := a.marker(act.OpKey, func(m config.MarkerPair) int { return m.Pick })
	topic := a.cfg.Topic(marker)
	k := act.Key

	check := func(name string) *Node {
		return &Node{Kind: KindLeaf, Name: name, Capability: CapCheckMarker,
			Params: []Param{{"topic", topic}, {"timeout", markerTimeout}}}
	}
	detect := &Node{Kind: KindSelector, Name: "DetectionSelector_" + k, Children: []*Node{
		check("CheckAruco_" + k),
		sequence("ObserveAndCheck_"+k,
			leaf("ObserveTableAction_"+k, CapObserveTable),
			check("CheckAruco_"+k+"_Again")),
	}}
	seq := sequence("PickSequence_"+k,
		detect,
		leaf("PreGraspArmRight_"+k, CapPreGraspArm),
		markerLeaf("MoveItAruco_"+k, marker),
		leaf("RotateBeforeGrasp_"+k, CapRotateBeforeGrasp),
		leaf("FinalGrasp_"+k, CapFinalGrasp),
		leaf("CloseGripperRight_"+k, CapCloseGripper),
		leaf("ArmRightHome_"+k, CapArmHome),
		leaf("LookForwardAndRaise_"+k, CapLookForwardRaise),
	)
	return guard("PickDecorator_"+k, &Effects{
		SuccessAdd:    []ir.Fact{ir.Holding{Agent: agent, Tool: tool}, ir.PickDone{Operation: op}},
		FailureAdd:    []ir.Fact{ir.ToolAt{Tool: tool, Location: opposite}},
		FailureRemove: []ir.Fact{ir.ToolAt{Tool: tool, Location: loc}},
	}, seq), nil
}

func (a *Assembler) place(act ir.PlannedAction) *Node {
	agent, tool, op := lc(act.Agent), lc(act.Tool), lc(act.OpKey)
	loc := lc(act.Location)
	if loc == "" {
		loc = a.cfg.WorkstationLocation
	}
	marker := a.marker(act.OpKey, func(m config.MarkerPair) int { return m.Place })
	k := act.Key

	seq := sequence("PlaceSequence_"+k,
		markerLeaf("MoveItPlace_"+k, marker),
		leaf("OpenGripperRight_"+k, CapOpenGripper),
		leaf("ArmRightHome_"+k, CapArmHome),
		leaf("LookForwardAndRaise_"+k, CapLookForwardRaise),
	)
	return guard("PlaceDecorator_"+k, &Effects{
		SuccessAdd:    []ir.Fact{ir.ToolAt{Tool: tool, Location: loc}, ir.PlaceDone{Operation: op}},
		SuccessRemove: []ir.Fact{ir.Holding{Agent: agent, Tool: tool}},
		FailureAdd:    []ir.Fact{ir.Holding{Agent: agent, Tool: tool}},
		FailureRemove: []ir.Fact{ir.ToolAt{Tool: tool, Location: loc}},
	}, seq)
}

// marker looks up the operation's marker id, 0 when unknown.
func (a *Assembler) marker(op string, pick func(config.MarkerPair) int) int {
	m, ok := a.cfg.Marker(op)
	if !ok {
		a.logger.Warn("operation has no marker, using 0",
			"error", &ir.ResolutionError{Kind: "marker", Key: config.BaseOperation(op)})
		return 0
	}
	return pick(m)
}

func guard(name string, eff *Effects, child *Node) *Node {
	return &Node{Kind: KindGuard, Name: name, Effects: eff, Children: []*Node{child}}
}

func sequence(name string, children ...*Node) *Node {
	return &Node{Kind: KindSequence, Name: name, Children: children}
}

func leaf(name, capability string) *Node {
	return &Node{Kind: KindLeaf, Name: name, Capability: capability}
}

func markerLeaf(name string, marker int) *Node {
	return &Node{Kind: KindLeaf, Name: name, Capability: CapMoveItMarker,
		Params: []Param{{"marker", strconv.Itoa(marker)}}}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func lc(s string) string {
	return strings.ToLower(s)
}
