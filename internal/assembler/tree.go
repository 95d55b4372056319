package assembler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/sched2bt/internal/ir"
)

// NodeKind is the kind of a description node.
type NodeKind string

const (
	KindSequence NodeKind = "sequence"
	KindSelector NodeKind = "selector"
	KindGuard    NodeKind = "guard"
	KindLeaf     NodeKind = "leaf"
)

// Effects are the knowledge updates of a guard. Success applies
// SuccessAdd then SuccessRemove; failure applies FailureRemove then
// FailureAdd.
type Effects struct {
	SuccessAdd    []ir.Fact
	SuccessRemove []ir.Fact
	FailureAdd    []ir.Fact
	FailureRemove []ir.Fact
}

// Param is one leaf argument. Numbers are kept as decimal strings.
type Param struct {
	Key   string
	Value string
}

// Node is a description node. Guards have exactly one child, leaves none.
type Node struct {
	Kind       NodeKind
	Name       string
	Children   []*Node
	Capability string   // leaves
	Params     []Param  // leaves
	Effects    *Effects // guards
}

// Param returns a leaf parameter by key.
func (n *Node) Param(key string) (string, bool) {
	for _, p := range n.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Tree is a behavior description: a sequential root of guarded
// per-action subtrees.
type Tree struct {
	Root *Node
}

// Walk visits nodes depth first, parents before children.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	if t.Root != nil {
		walk(t.Root, 0)
	}
}

// Guards returns the guard nodes in execution order.
func (t *Tree) Guards() []*Node {
	var out []*Node
	t.Walk(func(n *Node, _ int) {
		if n.Kind == KindGuard {
			out = append(out, n)
		}
	})
	return out
}

// Capabilities returns the distinct capabilities referenced, in first-use order.
func (t *Tree) Capabilities() []string {
	seen := make(map[string]bool)
	var out []string
	t.Walk(func(n *Node, _ int) {
		if n.Kind == KindLeaf && !seen[n.Capability] {
			seen[n.Capability] = true
			out = append(out, n.Capability)
		}
	})
	return out
}

// Validate checks the structural rules of a description.
func (t *Tree) Validate() error {
	if t.Root == nil {
		return fmt.Errorf("description has no root")
	}
	var errs []string
	t.Walk(func(n *Node, _ int) {
		switch n.Kind {
		case KindSequence, KindSelector:
			if len(n.Children) == 0 {
				errs = append(errs, fmt.Sprintf("%s %q has no children", n.Kind, n.Name))
			}
		case KindGuard:
			if len(n.Children) != 1 {
				errs = append(errs, fmt.Sprintf("guard %q has %d children", n.Name, len(n.Children)))
			}
			if n.Effects == nil {
				errs = append(errs, fmt.Sprintf("guard %q has no effects", n.Name))
			}
		case KindLeaf:
			if len(n.Children) != 0 {
				errs = append(errs, fmt.Sprintf("leaf %q has children", n.Name))
			}
			if n.Capability == "" {
				errs = append(errs, fmt.Sprintf("leaf %q has no capability", n.Name))
			}
		default:
			errs = append(errs, fmt.Sprintf("node %q has unknown kind %q", n.Name, n.Kind))
		}
	})
	if len(errs) > 0 {
		return fmt.Errorf("invalid description: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Object returns the canonical form of the description.
func (t *Tree) Object() ir.Object {
	return ir.ObjectOf(
		ir.P("version", ir.String(ir.DescriptionVersion)),
		ir.P("generator", ir.String("sched2bt/"+ir.GeneratorVersion)),
		ir.P("root", nodeObject(t.Root)),
	)
}

// MarshalCanonical encodes the description as canonical JSON.
func (t *Tree) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(t.Object())
}

// Hash is the content address of the description.
func (t *Tree) Hash() (string, error) {
	return ir.TreeHash(t.Object())
}

func nodeObject(n *Node) ir.Object {
	obj := ir.ObjectOf(
		ir.P("kind", ir.String(string(n.Kind))),
		ir.P("name", ir.String(n.Name)),
	)
	switch n.Kind {
	case KindLeaf:
		obj["capability"] = ir.String(n.Capability)
		params := make(ir.Array, len(n.Params))
		for i, p := range n.Params {
			params[i] = ir.ObjectOf(ir.P("key", ir.String(p.Key)), ir.P("value", ir.String(p.Value)))
		}
		obj["params"] = params
	case KindGuard:
		obj["effects"] = ir.ObjectOf(
			ir.P("on_success_add", factArray(n.Effects.SuccessAdd)),
			ir.P("on_success_remove", factArray(n.Effects.SuccessRemove)),
			ir.P("on_failure_add", factArray(n.Effects.FailureAdd)),
			ir.P("on_failure_remove", factArray(n.Effects.FailureRemove)),
		)
	}
	if n.Kind != KindLeaf {
		children := make(ir.Array, len(n.Children))
		for i, c := range n.Children {
			children[i] = nodeObject(c)
		}
		obj["children"] = children
	}
	return obj
}

func factArray(facts []ir.Fact) ir.Array {
	arr := make(ir.Array, len(facts))
	for i, f := range facts {
		arr[i] = ir.FactObject(f)
	}
	return arr
}

type wireTree struct {
	Version string    `json:"version"`
	Root    *wireNode `json:"root"`
}

type wireNode struct {
	Kind       NodeKind     `json:"kind"`
	Name       string       `json:"name"`
	Capability string       `json:"capability"`
	Params     []wireParam  `json:"params"`
	Effects    *wireEffects `json:"effects"`
	Children   []*wireNode  `json:"children"`
}

type wireParam struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type wireFact struct {
	Predicate string   `json:"predicate"`
	Args      []string `json:"args"`
}

type wireEffects struct {
	SuccessAdd    []wireFact `json:"on_success_add"`
	SuccessRemove []wireFact `json:"on_success_remove"`
	FailureAdd    []wireFact `json:"on_failure_add"`
	FailureRemove []wireFact `json:"on_failure_remove"`
}

// Decode parses a description written by MarshalCanonical and validates it.
func Decode(data []byte) (*Tree, error) {
	var w wireTree
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &ir.ParseError{Source: "description", Reason: err.Error()}
	}
	if w.Version != ir.DescriptionVersion {
		return nil, &ir.ParseError{Source: "description", Text: w.Version, Reason: "unsupported version"}
	}
	if w.Root == nil {
		return nil, &ir.ParseError{Source: "description", Reason: "missing root"}
	}
	root, err := decodeNode(w.Root)
	if err != nil {
		return nil, err
	}
	t := &Tree{Root: root}
	if err := t.Validate(); err != nil {
		return nil, &ir.ParseError{Source: "description", Reason: err.Error()}
	}
	return t, nil
}

func decodeNode(w *wireNode) (*Node, error) {
	n := &Node{Kind: w.Kind, Name: w.Name, Capability: w.Capability}
	for _, p := range w.Params {
		n.Params = append(n.Params, Param(p))
	}
	if w.Effects != nil {
		var eff Effects
		var err error
		if eff.SuccessAdd, err = decodeFacts(w.Effects.SuccessAdd); err != nil {
			return nil, err
		}
		if eff.SuccessRemove, err = decodeFacts(w.Effects.SuccessRemove); err != nil {
			return nil, err
		}
		if eff.FailureAdd, err = decodeFacts(w.Effects.FailureAdd); err != nil {
			return nil, err
		}
		if eff.FailureRemove, err = decodeFacts(w.Effects.FailureRemove); err != nil {
			return nil, err
		}
		n.Effects = &eff
	}
	for _, c := range w.Children {
		child, err := decodeNode(c)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func decodeFacts(ws []wireFact) ([]ir.Fact, error) {
	var out []ir.Fact
	for _, w := range ws {
		f, err := ir.ParseFact(w.Predicate, w.Args)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// String renders the tree as indented ASCII, one node per line.
func (t *Tree) String() string {
	var b strings.Builder
	t.Walk(func(n *Node, depth int) {
		b.WriteString(strings.Repeat("    ", depth))
		switch n.Kind {
		case KindSequence:
			b.WriteString("[-] ")
		case KindSelector:
			b.WriteString("[o] ")
		case KindGuard:
			b.WriteString("-^- ")
		default:
			b.WriteString("--> ")
		}
		b.WriteString(n.Name)
		if n.Kind == KindLeaf {
			fmt.Fprintf(&b, " (%s)", n.Capability)
		}
		b.WriteByte('\n')
	})
	return b.String()
}
