package pddl

import (
	"strings"

	"github.com/roach88/sched2bt/internal/ir"
)

// Param is a typed schema parameter, "?a - agent". Name excludes the '?'.
type Param struct {
	Name string
	Type string
}

// Atom is a predicate applied to terms. A term starting with '?' refers
// to a schema parameter; anything else is an object constant.
type Atom struct {
	Predicate string
	Terms     []string
}

// Literal is a possibly negated atom, used in effects.
type Literal struct {
	Atom    Atom
	Negated bool
}

// PredicateDecl declares a predicate signature.
type PredicateDecl struct {
	Name   string
	Params []Param
}

// Action is an action schema.
type Action struct {
	Name         string
	Comment      string
	Params       []Param
	Precondition []Atom
	Effect       []Literal
}

// Domain is a STRIPS domain.
type Domain struct {
	Name         string
	Requirements []string
	Types        []string
	Predicates   []PredicateDecl
	Actions      []Action
}

// ObjectGroup lists objects sharing a type.
type ObjectGroup struct {
	Names []string
	Type  string
}

// Problem is a STRIPS problem instance.
type Problem struct {
	Name    string
	Domain  string
	Objects []ObjectGroup
	Init    []Atom
	Goal    []Atom
}

// A builds an atom.
func A(predicate string, terms ...string) Atom {
	return Atom{Predicate: predicate, Terms: terms}
}

// Add is a positive effect literal.
func Add(a Atom) Literal { return Literal{Atom: a} }

// Del is a negative effect literal.
func Del(a Atom) Literal { return Literal{Atom: a, Negated: true} }

// FromFact converts a ground fact to an atom.
func FromFact(f ir.Fact) Atom {
	return Atom{Predicate: f.Predicate(), Terms: ir.Args(f)}
}

// Fact converts a ground atom back to a typed fact.
func (a Atom) Fact() (ir.Fact, error) {
	return ir.ParseFact(a.Predicate, a.Terms)
}

// Ground reports whether the atom has no parameter references.
func (a Atom) Ground() bool {
	for _, t := range a.Terms {
		if strings.HasPrefix(t, "?") {
			return false
		}
	}
	return true
}

// Key returns the lower-cased identity of a ground atom.
func (a Atom) Key() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(a.Predicate))
	for _, t := range a.Terms {
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(t))
	}
	return b.String()
}

// Action returns the schema with the given name, case-insensitively.
func (d *Domain) Action(name string) (*Action, bool) {
	for i := range d.Actions {
		if strings.EqualFold(d.Actions[i].Name, name) {
			return &d.Actions[i], true
		}
	}
	return nil, false
}

// ObjectType returns the declared type of an object.
func (p *Problem) ObjectType(name string) (string, bool) {
	for _, g := range p.Objects {
		for _, n := range g.Names {
			if strings.EqualFold(n, name) {
				return g.Type, true
			}
		}
	}
	return "", false
}
