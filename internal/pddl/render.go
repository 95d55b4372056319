package pddl

import (
	"fmt"
	"strings"
)

// RenderDomain formats a domain as planner input.
func RenderDomain(d *Domain) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(define (domain %s)\n", d.Name)
	if len(d.Requirements) > 0 {
		fmt.Fprintf(&b, "  (:requirements %s)\n", strings.Join(d.Requirements, " "))
	}
	if len(d.Types) > 0 {
		fmt.Fprintf(&b, "  (:types %s)\n", strings.Join(d.Types, " "))
	}

	b.WriteString("  (:predicates\n")
	for _, p := range d.Predicates {
		fmt.Fprintf(&b, "    (%s)\n", joinNonEmpty(p.Name, renderParams(p.Params)))
	}
	b.WriteString("  )\n")

	for _, a := range d.Actions {
		b.WriteString("\n")
		if a.Comment != "" {
			fmt.Fprintf(&b, "  ;; %s\n", a.Comment)
		}
		fmt.Fprintf(&b, "  (:action %s\n", a.Name)
		fmt.Fprintf(&b, "    :parameters (%s)\n", renderParams(a.Params))
		fmt.Fprintf(&b, "    :precondition %s\n", renderConjunction(a.Precondition))
		fmt.Fprintf(&b, "    :effect %s\n", renderEffect(a.Effect))
		b.WriteString("  )\n")
	}
	b.WriteString(")\n")
	return b.String()
}

// RenderProblem formats a problem as planner input.
func RenderProblem(p *Problem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(define (problem %s)\n", p.Name)
	fmt.Fprintf(&b, "  (:domain %s)\n", p.Domain)

	b.WriteString("  (:objects\n")
	for _, g := range p.Objects {
		if len(g.Names) == 0 {
			continue
		}
		fmt.Fprintf(&b, "    %s - %s\n", strings.Join(g.Names, " "), g.Type)
	}
	b.WriteString("  )\n")

	b.WriteString("  (:init\n")
	for _, a := range p.Init {
		fmt.Fprintf(&b, "    %s\n", RenderAtom(a))
	}
	b.WriteString("  )\n")

	b.WriteString("  (:goal (and\n")
	for _, a := range p.Goal {
		fmt.Fprintf(&b, "    %s\n", RenderAtom(a))
	}
	b.WriteString("  ))\n")
	b.WriteString(")\n")
	return b.String()
}

// RenderAtom formats "(pred t1 t2)".
func RenderAtom(a Atom) string {
	return "(" + joinNonEmpty(a.Predicate, strings.Join(a.Terms, " ")) + ")"
}

func renderLiteral(l Literal) string {
	if l.Negated {
		return "(not " + RenderAtom(l.Atom) + ")"
	}
	return RenderAtom(l.Atom)
}

func renderParams(ps []Param) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = "?" + p.Name + " - " + p.Type
	}
	return strings.Join(parts, " ")
}

func renderConjunction(atoms []Atom) string {
	parts := make([]string, len(atoms))
	for i, a := range atoms {
		parts[i] = RenderAtom(a)
	}
	return "(" + joinNonEmpty("and", strings.Join(parts, " ")) + ")"
}

// renderEffect puts a lone literal inline and a conjunction one literal
// per line.
func renderEffect(lits []Literal) string {
	if len(lits) == 1 {
		return renderLiteral(lits[0])
	}
	var b strings.Builder
	b.WriteString("(and")
	for _, l := range lits {
		b.WriteString("\n      ")
		b.WriteString(renderLiteral(l))
	}
	b.WriteString(")")
	return b.String()
}

func joinNonEmpty(head, tail string) string {
	if tail == "" {
		return head
	}
	return head + " " + tail
}
