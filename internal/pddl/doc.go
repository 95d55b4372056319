// Package pddl is a small STRIPS AST with a single text formatter and a
// plan simulator.
//
// The encoder builds Domain and Problem values; Render turns them into the
// text an external planner reads. Simulate checks a grounded plan against
// the AST directly, which lets tests reason about what the domain allows
// without diffing rendered text.
package pddl
