// Package engine executes an assembled behavior description.
//
// Build turns an assembler.Tree into a go-behaviortree node graph:
// sequences and selectors become memorized composites, leaves become
// asynchronous capability adapters and guards become EffectGuard ticks that
// write their declared facts to a KnowledgeStore exactly once.
//
// Runner ticks the graph on a fixed period until the root reaches a terminal
// status or the context is cancelled. An aborted run gets one drain tick:
// leaves stop dispatching work but results that already arrived are
// collected, so guards whose subtree finished still apply their effects.
//
// Every effect write is stamped with the run id and a logical sequence
// number from Clock. Wall-clock time is never used for ordering.
package engine
