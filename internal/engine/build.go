package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	bt "github.com/joeycumines/go-behaviortree"

	"github.com/roach88/sched2bt/internal/assembler"
	"github.com/roach88/sched2bt/internal/ir"
)

// Program is an executable description bound to capabilities, a knowledge
// store and a run id.
type Program struct {
	root   bt.Node
	guards []*EffectGuard

	ctx    context.Context
	kb     KnowledgeStore
	clock  SeqSource
	runID  string
	logger *slog.Logger

	draining atomic.Bool
	inflight sync.WaitGroup
}

// Option configures Build.
type Option func(*buildConfig)

type buildConfig struct {
	runIDs RunIDGenerator
	clock  SeqSource
	logger *slog.Logger
}

// WithRunIDs sets the run id source. Defaults to UUIDv7Generator.
func WithRunIDs(gen RunIDGenerator) Option {
	return func(c *buildConfig) {
		c.runIDs = gen
	}
}

// WithClock sets the sequence source stamped on effects. Defaults to a
// fresh Clock.
func WithClock(clock SeqSource) Option {
	return func(c *buildConfig) {
		c.clock = clock
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *buildConfig) {
		c.logger = l
	}
}

// Build binds tree to caps and kb. ctx is handed to every capability
// invocation; cancelling it stops new dispatches.
//
// Every capability the tree references must be registered, otherwise Build
// fails with a fatal *ir.ResolutionError before anything runs.
func Build(ctx context.Context, tree *assembler.Tree, caps Registry, kb KnowledgeStore, opts ...Option) (*Program, error) {
	cfg := &buildConfig{runIDs: UUIDv7Generator{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.clock == nil {
		cfg.clock = NewClock()
	}
	if kb == nil {
		return nil, fmt.Errorf("build: knowledge store is required")
	}
	if tree == nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidTree, Message: "nil description"}
	}
	if err := tree.Validate(); err != nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidTree, Message: "description failed validation", Err: err}
	}
	for _, name := range tree.Capabilities() {
		if _, ok := caps.Lookup(name); !ok {
			return nil, &ir.ResolutionError{Kind: "capability", Key: name, Fatal: true, Reason: "not registered"}
		}
	}

	p := &Program{
		ctx:    ctx,
		kb:     kb,
		clock:  cfg.clock,
		runID:  cfg.runIDs.Generate(),
		logger: cfg.logger,
	}
	p.root = p.build(tree.Root, caps)
	p.logger.Debug("program built", "run_id", p.runID, "guards", len(p.guards))
	return p, nil
}

func (p *Program) build(n *assembler.Node, caps Registry) bt.Node {
	var g *EffectGuard
	if n.Kind == assembler.KindGuard {
		g = &EffectGuard{prog: p, name: n.Name, effects: *n.Effects, state: GuardPending}
		p.guards = append(p.guards, g)
	}
	children := make([]bt.Node, len(n.Children))
	for i, c := range n.Children {
		children[i] = p.build(c, caps)
	}

	switch n.Kind {
	case assembler.KindSequence:
		return bt.New(bt.Memorize(bt.Sequence), children...)
	case assembler.KindSelector:
		return bt.New(bt.Memorize(bt.Selector), children...)
	case assembler.KindGuard:
		return bt.New(g.Tick, children...)
	default:
		c, _ := caps.Lookup(n.Capability)
		l := &leaf{prog: p, name: n.Name, capability: n.Capability, cap: c, params: params(n)}
		return bt.New(l.Tick)
	}
}

func params(n *assembler.Node) map[string]string {
	m := make(map[string]string, len(n.Params))
	for _, p := range n.Params {
		m[p.Key] = p.Value
	}
	return m
}

// RunID returns the id stamped on this program's effects.
func (p *Program) RunID() string { return p.runID }

// Root returns the executable root node.
func (p *Program) Root() bt.Node { return p.root }

// Guards returns the guards in execution order.
func (p *Program) Guards() []*EffectGuard { return p.guards }
