package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	bt "github.com/joeycumines/go-behaviortree"
)

// DefaultDrainTimeout bounds how long an aborted run waits for in-flight
// capabilities before its drain tick.
const DefaultDrainTimeout = 2 * time.Second

// errFinished stops the ticker once the root is terminal.
var errFinished = errors.New("root finished")

// Runner ticks a Program until its root finishes or the run is cancelled.
type Runner struct {
	prog         *Program
	period       time.Duration
	drainTimeout time.Duration
	logger       *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTickPeriod sets the tick period. Defaults to 100ms.
func WithTickPeriod(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.period = d
		}
	}
}

// WithDrainTimeout sets how long an abort waits for in-flight work.
func WithDrainTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.drainTimeout = d
	}
}

// WithRunnerLogger sets the logger. Defaults to the program's logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a runner for prog.
func NewRunner(prog *Program, opts ...RunnerOption) *Runner {
	r := &Runner{
		prog:         prog,
		period:       100 * time.Millisecond,
		drainTimeout: DefaultDrainTimeout,
		logger:       prog.logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GuardReport is the final state of one guard.
type GuardReport struct {
	Name   string
	State  GuardState
	Errors []error
}

// Report summarizes a run.
type Report struct {
	RunID   string
	Status  bt.Status
	Ticks   int
	Aborted bool
	Guards  []GuardReport
}

// Succeeded reports whether the root finished with success.
func (r *Report) Succeeded() bool { return r.Status == bt.Success }

// Outcome names the root status: success, failure or running.
func (r *Report) Outcome() string {
	switch r.Status {
	case bt.Success:
		return "success"
	case bt.Failure:
		return "failure"
	}
	return "running"
}

// Run ticks the program every period until the root returns success or
// failure. If ctx is done first, Run performs one drain tick and returns
// the report together with an ABORTED *RuntimeError.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := &Report{RunID: r.prog.runID}

	node := bt.New(func(children []bt.Node) (bt.Status, error) {
		rep.Ticks++
		status, err := children[0].Tick()
		if err != nil {
			return status, err
		}
		if status != bt.Running {
			rep.Status = status
			return status, errFinished
		}
		return status, nil
	}, r.prog.root)

	r.logger.Info("run started", "run_id", r.prog.runID, "period", r.period)
	ticker := bt.NewTicker(ctx, r.period, node)
	<-ticker.Done()
	err := ticker.Err()

	switch {
	case errors.Is(err, errFinished):
		r.finish(rep)
		r.logger.Info("run finished", "run_id", rep.RunID, "status", rep.Status, "ticks", rep.Ticks)
		return rep, nil
	case err != nil && ctx.Err() == nil:
		r.finish(rep)
		return rep, newTickError(rep.RunID, err)
	}

	rep.Aborted = true
	r.drain(rep)
	r.finish(rep)
	r.logger.Warn("run aborted", "run_id", rep.RunID, "status", rep.Status, "ticks", rep.Ticks)
	return rep, newAbortError(rep.RunID, ctx.Err())
}

// drain waits for in-flight capabilities, then ticks once without
// dispatching new work.
func (r *Runner) drain(rep *Report) {
	r.prog.draining.Store(true)

	done := make(chan struct{})
	go func() {
		r.prog.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(r.drainTimeout):
		r.logger.Warn("drain timed out waiting for capabilities", "run_id", rep.RunID)
	}

	rep.Ticks++
	status, err := r.prog.root.Tick()
	if err != nil {
		r.logger.Error("drain tick failed", "run_id", rep.RunID, "error", err)
	}
	rep.Status = status
}

func (r *Runner) finish(rep *Report) {
	for _, g := range r.prog.guards {
		rep.Guards = append(rep.Guards, GuardReport{Name: g.Name(), State: g.State(), Errors: g.Errors()})
	}
}
