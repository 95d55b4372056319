package engine

import (
	"fmt"
	"sync"

	bt "github.com/joeycumines/go-behaviortree"
)

// leafState is the dispatch state of an asynchronous leaf.
type leafState int

const (
	leafIdle leafState = iota
	leafRunning
	leafCompleted
)

// leaf adapts a blocking Capability to the synchronous tick interface.
//
//   - Idle: dispatch the capability on its own goroutine, report Running.
//   - Running: report Running until the result arrives.
//   - Completed: report the result and return to Idle.
//
// The generation counter discards results of dispatches that were
// superseded. While the program drains, Idle leaves report Running
// without dispatching.
type leaf struct {
	prog       *Program
	name       string
	capability string
	cap        Capability
	params     map[string]string

	mu         sync.Mutex
	state      leafState
	generation uint64
	result     error
}

func (l *leaf) Tick(_ []bt.Node) (bt.Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case leafIdle:
		if l.prog.draining.Load() || l.prog.ctx.Err() != nil {
			return bt.Running, nil
		}
		l.generation++
		l.state = leafRunning
		l.prog.inflight.Add(1)
		go l.invoke(l.generation)
		return bt.Running, nil

	case leafRunning:
		return bt.Running, nil

	case leafCompleted:
		err := l.result
		l.state = leafIdle
		l.result = nil
		if err != nil {
			l.prog.logger.Warn("capability failed",
				"run_id", l.prog.runID, "leaf", l.name, "capability", l.capability, "error", err)
			return bt.Failure, nil
		}
		l.prog.logger.Debug("capability succeeded",
			"run_id", l.prog.runID, "leaf", l.name, "capability", l.capability)
		return bt.Success, nil

	default:
		return bt.Failure, fmt.Errorf("leaf %q: invalid state %d", l.name, l.state)
	}
}

func (l *leaf) invoke(gen uint64) {
	defer l.prog.inflight.Done()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in capability %s: %v", l.capability, r)
			}
		}()
		return l.cap.Invoke(l.prog.ctx, l.params)
	}()

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation || l.state != leafRunning {
		return
	}
	l.state = leafCompleted
	l.result = err
}
