package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/sched2bt/internal/assembler"
)

// Capability is an executable robot skill a leaf invokes by name.
// Invoke blocks until the skill finishes; a nil error is success.
type Capability interface {
	Invoke(ctx context.Context, params map[string]string) error
}

// CapabilityFunc adapts a function to Capability.
type CapabilityFunc func(ctx context.Context, params map[string]string) error

// Invoke calls f.
func (f CapabilityFunc) Invoke(ctx context.Context, params map[string]string) error {
	return f(ctx, params)
}

// Registry binds capability names to implementations.
type Registry map[string]Capability

// Lookup returns the capability bound to name.
func (r Registry) Lookup(name string) (Capability, bool) {
	c, ok := r[name]
	return c, ok
}

// SimOption configures a Simulated registry.
type SimOption func(*simConfig)

type simConfig struct {
	fail     map[string]bool
	latency  time.Duration
	realWait bool
}

// FailOn makes the named capabilities fail on every invocation.
func FailOn(names ...string) SimOption {
	return func(c *simConfig) {
		for _, n := range names {
			c.fail[n] = true
		}
	}
}

// WithLatency delays every simulated invocation by d.
func WithLatency(d time.Duration) SimOption {
	return func(c *simConfig) {
		c.latency = d
	}
}

// WithRealWait binds the wait capability to Wait, so wait leaves block
// for their decoded duration.
func WithRealWait() SimOption {
	return func(c *simConfig) {
		c.realWait = true
	}
}

// Simulated returns a registry binding every known capability to a stub
// that succeeds immediately, unless configured otherwise.
func Simulated(opts ...SimOption) Registry {
	cfg := &simConfig{fail: make(map[string]bool)}
	for _, opt := range opts {
		opt(cfg)
	}
	reg := make(Registry, len(assembler.Capabilities))
	for _, name := range assembler.Capabilities {
		name := name
		reg[name] = CapabilityFunc(func(ctx context.Context, params map[string]string) error {
			if cfg.realWait && name == assembler.CapWait {
				if err := Wait(ctx, params); err != nil {
					return err
				}
			} else if cfg.latency > 0 {
				if err := sleep(ctx, cfg.latency); err != nil {
					return err
				}
			}
			if cfg.fail[name] {
				return fmt.Errorf("simulated failure of %s", name)
			}
			return nil
		})
	}
	return reg
}

// Wait is the real wait capability: it blocks for the "duration" param,
// in seconds, or until ctx is done.
var Wait = CapabilityFunc(func(ctx context.Context, params map[string]string) error {
	secs, err := strconv.ParseFloat(params["duration"], 64)
	if err != nil {
		return fmt.Errorf("wait: bad duration %q: %w", params["duration"], err)
	}
	return sleep(ctx, time.Duration(secs*float64(time.Second)))
})

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
