// Package plan decodes grounded planner output into PlannedActions.
//
// One action per line:
//
//	<timestamp>: (<ACTION_NAME> <param>...) [<duration>]
//
// Blank lines and ';' comments are skipped, lines that do not match are
// ignored. Malformed actions are logged and skipped; a plan in which no
// line decodes is an error.
package plan

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/sched2bt/internal/config"
	"github.com/roach88/sched2bt/internal/ir"
)

var (
	lineRe  = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?):\s*\(([\w-]+)([^)]*)\)\s*(?:\[(\d+(?:\.\d+)?)\])?`)
	opKeyRe = regexp.MustCompile(`OP\d{2,}(?:_\w+)?`)
)

// Result is a decoded plan plus the lines skipped on the way.
type Result struct {
	Actions []ir.PlannedAction
	Skipped []error
}

// Decoder parses grounded plans.
type Decoder struct {
	waitDefault   float64
	waitDurations map[string]float64
	logger        *slog.Logger
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) {
		d.logger = l
	}
}

// WithWaitDurations sets per-action wait durations in seconds, keyed by
// lower-cased action name (wait_1). Unlisted waits use the default.
func WithWaitDurations(m map[string]float64) Option {
	return func(d *Decoder) {
		d.waitDurations = make(map[string]float64, len(m))
		for k, v := range m {
			d.waitDurations[strings.ToLower(k)] = v
		}
	}
}

// NewDecoder creates a decoder with cfg's default wait duration.
func NewDecoder(cfg *config.Config, opts ...Option) *Decoder {
	d := &Decoder{
		waitDefault: cfg.WaitDuration().Seconds(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode reads a plan. Actions are returned in timestamp order, ties in
// file order.
func (d *Decoder) Decode(r io.Reader, source string) (*Result, error) {
	res := &Result{}
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		action, err := d.decodeLine(m)
		if err == nil && seen[action.Key] {
			err = fmt.Errorf("duplicate action key %s", action.Key)
		}
		if err != nil {
			perr := &ir.ParseError{Source: source, Line: lineNo, Text: line, Reason: err.Error()}
			d.logger.Warn("skipping plan line", "error", perr)
			res.Skipped = append(res.Skipped, perr)
			continue
		}
		seen[action.Key] = true
		res.Actions = append(res.Actions, action)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ir.IOError{Op: "read", Path: source, Err: err}
	}
	if len(res.Actions) == 0 {
		return res, &ir.ParseError{Source: source, Reason: "no recognized actions"}
	}

	sort.SliceStable(res.Actions, func(i, j int) bool {
		return res.Actions[i].Timestamp < res.Actions[j].Timestamp
	})
	return res, nil
}

func (d *Decoder) decodeLine(m []string) (ir.PlannedAction, error) {
	stamp, name, params := m[1], strings.ToUpper(m[2]), strings.Fields(m[3])
	ts, err := strconv.ParseFloat(stamp, 64)
	if err != nil {
		return ir.PlannedAction{}, fmt.Errorf("bad timestamp: %w", err)
	}
	var duration float64
	if m[4] != "" {
		if duration, err = strconv.ParseFloat(m[4], 64); err != nil {
			return ir.PlannedAction{}, fmt.Errorf("bad duration: %w", err)
		}
	}
	if len(params) == 0 {
		return ir.PlannedAction{}, fmt.Errorf("action %s has no parameters", name)
	}

	a := ir.PlannedAction{
		Key:       name + "_" + strings.ReplaceAll(stamp, ".", "_"),
		Name:      name,
		Timestamp: ts,
		Agent:     params[0],
		Duration:  duration,
	}

	switch {
	case strings.Contains(name, "MOVE_TO"):
		if len(params) != 3 {
			return ir.PlannedAction{}, fmt.Errorf("%s wants 3 parameters, got %d", name, len(params))
		}
		a.Kind = ir.ActionMoveTo
		a.From, a.To = params[1], params[2]

	case strings.Contains(name, "PICK"), strings.Contains(name, "PLACE"):
		if len(params) < 2 || len(params) > 3 {
			return ir.PlannedAction{}, fmt.Errorf("%s wants 2 or 3 parameters, got %d", name, len(params))
		}
		a.Kind = ir.ActionPlace
		if strings.Contains(name, "PICK") {
			a.Kind = ir.ActionPick
		}
		a.Tool = params[1]
		if len(params) == 3 {
			a.Location = params[2]
		}
		a.OpKey = opKeyRe.FindString(name)
		if a.OpKey == "" {
			a.OpKey = opKeyRe.FindString(strings.ToUpper(a.Tool))
		}
		if a.OpKey == "" {
			return ir.PlannedAction{}, &ir.ResolutionError{Kind: "operation", Key: a.Tool, Reason: "no OPxx in action or tool name"}
		}

	case strings.Contains(name, "WAIT"):
		a.Kind = ir.ActionWait
		a.Duration = d.waitDefault
		if v, ok := d.waitDurations[strings.ToLower(name)]; ok {
			a.Duration = v
		}

	default:
		return ir.PlannedAction{}, fmt.Errorf("unknown action %s", name)
	}
	return a, nil
}
