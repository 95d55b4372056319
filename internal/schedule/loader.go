package schedule

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/sched2bt/internal/config"
	"github.com/roach88/sched2bt/internal/ir"
)

// RecordKind is the role of a raw solver variable.
type RecordKind int

const (
	KindStart RecordKind = iota
	KindEnd
	KindActive
)

func (k RecordKind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindEnd:
		return "end"
	case KindActive:
		return "active"
	default:
		return fmt.Sprintf("RecordKind(%d)", int(k))
	}
}

// Record is one parsed raw solver line.
type Record struct {
	Kind      RecordKind
	Job       string
	Operation string
	Resource  string
	Value     float64
	Line      int
}

// Loader parses raw solver output.
type Loader struct {
	grammar       config.Grammar
	collaborative ir.Resource
	logger        *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		ld.logger = l
	}
}

// NewLoader creates a loader using cfg's grammar and collaborative resource.
func NewLoader(cfg *config.Config, opts ...Option) *Loader {
	l := &Loader{
		grammar:       cfg.Grammar,
		collaborative: ir.Resource(cfg.CollaborativeResource),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load parses raw records from r and builds the ordered schedule.
// A malformed record aborts the whole load: a partial schedule would
// silently break the total order downstream.
func (l *Loader) Load(r io.Reader, source string) ([]ir.OperationInterval, error) {
	records, err := l.ParseRecords(r, source)
	if err != nil {
		return nil, err
	}
	return l.Build(records), nil
}

// ParseRecords reads every start, end and active variable from r.
func (l *Loader) ParseRecords(r io.Reader, source string) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		kind, ok := l.kindOf(line)
		if !ok {
			continue
		}
		rec, err := parseRecord(line, kind)
		if err != nil {
			return nil, &ir.ParseError{Source: source, Line: lineNo, Text: line, Reason: err.Error()}
		}
		rec.Line = lineNo
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ir.IOError{Op: "read", Path: source, Err: err}
	}
	return records, nil
}

func (l *Loader) kindOf(line string) (RecordKind, bool) {
	name, _, ok := strings.Cut(line, "[")
	if !ok {
		return 0, false
	}
	switch name {
	case l.grammar.Start:
		return KindStart, true
	case l.grammar.End:
		return KindEnd, true
	case l.grammar.Active:
		return KindActive, true
	}
	return 0, false
}

// parseRecord parses "Name[job,op,resource] value".
func parseRecord(line string, kind RecordKind) (Record, error) {
	open := strings.IndexByte(line, '[')
	closing := strings.IndexByte(line, ']')
	if closing < open {
		return Record{}, fmt.Errorf("unterminated index list")
	}
	indices := strings.Split(line[open+1:closing], ",")
	if len(indices) != 3 {
		return Record{}, fmt.Errorf("expected 3 indices, got %d", len(indices))
	}
	for i := range indices {
		indices[i] = strings.TrimSpace(indices[i])
		if indices[i] == "" {
			return Record{}, fmt.Errorf("empty index %d", i+1)
		}
	}
	fields := strings.Fields(line[closing+1:])
	if len(fields) != 1 {
		return Record{}, fmt.Errorf("expected one value, got %d", len(fields))
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad value: %w", err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Record{}, fmt.Errorf("non-finite value %q", fields[0])
	}
	return Record{
		Kind:      kind,
		Job:       indices[0],
		Operation: indices[1],
		Resource:  indices[2],
		Value:     value,
	}, nil
}

// Round snaps solver noise to integers: magnitudes below 1e-3 become 0,
// everything else rounds half to even.
func Round(v float64) int64 {
	if math.Abs(v) < 1e-3 {
		return 0
	}
	return int64(math.RoundToEven(v))
}

type key struct {
	job, op, res string
}

type group struct {
	start, end int64
	active     bool
}

// Build groups records by (job, operation, resource) and applies the
// retention, supersession and ordering rules. Missing start or end
// values count as 0. Non-finite values are dropped.
func (l *Loader) Build(records []Record) []ir.OperationInterval {
	groups := make(map[key]*group)
	var order []key
	for _, rec := range records {
		if math.IsNaN(rec.Value) || math.IsInf(rec.Value, 0) {
			l.logger.Warn("dropping non-finite record",
				"kind", rec.Kind, "job", rec.Job, "operation", rec.Operation, "resource", rec.Resource)
			continue
		}
		k := key{rec.Job, rec.Operation, rec.Resource}
		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
			order = append(order, k)
		}
		v := Round(rec.Value)
		switch rec.Kind {
		case KindStart:
			g.start = v
		case KindEnd:
			g.end = v
		case KindActive:
			g.active = v > 0
		}
	}

	retained := make(map[key]bool, len(groups))
	for _, k := range order {
		g := groups[k]
		if !g.active || g.start == g.end {
			continue
		}
		if g.start > g.end {
			l.logger.Warn("dropping interval with start after end",
				"job", k.job, "operation", k.op, "resource", k.res,
				"start", g.start, "end", g.end)
			continue
		}
		retained[k] = true
	}

	var out []ir.OperationInterval
	for _, k := range order {
		if !retained[k] {
			continue
		}
		co := key{k.job, k.op, string(l.collaborative)}
		if k != co && retained[co] {
			l.logger.Debug("superseded by collaborative variant",
				"job", k.job, "operation", k.op, "resource", k.res)
			continue
		}
		g := groups[k]
		out = append(out, ir.OperationInterval{
			Operation: k.op,
			Job:       k.job,
			Resource:  ir.Resource(k.res),
			Start:     g.start,
			End:       g.end,
		})
	}

	// out is in first-encounter order; a stable sort keeps it for ties.
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Start < out[b].Start
	})
	return out
}
