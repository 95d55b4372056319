package schedule

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/roach88/sched2bt/internal/config"
	"github.com/roach88/sched2bt/internal/ir"
)

var readableLine = regexp.MustCompile(
	`^Operation (\w+), Job (\w+), Resource (\w+): Start time \((\w+)\) = (-?\d+), End time \((\w+)\) = (-?\d+)`)

// WriteReadable writes the readable schedule: a header, a blank line,
// then one line per interval.
func WriteReadable(w io.Writer, ops []ir.OperationInterval, g config.Grammar) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Operations sorted by start time (%s) and end time (%s):\n\n", g.Start, g.End)
	for _, op := range ops {
		fmt.Fprintf(bw, "Operation %s, Job %s, Resource %s: Start time (%s) = %d, End time (%s) = %d\n",
			op.Operation, op.Job, op.Resource, g.Start, op.Start, g.End, op.End)
	}
	return bw.Flush()
}

// FormatReadable returns the readable line of a single interval.
func FormatReadable(op ir.OperationInterval, g config.Grammar) string {
	return fmt.Sprintf("Operation %s, Job %s, Resource %s: Start time (%s) = %d, End time (%s) = %d",
		op.Operation, op.Job, op.Resource, g.Start, op.Start, g.End, op.End)
}

// ParseReadable reads intervals back from a readable file. Lines that do
// not match the record format (header, blanks) are skipped. Order is
// preserved as written.
func ParseReadable(r io.Reader, source string) ([]ir.OperationInterval, error) {
	var ops []ir.OperationInterval
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		m := readableLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		start, err := strconv.ParseInt(m[5], 10, 64)
		if err != nil {
			return nil, &ir.ParseError{Source: source, Line: lineNo, Text: scanner.Text(), Reason: err.Error()}
		}
		end, err := strconv.ParseInt(m[7], 10, 64)
		if err != nil {
			return nil, &ir.ParseError{Source: source, Line: lineNo, Text: scanner.Text(), Reason: err.Error()}
		}
		ops = append(ops, ir.OperationInterval{
			Operation: m[1],
			Job:       m[2],
			Resource:  ir.Resource(m[3]),
			Start:     start,
			End:       end,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, &ir.IOError{Op: "read", Path: source, Err: err}
	}
	return ops, nil
}
