package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/sched2bt/internal/ir"
)

// marshalArgs encodes fact arguments as a canonical JSON array, the form
// used in primary keys.
func marshalArgs(f ir.Fact) (string, error) {
	data, err := ir.MarshalCanonical(ir.Strings(ir.Args(f)...))
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// unmarshalFact rebuilds a fact from a stored row.
func unmarshalFact(predicate, args string) (ir.Fact, error) {
	var vals []string
	if err := json.Unmarshal([]byte(args), &vals); err != nil {
		return nil, fmt.Errorf("unmarshal args of %s: %w", predicate, err)
	}
	return ir.ParseFact(predicate, vals)
}
