package plan

import (
	"log/slog"
	"strings"

	"github.com/roach88/sched2bt/internal/ir"
)

// Filter drops movements whose source and destination are the same
// location. The input is not modified.
func Filter(actions []ir.PlannedAction, logger *slog.Logger) []ir.PlannedAction {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]ir.PlannedAction, 0, len(actions))
	for _, a := range actions {
		if a.Kind == ir.ActionMoveTo && strings.EqualFold(a.From, a.To) {
			logger.Debug("eliding degenerate move", "key", a.Key, "location", a.From)
			continue
		}
		out = append(out, a)
	}
	return out
}
