package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sched2bt/internal/ir"
	"github.com/roach88/sched2bt/internal/store"
)

// RunWithGolden executes a scenario and compares its rendered domain,
// problem, description and effect log against golden files stored in
// testdata/golden/{name}_{domain,problem,tree,effects}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario) (*Result, error) {
	t.Helper()

	res, err := Run(sc)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return res, res.Err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name+"_domain", res.Artifacts.Domain)
	g.Assert(t, sc.Name+"_problem", res.Artifacts.Problem)
	g.Assert(t, sc.Name+"_tree", []byte(res.Tree.String()))
	g.Assert(t, sc.Name+"_effects", []byte(FormatEffects(res.Effects)))
	return res, nil
}

// FormatEffects renders an effect log one write per line:
// "seq guard op fact".
func FormatEffects(recs []store.EffectRecord) string {
	var b strings.Builder
	for _, r := range recs {
		fmt.Fprintf(&b, "%d %s %s %s\n", r.Seq, r.Guard, r.Op, ir.FormatFact(r.Fact))
	}
	return b.String()
}
