package testutil

// FixedRunIDGenerator returns the same run id on every call, so every run
// of a scenario writes byte-identical effect logs.
//
// Unlike engine.FixedGenerator, which hands out a list of ids in order,
// this one never runs out.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator for id. An empty id becomes
// "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate implements engine.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
