package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sched2bt/internal/assembler"
	"github.com/roach88/sched2bt/internal/ir"
)

// Scenario is one end-to-end pipeline case.
type Scenario struct {
	// Name identifies the scenario and names its golden files.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// RunID is the fixed run id stamped on effects. Defaults to
	// "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Fail lists capabilities the simulated registry fails on.
	Fail []string `yaml:"fail,omitempty"`

	// Solution holds raw solver output lines.
	Solution string `yaml:"solution"`

	// Capabilities is the job -> operation -> tags table.
	Capabilities map[string]map[string][]ir.Tag `yaml:"capabilities"`

	Expect Expect `yaml:"expect"`
}

// Expect lists the checked outcomes. Empty fields are not checked.
type Expect struct {
	Operations *int     `yaml:"operations,omitempty"`
	Steps      []string `yaml:"steps,omitempty"`
	Goal       string   `yaml:"goal,omitempty"`
	Plan       []string `yaml:"plan,omitempty"`
	Guards     []string `yaml:"guards,omitempty"`
	Status     string   `yaml:"status,omitempty"`
	FinalFacts []string `yaml:"final_facts,omitempty"`

	// Error is a substring of the pipeline error the scenario expects.
	// When set, a successful pipeline is a failure.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads a scenario file. Unknown fields are rejected so
// typos surface as errors instead of silently unchecked expectations.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Solution == "" {
		return fmt.Errorf("solution is required")
	}
	if len(s.Capabilities) == 0 {
		return fmt.Errorf("capabilities table is required and must be non-empty")
	}
	for job, ops := range s.Capabilities {
		for op, tags := range ops {
			for _, tag := range tags {
				if !ir.ValidTags[tag] {
					return fmt.Errorf("capabilities.%s.%s: unknown tag %q", job, op, tag)
				}
			}
		}
	}

	known := make(map[string]bool)
	for _, c := range assembler.Capabilities {
		known[c] = true
	}
	for i, name := range s.Fail {
		if !known[name] {
			return fmt.Errorf("fail[%d]: unknown capability %q", i, name)
		}
	}

	switch s.Expect.Status {
	case "", "success", "failure":
	default:
		return fmt.Errorf("expect.status must be success or failure, got %q", s.Expect.Status)
	}
	for i, g := range s.Expect.Guards {
		switch g {
		case "pending", "succeeded", "failed":
		default:
			return fmt.Errorf("expect.guards[%d]: unknown state %q", i, g)
		}
	}
	return nil
}
