// Package config holds the process-wide static tables of the pipeline:
// agent and location names, the location inversion table, location
// coordinates, per-operation marker ids and marker topics, the raw solver
// grammar and runtime timings.
//
// A Config is loaded once and then only read through its lookup methods,
// so tests can substitute fixtures without touching package state.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sched2bt/internal/ir"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Pose is a 2D goal pose for the mobile base.
type Pose struct {
	X            float64 `yaml:"x" json:"x"`
	Y            float64 `yaml:"y" json:"y"`
	OrientationZ float64 `yaml:"orientation_z" json:"orientation_z"`
	OrientationW float64 `yaml:"orientation_w" json:"orientation_w"`
}

// MarkerPair is the marker observed before picking and before placing.
type MarkerPair struct {
	Pick  int `yaml:"pick" json:"pick"`
	Place int `yaml:"place" json:"place"`
}

// Grammar names the raw solver variables.
type Grammar struct {
	Start  string `yaml:"start" json:"start"`
	End    string `yaml:"end" json:"end"`
	Active string `yaml:"active" json:"active"`
}

// Config is the static configuration. Do not mutate after Load.
type Config struct {
	Agent               string `yaml:"agent" json:"agent"`
	BaseLocation        string `yaml:"base_location" json:"base_location"`
	WorkstationLocation string `yaml:"workstation_location" json:"workstation_location"`

	Inversions  map[string]string     `yaml:"inversions" json:"inversions"`
	Coordinates map[string]Pose       `yaml:"coordinates" json:"coordinates"`
	Markers     map[string]MarkerPair `yaml:"markers" json:"markers"`

	// MarkerTopics is keyed by the decimal marker id.
	MarkerTopics map[string]string `yaml:"marker_topics" json:"marker_topics"`
	DefaultTopic string            `yaml:"default_topic" json:"default_topic"`

	RobotResources        []string `yaml:"robot_resources" json:"robot_resources"`
	CollaborativeResource string   `yaml:"collaborative_resource" json:"collaborative_resource"`

	WaitSeconds  float64 `yaml:"wait_seconds" json:"wait_seconds"`
	TickPeriodMS int     `yaml:"tick_period_ms" json:"tick_period_ms"`

	Grammar Grammar `yaml:"grammar" json:"grammar"`
}

// Default returns the embedded production configuration.
func Default() *Config {
	cfg, err := Parse(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load reads a YAML file layered over the embedded defaults.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ir.IOError{Op: "read", Path: path, Err: err}
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
// Maps in data are merged key by key into the default tables.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return nil, fmt.Errorf("decode defaults: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against the embedded CUE schema and the cross-table
// constraints the schema cannot express.
func Validate(cfg *Config) error {
	if err := validateSchema(cfg); err != nil {
		return err
	}

	var errs []error
	for _, loc := range []string{cfg.BaseLocation, cfg.WorkstationLocation} {
		if _, ok := cfg.Coordinates[loc]; !ok {
			errs = append(errs, fmt.Errorf("coordinates: missing pose for %s", loc))
		}
	}
	for from, to := range cfg.Inversions {
		if back, ok := cfg.Inversions[to]; ok && back != from {
			errs = append(errs, fmt.Errorf("inversions: %s -> %s -> %s is not an involution", from, to, back))
		}
	}
	return errors.Join(errs...)
}

// WaitDuration is the default execution time of a wait action.
func (c *Config) WaitDuration() time.Duration {
	return time.Duration(c.WaitSeconds * float64(time.Second))
}

// TickPeriod is the runtime tick interval.
func (c *Config) TickPeriod() time.Duration {
	return time.Duration(c.TickPeriodMS) * time.Millisecond
}

// Invert returns the opposite of a location. ok is false when the
// inversion table has no entry.
func (c *Config) Invert(loc string) (string, bool) {
	inv, ok := c.Inversions[strings.ToLower(loc)]
	return inv, ok
}

// Pose returns the coordinates of a location.
func (c *Config) Pose(loc string) (Pose, bool) {
	p, ok := c.Coordinates[strings.ToLower(loc)]
	return p, ok
}

// Marker returns the marker pair of an operation. A collaborative suffix
// is ignored: OP22_CO resolves through OP22.
func (c *Config) Marker(op string) (MarkerPair, bool) {
	m, ok := c.Markers[BaseOperation(op)]
	return m, ok
}

// Topic returns the pose topic publishing a marker, falling back to the
// default topic.
func (c *Config) Topic(marker int) string {
	if t, ok := c.MarkerTopics[strconv.Itoa(marker)]; ok {
		return t
	}
	return c.DefaultTopic
}

// IsRobotResource reports whether r is executed by the robot.
func (c *Config) IsRobotResource(r ir.Resource) bool {
	for _, x := range c.RobotResources {
		if x == string(r) {
			return true
		}
	}
	return false
}

// IsCollaborative reports whether r is the collaborative resource.
func (c *Config) IsCollaborative(r ir.Resource) bool {
	return string(r) == c.CollaborativeResource
}

// BaseOperation upper-cases an operation name and strips the
// collaborative suffix.
func BaseOperation(op string) string {
	op = strings.ToUpper(op)
	return strings.TrimSuffix(op, "_CO")
}
