package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE []byte

// ValidationError lists schema violations with their field paths.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "config: schema violation: " + strings.Join(e.Violations, "; ")
}

// validateSchema encodes cfg as a CUE value and unifies it with #Config.
func validateSchema(cfg *Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config: compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.Encode(cfg)
	if err := v.Err(); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Violations: violations(err)}
	}
	return nil
}

func violations(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		path := strings.Join(e.Path(), ".")
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path != "" {
			msg = path + ": " + msg
		}
		out = append(out, msg)
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}
