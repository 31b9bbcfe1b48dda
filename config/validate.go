package config

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSrc string

// A cue.Context is not safe for concurrent use; mu guards ctx and every
// value derived from it.
type compiledSchema struct {
	mu     *sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

var compileSchema = sync.OnceValues(func() (compiledSchema, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString("close({" + schemaSrc + "})")
	if err := schema.Err(); err != nil {
		return compiledSchema{}, err
	}
	return compiledSchema{mu: new(sync.Mutex), ctx: ctx, schema: schema}, nil
})

// Validate checks the configuration against the embedded CUE schema and
// the constraints the schema cannot express.
func (c *Config) Validate() error {
	cs, err := compileSchema()
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	if err := cs.check(c); err != nil {
		return err
	}

	if c.Clock.Tick.Duration <= 0 {
		return fmt.Errorf("clock.tick must be positive, got %s", c.Clock.Tick)
	}
	if c.Program.Source != "" && c.Program.Image != "" {
		return errors.New("program.source and program.image are mutually exclusive")
	}
	return nil
}

func (cs compiledSchema) check(c *Config) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	value := cs.ctx.Encode(c)
	if err := value.Err(); err != nil {
		return err
	}
	return cs.schema.Unify(value).Validate(cue.Concrete(true))
}
