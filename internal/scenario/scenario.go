// Package scenario builds heap graphs from declarative descriptions,
// forces their roots through the lazy protocol, and reports the results.
// The lazyeval CLI and the fixture tests drive the runtime through it.
//
// A scenario declares named blocks with raw refcounts, rewrite rules that
// act as the evaluator (one per thunk constructor), and the roots to
// force. Refcounts are taken as declared; a scenario is responsible for
// declaring an ownership structure that is consistent with its graph.
package scenario

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"
)

// Block kinds accepted in scenario files.
const (
	KindValue       = "value"
	KindThunk       = "thunk"
	KindIndirection = "indirection"
)

// Config is a parsed scenario file.
type Config struct {
	Name   string      `yaml:"name"`
	Blocks []BlockSpec `yaml:"blocks"`
	Rules  []Rule      `yaml:"rules"`
	Roots  []string    `yaml:"roots"`
}

// BlockSpec declares one named heap block.
type BlockSpec struct {
	Name     string  `yaml:"name"`
	Kind     string  `yaml:"kind"`
	Ctor     string  `yaml:"ctor,omitempty"`
	Refcount int     `yaml:"refcount,omitempty"`
	Shared   bool    `yaml:"shared,omitempty"`
	Fields   []Field `yaml:"fields,omitempty"`
}

// Field is one block field or rule result: an immediate integer, a
// reference to a named block, or (in rule results) a freshly allocated
// block.
type Field struct {
	Int *int64    `yaml:"int,omitempty"`
	Ref string    `yaml:"ref,omitempty"`
	New *NewBlock `yaml:"new,omitempty"`
}

// NewBlock describes a block a rewrite rule allocates when it fires.
type NewBlock struct {
	Kind   string  `yaml:"kind"`
	Ctor   string  `yaml:"ctor"`
	Fields []Field `yaml:"fields,omitempty"`
}

// Rule is the declarative evaluator for one thunk constructor: forcing a
// thunk with that constructor consumes it and produces the result.
type Rule struct {
	Thunk  string `yaml:"thunk"`
	Result Field  `yaml:"result"`
	Yield  bool   `yaml:"yield,omitempty"`
}

// Load reads and parses a scenario file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", path)
	}
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "scenario %s", path)
	}
	return &cfg, nil
}

// Validate checks the scenario for structural problems and returns all of
// them at once.
func (cfg *Config) Validate() error {
	var err error

	names := make(map[string]bool, len(cfg.Blocks))
	thunkCtors := make(map[string]bool)
	for i, b := range cfg.Blocks {
		if b.Name == "" {
			err = multierr.Append(err, fmt.Errorf("block %d: missing name", i))
			continue
		}
		if names[b.Name] {
			err = multierr.Append(err, fmt.Errorf("block %q: duplicate name", b.Name))
		}
		names[b.Name] = true

		switch b.Kind {
		case KindValue, KindThunk:
			if b.Ctor == "" {
				err = multierr.Append(err, fmt.Errorf("block %q: missing ctor", b.Name))
			}
			if b.Kind == KindThunk {
				thunkCtors[b.Ctor] = true
			}
		case KindIndirection:
			if len(b.Fields) != 1 {
				err = multierr.Append(err, fmt.Errorf("block %q: indirection needs exactly one field", b.Name))
			}
		default:
			err = multierr.Append(err, fmt.Errorf("block %q: unknown kind %q", b.Name, b.Kind))
		}

		for j, f := range b.Fields {
			if f.New != nil {
				err = multierr.Append(err, fmt.Errorf("block %q field %d: new blocks are only allowed in rule results", b.Name, j))
			}
			err = multierr.Append(err, cfg.validateField(fmt.Sprintf("block %q field %d", b.Name, j), f))
		}
	}

	ruleFor := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		if r.Thunk == "" {
			err = multierr.Append(err, fmt.Errorf("rule: missing thunk ctor"))
			continue
		}
		if ruleFor[r.Thunk] {
			err = multierr.Append(err, fmt.Errorf("rule %q: duplicate rule", r.Thunk))
		}
		ruleFor[r.Thunk] = true
		err = multierr.Append(err, cfg.validateField(fmt.Sprintf("rule %q result", r.Thunk), r.Result))
	}
	for ctor := range thunkCtors {
		if !ruleFor[ctor] {
			err = multierr.Append(err, fmt.Errorf("thunk ctor %q: no rule", ctor))
		}
	}

	for _, root := range cfg.Roots {
		if !names[root] {
			err = multierr.Append(err, fmt.Errorf("root %q: unknown block", root))
		}
	}
	if len(cfg.Roots) == 0 {
		err = multierr.Append(err, fmt.Errorf("no roots to force"))
	}

	return err
}

// validateField checks a single field spec. Block names are resolved
// against the declared blocks; at most one of int/ref/new may be set (an
// empty field stands for the immediate 0).
func (cfg *Config) validateField(where string, f Field) error {
	set := 0
	if f.Int != nil {
		set++
	}
	if f.Ref != "" {
		set++
	}
	if f.New != nil {
		set++
	}
	if set > 1 {
		return fmt.Errorf("%s: int, ref and new are mutually exclusive", where)
	}
	if f.Ref != "" && !cfg.hasBlock(f.Ref) {
		return fmt.Errorf("%s: unknown block %q", where, f.Ref)
	}
	if f.New != nil {
		var err error
		if f.New.Kind != KindValue && f.New.Kind != KindThunk {
			err = multierr.Append(err, fmt.Errorf("%s: unknown kind %q", where, f.New.Kind))
		}
		if f.New.Ctor == "" {
			err = multierr.Append(err, fmt.Errorf("%s: missing ctor", where))
		}
		for j, sub := range f.New.Fields {
			err = multierr.Append(err, cfg.validateField(fmt.Sprintf("%s field %d", where, j), sub))
		}
		return err
	}
	return nil
}

func (cfg *Config) hasBlock(name string) bool {
	for _, b := range cfg.Blocks {
		if b.Name == name {
			return true
		}
	}
	return false
}
