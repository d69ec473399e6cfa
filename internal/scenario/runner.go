package scenario

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/cwbudde/go-lazy/pkg/heap"
	"github.com/cwbudde/go-lazy/pkg/lazy"
)

// maxRenderDepth bounds the rendering of (possibly cyclic) heap graphs.
const maxRenderDepth = 32

// Runner executes scenarios against a fresh heap per run.
type Runner struct {
	clock clock.Clock
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock injects the clock used for elapsed-time measurement.
func WithClock(c clock.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// NewRunner creates a Runner. By default it measures with the wall clock.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{clock: clock.New()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RootResult is the rendered outcome of forcing one root.
type RootResult struct {
	Name  string
	Value string
}

// CallCount reports how often the rule for one thunk constructor fired.
type CallCount struct {
	Ctor  string
	Calls int
}

// Result is the report of one scenario run.
type Result struct {
	Name    string
	Roots   []RootResult
	Calls   []CallCount
	Stats   heap.Stats
	Fatal   string // first fatal runtime error, if any
	Check   string // heap invariant violations, if any
	Elapsed time.Duration
}

// Format renders the report the CLI prints and the fixture snapshots
// capture.
func (res *Result) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "scenario: %s\n", res.Name)
	for _, r := range res.Roots {
		fmt.Fprintf(&sb, "force %s => %s\n", r.Name, r.Value)
	}
	if len(res.Calls) > 0 {
		sb.WriteString("evaluator calls:\n")
		for _, c := range res.Calls {
			fmt.Fprintf(&sb, "  %s: %d\n", c.Ctor, c.Calls)
		}
	}
	if res.Fatal != "" {
		fmt.Fprintf(&sb, "fatal: %s\n", res.Fatal)
	}
	if res.Check != "" {
		fmt.Fprintf(&sb, "heap check: %s\n", res.Check)
	}
	fmt.Fprintf(&sb, "heap: allocs=%d copies=%d frees=%d live=%d\n",
		res.Stats.Allocs, res.Stats.Copies, res.Stats.Frees, res.Stats.Live)
	fmt.Fprintf(&sb, "elapsed: %s\n", res.Elapsed)
	return sb.String()
}

// Run builds the scenario's heap graph, forces each root in order, and
// reports the rendered results together with the heap statistics.
func (r *Runner) Run(cfg *Config) (*Result, error) {
	start := r.clock.Now()

	b, err := newBuilder(cfg)
	if err != nil {
		return nil, err
	}
	b.ctx.SetOnFatal(func(err error) {
		if b.fatal == nil {
			b.fatal = err
		}
	})

	res := &Result{Name: cfg.Name}
	for _, root := range cfg.Roots {
		v := lazy.Force(b.ctx, heap.Box(b.blocks[root]), b.evaluator)
		res.Roots = append(res.Roots, RootResult{Name: root, Value: b.render(v, 0)})
	}

	ctors := make([]string, 0, len(b.calls))
	for ctor := range b.calls {
		ctors = append(ctors, ctor)
	}
	sort.Strings(ctors)
	for _, ctor := range ctors {
		res.Calls = append(res.Calls, CallCount{Ctor: ctor, Calls: b.calls[ctor]})
	}

	if b.fatal != nil {
		res.Fatal = b.fatal.Error()
	}
	if err := heap.Check(b.ctx); err != nil {
		res.Check = err.Error()
	}
	res.Stats = b.ctx.Stats()
	res.Elapsed = r.clock.Since(start)
	return res, nil
}

// builder holds the state of one run: the heap, the named blocks, and the
// constructor-name/tag mapping shared by the evaluator and the renderer.
type builder struct {
	cfg       *Config
	ctx       *heap.Context
	blocks    map[string]*heap.Block
	tags      map[string]heap.Tag
	ctors     map[heap.Tag]string
	rules     map[string]Rule
	calls     map[string]int
	nextValue heap.Tag
	nextLazy  heap.Tag
	fatal     error
}

func newBuilder(cfg *Config) (*builder, error) {
	b := &builder{
		cfg:       cfg,
		ctx:       heap.NewContext(),
		blocks:    make(map[string]*heap.Block, len(cfg.Blocks)),
		tags:      make(map[string]heap.Tag),
		ctors:     make(map[heap.Tag]string),
		rules:     make(map[string]Rule, len(cfg.Rules)),
		calls:     make(map[string]int),
		nextValue: heap.TagMin,
		nextLazy:  heap.TagLazyMin,
	}
	for _, rule := range cfg.Rules {
		b.rules[rule.Thunk] = rule
	}

	// First pass allocates every named block, second pass wires the
	// fields, so references can point forward.
	for _, spec := range cfg.Blocks {
		tag, err := b.blockTag(spec)
		if err != nil {
			return nil, err
		}
		fields := make([]heap.Value, len(spec.Fields))
		b.blocks[spec.Name] = b.ctx.Alloc(tag, len(fields), fields...)
	}
	for _, spec := range cfg.Blocks {
		blk := b.blocks[spec.Name]
		for i, f := range spec.Fields {
			v, err := b.buildField(f)
			if err != nil {
				return nil, err
			}
			blk.SetField(i, v)
		}
		for i := 0; i < spec.Refcount; i++ {
			blk.Dup()
		}
		if spec.Shared {
			blk.MarkThreadShared()
		}
	}
	return b, nil
}

// blockTag resolves the tag a block spec is allocated with.
func (b *builder) blockTag(spec BlockSpec) (heap.Tag, error) {
	switch spec.Kind {
	case KindValue:
		return b.ctorTag(KindValue, spec.Ctor), nil
	case KindThunk:
		return b.ctorTag(KindThunk, spec.Ctor), nil
	case KindIndirection:
		return heap.TagLazyInd, nil
	default:
		return heap.TagNone, fmt.Errorf("block %q: unknown kind %q", spec.Name, spec.Kind)
	}
}

// ctorTag returns the tag registered for a constructor name, assigning
// the next free tag of the matching partition on first use.
func (b *builder) ctorTag(kind, ctor string) heap.Tag {
	if tag, ok := b.tags[ctor]; ok {
		return tag
	}
	var tag heap.Tag
	if kind == KindThunk {
		tag = b.nextLazy
		b.nextLazy++
	} else {
		tag = b.nextValue
		b.nextValue++
	}
	b.tags[ctor] = tag
	b.ctors[tag] = ctor
	return tag
}

// buildField materializes one field spec: an immediate, a reference to a
// named block (adding an owner), or a fresh block.
func (b *builder) buildField(f Field) (heap.Value, error) {
	switch {
	case f.Int != nil:
		return heap.Int(*f.Int), nil
	case f.Ref != "":
		blk, ok := b.blocks[f.Ref]
		if !ok {
			return heap.Value{}, fmt.Errorf("unknown block %q", f.Ref)
		}
		return heap.Box(blk.Dup()), nil
	case f.New != nil:
		fields := make([]heap.Value, len(f.New.Fields))
		for i, sub := range f.New.Fields {
			v, err := b.buildField(sub)
			if err != nil {
				return heap.Value{}, err
			}
			fields[i] = v
		}
		return heap.Box(b.ctx.Alloc(b.ctorTag(f.New.Kind, f.New.Ctor), len(fields), fields...)), nil
	default:
		return heap.Value{}, nil
	}
}

// evaluator is the scenario's rewrite-rule evaluator: it consumes the
// thunk it is handed and produces the result its rule declares.
func (b *builder) evaluator(ctx *heap.Context, v heap.Value) heap.Value {
	arg := v.Ptr()
	ctor := b.ctors[arg.Tag()]
	b.calls[ctor]++
	rule, ok := b.rules[ctor]

	for i := 0; i < arg.ScanCount(); i++ {
		ctx.DropValue(arg.Field(i))
	}
	ctx.Free(arg)

	if !ok {
		return heap.Value{}
	}
	if rule.Yield {
		ctx.SetYielding(true)
		return heap.Value{}
	}
	res, err := b.buildField(rule.Result)
	if err != nil {
		ctx.Fatal(err)
		return heap.Value{}
	}
	return res
}

// render prints a value the way the report shows it, following
// indirections and bounding the depth so cyclic graphs terminate.
func (b *builder) render(v heap.Value, depth int) string {
	if !v.IsPtr() {
		return strconv.FormatInt(v.Imm(), 10)
	}
	if depth > maxRenderDepth {
		return "..."
	}
	blk := v.Ptr()
	switch tag := blk.Tag(); tag {
	case heap.TagLazyEval:
		return "<blackhole>"
	case heap.TagLazyInd:
		return "&" + b.render(blk.Field(0), depth+1)
	case heap.TagFreed:
		return "<freed>"
	default:
		name := b.ctors[tag]
		if name == "" {
			name = fmt.Sprintf("c%#x", uint32(tag))
		}
		if blk.Len() == 0 {
			return name
		}
		parts := make([]string, blk.Len())
		for i := range parts {
			parts[i] = b.render(blk.Field(i), depth+1)
		}
		return name + "(" + strings.Join(parts, ", ") + ")"
	}
}
