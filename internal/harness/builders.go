package harness

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/roach88/loom/internal/ir"
)

// Builder constructs a design top from integer parameters.
// Builders must be deterministic: the same parameters always yield a tree
// that lowers and renders to identical output.
type Builder func(params map[string]int64) (*ir.Generator, error)

var (
	buildersMu sync.RWMutex
	builders   = map[string]Builder{
		"counter":   buildCounter,
		"adder":     buildAdder,
		"mux":       buildMux,
		"hierarchy": buildHierarchy,
		"traced":    buildTraced,
	}
)

// RegisterBuilder adds a design constructor under a new name.
func RegisterBuilder(name string, b Builder) error {
	if name == "" {
		return fmt.Errorf("builder name must not be empty")
	}
	if b == nil {
		return fmt.Errorf("builder %q has no function", name)
	}
	buildersMu.Lock()
	defer buildersMu.Unlock()
	if _, ok := builders[name]; ok {
		return fmt.Errorf("builder %q is already registered", name)
	}
	builders[name] = b
	return nil
}

// LookupBuilder returns the builder registered under the name.
func LookupBuilder(name string) (Builder, bool) {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	b, ok := builders[name]
	return b, ok
}

// BuilderNames returns the registered builder names in sorted order.
func BuilderNames() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// widthParam reads a width parameter with a default, rejecting values the
// type system cannot carry.
func widthParam(params map[string]int64, name string, def int64) (uint32, error) {
	v, ok := params[name]
	if !ok {
		v = def
	}
	if v < 1 || v > math.MaxUint32 {
		return 0, fmt.Errorf("parameter %q must be in [1, %d], got %d", name, uint32(math.MaxUint32), v)
	}
	return uint32(v), nil
}

// buildCounter constructs a synchronous counter with an active high reset:
// count clears on reset and increments by one every clock otherwise.
// Parameters: width (default 8).
func buildCounter(params map[string]int64) (*ir.Generator, error) {
	width, err := widthParam(params, "width", 8)
	if err != nil {
		return nil, err
	}
	ctx := ir.NewContext()
	g, err := ctx.Generator("counter")
	if err != nil {
		return nil, err
	}
	clk, err := g.ClockPort("clk")
	if err != nil {
		return nil, err
	}
	rst, err := g.ResetPort("rst")
	if err != nil {
		return nil, err
	}
	count, err := g.Output("count", width)
	if err != nil {
		return nil, err
	}
	zero, err := g.Constant(0, width)
	if err != nil {
		return nil, err
	}
	one, err := g.Constant(1, width)
	if err != nil {
		return nil, err
	}
	next, err := count.Add(one)
	if err != nil {
		return nil, err
	}

	seq, err := g.Sequential(ir.EventControl{Edge: ir.Posedge, Value: clk})
	if err != nil {
		return nil, err
	}
	branch, err := ir.NewIfStmt(rst)
	if err != nil {
		return nil, err
	}
	clear, err := count.Assign(zero)
	if err != nil {
		return nil, err
	}
	if err := branch.AddThen(clear); err != nil {
		return nil, err
	}
	step, err := count.Assign(next)
	if err != nil {
		return nil, err
	}
	if err := branch.AddElse(step); err != nil {
		return nil, err
	}
	if err := seq.AddStmt(branch); err != nil {
		return nil, err
	}
	return g, nil
}

// buildAdder constructs a combinational adder: sum = a + b.
// Parameters: width (default 8).
func buildAdder(params map[string]int64) (*ir.Generator, error) {
	width, err := widthParam(params, "width", 8)
	if err != nil {
		return nil, err
	}
	ctx := ir.NewContext()
	g, err := ctx.Generator("adder")
	if err != nil {
		return nil, err
	}
	a, err := g.Input("a", width)
	if err != nil {
		return nil, err
	}
	b, err := g.Input("b", width)
	if err != nil {
		return nil, err
	}
	sum, err := g.Output("sum", width)
	if err != nil {
		return nil, err
	}
	total, err := a.Add(b)
	if err != nil {
		return nil, err
	}
	comb, err := g.Combinational()
	if err != nil {
		return nil, err
	}
	add, err := sum.Assign(total)
	if err != nil {
		return nil, err
	}
	if err := comb.AddStmt(add); err != nil {
		return nil, err
	}
	return g, nil
}

// buildMux constructs a two-way combinational mux selected by a single bit.
// Parameters: width (default 8).
func buildMux(params map[string]int64) (*ir.Generator, error) {
	width, err := widthParam(params, "width", 8)
	if err != nil {
		return nil, err
	}
	ctx := ir.NewContext()
	g, err := ctx.Generator("mux")
	if err != nil {
		return nil, err
	}
	a, err := g.Input("a", width)
	if err != nil {
		return nil, err
	}
	b, err := g.Input("b", width)
	if err != nil {
		return nil, err
	}
	sel, err := g.Input("sel", 1)
	if err != nil {
		return nil, err
	}
	out, err := g.Output("out", width)
	if err != nil {
		return nil, err
	}

	comb, err := g.Combinational()
	if err != nil {
		return nil, err
	}
	branch, err := ir.NewIfStmt(sel)
	if err != nil {
		return nil, err
	}
	takeA, err := out.Assign(a)
	if err != nil {
		return nil, err
	}
	if err := branch.AddThen(takeA); err != nil {
		return nil, err
	}
	takeB, err := out.Assign(b)
	if err != nil {
		return nil, err
	}
	if err := branch.AddElse(takeB); err != nil {
		return nil, err
	}
	if err := comb.AddStmt(branch); err != nil {
		return nil, err
	}
	return g, nil
}

// buildHierarchy constructs a parent with one pass-through child wired
// port-to-port, exercising instantiation derivation and port map absorption.
// Parameters: width (default 8).
func buildHierarchy(params map[string]int64) (*ir.Generator, error) {
	width, err := widthParam(params, "width", 8)
	if err != nil {
		return nil, err
	}
	ctx := ir.NewContext()
	top, err := ctx.Generator("top")
	if err != nil {
		return nil, err
	}
	in, err := top.Input("in", width)
	if err != nil {
		return nil, err
	}
	out, err := top.Output("out", width)
	if err != nil {
		return nil, err
	}

	stage, err := ctx.Generator("stage")
	if err != nil {
		return nil, err
	}
	din, err := stage.Input("din", width)
	if err != nil {
		return nil, err
	}
	dout, err := stage.Output("dout", width)
	if err != nil {
		return nil, err
	}
	comb, err := stage.Combinational()
	if err != nil {
		return nil, err
	}
	pass, err := dout.Assign(din)
	if err != nil {
		return nil, err
	}
	if err := comb.AddStmt(pass); err != nil {
		return nil, err
	}

	if err := top.AddChild(stage, "u_stage"); err != nil {
		return nil, err
	}
	feed, err := din.Assign(in)
	if err != nil {
		return nil, err
	}
	if err := top.AddStmt(feed); err != nil {
		return nil, err
	}
	drain, err := out.Assign(dout)
	if err != nil {
		return nil, err
	}
	if err := top.AddStmt(drain); err != nil {
		return nil, err
	}
	return top, nil
}

// buildTraced constructs a capture register instrumented with events: on a
// valid beat the data is captured and "capture" fires with the data payload;
// on an idle beat "idle" fires with no payload.
// Parameters: width (default 8).
func buildTraced(params map[string]int64) (*ir.Generator, error) {
	width, err := widthParam(params, "width", 8)
	if err != nil {
		return nil, err
	}
	ctx := ir.NewContext()
	g, err := ctx.Generator("traced")
	if err != nil {
		return nil, err
	}
	clk, err := g.ClockPort("clk")
	if err != nil {
		return nil, err
	}
	valid, err := g.Input("valid", 1)
	if err != nil {
		return nil, err
	}
	data, err := g.Input("data", width)
	if err != nil {
		return nil, err
	}
	seen, err := g.Output("seen", width)
	if err != nil {
		return nil, err
	}

	capture, err := ir.NewEvent("capture")
	if err != nil {
		return nil, err
	}
	idle, err := ir.NewEvent("idle")
	if err != nil {
		return nil, err
	}

	seq, err := g.Sequential(ir.EventControl{Edge: ir.Posedge, Value: clk})
	if err != nil {
		return nil, err
	}
	branch, err := ir.NewIfStmt(valid)
	if err != nil {
		return nil, err
	}
	hold, err := seen.Assign(data)
	if err != nil {
		return nil, err
	}
	if err := branch.AddThen(hold); err != nil {
		return nil, err
	}
	fired, err := capture.Fire(map[string]ir.Value{"data": data})
	if err != nil {
		return nil, err
	}
	if err := branch.AddThen(fired); err != nil {
		return nil, err
	}
	rested, err := idle.Fire(nil)
	if err != nil {
		return nil, err
	}
	if err := branch.AddElse(rested); err != nil {
		return nil, err
	}
	if err := seq.AddStmt(branch); err != nil {
		return nil, err
	}
	return g, nil
}
