package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loom/internal/ir"
	"github.com/roach88/loom/internal/passes"
)

// addStage creates a pass-through module named "stage" with a din input, a
// dout output, and a combinational body, leaving the assignment discipline
// for the lowering passes to resolve.
func addStage(t *testing.T, ctx *ir.Context, width uint32) *ir.Generator {
	t.Helper()
	g, err := ctx.Generator("stage")
	require.NoError(t, err)
	din, err := g.Input("din", width)
	require.NoError(t, err)
	dout, err := g.Output("dout", width)
	require.NoError(t, err)
	comb, err := g.Combinational()
	require.NoError(t, err)
	step, err := dout.Assign(din)
	require.NoError(t, err)
	require.NoError(t, comb.AddStmt(step))
	return g
}

// wire adds a top-level continuous assignment to the module body.
func wire(t *testing.T, g *ir.Generator, target, source ir.Value) {
	t.Helper()
	s, err := target.Assign(source)
	require.NoError(t, err)
	require.NoError(t, g.AddStmt(s))
}

// buildWiredHierarchy returns a parent with one pass-through child wired
// port-to-port at the parent's top level.
func buildWiredHierarchy(t *testing.T) *ir.Generator {
	t.Helper()
	ctx := ir.NewContext()
	top, err := ctx.Generator("top")
	require.NoError(t, err)
	in, err := top.Input("in", 8)
	require.NoError(t, err)
	out, err := top.Output("out", 8)
	require.NoError(t, err)
	stage := addStage(t, ctx, 8)
	require.NoError(t, top.AddChild(stage, "u_stage"))
	wire(t, top, stage.PortByName("din"), in)
	wire(t, top, out, stage.PortByName("dout"))
	return top
}

// buildCounter returns a self-contained synchronous counter with an active
// high reset.
func buildCounter(t *testing.T) *ir.Generator {
	t.Helper()
	ctx := ir.NewContext()
	g, err := ctx.Generator("counter")
	require.NoError(t, err)
	clk, err := g.ClockPort("clk")
	require.NoError(t, err)
	rst, err := g.ResetPort("rst")
	require.NoError(t, err)
	count, err := g.Output("count", 8)
	require.NoError(t, err)
	zero, err := g.Constant(0, 8)
	require.NoError(t, err)
	one, err := g.Constant(1, 8)
	require.NoError(t, err)
	next, err := count.Add(one)
	require.NoError(t, err)

	seq, err := g.Sequential(ir.EventControl{Edge: ir.Posedge, Value: clk})
	require.NoError(t, err)
	branch, err := ir.NewIfStmt(rst)
	require.NoError(t, err)
	clear, err := count.AssignKind(zero, ir.NonBlocking)
	require.NoError(t, err)
	require.NoError(t, branch.AddThen(clear))
	step, err := count.AssignKind(next, ir.NonBlocking)
	require.NoError(t, err)
	require.NoError(t, branch.AddElse(step))
	require.NoError(t, seq.AddStmt(branch))
	return g
}

// TestGenerateModule_CombinationalMux renders a two-way mux and checks the
// exact emitted text: header ports in declaration order, always_comb body,
// and an if/else with two-space indentation.
func TestGenerateModule_CombinationalMux(t *testing.T) {
	ctx := ir.NewContext()
	g, err := ctx.Generator("mux")
	require.NoError(t, err)
	a, err := g.Input("a", 8)
	require.NoError(t, err)
	b, err := g.Input("b", 8)
	require.NoError(t, err)
	sel, err := g.Input("sel", 1)
	require.NoError(t, err)
	out, err := g.Output("out", 8)
	require.NoError(t, err)

	comb, err := g.Combinational()
	require.NoError(t, err)
	branch, err := ir.NewIfStmt(sel)
	require.NoError(t, err)
	takeA, err := out.AssignKind(a, ir.Blocking)
	require.NoError(t, err)
	require.NoError(t, branch.AddThen(takeA))
	takeB, err := out.AssignKind(b, ir.Blocking)
	require.NoError(t, err)
	require.NoError(t, branch.AddElse(takeB))
	require.NoError(t, comb.AddStmt(branch))

	src, err := GenerateModule(g)
	require.NoError(t, err)
	want := `module mux (
  input logic [7:0] a,
  input logic [7:0] b,
  input logic sel,
  output logic [7:0] out
);

always_comb begin
  if (sel) begin
    out = a;
  end
  else begin
    out = b;
  end
end
endmodule  // mux
`
	assert.Equal(t, want, src)
}

// TestGenerateModule_SliceAssigns checks nibble-swap wiring: slice targets
// and sources on both sides of continuous assignments, plus an internal
// variable declaration between header and body.
func TestGenerateModule_SliceAssigns(t *testing.T) {
	ctx := ir.NewContext()
	g, err := ctx.Generator("swizzle")
	require.NoError(t, err)
	din, err := g.Input("din", 8)
	require.NoError(t, err)
	dout, err := g.Output("dout", 8)
	require.NoError(t, err)
	tmp, err := g.Var("tmp", 8)
	require.NoError(t, err)

	tmpHi, err := tmp.Slice(7, 4)
	require.NoError(t, err)
	tmpLo, err := tmp.Slice(3, 0)
	require.NoError(t, err)
	dinHi, err := din.Slice(7, 4)
	require.NoError(t, err)
	dinLo, err := din.Slice(3, 0)
	require.NoError(t, err)
	wire(t, g, tmpHi, dinLo)
	wire(t, g, tmpLo, dinHi)
	wire(t, g, dout, tmp)

	src, err := GenerateModule(g)
	require.NoError(t, err)
	want := `module swizzle (
  input logic [7:0] din,
  output logic [7:0] dout
);

logic [7:0] tmp;

assign tmp[7:4] = din[3:0];
assign tmp[3:0] = din[7:4];
assign dout = tmp;
endmodule  // swizzle
`
	assert.Equal(t, want, src)
}

// TestGenerateModule_DeclarationShapes covers the declaration varieties in
// one module: signed ports and variables, enum variables flattened to plain
// vectors, enum constants rendered as sized literals, signedness casts,
// negative literals, and single-bit selects.
func TestGenerateModule_DeclarationShapes(t *testing.T) {
	ctx := ir.NewContext()
	g, err := ctx.Generator("shapes")
	require.NoError(t, err)
	u, err := g.Var("u", 8)
	require.NoError(t, err)
	sreg, err := g.SignedVar("sreg", 8)
	require.NoError(t, err)
	def, err := g.Enum("state_t", []ir.EnumMember{
		{Name: "idle", Value: 0},
		{Name: "busy", Value: 1},
	}, 2)
	require.NoError(t, err)
	state, err := g.EnumVar("state", def)
	require.NoError(t, err)
	sout, err := g.Port(ir.Out, "sout", 8, ir.Data, true)
	require.NoError(t, err)
	flag, err := g.Output("flag", 1)
	require.NoError(t, err)

	idle, err := def.Member("idle")
	require.NoError(t, err)
	wire(t, g, state, idle)
	minusFive, err := g.SignedConstant(-5, 8)
	require.NoError(t, err)
	wire(t, g, sreg, minusFive)
	wire(t, g, sout, u.AsSigned())
	bit, err := u.Bit(3)
	require.NoError(t, err)
	wire(t, g, flag, bit)

	src, err := GenerateModule(g)
	require.NoError(t, err)
	want := `module shapes (
  output logic signed [7:0] sout,
  output logic flag
);

logic [7:0] u;
logic signed [7:0] sreg;
logic [1:0] state;

assign state = 2'h0;
assign sreg = -8'h5;
assign sout = signed'(u);
assign flag = u[3];
endmodule  // shapes
`
	assert.Equal(t, want, src)
}

func TestGenerateModule_BundlesAndCalls(t *testing.T) {
	ctx := ir.NewContext()
	g, err := ctx.Generator("nic")
	require.NoError(t, err)

	pktDef, err := g.PackedStruct("packet_t", []ir.PackedField{
		{Name: "head", Width: 4},
		{Name: "body", Width: 8},
	})
	require.NoError(t, err)
	pkt, err := g.PackedStructPort(ir.In, "pkt", pktDef)
	require.NoError(t, err)
	parity, err := g.Output("parity", 8)
	require.NoError(t, err)

	busDef, err := g.Interface("bus_if", []ir.InterfaceSignal{
		{Name: "valid", Width: 1},
		{Name: "payload", Width: 8},
	})
	require.NoError(t, err)
	bus, err := g.InterfaceVar("bus", busDef)
	require.NoError(t, err)

	body, err := pkt.Member("body")
	require.NoError(t, err)
	payload, err := bus.Member("payload")
	require.NoError(t, err)
	wire(t, g, payload, body)

	ones, err := g.FunctionCall("$countones", 8, false, payload)
	require.NoError(t, err)
	wire(t, g, parity, ones)

	src, err := GenerateModule(g)
	require.NoError(t, err)
	want := `module nic (
  input logic [11:0] pkt,
  output logic [7:0] parity
);

logic [9:0] bus;

assign bus[8:1] = pkt[7:0];
assign parity = $countones(bus[8:1]);
endmodule  // nic
`
	assert.Equal(t, want, src)
}

// TestGenerateModule_ExpressionParentheses checks that nested expression
// operands are parenthesized while top-level expressions are not.
func TestGenerateModule_ExpressionParentheses(t *testing.T) {
	ctx := ir.NewContext()
	g, err := ctx.Generator("alu")
	require.NoError(t, err)
	a, err := g.Input("a", 8)
	require.NoError(t, err)
	b, err := g.Input("b", 8)
	require.NoError(t, err)
	c, err := g.Input("c", 8)
	require.NoError(t, err)
	res, err := g.Output("res", 8)
	require.NoError(t, err)
	gt, err := g.Output("gt", 1)
	require.NoError(t, err)
	inv, err := g.Output("inv", 8)
	require.NoError(t, err)

	sum, err := a.Add(b)
	require.NoError(t, err)
	masked, err := sum.And(c)
	require.NoError(t, err)
	wire(t, g, res, masked)
	cmp, err := a.Gt(b)
	require.NoError(t, err)
	wire(t, g, gt, cmp)
	flipped, err := a.Invert()
	require.NoError(t, err)
	mixed, err := flipped.Xor(b)
	require.NoError(t, err)
	wire(t, g, inv, mixed)

	src, err := GenerateModule(g)
	require.NoError(t, err)
	want := `module alu (
  input logic [7:0] a,
  input logic [7:0] b,
  input logic [7:0] c,
  output logic [7:0] res,
  output logic gt,
  output logic [7:0] inv
);

assign res = (a + b) & c;
assign gt = a > b;
assign inv = (~a) ^ b;
endmodule  // alu
`
	assert.Equal(t, want, src)
}

// TestGenerateModule_InstantiationSortsPortMap connects ports out of
// declaration order and checks the rendered port map is sorted by name.
func TestGenerateModule_InstantiationSortsPortMap(t *testing.T) {
	ctx := ir.NewContext()
	top, err := ctx.Generator("top")
	require.NoError(t, err)
	in, err := top.Input("in", 8)
	require.NoError(t, err)
	out, err := top.Output("out", 8)
	require.NoError(t, err)
	leaf, err := ctx.Generator("leaf")
	require.NoError(t, err)
	_, err = leaf.Input("din", 8)
	require.NoError(t, err)
	_, err = leaf.Output("dout", 8)
	require.NoError(t, err)
	require.NoError(t, top.AddChild(leaf, "u_leaf"))

	inst, err := ir.NewModuleInstantiationStmt(leaf)
	require.NoError(t, err)
	require.NoError(t, inst.Connect(leaf.PortByName("dout"), out))
	require.NoError(t, inst.Connect(leaf.PortByName("din"), in))
	require.NoError(t, top.AddStmt(inst))

	src, err := GenerateModule(top)
	require.NoError(t, err)
	want := `module top (
  input logic [7:0] in,
  output logic [7:0] out
);

leaf u_leaf (
  .din(in),
  .dout(out)
);
endmodule  // top
`
	assert.Equal(t, want, src)
}

// TestGenerateModule_ScopedBlockFlattens checks that a scoped grouping block
// contributes its statements without emitting begin/end of its own.
func TestGenerateModule_ScopedBlockFlattens(t *testing.T) {
	ctx := ir.NewContext()
	g, err := ctx.Generator("scoped")
	require.NoError(t, err)
	x, err := g.Output("x", 8)
	require.NoError(t, err)
	one, err := g.Constant(1, 8)
	require.NoError(t, err)

	comb, err := g.Combinational()
	require.NoError(t, err)
	group := ir.NewStmtBlock(ir.Scoped)
	set, err := x.AssignKind(one, ir.Blocking)
	require.NoError(t, err)
	require.NoError(t, group.AddStmt(set))
	require.NoError(t, comb.AddStmt(group))

	src, err := GenerateModule(g)
	require.NoError(t, err)
	want := `module scoped (
  output logic [7:0] x
);

always_comb begin
  x = 8'h1;
end
endmodule  // scoped
`
	assert.Equal(t, want, src)
}

// TestGenerateModule_EmptyModule renders a module with no ports, variables,
// or statements.
func TestGenerateModule_EmptyModule(t *testing.T) {
	ctx := ir.NewContext()
	g, err := ctx.Generator("blank")
	require.NoError(t, err)

	src, err := GenerateModule(g)
	require.NoError(t, err)
	assert.Equal(t, "module blank;\n\nendmodule  // blank\n", src)
}

// TestGenerateModule_UnresolvedDiscipline rejects a process assignment whose
// discipline was never resolved.
func TestGenerateModule_UnresolvedDiscipline(t *testing.T) {
	ctx := ir.NewContext()
	g, err := ctx.Generator("raw")
	require.NoError(t, err)
	a, err := g.Var("a", 8)
	require.NoError(t, err)
	b, err := g.Var("b", 8)
	require.NoError(t, err)
	comb, err := g.Combinational()
	require.NoError(t, err)
	s, err := b.Assign(a)
	require.NoError(t, err)
	require.NoError(t, comb.AddStmt(s))

	_, err = GenerateModule(g)
	require.Error(t, err)
	assert.True(t, ir.IsInternalError(err))
	assert.Contains(t, err.Error(), "unresolved")
}

// TestGenerateModule_EventStmtRejected reports an internal fault when an
// event statement survives to emission.
func TestGenerateModule_EventStmtRejected(t *testing.T) {
	ctx := ir.NewContext()
	g, err := ctx.Generator("monitor")
	require.NoError(t, err)
	comb, err := g.Combinational()
	require.NoError(t, err)
	fire, err := ir.NewEventTracingStmt("pkt")
	require.NoError(t, err)
	require.NoError(t, comb.AddStmt(fire))

	_, err = GenerateModule(g)
	require.Error(t, err)
	assert.True(t, ir.IsInternalError(err))
	assert.Contains(t, err.Error(), "stripped")
}

// TestGenerateModule_EmptySensitivity rejects a sequential block whose
// sensitivity list was never populated.
func TestGenerateModule_EmptySensitivity(t *testing.T) {
	ctx := ir.NewContext()
	g, err := ctx.Generator("stuck")
	require.NoError(t, err)
	blk := ir.NewStmtBlock(ir.Sequential)
	require.NoError(t, g.AddStmt(blk))

	_, err = GenerateModule(g)
	require.Error(t, err)
	assert.True(t, ir.IsInternalError(err))
	assert.Contains(t, err.Error(), "sensitivity")
}

// TestGenerateModule_NilGenerator rejects a missing generator.
func TestGenerateModule_NilGenerator(t *testing.T) {
	_, err := GenerateModule(nil)
	require.Error(t, err)
	assert.True(t, ir.IsUserError(err))

	_, err = Generate(nil)
	require.Error(t, err)
	assert.True(t, ir.IsUserError(err))
}

// TestGenerate_WiredHierarchy lowers a two-level design and checks both
// rendered definitions: the parent's wiring collapses into a port map and
// the child's pass-through resolves to a blocking assignment.
func TestGenerate_WiredHierarchy(t *testing.T) {
	top := buildWiredHierarchy(t)
	out, err := Generate(top)
	require.NoError(t, err)
	require.Len(t, out, 2)

	wantTop := `module top (
  input logic [7:0] in,
  output logic [7:0] out
);

stage u_stage (
  .din(in),
  .dout(out)
);
endmodule  // top
`
	wantStage := `module stage (
  input logic [7:0] din,
  output logic [7:0] dout
);

always_comb begin
  dout = din;
end
endmodule  // stage
`
	assert.Equal(t, wantTop, out["top"])
	assert.Equal(t, wantStage, out["stage"])
}

// TestGenerate_SharedDefinitionEmittedOnce instantiates two structurally
// identical children and checks that one shared definition is rendered.
func TestGenerate_SharedDefinitionEmittedOnce(t *testing.T) {
	ctx := ir.NewContext()
	top, err := ctx.Generator("top")
	require.NoError(t, err)
	in, err := top.Input("in", 8)
	require.NoError(t, err)
	outA, err := top.Output("out_a", 8)
	require.NoError(t, err)
	outB, err := top.Output("out_b", 8)
	require.NoError(t, err)
	s1 := addStage(t, ctx, 8)
	s2 := addStage(t, ctx, 8)
	require.NoError(t, top.AddChild(s1, "u_a"))
	require.NoError(t, top.AddChild(s2, "u_b"))
	wire(t, top, s1.PortByName("din"), in)
	wire(t, top, outA, s1.PortByName("dout"))
	wire(t, top, s2.PortByName("din"), in)
	wire(t, top, outB, s2.PortByName("dout"))

	out, err := Generate(top)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Contains(t, out, "top")
	assert.Contains(t, out, "stage")
	assert.Contains(t, out["top"], "stage u_a (")
	assert.Contains(t, out["top"], "stage u_b (")
}

// TestGenerate_UniquifiedNames gives two structurally different children the
// same definition name and checks the rendered names diverge.
func TestGenerate_UniquifiedNames(t *testing.T) {
	ctx := ir.NewContext()
	top, err := ctx.Generator("top")
	require.NoError(t, err)
	in8, err := top.Input("in8", 8)
	require.NoError(t, err)
	in16, err := top.Input("in16", 16)
	require.NoError(t, err)
	out8, err := top.Output("out8", 8)
	require.NoError(t, err)
	out16, err := top.Output("out16", 16)
	require.NoError(t, err)
	narrow := addStage(t, ctx, 8)
	wide := addStage(t, ctx, 16)
	require.NoError(t, top.AddChild(narrow, "u_a"))
	require.NoError(t, top.AddChild(wide, "u_b"))
	wire(t, top, narrow.PortByName("din"), in8)
	wire(t, top, out8, narrow.PortByName("dout"))
	wire(t, top, wide.PortByName("din"), in16)
	wire(t, top, out16, wide.PortByName("dout"))

	out, err := Generate(top)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Contains(t, out, "stage")
	assert.Contains(t, out, "stage_1")
	assert.Contains(t, out["top"], "stage u_a (")
	assert.Contains(t, out["top"], "stage_1 u_b (")
	assert.Contains(t, out["stage_1"], "input logic [15:0] din")
}

// TestGenerate_SurfacesConnectivityErrors leaves a child input undriven and
// checks the connectivity diagnostic comes back untouched.
func TestGenerate_SurfacesConnectivityErrors(t *testing.T) {
	ctx := ir.NewContext()
	top, err := ctx.Generator("top")
	require.NoError(t, err)
	out, err := top.Output("out", 8)
	require.NoError(t, err)
	stage := addStage(t, ctx, 8)
	require.NoError(t, top.AddChild(stage, "u_stage"))
	wire(t, top, out, stage.PortByName("dout"))

	_, err = Generate(top)
	require.Error(t, err)
	assert.True(t, ir.IsGeneratorError(err))
	assert.Contains(t, err.Error(), "u_stage.din is not connected")
}

// TestGenerate_EventMustBeStripped checks that a design still carrying event
// statements fails generation instead of silently dropping them.
func TestGenerate_EventMustBeStripped(t *testing.T) {
	ctx := ir.NewContext()
	g, err := ctx.Generator("monitor")
	require.NoError(t, err)
	comb, err := g.Combinational()
	require.NoError(t, err)
	fire, err := ir.NewEventTracingStmt("pkt")
	require.NoError(t, err)
	require.NoError(t, comb.AddStmt(fire))

	_, err = Generate(g)
	require.Error(t, err)
	assert.True(t, ir.IsInternalError(err))
}

// TestGenerate_Repeatable runs generation twice over the same tree; the
// lowering passes are idempotent, so both runs must render identical bytes.
func TestGenerate_Repeatable(t *testing.T) {
	top := buildWiredHierarchy(t)
	first, err := Generate(top)
	require.NoError(t, err)
	second, err := Generate(top)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// TestGenerate_StrippedEventsLeaveNoTrace builds two counters, adds a fire
// site to one, strips it, and checks both render byte-identically: tracing
// must leave nothing behind in the generated modules.
func TestGenerate_StrippedEventsLeaveNoTrace(t *testing.T) {
	plain := buildCounter(t)
	traced := buildCounter(t)

	ev, err := ir.NewEvent("tick")
	require.NoError(t, err)
	fire, err := ev.Fire(nil)
	require.NoError(t, err)
	seq := traced.Stmts()[0].(*ir.StmtBlock)
	require.NoError(t, seq.AddStmt(fire))

	require.NoError(t, passes.RemoveEventStmts(traced))

	want, err := Generate(plain)
	require.NoError(t, err)
	got, err := Generate(traced)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
