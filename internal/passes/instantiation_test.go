package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loom/internal/ir"
)

func TestCreateModuleInstantiationAbsorbsWiring(t *testing.T) {
	_, top, child := buildWiredPair(t)
	din := child.PortByName("din")
	dout := child.PortByName("dout")
	require.Len(t, din.Sinks(), 1)

	require.NoError(t, CreateModuleInstantiation(top))

	require.Len(t, top.Stmts(), 1)
	inst, ok := top.Stmts()[0].(*ir.ModuleInstantiationStmt)
	require.True(t, ok)
	assert.Same(t, child, inst.Target())
	assert.Same(t, top.PortByName("in"), inst.Connected(din).(*ir.Port))
	assert.Same(t, top.PortByName("out"), inst.Connected(dout).(*ir.Port))
	assert.Empty(t, din.Sinks())
}

func TestCreateModuleInstantiationLeavesUnwiredPortOpen(t *testing.T) {
	ctx := ir.NewContext()
	child, err := ctx.Generator("leaf")
	require.NoError(t, err)
	din, err := child.Input("din", 4)
	require.NoError(t, err)
	top, err := ctx.Generator("top")
	require.NoError(t, err)
	require.NoError(t, top.AddChild(child, "u_leaf"))

	require.NoError(t, CreateModuleInstantiation(top))

	inst := top.Stmts()[0].(*ir.ModuleInstantiationStmt)
	assert.Nil(t, inst.Connected(din), "nobody wired din, so it stays open")
}

func TestCreateModuleInstantiationOutputFanout(t *testing.T) {
	ctx := ir.NewContext()
	child, err := ctx.Generator("source")
	require.NoError(t, err)
	dout, err := child.Output("dout", 8)
	require.NoError(t, err)

	top, err := ctx.Generator("top")
	require.NoError(t, err)
	a, err := top.Var("a", 8)
	require.NoError(t, err)
	b, err := top.Var("b", 8)
	require.NoError(t, err)
	require.NoError(t, top.AddChild(child, "u_src"))

	readA, err := a.Assign(dout)
	require.NoError(t, err)
	require.NoError(t, top.AddStmt(readA))
	readB, err := b.Assign(dout)
	require.NoError(t, err)
	require.NoError(t, top.AddStmt(readB))

	require.NoError(t, CreateModuleInstantiation(top))

	// rewritten readers first, the instantiation appended last
	require.Len(t, top.Stmts(), 3)
	inst := top.Stmts()[2].(*ir.ModuleInstantiationStmt)
	wire, ok := inst.Connected(dout).(*ir.Var)
	require.True(t, ok, "fan-out goes through a fresh parent wire")
	assert.Equal(t, "u_src_dout", wire.Name())
	assert.Equal(t, uint32(8), wire.Width())

	// both readers now read the wire
	for _, stmt := range top.Stmts()[:2] {
		read := stmt.(*ir.AssignStmt)
		assert.Same(t, wire, read.Source().(*ir.Var))
	}
	targets := []ir.Value{
		top.Stmts()[0].(*ir.AssignStmt).Target(),
		top.Stmts()[1].(*ir.AssignStmt).Target(),
	}
	assert.Contains(t, targets, ir.Value(a))
	assert.Contains(t, targets, ir.Value(b))
}

func TestCreateModuleInstantiationPartialInputDrive(t *testing.T) {
	ctx := ir.NewContext()
	child, err := ctx.Generator("sink")
	require.NoError(t, err)
	din, err := child.Input("din", 8)
	require.NoError(t, err)

	top, err := ctx.Generator("top")
	require.NoError(t, err)
	lo, err := top.Var("lo", 4)
	require.NoError(t, err)
	hi, err := top.Var("hi", 4)
	require.NoError(t, err)
	require.NoError(t, top.AddChild(child, "u_sink"))

	loRange, err := din.Slice(3, 0)
	require.NoError(t, err)
	driveLo, err := loRange.Assign(lo)
	require.NoError(t, err)
	require.NoError(t, top.AddStmt(driveLo))
	hiRange, err := din.Slice(7, 4)
	require.NoError(t, err)
	driveHi, err := hiRange.Assign(hi)
	require.NoError(t, err)
	require.NoError(t, top.AddStmt(driveHi))

	require.NoError(t, CreateModuleInstantiation(top))

	require.Len(t, top.Stmts(), 3)
	inst := top.Stmts()[2].(*ir.ModuleInstantiationStmt)
	wire, ok := inst.Connected(din).(*ir.Var)
	require.True(t, ok, "partial drives reroute through a fresh parent wire")
	assert.Equal(t, "u_sink_din", wire.Name())

	// the range drives now land on the wire
	first := top.Stmts()[0].(*ir.AssignStmt)
	slice, ok := first.Target().(*ir.VarSlice)
	require.True(t, ok)
	assert.Same(t, wire, slice.Parent().(*ir.Var))
	assert.Equal(t, uint32(3), slice.High)
	assert.Empty(t, loRange.Sinks(), "the port range lost its driver")
}

func TestCreateModuleInstantiationConflictingDrivers(t *testing.T) {
	ctx := ir.NewContext()
	child, err := ctx.Generator("sink")
	require.NoError(t, err)
	din, err := child.Input("din", 8)
	require.NoError(t, err)

	top, err := ctx.Generator("top")
	require.NoError(t, err)
	a, err := top.Var("a", 8)
	require.NoError(t, err)
	b, err := top.Var("b", 8)
	require.NoError(t, err)
	require.NoError(t, top.AddChild(child, "u_sink"))

	first, err := din.Assign(a)
	require.NoError(t, err)
	require.NoError(t, top.AddStmt(first))
	second, err := din.Assign(b)
	require.NoError(t, err)
	require.NoError(t, top.AddStmt(second))

	err = CreateModuleInstantiation(top)
	require.Error(t, err)
	assert.True(t, ir.IsStmtError(err))
	assert.Contains(t, err.Error(), "u_sink.din is driven by multiple statements")
}

func TestCreateModuleInstantiationSkipsExisting(t *testing.T) {
	ctx := ir.NewContext()
	child, err := ctx.Generator("leaf")
	require.NoError(t, err)
	top, err := ctx.Generator("top")
	require.NoError(t, err)
	require.NoError(t, top.AddChild(child, "u_leaf"))

	manual, err := ir.NewModuleInstantiationStmt(child)
	require.NoError(t, err)
	require.NoError(t, top.AddStmt(manual))

	require.NoError(t, CreateModuleInstantiation(top))

	count := 0
	for _, stmt := range top.Stmts() {
		if _, ok := stmt.(*ir.ModuleInstantiationStmt); ok {
			count++
		}
	}
	assert.Equal(t, 1, count, "an instantiated child must not be instantiated again")
}

func TestDecoupleGeneratorPorts(t *testing.T) {
	ctx := ir.NewContext()
	producer, err := ctx.Generator("producer")
	require.NoError(t, err)
	out, err := producer.Output("out", 8)
	require.NoError(t, err)
	consumer, err := ctx.Generator("consumer")
	require.NoError(t, err)
	in, err := consumer.Input("in", 8)
	require.NoError(t, err)

	top, err := ctx.Generator("top")
	require.NoError(t, err)
	require.NoError(t, top.AddChild(producer, "u_prod"))
	require.NoError(t, top.AddChild(consumer, "u_cons"))

	link, err := in.Assign(out)
	require.NoError(t, err)
	require.NoError(t, top.AddStmt(link))

	require.NoError(t, DecoupleGeneratorPorts(top))

	// the direct link became two assigns through a fresh top-level wire
	require.Len(t, top.Stmts(), 2)
	wire := top.GetVar("u_prod_out")
	require.NotNil(t, wire)

	feed := top.Stmts()[0].(*ir.AssignStmt)
	assert.Same(t, wire, feed.Target())
	assert.Same(t, out, feed.Source().(*ir.Port))
	drive := top.Stmts()[1].(*ir.AssignStmt)
	assert.Same(t, in, drive.Target().(*ir.Port))
	assert.Same(t, wire, drive.Source())

	// instantiation absorption now binds both sides to the wire
	require.NoError(t, CreateModuleInstantiation(top))
	require.Len(t, top.Stmts(), 2)
	for _, stmt := range top.Stmts() {
		inst := stmt.(*ir.ModuleInstantiationStmt)
		switch inst.Target() {
		case producer:
			assert.Same(t, wire, inst.Connected(out))
		case consumer:
			assert.Same(t, wire, inst.Connected(in))
		}
	}
}

func TestDecoupleGeneratorPortsIgnoresParentLocalWiring(t *testing.T) {
	_, top, _ := buildWiredPair(t)
	before := len(top.Stmts())
	require.NoError(t, DecoupleGeneratorPorts(top))
	assert.Len(t, top.Stmts(), before, "parent-local wiring needs no decoupling")
}
