package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loom/internal/ir"
)

// buildClockedModule returns a generator with a clock port and an empty
// sequential process, plus two 8-bit vars to assign between.
func buildClockedModule(t *testing.T) (*ir.Generator, *ir.StmtBlock, *ir.Var, *ir.Var) {
	t.Helper()
	ctx := ir.NewContext()
	g, err := ctx.Generator("reg_stage")
	require.NoError(t, err)
	clk, err := g.ClockPort("clk")
	require.NoError(t, err)
	a, err := g.Var("a", 8)
	require.NoError(t, err)
	b, err := g.Var("b", 8)
	require.NoError(t, err)
	seq, err := g.Sequential(ir.EventControl{Edge: ir.Posedge, Value: clk})
	require.NoError(t, err)
	return g, seq, a, b
}

func TestFixAssignmentTypeTopLevel(t *testing.T) {
	ctx := ir.NewContext()
	g, err := ctx.Generator("wires")
	require.NoError(t, err)
	a, err := g.Var("a", 4)
	require.NoError(t, err)
	b, err := g.Var("b", 4)
	require.NoError(t, err)

	wire, err := a.Assign(b)
	require.NoError(t, err)
	require.NoError(t, g.AddStmt(wire))
	require.Equal(t, ir.Undefined, wire.AssignType())

	require.NoError(t, FixAssignmentType(g))
	assert.Equal(t, ir.Blocking, wire.AssignType())
}

func TestFixAssignmentTypeSequential(t *testing.T) {
	g, seq, a, b := buildClockedModule(t)

	step, err := a.Assign(b)
	require.NoError(t, err)
	require.NoError(t, seq.AddStmt(step))

	require.NoError(t, FixAssignmentType(g))
	assert.Equal(t, ir.NonBlocking, step.AssignType())
}

func TestFixAssignmentTypeCombinational(t *testing.T) {
	ctx := ir.NewContext()
	g, err := ctx.Generator("mux")
	require.NoError(t, err)
	a, err := g.Var("a", 4)
	require.NoError(t, err)
	b, err := g.Var("b", 4)
	require.NoError(t, err)
	comb, err := g.Combinational()
	require.NoError(t, err)

	sel, err := a.Assign(b)
	require.NoError(t, err)
	require.NoError(t, comb.AddStmt(sel))

	require.NoError(t, FixAssignmentType(g))
	assert.Equal(t, ir.Blocking, sel.AssignType())
}

func TestFixAssignmentTypeInsideConditional(t *testing.T) {
	g, seq, a, b := buildClockedModule(t)
	en, err := g.Var("en", 1)
	require.NoError(t, err)

	cond, err := ir.NewIfStmt(en)
	require.NoError(t, err)
	step, err := a.Assign(b)
	require.NoError(t, err)
	require.NoError(t, cond.AddThen(step))
	back, err := b.Assign(a)
	require.NoError(t, err)
	require.NoError(t, cond.AddElse(back))
	require.NoError(t, seq.AddStmt(cond))

	require.NoError(t, FixAssignmentType(g))
	assert.Equal(t, ir.NonBlocking, step.AssignType())
	assert.Equal(t, ir.NonBlocking, back.AssignType())
}

// A scoped block built in isolation accepts any discipline; attaching it to
// a process does not re-check its contents. The resolve pass is where the
// smuggled assignment gets caught.
func TestFixAssignmentTypeConflict(t *testing.T) {
	g, seq, a, b := buildClockedModule(t)

	scope := ir.NewStmtBlock(ir.Scoped)
	bad, err := a.AssignKind(b, ir.Blocking)
	require.NoError(t, err)
	require.NoError(t, scope.AddStmt(bad))
	require.NoError(t, seq.AddStmt(scope))

	err = FixAssignmentType(g)
	require.Error(t, err)
	assert.True(t, ir.IsStmtError(err))
	assert.Contains(t, err.Error(), "blocking assignment in a sequential process")
}

func TestFixAssignmentTypeDescendsIntoChildren(t *testing.T) {
	_, top, child := buildWiredPair(t)
	passThrough := child.Stmts()[0].(*ir.StmtBlock).Stmts()[0].(*ir.AssignStmt)
	require.Equal(t, ir.Undefined, passThrough.AssignType())

	require.NoError(t, FixAssignmentType(top))
	assert.Equal(t, ir.Blocking, passThrough.AssignType())
}
