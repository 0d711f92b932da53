package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/loom/internal/ir"
	"github.com/roach88/loom/internal/serialize"
)

// executeCommand runs the CLI with the given arguments and captures its
// output.
func executeCommand(args ...string) (string, string, error) {
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeDesign serializes the design built by fn into a fresh temp file.
func writeDesign(t *testing.T, fn func(t *testing.T, designCtx *ir.Context)) string {
	t.Helper()
	designCtx := ir.NewContext()
	fn(t, designCtx)

	path := filepath.Join(t.TempDir(), "design.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, serialize.Serialize(f, designCtx))
	require.NoError(t, f.Close())
	return path
}

// adderDesign builds one combinational root module named adder.
func adderDesign(t *testing.T, designCtx *ir.Context) {
	t.Helper()
	g, err := designCtx.Generator("adder")
	require.NoError(t, err)
	a, err := g.Input("a", 8)
	require.NoError(t, err)
	b, err := g.Input("b", 8)
	require.NoError(t, err)
	sum, err := g.Output("sum", 8)
	require.NoError(t, err)
	total, err := a.Add(b)
	require.NoError(t, err)
	comb, err := g.Combinational()
	require.NoError(t, err)
	add, err := sum.Assign(total)
	require.NoError(t, err)
	require.NoError(t, comb.AddStmt(add))
}

// twoRootDesign builds two independent root modules, adder and buffer.
func twoRootDesign(t *testing.T, designCtx *ir.Context) {
	t.Helper()
	adderDesign(t, designCtx)

	g, err := designCtx.Generator("buffer")
	require.NoError(t, err)
	din, err := g.Input("din", 8)
	require.NoError(t, err)
	dout, err := g.Output("dout", 8)
	require.NoError(t, err)
	pass, err := dout.Assign(din)
	require.NoError(t, err)
	require.NoError(t, g.AddStmt(pass))
}

// tracedDesign builds a sequential root module that fires a capture event
// when valid is high and an idle event otherwise.
func tracedDesign(t *testing.T, designCtx *ir.Context) {
	t.Helper()
	g, err := designCtx.Generator("traced")
	require.NoError(t, err)
	clk, err := g.ClockPort("clk")
	require.NoError(t, err)
	valid, err := g.Input("valid", 1)
	require.NoError(t, err)
	data, err := g.Input("data", 8)
	require.NoError(t, err)
	seen, err := g.Output("seen", 8)
	require.NoError(t, err)

	capture, err := ir.NewEvent("capture")
	require.NoError(t, err)
	idle, err := ir.NewEvent("idle")
	require.NoError(t, err)

	seq, err := g.Sequential(ir.EventControl{Edge: ir.Posedge, Value: clk})
	require.NoError(t, err)
	branch, err := ir.NewIfStmt(valid)
	require.NoError(t, err)
	hold, err := seen.Assign(data)
	require.NoError(t, err)
	require.NoError(t, branch.AddThen(hold))
	fired, err := capture.Fire(map[string]ir.Value{"data": data})
	require.NoError(t, err)
	require.NoError(t, branch.AddThen(fired))
	rested, err := idle.Fire(nil)
	require.NoError(t, err)
	require.NoError(t, branch.AddElse(rested))
	require.NoError(t, seq.AddStmt(branch))
}

// undrivenDesign builds a parent whose child input is never fed, so
// connectivity checking fails on u_stage.din.
func undrivenDesign(t *testing.T, designCtx *ir.Context) {
	t.Helper()
	top, err := designCtx.Generator("top")
	require.NoError(t, err)
	_, err = top.Input("in", 8)
	require.NoError(t, err)
	out, err := top.Output("out", 8)
	require.NoError(t, err)

	stage, err := designCtx.Generator("stage")
	require.NoError(t, err)
	din, err := stage.Input("din", 8)
	require.NoError(t, err)
	dout, err := stage.Output("dout", 8)
	require.NoError(t, err)
	pass, err := dout.Assign(din)
	require.NoError(t, err)
	require.NoError(t, stage.AddStmt(pass))
	require.NoError(t, top.AddChild(stage, "u_stage"))

	drain, err := out.Assign(dout)
	require.NoError(t, err)
	require.NoError(t, top.AddStmt(drain))
}
