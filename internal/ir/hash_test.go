package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildCounterModule constructs a small counter module: a clocked register
// incremented by one, with the register value exported.
func buildCounterModule(t *testing.T, name string) (*Context, *Generator) {
	t.Helper()
	ctx := NewContext()
	g, err := ctx.Generator(name)
	require.NoError(t, err)

	clk, err := g.ClockPort("clk")
	require.NoError(t, err)
	out, err := g.Output("value", 8)
	require.NoError(t, err)
	count, err := g.Var("count", 8)
	require.NoError(t, err)
	one, err := g.Constant(1, 8)
	require.NoError(t, err)

	sum, err := count.Add(one)
	require.NoError(t, err)
	step, err := count.AssignKind(sum, NonBlocking)
	require.NoError(t, err)

	seq, err := g.Sequential(EventControl{Edge: Posedge, Value: clk})
	require.NoError(t, err)
	require.NoError(t, seq.AddStmt(step))

	expose, err := out.Assign(count)
	require.NoError(t, err)
	require.NoError(t, g.AddStmt(expose))

	return ctx, g
}

func TestGeneratorHashDeterministic(t *testing.T) {
	_, g1 := buildCounterModule(t, "counter")
	_, g2 := buildCounterModule(t, "counter")

	h1, err := GeneratorHash(g1)
	require.NoError(t, err)
	h2, err := GeneratorHash(g2)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "same construction sequence must hash equal")
	assert.Len(t, h1, 64, "hash is hex-encoded SHA-256")
}

func TestGeneratorHashIgnoresModuleName(t *testing.T) {
	_, g1 := buildCounterModule(t, "counter")
	_, g2 := buildCounterModule(t, "counter_copy")

	h1, err := GeneratorHash(g1)
	require.NoError(t, err)
	h2, err := GeneratorHash(g2)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "definition name must not affect the structural hash")
}

func TestGeneratorHashSeesStructure(t *testing.T) {
	_, g1 := buildCounterModule(t, "counter")
	_, g2 := buildCounterModule(t, "counter")
	_, err := g2.Input("enable", 1)
	require.NoError(t, err)

	h1, err := GeneratorHash(g1)
	require.NoError(t, err)
	h2, err := GeneratorHash(g2)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "an extra port must change the hash")
}

func TestGeneratorHashSeesAssignmentDiscipline(t *testing.T) {
	build := func(kind AssignmentType) *Generator {
		ctx := NewContext()
		g, err := ctx.Generator("mod")
		require.NoError(t, err)
		in, err := g.Input("a", 4)
		require.NoError(t, err)
		v, err := g.Var("b", 4)
		require.NoError(t, err)
		assign, err := v.AssignKind(in, kind)
		require.NoError(t, err)
		require.NoError(t, g.AddStmt(assign))
		return g
	}

	h1, err := GeneratorHash(build(Blocking))
	require.NoError(t, err)
	h2, err := GeneratorHash(build(Undefined))
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestGeneratorHashSeesChildren(t *testing.T) {
	makeParent := func(childWidth uint32) *Generator {
		ctx := NewContext()
		parent, err := ctx.Generator("top")
		require.NoError(t, err)
		child, err := ctx.Generator("leaf")
		require.NoError(t, err)
		_, err = child.Input("data", childWidth)
		require.NoError(t, err)
		require.NoError(t, parent.AddChild(child, "leaf0"))
		return parent
	}

	h1, err := GeneratorHash(makeParent(4))
	require.NoError(t, err)
	h2, err := GeneratorHash(makeParent(8))
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "a child's structure must flow into the parent hash")
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)

	h1 := HashWithDomain(DomainGenerator, data)
	h2 := HashWithDomain(DomainSnapshot, data)

	assert.NotEqual(t, h1, h2, "different domains must produce different hashes")
	assert.Len(t, h1, 64)
}

func TestHashWithDomainStable(t *testing.T) {
	got := HashWithDomain(DomainGenerator, []byte("x"))
	assert.Equal(t, HashWithDomain(DomainGenerator, []byte("x")), got)
	assert.NotEqual(t, HashWithDomain(DomainGenerator, []byte("y")), got)
}
