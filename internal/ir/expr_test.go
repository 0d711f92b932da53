package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExprArithmeticPromotion(t *testing.T) {
	g := newTestGenerator(t)
	a, err := g.Var("a", 8)
	require.NoError(t, err)
	b, err := g.Var("b", 8)
	require.NoError(t, err)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), sum.Width())
	assert.False(t, sum.Signed())
	assert.Equal(t, Expression, sum.VarType())
	assert.Equal(t, OpAdd, sum.Op())
	assert.Same(t, a, sum.Left())
	assert.Same(t, b, sum.Right())
	assert.Equal(t, "a + b", sum.String())
}

func TestExprWidthMismatch(t *testing.T) {
	g := newTestGenerator(t)
	a, err := g.Var("a", 8)
	require.NoError(t, err)
	b, err := g.Var("b", 4)
	require.NoError(t, err)

	_, err = a.Add(b)
	require.Error(t, err)
	assert.True(t, IsVarError(err))
	assert.Contains(t, err.Error(), "width")
	assert.Len(t, ErrorNodes(err), 2, "both operands are bound to the error")
}

func TestExprSignednessMismatch(t *testing.T) {
	g := newTestGenerator(t)
	a, err := g.Var("a", 8)
	require.NoError(t, err)
	b, err := g.SignedVar("b", 8)
	require.NoError(t, err)

	_, err = a.Add(b)
	require.Error(t, err)
	assert.True(t, IsVarError(err))
	assert.Contains(t, err.Error(), "signedness")

	// An explicit cast makes the mix legal.
	sum, err := a.AsSigned().Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Signed())
	assert.Equal(t, "signed'(a) + b", sum.String())
}

func TestExprRelationalYieldsOneBit(t *testing.T) {
	g := newTestGenerator(t)
	a, err := g.SignedVar("a", 8)
	require.NoError(t, err)
	b, err := g.SignedVar("b", 8)
	require.NoError(t, err)

	ops := []struct {
		name  string
		build func(Value) (*Expr, error)
		op    ExprOp
	}{
		{"lt", a.Lt, OpLessThan},
		{"gt", a.Gt, OpGreaterThan},
		{"le", a.Le, OpLessEqThan},
		{"ge", a.Ge, OpGreaterEqThan},
		{"eq", a.Eq, OpEq},
		{"neq", a.Neq, OpNeq},
	}

	for _, tt := range ops {
		t.Run(tt.name, func(t *testing.T) {
			e, err := tt.build(b)
			require.NoError(t, err)
			assert.Equal(t, uint32(1), e.Width(), "relational results are one bit")
			assert.False(t, e.Signed(), "relational results are unsigned")
			assert.Equal(t, tt.op, e.Op())
		})
	}
}

func TestExprShiftRules(t *testing.T) {
	g := newTestGenerator(t)
	a, err := g.SignedVar("a", 16)
	require.NoError(t, err)
	amount, err := g.Var("n", 4)
	require.NoError(t, err)

	shl, err := a.Shl(amount)
	require.NoError(t, err)
	assert.Equal(t, uint32(16), shl.Width(), "shift keeps the left operand's width")
	assert.True(t, shl.Signed(), "shift keeps the left operand's signedness")
	assert.Equal(t, "a << n", shl.String())

	ashr, err := a.AShr(amount)
	require.NoError(t, err)
	assert.Equal(t, "a >>> n", ashr.String())

	signedAmount, err := g.SignedVar("m", 4)
	require.NoError(t, err)
	_, err = a.Shl(signedAmount)
	require.Error(t, err, "shift amounts must be unsigned")
	assert.True(t, IsVarError(err))
}

func TestExprUnary(t *testing.T) {
	g := newTestGenerator(t)
	a, err := g.SignedVar("a", 8)
	require.NoError(t, err)

	inv, err := a.Invert()
	require.NoError(t, err)
	assert.Equal(t, uint32(8), inv.Width())
	assert.True(t, inv.Signed())
	assert.Equal(t, "~a", inv.String())
	assert.Equal(t, 1, inv.ChildCount())

	neg, err := a.Neg()
	require.NoError(t, err)
	assert.Equal(t, "-a", neg.String())

	pos, err := a.Pos()
	require.NoError(t, err)
	assert.Equal(t, "+a", pos.String())
}

func TestExprNesting(t *testing.T) {
	g := newTestGenerator(t)
	a, err := g.Var("a", 8)
	require.NoError(t, err)
	b, err := g.Var("b", 8)
	require.NoError(t, err)
	c, err := g.Var("c", 8)
	require.NoError(t, err)

	sum, err := a.Add(b)
	require.NoError(t, err)
	mixed, err := sum.Xor(c)
	require.NoError(t, err)

	assert.Equal(t, "(a + b) ^ c", mixed.String(),
		"nested expressions parenthesize, so precedence never matters")
	assert.Equal(t, 2, mixed.ChildCount())
	assert.Same(t, sum, mixed.Child(0))
}

func TestExprOverConstAndSlice(t *testing.T) {
	g := newTestGenerator(t)
	v, err := g.Var("data", 16)
	require.NoError(t, err)
	lo, err := v.Slice(7, 0)
	require.NoError(t, err)
	mask, err := g.Constant(15, 8)
	require.NoError(t, err)

	masked, err := lo.And(mask)
	require.NoError(t, err)
	assert.Equal(t, "data[7:0] & 8'hf", masked.String())

	// The expression result slices like any other value.
	nib, err := masked.Slice(3, 0)
	require.NoError(t, err)
	assert.Equal(t, "(data[7:0] & 8'hf)[3:0]", nib.String())
}

func TestExprOpSpelling(t *testing.T) {
	tests := []struct {
		op   ExprOp
		want string
	}{
		{OpAdd, "+"},
		{OpMinus, "-"},
		{OpDivide, "/"},
		{OpMultiply, "*"},
		{OpMod, "%"},
		{OpLogicalShiftRight, ">>"},
		{OpSignedShiftRight, ">>>"},
		{OpShiftLeft, "<<"},
		{OpOr, "|"},
		{OpAnd, "&"},
		{OpXor, "^"},
		{OpLessThan, "<"},
		{OpGreaterThan, ">"},
		{OpLessEqThan, "<="},
		{OpGreaterEqThan, ">="},
		{OpEq, "=="},
		{OpNeq, "!="},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.String())
	}
}

func TestExprOpNamesRoundTrip(t *testing.T) {
	for name, op := range exprOpByName {
		assert.Equal(t, name, op.opName())
	}
}
