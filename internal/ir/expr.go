package ir

import (
	"fmt"
)

// ExprOp enumerates the expression operators. The numeric order is part of
// the serialized format; append new operators at the end.
type ExprOp int

const (
	OpUInvert ExprOp = iota
	OpUMinus
	OpUPlus
	OpAdd
	OpMinus
	OpDivide
	OpMultiply
	OpMod
	OpLogicalShiftRight
	OpSignedShiftRight
	OpShiftLeft
	OpOr
	OpAnd
	OpXor
	OpLessThan
	OpGreaterThan
	OpLessEqThan
	OpGreaterEqThan
	OpEq
	OpNeq
)

// IsUnary reports whether the operator takes a single operand.
func (op ExprOp) IsUnary() bool {
	return op == OpUInvert || op == OpUMinus || op == OpUPlus
}

// IsRelational reports whether the operator compares operands and yields a
// single unsigned bit.
func (op ExprOp) IsRelational() bool {
	switch op {
	case OpLessThan, OpGreaterThan, OpLessEqThan, OpGreaterEqThan, OpEq, OpNeq:
		return true
	}
	return false
}

// IsShift reports whether the operator shifts its left operand by its right.
func (op ExprOp) IsShift() bool {
	return op == OpLogicalShiftRight || op == OpSignedShiftRight || op == OpShiftLeft
}

// String returns the SystemVerilog spelling of the operator.
func (op ExprOp) String() string {
	switch op {
	case OpUInvert:
		return "~"
	case OpUMinus:
		return "-"
	case OpUPlus:
		return "+"
	case OpAdd:
		return "+"
	case OpMinus:
		return "-"
	case OpDivide:
		return "/"
	case OpMultiply:
		return "*"
	case OpMod:
		return "%"
	case OpLogicalShiftRight:
		return ">>"
	case OpSignedShiftRight:
		return ">>>"
	case OpShiftLeft:
		return "<<"
	case OpOr:
		return "|"
	case OpAnd:
		return "&"
	case OpXor:
		return "^"
	case OpLessThan:
		return "<"
	case OpGreaterThan:
		return ">"
	case OpLessEqThan:
		return "<="
	case OpGreaterEqThan:
		return ">="
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// opName maps operators to the stable names used in serialized records.
func (op ExprOp) opName() string {
	switch op {
	case OpUInvert:
		return "u_invert"
	case OpUMinus:
		return "u_minus"
	case OpUPlus:
		return "u_plus"
	case OpAdd:
		return "add"
	case OpMinus:
		return "minus"
	case OpDivide:
		return "divide"
	case OpMultiply:
		return "multiply"
	case OpMod:
		return "mod"
	case OpLogicalShiftRight:
		return "logical_shift_right"
	case OpSignedShiftRight:
		return "signed_shift_right"
	case OpShiftLeft:
		return "shift_left"
	case OpOr:
		return "or"
	case OpAnd:
		return "and"
	case OpXor:
		return "xor"
	case OpLessThan:
		return "less_than"
	case OpGreaterThan:
		return "greater_than"
	case OpLessEqThan:
		return "less_eq_than"
	case OpGreaterEqThan:
		return "greater_eq_than"
	case OpEq:
		return "eq"
	case OpNeq:
		return "neq"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// exprOpByName is the inverse of opName, used when restoring serialized
// graphs.
var exprOpByName = map[string]ExprOp{
	"u_invert":            OpUInvert,
	"u_minus":             OpUMinus,
	"u_plus":              OpUPlus,
	"add":                 OpAdd,
	"minus":               OpMinus,
	"divide":              OpDivide,
	"multiply":            OpMultiply,
	"mod":                 OpMod,
	"logical_shift_right": OpLogicalShiftRight,
	"signed_shift_right":  OpSignedShiftRight,
	"shift_left":          OpShiftLeft,
	"or":                  OpOr,
	"and":                 OpAnd,
	"xor":                 OpXor,
	"less_than":           OpLessThan,
	"greater_than":        OpGreaterThan,
	"less_eq_than":        OpLessEqThan,
	"greater_eq_than":     OpGreaterEqThan,
	"eq":                  OpEq,
	"neq":                 OpNeq,
}

// Expr is an operator application over one or two operand values. An Expr is
// itself a Value, so expressions nest without limit.
//
// Result width and signedness follow a fixed promotion table:
//
//	arithmetic/bitwise  operands must match in width and signedness;
//	                    the result keeps both.
//	shifts              the amount must be unsigned; the result keeps the
//	                    left operand's width and signedness.
//	relational          operands must match in width and signedness;
//	                    the result is one unsigned bit.
//	unary               the result keeps the operand's width and signedness.
//
// Mismatches are construction-time VarErrors bound to both operands. There is
// no implicit conversion anywhere; mixed-signedness math goes through
// explicit AsSigned/AsUnsigned casts.
type Expr struct {
	varBase
	op    ExprOp
	left  Value
	right Value // nil for unary operators
}

func newUnary(op ExprOp, operand Value) (*Expr, error) {
	if operand == nil {
		return nil, NewUserError("unary operand is empty")
	}
	e := &Expr{op: op, left: operand}
	e.init(e, operand.Generator(), "", operand.Width(), operand.Signed(), Expression)
	return e, nil
}

func newBinary(op ExprOp, left, right Value) (*Expr, error) {
	if left == nil {
		return nil, NewUserError("left hand side of expression is empty")
	}
	if right == nil {
		return nil, NewUserError("right hand side of expression is empty")
	}
	var width uint32
	var signed bool
	switch {
	case op.IsShift():
		if right.Signed() {
			return nil, NewVarError(fmt.Sprintf(
				"shift amount for %s must be unsigned", op), left, right)
		}
		width = left.Width()
		signed = left.Signed()
	case op.IsRelational():
		if err := checkOperandMatch(op, left, right); err != nil {
			return nil, err
		}
		width = 1
		signed = false
	default:
		if err := checkOperandMatch(op, left, right); err != nil {
			return nil, err
		}
		width = left.Width()
		signed = left.Signed()
	}
	e := &Expr{op: op, left: left, right: right}
	e.init(e, left.Generator(), "", width, signed, Expression)
	return e, nil
}

func checkOperandMatch(op ExprOp, left, right Value) error {
	if left.Width() != right.Width() {
		return NewVarError(fmt.Sprintf(
			"operands of %s must match in width: %d vs %d",
			op, left.Width(), right.Width()), left, right)
	}
	if left.Signed() != right.Signed() {
		return NewVarError(fmt.Sprintf(
			"operands of %s must match in signedness: %s vs %s",
			op, signName(left.Signed()), signName(right.Signed())), left, right)
	}
	return nil
}

func signName(signed bool) string {
	if signed {
		return "signed"
	}
	return "unsigned"
}

// Op returns the operator.
func (e *Expr) Op() ExprOp { return e.op }

// Left returns the left (or sole) operand.
func (e *Expr) Left() Value { return e.left }

// Right returns the right operand, or nil for unary operators.
func (e *Expr) Right() Value { return e.right }

func (e *Expr) KindName() string { return "expr" }

func (e *Expr) ChildCount() int {
	if e.op.IsUnary() {
		return 1
	}
	return 2
}

func (e *Expr) Child(i int) Node {
	switch i {
	case 0:
		return e.left
	case 1:
		if !e.op.IsUnary() {
			return e.right
		}
	}
	return nil
}

func (e *Expr) Accept(vis Visitor) { vis.VisitExpr(e) }

// String renders the expression with parentheses around nested expression
// operands, e.g. (a + b) ^ c.
func (e *Expr) String() string {
	if e.op.IsUnary() {
		return e.op.String() + renderOperand(e.left)
	}
	return fmt.Sprintf("%s %s %s", renderOperand(e.left), e.op, renderOperand(e.right))
}

// renderOperand parenthesizes nested expressions so rendered output never
// depends on operator precedence. Casts and slices delimit themselves.
func renderOperand(v Value) string {
	if e, ok := v.(*Expr); ok {
		return "(" + e.String() + ")"
	}
	return v.String()
}
