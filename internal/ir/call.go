package ir

import (
	"fmt"
	"strings"
)

// FunctionCallVar is the result of a call to a named function. It sits in the
// expression graph like any other unnamed value: the declared width and
// signedness describe the returned vector, and the arguments are the node's
// structural children. System functions keep their $ prefix.
type FunctionCallVar struct {
	varBase
	fn   string
	args []Value
}

func newFunctionCall(gen *Generator, fn string, width uint32, signed bool, args []Value) (*FunctionCallVar, error) {
	bare := strings.TrimPrefix(fn, "$")
	if !identPattern.MatchString(bare) {
		return nil, NewUserError(fmt.Sprintf("invalid function name %q", fn))
	}
	if width == 0 {
		return nil, NewUserError(fmt.Sprintf("call to %q must have width >= 1", fn))
	}
	for i, a := range args {
		if a == nil {
			return nil, NewUserError(fmt.Sprintf("call to %q has an empty argument at position %d", fn, i))
		}
	}
	c := &FunctionCallVar{fn: fn, args: append([]Value(nil), args...)}
	c.init(c, gen, "", width, signed, Expression)
	return c, nil
}

// FuncName returns the called function's name.
func (c *FunctionCallVar) FuncName() string { return c.fn }

// Args returns the arguments in call order. The returned slice is shared;
// callers must not mutate it.
func (c *FunctionCallVar) Args() []Value { return c.args }

func (c *FunctionCallVar) KindName() string { return "function_call" }
func (c *FunctionCallVar) ChildCount() int  { return len(c.args) }
func (c *FunctionCallVar) Child(i int) Node {
	if i < 0 || i >= len(c.args) {
		return nil
	}
	return c.args[i]
}
func (c *FunctionCallVar) Accept(vis Visitor) { vis.VisitFunctionCall(c) }

// String renders fn(arg, ...).
func (c *FunctionCallVar) String() string {
	parts := make([]string, len(c.args))
	for i, a := range c.args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.fn, strings.Join(parts, ", "))
}
