package ir

import (
	"fmt"
)

// VarType tags the role a value plays in the graph. The tag always matches
// the concrete type: a *VarSlice is SliceValue, a *Const or *EnumConst is
// ConstValue, a *Port is PortIO, an *Expr or *VarCast is Expression, and
// plain storage (*Var, *PackedVar, *EnumVar) is Base.
type VarType int

const (
	Base VarType = iota
	Expression
	SliceValue
	ConstValue
	PortIO
)

// String returns the tag name used in diagnostics and serialized records.
func (t VarType) String() string {
	switch t {
	case Base:
		return "base"
	case Expression:
		return "expression"
	case SliceValue:
		return "slice"
	case ConstValue:
		return "const"
	case PortIO:
		return "port"
	default:
		return fmt.Sprintf("vartype(%d)", int(t))
	}
}

// Value is the sealed interface over every typed hardware value: named
// storage, ports, constants, slices, casts, and expression results. The
// closed set of implementations is Var, VarSlice, Const, EnumConst, Expr,
// Port, PackedVar, EnumVar, InterfaceVar, FunctionCallVar, and VarCast;
// backends may type-switch exhaustively over exactly these.
//
// All builder methods extend the graph and never evaluate anything. Binary
// builders return a VarError bound to both operands when the operands violate
// the operator's width/signedness rule (see the promotion table in expr.go).
type Value interface {
	Node

	// Name returns the declared name; derived values (slices, expressions,
	// casts) have an empty name and render structurally via String.
	Name() string
	// Width returns the bit width (always >= 1).
	Width() uint32
	// Signed reports the signedness.
	Signed() bool
	// VarType returns the role tag for this value.
	VarType() VarType
	// Generator returns the module this value belongs to. A value belongs to
	// exactly one generator for its whole lifetime.
	Generator() *Generator
	// Sinks returns the assignment statements driving this value, in
	// construction order.
	Sinks() []*AssignStmt

	// Slice returns the cached [high:low] slice of this value, creating it on
	// first use. Slicing is idempotent: the same range yields the identical
	// node.
	Slice(high, low uint32) (*VarSlice, error)
	// Bit returns the cached single-bit slice [index:index].
	Bit(index uint32) (*VarSlice, error)

	// Assign constructs target <- source with an Undefined discipline (a
	// later pass or the enclosing block decides blocking vs non-blocking).
	// The new statement is registered in this value's sinks immediately; the
	// caller still has to insert it into a block or generator body.
	Assign(source Value) (*AssignStmt, error)
	// AssignKind is Assign with an explicit assignment discipline.
	AssignKind(source Value, kind AssignmentType) (*AssignStmt, error)

	// AsSigned returns a cast node viewing this value as signed.
	AsSigned() *VarCast
	// AsUnsigned returns a cast node viewing this value as unsigned.
	AsUnsigned() *VarCast

	// Unary builders.
	Invert() (*Expr, error)
	Neg() (*Expr, error)
	Pos() (*Expr, error)

	// Binary builders. See the promotion table in expr.go for the width and
	// signedness rule each operator applies.
	Add(other Value) (*Expr, error)
	Sub(other Value) (*Expr, error)
	Mul(other Value) (*Expr, error)
	Div(other Value) (*Expr, error)
	Mod(other Value) (*Expr, error)
	Shl(other Value) (*Expr, error)
	Shr(other Value) (*Expr, error)
	AShr(other Value) (*Expr, error)
	Or(other Value) (*Expr, error)
	And(other Value) (*Expr, error)
	Xor(other Value) (*Expr, error)
	Lt(other Value) (*Expr, error)
	Gt(other Value) (*Expr, error)
	Le(other Value) (*Expr, error)
	Ge(other Value) (*Expr, error)
	Eq(other Value) (*Expr, error)
	Neq(other Value) (*Expr, error)

	isValue()
	base() *varBase
}

// sliceKey identifies a cached slice range on its parent.
type sliceKey struct {
	high, low uint32
}

// varBase carries the state and behavior shared by every Value kind. Each
// concrete kind embeds it and sets self to its own pointer so builders link
// the concrete node, not the embedded core.
type varBase struct {
	self   Value
	name   string
	width  uint32
	signed bool
	typ    VarType
	gen    *Generator

	sinks []*AssignStmt

	slices     map[sliceKey]*VarSlice
	sliceOrder []*VarSlice
}

func (b *varBase) init(self Value, gen *Generator, name string, width uint32, signed bool, typ VarType) {
	b.self = self
	b.gen = gen
	b.name = name
	b.width = width
	b.signed = signed
	b.typ = typ
}

func (b *varBase) isValue()            {}
func (b *varBase) base() *varBase      { return b }
func (b *varBase) Name() string        { return b.name }
func (b *varBase) Width() uint32       { return b.width }
func (b *varBase) Signed() bool        { return b.signed }
func (b *varBase) VarType() VarType    { return b.typ }
func (b *varBase) Generator() *Generator { return b.gen }

// Sinks returns the assignments driving this value in construction order.
// The returned slice is shared; callers must not mutate it.
func (b *varBase) Sinks() []*AssignStmt { return b.sinks }

func (b *varBase) addSink(stmt *AssignStmt) {
	b.sinks = append(b.sinks, stmt)
}

func (b *varBase) removeSink(stmt *AssignStmt) {
	for i, s := range b.sinks {
		if s == stmt {
			b.sinks = append(b.sinks[:i], b.sinks[i+1:]...)
			return
		}
	}
}

// Slice returns the cached [high:low] slice, creating and caching it on first
// use. The result is unsigned regardless of the parent's signedness
// (SystemVerilog part-select semantics) and has width high-low+1.
func (b *varBase) Slice(high, low uint32) (*VarSlice, error) {
	if low > high {
		return nil, NewVarError(
			fmt.Sprintf("invalid slice range [%d:%d]: high must be >= low", high, low), b.self)
	}
	if high >= b.width {
		return nil, NewVarError(
			fmt.Sprintf("slice [%d:%d] out of range for width %d", high, low, b.width), b.self)
	}
	key := sliceKey{high: high, low: low}
	if s, ok := b.slices[key]; ok {
		return s, nil
	}
	s := &VarSlice{High: high, Low: low}
	s.parent = b.self
	s.init(s, b.gen, "", high-low+1, false, SliceValue)
	if b.slices == nil {
		b.slices = make(map[sliceKey]*VarSlice)
	}
	b.slices[key] = s
	b.sliceOrder = append(b.sliceOrder, s)
	return s, nil
}

// Bit returns the cached single-bit slice [index:index].
func (b *varBase) Bit(index uint32) (*VarSlice, error) {
	return b.Slice(index, index)
}

// CachedSlices returns every slice taken of this value, in creation order.
func (b *varBase) CachedSlices() []*VarSlice { return b.sliceOrder }

// Assign constructs an assignment driving this value from source with an
// Undefined discipline.
func (b *varBase) Assign(source Value) (*AssignStmt, error) {
	return b.AssignKind(source, Undefined)
}

// AssignKind constructs an assignment driving this value from source.
func (b *varBase) AssignKind(source Value, kind AssignmentType) (*AssignStmt, error) {
	return newAssignStmt(b.self, source, kind)
}

// AsSigned returns a cast node viewing this value as signed. The cast is a
// new derived value; it does not modify the parent.
func (b *varBase) AsSigned() *VarCast { return newCast(b.self, CastSigned) }

// AsUnsigned returns a cast node viewing this value as unsigned.
func (b *varBase) AsUnsigned() *VarCast { return newCast(b.self, CastUnsigned) }

func (b *varBase) Invert() (*Expr, error) { return newUnary(OpUInvert, b.self) }
func (b *varBase) Neg() (*Expr, error)    { return newUnary(OpUMinus, b.self) }
func (b *varBase) Pos() (*Expr, error)    { return newUnary(OpUPlus, b.self) }

func (b *varBase) Add(other Value) (*Expr, error) { return newBinary(OpAdd, b.self, other) }
func (b *varBase) Sub(other Value) (*Expr, error) { return newBinary(OpMinus, b.self, other) }
func (b *varBase) Mul(other Value) (*Expr, error) { return newBinary(OpMultiply, b.self, other) }
func (b *varBase) Div(other Value) (*Expr, error) { return newBinary(OpDivide, b.self, other) }
func (b *varBase) Mod(other Value) (*Expr, error) { return newBinary(OpMod, b.self, other) }
func (b *varBase) Shl(other Value) (*Expr, error) { return newBinary(OpShiftLeft, b.self, other) }
func (b *varBase) Shr(other Value) (*Expr, error) {
	return newBinary(OpLogicalShiftRight, b.self, other)
}
func (b *varBase) AShr(other Value) (*Expr, error) {
	return newBinary(OpSignedShiftRight, b.self, other)
}
func (b *varBase) Or(other Value) (*Expr, error)  { return newBinary(OpOr, b.self, other) }
func (b *varBase) And(other Value) (*Expr, error) { return newBinary(OpAnd, b.self, other) }
func (b *varBase) Xor(other Value) (*Expr, error) { return newBinary(OpXor, b.self, other) }
func (b *varBase) Lt(other Value) (*Expr, error)  { return newBinary(OpLessThan, b.self, other) }
func (b *varBase) Gt(other Value) (*Expr, error)  { return newBinary(OpGreaterThan, b.self, other) }
func (b *varBase) Le(other Value) (*Expr, error)  { return newBinary(OpLessEqThan, b.self, other) }
func (b *varBase) Ge(other Value) (*Expr, error) {
	return newBinary(OpGreaterEqThan, b.self, other)
}
func (b *varBase) Eq(other Value) (*Expr, error)  { return newBinary(OpEq, b.self, other) }
func (b *varBase) Neq(other Value) (*Expr, error) { return newBinary(OpNeq, b.self, other) }

// Var is plain named storage inside a generator: a wire or register depending
// on how it ends up driven.
type Var struct {
	varBase
}

func newVar(gen *Generator, name string, width uint32, signed bool) *Var {
	v := &Var{}
	v.init(v, gen, name, width, signed, Base)
	return v
}

func (v *Var) KindName() string   { return "var" }
func (v *Var) ChildCount() int    { return 0 }
func (v *Var) Child(int) Node     { return nil }
func (v *Var) Accept(vis Visitor) { vis.VisitVar(v) }
func (v *Var) String() string     { return v.name }

// VarSlice is a bit-range view [High:Low] of a parent value. Slices are
// created through Value.Slice and cached per range on the parent, so two
// requests for the same range return the identical node.
type VarSlice struct {
	varBase
	parent Value
	High   uint32
	Low    uint32
}

// Parent returns the sliced value.
func (s *VarSlice) Parent() Value { return s.parent }

func (s *VarSlice) KindName() string { return "slice" }
func (s *VarSlice) ChildCount() int  { return 1 }
func (s *VarSlice) Child(i int) Node {
	if i == 0 {
		return s.parent
	}
	return nil
}
func (s *VarSlice) Accept(vis Visitor) { vis.VisitSlice(s) }

// String renders parent[high:low], or parent[bit] for single-bit slices.
func (s *VarSlice) String() string {
	if s.High == s.Low {
		return fmt.Sprintf("%s[%d]", renderOperand(s.parent), s.High)
	}
	return fmt.Sprintf("%s[%d:%d]", renderOperand(s.parent), s.High, s.Low)
}

// Const is an immediate value with an int64 payload.
//
// Representability policy: the payload must fit the declared width under the
// declared signedness; an out-of-range payload is a construction-time
// VarError, never a silent wrap or truncation. Widths of 64 and above accept
// any int64 payload.
type Const struct {
	varBase
	value int64
}

func newConst(gen *Generator, value int64, width uint32, signed bool) (*Const, error) {
	c := &Const{value: value}
	c.init(c, gen, "", width, signed, ConstValue)
	if err := checkConstRange(c, value, width, signed); err != nil {
		return nil, err
	}
	return c, nil
}

// checkConstRange enforces the representability policy for constants.
func checkConstRange(node Node, value int64, width uint32, signed bool) error {
	if width == 0 {
		return NewVarError("constant width must be >= 1", node)
	}
	if width >= 64 {
		if !signed && value < 0 {
			return NewVarError(
				fmt.Sprintf("negative constant %d cannot be unsigned", value), node)
		}
		return nil
	}
	if signed {
		min := int64(-1) << (width - 1)
		max := (int64(1) << (width - 1)) - 1
		if value < min || value > max {
			return NewVarError(fmt.Sprintf(
				"constant %d not representable in %d signed bits (range [%d, %d])",
				value, width, min, max), node)
		}
		return nil
	}
	if value < 0 {
		return NewVarError(
			fmt.Sprintf("negative constant %d cannot be unsigned", value), node)
	}
	max := (int64(1) << width) - 1
	if value > max {
		return NewVarError(fmt.Sprintf(
			"constant %d not representable in %d unsigned bits (max %d)",
			value, width, max), node)
	}
	return nil
}

// Value returns the payload.
func (c *Const) Value() int64 { return c.value }

func (c *Const) KindName() string   { return "const" }
func (c *Const) ChildCount() int    { return 0 }
func (c *Const) Child(int) Node     { return nil }
func (c *Const) Accept(vis Visitor) { vis.VisitConst(c) }

// String renders the sized hex literal form, e.g. 16'h1f, or -16'h1f for
// negative payloads.
func (c *Const) String() string {
	if c.value < 0 {
		return fmt.Sprintf("-%d'h%x", c.width, -c.value)
	}
	return fmt.Sprintf("%d'h%x", c.width, c.value)
}

// PortDirection describes which way a port faces.
type PortDirection int

const (
	In PortDirection = iota
	Out
	InOut
)

// String returns the SystemVerilog keyword for the direction.
func (d PortDirection) String() string {
	switch d {
	case In:
		return "input"
	case Out:
		return "output"
	case InOut:
		return "inout"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// PortType distinguishes plain data ports from clock/reset-class control
// ports. Control ports must be one bit wide.
type PortType int

const (
	Data PortType = iota
	Clock
	AsyncReset
	ClockEnable
	Reset
)

// String returns the port type name used in diagnostics and serialization.
func (t PortType) String() string {
	switch t {
	case Data:
		return "data"
	case Clock:
		return "clock"
	case AsyncReset:
		return "async_reset"
	case ClockEnable:
		return "clock_enable"
	case Reset:
		return "reset"
	default:
		return fmt.Sprintf("porttype(%d)", int(t))
	}
}

// isControl reports whether the port type is clock/reset-class.
func (t PortType) isControl() bool {
	return t == Clock || t == AsyncReset || t == ClockEnable || t == Reset
}

// Port is a value at a generator's boundary. Ports participate in the value
// graph exactly like plain vars; instantiation connects them to parent-side
// values. A port carrying a packed struct layout records the definition and
// takes its width from it; everything downstream treats it as the flat
// vector it occupies.
type Port struct {
	varBase
	direction PortDirection
	portType  PortType
	structDef *PackedStructDef
}

func newPort(gen *Generator, direction PortDirection, name string, width uint32, signed bool, portType PortType) (*Port, error) {
	if portType.isControl() && width != 1 {
		return nil, NewUserError(
			fmt.Sprintf("%s port %q must have width 1, got %d", portType, name, width))
	}
	p := &Port{direction: direction, portType: portType}
	p.init(p, gen, name, width, signed, PortIO)
	return p, nil
}

func newPackedPort(gen *Generator, direction PortDirection, name string, def *PackedStructDef) *Port {
	p := &Port{direction: direction, portType: Data, structDef: def}
	p.init(p, gen, name, def.Width(), false, PortIO)
	return p
}

// Direction returns which way the port faces.
func (p *Port) Direction() PortDirection { return p.direction }

// PortType returns the data/control classification.
func (p *Port) PortType() PortType { return p.portType }

// StructDef returns the packed struct laying out this port, or nil for a
// plain vector port.
func (p *Port) StructDef() *PackedStructDef { return p.structDef }

// Member returns the slice covering the named struct field. Calling Member
// on a plain vector port is a VarError.
func (p *Port) Member(name string) (*VarSlice, error) {
	if p.structDef == nil {
		return nil, NewVarError(fmt.Sprintf("port %q carries no packed struct", p.name), p)
	}
	high, low, ok := p.structDef.fieldRange(name)
	if !ok {
		return nil, NewVarError(fmt.Sprintf(
			"packed struct %q has no field %q", p.structDef.name, name), p)
	}
	return p.Slice(high, low)
}

func (p *Port) KindName() string {
	if p.structDef != nil {
		return "packed_port"
	}
	return "port"
}
func (p *Port) ChildCount() int    { return 0 }
func (p *Port) Child(int) Node     { return nil }
func (p *Port) Accept(vis Visitor) { vis.VisitPort(p) }
func (p *Port) String() string     { return p.name }

// CastType selects the view an explicit cast applies.
type CastType int

const (
	CastSigned CastType = iota
	CastUnsigned
)

// String returns the cast keyword.
func (t CastType) String() string {
	if t == CastSigned {
		return "signed"
	}
	return "unsigned"
}

// VarCast is an explicit signedness view of a parent value. Casts are the
// only way to mix signedness across an operator: the promotion rules never
// convert implicitly.
type VarCast struct {
	varBase
	parent   Value
	castType CastType
}

func newCast(parent Value, ct CastType) *VarCast {
	c := &VarCast{parent: parent, castType: ct}
	c.init(c, parent.Generator(), "", parent.Width(), ct == CastSigned, Expression)
	return c
}

// Parent returns the value being viewed.
func (c *VarCast) Parent() Value { return c.parent }

// CastType returns the view applied.
func (c *VarCast) CastType() CastType { return c.castType }

func (c *VarCast) KindName() string { return "cast" }
func (c *VarCast) ChildCount() int  { return 1 }
func (c *VarCast) Child(i int) Node {
	if i == 0 {
		return c.parent
	}
	return nil
}
func (c *VarCast) Accept(vis Visitor) { vis.VisitCast(c) }

// String renders the SystemVerilog cast form, e.g. signed'(value).
func (c *VarCast) String() string {
	return fmt.Sprintf("%s'(%s)", c.castType, c.parent.String())
}
