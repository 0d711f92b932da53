package ir

import (
	"fmt"
	"regexp"
)

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// svReserved lists SystemVerilog keywords that must not be used as module,
// variable, or port names.
var svReserved = map[string]struct{}{
	"always": {}, "always_comb": {}, "always_ff": {}, "always_latch": {},
	"and": {}, "assign": {}, "automatic": {}, "begin": {}, "bit": {},
	"break": {}, "byte": {}, "case": {}, "casex": {}, "casez": {},
	"const": {}, "continue": {}, "default": {}, "do": {}, "else": {},
	"end": {}, "endcase": {}, "endfunction": {}, "endgenerate": {},
	"endmodule": {}, "endpackage": {}, "endtask": {}, "enum": {},
	"for": {}, "forever": {}, "function": {}, "generate": {}, "genvar": {},
	"if": {}, "inout": {}, "input": {}, "int": {}, "integer": {},
	"logic": {}, "longint": {}, "module": {}, "negedge": {}, "or": {},
	"output": {}, "package": {}, "packed": {}, "parameter": {},
	"posedge": {}, "real": {}, "reg": {}, "repeat": {}, "return": {},
	"shortint": {}, "signed": {}, "struct": {}, "task": {}, "typedef": {},
	"union": {}, "unique": {}, "unsigned": {}, "var": {}, "void": {},
	"while": {}, "wire": {},
}

// isValidIdentifier reports whether name is usable as a SystemVerilog
// identifier.
func isValidIdentifier(name string) bool {
	if !identPattern.MatchString(name) {
		return false
	}
	_, reserved := svReserved[name]
	return !reserved
}

// Generator is one hardware module under construction: its ports, named
// values, type definitions, body statements, and child instances. Generators
// are created through Context.Generator and form a tree via AddChild.
//
// Everything a generator owns is kept in declaration order, so traversal,
// hashing, serialization, and emitted code are stable for a given
// construction sequence.
type Generator struct {
	ctx          *Context
	name         string
	instanceName string
	parent       *Generator

	namedValues map[string]Value
	valueOrder  []string
	ports       []*Port
	consts      []*Const

	enums     map[string]*EnumDef
	enumOrder []string

	structs     map[string]*PackedStructDef
	structOrder []string

	interfaces     map[string]*InterfaceDef
	interfaceOrder []string

	stmts []Stmt

	children        []*Generator
	childByInstance map[string]*Generator
}

func newGenerator(ctx *Context, name string) (*Generator, error) {
	if !isValidIdentifier(name) {
		return nil, NewUserError(fmt.Sprintf("invalid module name %q", name))
	}
	return &Generator{
		ctx:             ctx,
		name:            name,
		instanceName:    name,
		namedValues:     make(map[string]Value),
		enums:           make(map[string]*EnumDef),
		structs:         make(map[string]*PackedStructDef),
		interfaces:      make(map[string]*InterfaceDef),
		childByInstance: make(map[string]*Generator),
	}, nil
}

// Context returns the owning construction context.
func (g *Generator) Context() *Context { return g.ctx }

// Name returns the module definition name.
func (g *Generator) Name() string { return g.name }

// SetName renames the module definition. Used by the uniquify pass.
func (g *Generator) SetName(name string) { g.name = name }

// InstanceName returns the name this generator is instantiated under.
func (g *Generator) InstanceName() string { return g.instanceName }

// SetInstanceName renames the instance.
func (g *Generator) SetInstanceName(name string) { g.instanceName = name }

// Parent returns the generator this one is a child of, or nil for roots.
func (g *Generator) Parent() *Generator { return g.parent }

func (g *Generator) registerValue(name string, v Value) {
	g.namedValues[name] = v
	g.valueOrder = append(g.valueOrder, name)
}

// Var returns an unsigned variable of the given width, creating it on first
// use. Asking again with the same shape returns the existing variable;
// asking with a different shape, or when the name is taken by another kind,
// is a VarError.
func (g *Generator) Var(name string, width uint32) (*Var, error) {
	return g.varNamed(name, width, false)
}

// SignedVar is Var with signed storage.
func (g *Generator) SignedVar(name string, width uint32) (*Var, error) {
	return g.varNamed(name, width, true)
}

func (g *Generator) varNamed(name string, width uint32, signed bool) (*Var, error) {
	if existing, ok := g.namedValues[name]; ok {
		v, isVar := existing.(*Var)
		if !isVar {
			return nil, NewVarError(fmt.Sprintf(
				"name %q is already used by a %s", name, existing.KindName()), existing)
		}
		if v.Width() != width || v.Signed() != signed {
			return nil, NewVarError(fmt.Sprintf(
				"variable %q already declared as %s width %d",
				name, signName(v.Signed()), v.Width()), v)
		}
		return v, nil
	}
	if !isValidIdentifier(name) {
		return nil, NewUserError(fmt.Sprintf("invalid variable name %q", name))
	}
	v := newVar(g, name, width, signed)
	if width == 0 {
		return nil, NewVarError("variable width must be >= 1", v)
	}
	g.registerValue(name, v)
	return v, nil
}

// Port declares a port with full control over direction, type, and
// signedness. Most callers use the Input/Output/Clock/Reset helpers.
func (g *Generator) Port(direction PortDirection, name string, width uint32, portType PortType, signed bool) (*Port, error) {
	if existing, ok := g.namedValues[name]; ok {
		return nil, NewVarError(fmt.Sprintf(
			"name %q is already used by a %s", name, existing.KindName()), existing)
	}
	if !isValidIdentifier(name) {
		return nil, NewUserError(fmt.Sprintf("invalid port name %q", name))
	}
	if width == 0 {
		return nil, NewUserError(fmt.Sprintf("port %q width must be >= 1", name))
	}
	p, err := newPort(g, direction, name, width, signed, portType)
	if err != nil {
		return nil, err
	}
	g.registerValue(name, p)
	g.ports = append(g.ports, p)
	return p, nil
}

// Input declares an unsigned data input.
func (g *Generator) Input(name string, width uint32) (*Port, error) {
	return g.Port(In, name, width, Data, false)
}

// Output declares an unsigned data output.
func (g *Generator) Output(name string, width uint32) (*Port, error) {
	return g.Port(Out, name, width, Data, false)
}

// ClockPort declares a one-bit clock input.
func (g *Generator) ClockPort(name string) (*Port, error) {
	return g.Port(In, name, 1, Clock, false)
}

// ResetPort declares a one-bit synchronous reset input.
func (g *Generator) ResetPort(name string) (*Port, error) {
	return g.Port(In, name, 1, Reset, false)
}

// AsyncResetPort declares a one-bit asynchronous reset input.
func (g *Generator) AsyncResetPort(name string) (*Port, error) {
	return g.Port(In, name, 1, AsyncReset, false)
}

// Constant returns an unsigned constant of the given width. The value must be
// representable; see Const.
func (g *Generator) Constant(value int64, width uint32) (*Const, error) {
	return g.constant(value, width, false)
}

// SignedConstant returns a signed constant of the given width.
func (g *Generator) SignedConstant(value int64, width uint32) (*Const, error) {
	return g.constant(value, width, true)
}

func (g *Generator) constant(value int64, width uint32, signed bool) (*Const, error) {
	c, err := newConst(g, value, width, signed)
	if err != nil {
		return nil, err
	}
	g.consts = append(g.consts, c)
	return c, nil
}

// Enum declares an enumerated type owned by this generator.
func (g *Generator) Enum(name string, members []EnumMember, width uint32) (*EnumDef, error) {
	if _, ok := g.enums[name]; ok {
		return nil, NewUserError(fmt.Sprintf("enum %q is already declared", name))
	}
	def, err := newEnumDef(g, name, width, members)
	if err != nil {
		return nil, err
	}
	g.enums[name] = def
	g.enumOrder = append(g.enumOrder, name)
	return def, nil
}

// EnumVar declares storage typed by an enum definition.
func (g *Generator) EnumVar(name string, def *EnumDef) (*EnumVar, error) {
	if existing, ok := g.namedValues[name]; ok {
		return nil, NewVarError(fmt.Sprintf(
			"name %q is already used by a %s", name, existing.KindName()), existing)
	}
	if !isValidIdentifier(name) {
		return nil, NewUserError(fmt.Sprintf("invalid variable name %q", name))
	}
	if def == nil {
		return nil, NewUserError(fmt.Sprintf("enum var %q has no enum definition", name))
	}
	v := newEnumVar(g, name, def)
	g.registerValue(name, v)
	return v, nil
}

// PackedStruct declares a packed struct layout owned by this generator.
func (g *Generator) PackedStruct(name string, fields []PackedField) (*PackedStructDef, error) {
	if _, ok := g.structs[name]; ok {
		return nil, NewUserError(fmt.Sprintf("packed struct %q is already declared", name))
	}
	def, err := newPackedStructDef(name, fields)
	if err != nil {
		return nil, err
	}
	g.structs[name] = def
	g.structOrder = append(g.structOrder, name)
	return def, nil
}

// PackedVar declares storage laid out by a packed struct definition.
func (g *Generator) PackedVar(name string, def *PackedStructDef) (*PackedVar, error) {
	if existing, ok := g.namedValues[name]; ok {
		return nil, NewVarError(fmt.Sprintf(
			"name %q is already used by a %s", name, existing.KindName()), existing)
	}
	if !isValidIdentifier(name) {
		return nil, NewUserError(fmt.Sprintf("invalid variable name %q", name))
	}
	if def == nil {
		return nil, NewUserError(fmt.Sprintf("packed var %q has no struct definition", name))
	}
	v := newPackedVar(g, name, def)
	g.registerValue(name, v)
	return v, nil
}

// Interface declares an interface bundle owned by this generator.
func (g *Generator) Interface(name string, signals []InterfaceSignal) (*InterfaceDef, error) {
	if _, ok := g.interfaces[name]; ok {
		return nil, NewUserError(fmt.Sprintf("interface %q is already declared", name))
	}
	def, err := newInterfaceDef(name, signals)
	if err != nil {
		return nil, err
	}
	g.interfaces[name] = def
	g.interfaceOrder = append(g.interfaceOrder, name)
	return def, nil
}

// InterfaceVar declares an instance of an interface bundle.
func (g *Generator) InterfaceVar(name string, def *InterfaceDef) (*InterfaceVar, error) {
	if existing, ok := g.namedValues[name]; ok {
		return nil, NewVarError(fmt.Sprintf(
			"name %q is already used by a %s", name, existing.KindName()), existing)
	}
	if !isValidIdentifier(name) {
		return nil, NewUserError(fmt.Sprintf("invalid variable name %q", name))
	}
	if def == nil {
		return nil, NewUserError(fmt.Sprintf("interface var %q has no interface definition", name))
	}
	v := newInterfaceVar(g, name, def)
	g.registerValue(name, v)
	return v, nil
}

// PackedStructPort declares a data port laid out by a packed struct
// definition. The port's width is the struct's total width.
func (g *Generator) PackedStructPort(direction PortDirection, name string, def *PackedStructDef) (*Port, error) {
	if existing, ok := g.namedValues[name]; ok {
		return nil, NewVarError(fmt.Sprintf(
			"name %q is already used by a %s", name, existing.KindName()), existing)
	}
	if !isValidIdentifier(name) {
		return nil, NewUserError(fmt.Sprintf("invalid port name %q", name))
	}
	if def == nil {
		return nil, NewUserError(fmt.Sprintf("port %q has no struct definition", name))
	}
	p := newPackedPort(g, direction, name, def)
	g.registerValue(name, p)
	g.ports = append(g.ports, p)
	return p, nil
}

// FunctionCall builds the result value of a call to the named function. The
// width and signedness describe the returned vector; system functions keep
// their $ prefix.
func (g *Generator) FunctionCall(fn string, width uint32, signed bool, args ...Value) (*FunctionCallVar, error) {
	return newFunctionCall(g, fn, width, signed, args)
}

// GetVar returns the named value (variable or port), or nil.
func (g *Generator) GetVar(name string) Value { return g.namedValues[name] }

// NamedValues returns every named value in declaration order.
func (g *Generator) NamedValues() []Value {
	out := make([]Value, 0, len(g.valueOrder))
	for _, name := range g.valueOrder {
		out = append(out, g.namedValues[name])
	}
	return out
}

// Ports returns the ports in declaration order. The returned slice is shared;
// callers must not mutate it.
func (g *Generator) Ports() []*Port { return g.ports }

// PortByName returns the named port, or nil.
func (g *Generator) PortByName(name string) *Port {
	v, ok := g.namedValues[name]
	if !ok {
		return nil
	}
	p, _ := v.(*Port)
	return p
}

// Constants returns the constants in creation order.
func (g *Generator) Constants() []*Const { return g.consts }

// Enums returns the enum definitions in declaration order.
func (g *Generator) Enums() []*EnumDef {
	out := make([]*EnumDef, 0, len(g.enumOrder))
	for _, name := range g.enumOrder {
		out = append(out, g.enums[name])
	}
	return out
}

// PackedStructs returns the struct definitions in declaration order.
func (g *Generator) PackedStructs() []*PackedStructDef {
	out := make([]*PackedStructDef, 0, len(g.structOrder))
	for _, name := range g.structOrder {
		out = append(out, g.structs[name])
	}
	return out
}

// Interfaces returns the interface definitions in declaration order.
func (g *Generator) Interfaces() []*InterfaceDef {
	out := make([]*InterfaceDef, 0, len(g.interfaceOrder))
	for _, name := range g.interfaceOrder {
		out = append(out, g.interfaces[name])
	}
	return out
}

// AddStmt appends a statement to the module body. The body accepts
// continuous assignments, process blocks, and instantiations; anything else
// must live inside a process.
func (g *Generator) AddStmt(stmt Stmt) error {
	if stmt == nil {
		return NewUserError("cannot add an empty statement")
	}
	if stmt.Parent() != nil {
		return NewStmtError("statement already has a parent", stmt)
	}
	switch s := stmt.(type) {
	case *AssignStmt:
		if s.AssignType() == NonBlocking {
			return NewStmtError(
				"continuous assignment cannot be non-blocking", s)
		}
	case *StmtBlock:
		if s.blockType == Scoped {
			return NewStmtError("cannot add a scoped block to a module body", s)
		}
	case *ModuleInstantiationStmt:
		// accepted
	default:
		return NewStmtError(fmt.Sprintf(
			"%s statement must be placed inside a process block", stmt.StmtType()), stmt)
	}
	for _, s := range g.stmts {
		if s == stmt {
			return NewStmtError("statement already added to this module body", stmt)
		}
	}
	stmt.setParent(g)
	g.stmts = append(g.stmts, stmt)
	return nil
}

// RemoveStmt detaches a statement from the module body. Removing a statement
// that is not in the body is a no-op.
func (g *Generator) RemoveStmt(stmt Stmt) {
	for i, s := range g.stmts {
		if s == stmt {
			g.stmts = append(g.stmts[:i], g.stmts[i+1:]...)
			stmt.setParent(nil)
			return
		}
	}
}

// Stmts returns the module body in insertion order. The returned slice is
// shared; callers must not mutate it.
func (g *Generator) Stmts() []Stmt { return g.stmts }

// Combinational creates an always_comb process and attaches it to the body.
func (g *Generator) Combinational() (*StmtBlock, error) {
	b := NewStmtBlock(Combinational)
	if err := g.AddStmt(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Sequential creates an always_ff process sensitive to the given edges and
// attaches it to the body. At least one edge is required.
func (g *Generator) Sequential(conditions ...EventControl) (*StmtBlock, error) {
	if len(conditions) == 0 {
		return nil, NewUserError("sequential block needs at least one sensitivity edge")
	}
	b := NewStmtBlock(Sequential)
	for _, c := range conditions {
		if err := b.AddCondition(c.Edge, c.Value); err != nil {
			return nil, err
		}
	}
	if err := g.AddStmt(b); err != nil {
		return nil, err
	}
	return b, nil
}

// AddChild attaches a child generator under the given instance name. A
// generator has at most one parent, and instance names are unique within the
// parent. Cross-context adoption is rejected.
func (g *Generator) AddChild(child *Generator, instanceName string) error {
	if child == nil {
		return NewUserError("cannot add an empty child generator")
	}
	if child == g {
		return NewGeneratorError("generator cannot be its own child", g)
	}
	for anc := g.parent; anc != nil; anc = anc.parent {
		if anc == child {
			return NewGeneratorError(fmt.Sprintf(
				"generator %q is an ancestor of %q and cannot be its child",
				child.name, g.name), g, child)
		}
	}
	if child.ctx != g.ctx {
		return NewGeneratorError("child belongs to a different context", g, child)
	}
	if child.parent != nil {
		return NewGeneratorError(fmt.Sprintf(
			"generator %q already has parent %q", child.name, child.parent.name), child)
	}
	if !isValidIdentifier(instanceName) {
		return NewUserError(fmt.Sprintf("invalid instance name %q", instanceName))
	}
	if _, ok := g.childByInstance[instanceName]; ok {
		return NewGeneratorError(fmt.Sprintf(
			"instance name %q is already used", instanceName), g)
	}
	child.parent = g
	child.instanceName = instanceName
	g.children = append(g.children, child)
	g.childByInstance[instanceName] = child
	return nil
}

// Children returns the child generators in attachment order. The returned
// slice is shared; callers must not mutate it.
func (g *Generator) Children() []*Generator { return g.children }

// ChildByInstance returns the child attached under the instance name, or nil.
func (g *Generator) ChildByInstance(name string) *Generator {
	return g.childByInstance[name]
}

func (g *Generator) KindName() string { return "generator" }

func (g *Generator) ChildCount() int { return len(g.stmts) + len(g.children) }

func (g *Generator) Child(i int) Node {
	if i < 0 {
		return nil
	}
	if i < len(g.stmts) {
		return g.stmts[i]
	}
	i -= len(g.stmts)
	if i < len(g.children) {
		return g.children[i]
	}
	return nil
}

func (g *Generator) Accept(vis Visitor) { vis.VisitGenerator(g) }

func (g *Generator) String() string { return g.name }
