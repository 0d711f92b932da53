package ir

// Node is the identity and traversal contract implemented by every element of
// the design graph: values, statements, and generators.
//
// Structural children are exposed in declaration order. ChildCount always
// equals the number of indices Child accepts; Child returns nil for any index
// outside [0, ChildCount). Node identity is pointer identity - nodes are
// always handled by reference and never copied once constructed.
type Node interface {
	// KindName identifies the concrete node kind. Kind names double as the
	// discriminator tags of the serialization registry, so they are part of
	// the persisted format and must stay stable.
	KindName() string

	// ChildCount reports the number of structural children.
	ChildCount() int

	// Child returns the i-th structural child, or nil if i is out of range.
	Child(i int) Node

	// Accept dispatches to the visitor hook for the concrete kind.
	Accept(v Visitor)

	// String renders the node the way generated text refers to it. Used by
	// diagnostics and by code generation.
	String() string
}

// Visitor receives double-dispatch callbacks from Node.Accept. Embed
// BaseVisitor to implement only the hooks a traversal cares about.
type Visitor interface {
	VisitVar(*Var)
	VisitSlice(*VarSlice)
	VisitConst(*Const)
	VisitEnumConst(*EnumConst)
	VisitExpr(*Expr)
	VisitPort(*Port)
	VisitPackedVar(*PackedVar)
	VisitEnumVar(*EnumVar)
	VisitInterfaceVar(*InterfaceVar)
	VisitFunctionCall(*FunctionCallVar)
	VisitCast(*VarCast)
	VisitAssign(*AssignStmt)
	VisitBlock(*StmtBlock)
	VisitIf(*IfStmt)
	VisitInstantiation(*ModuleInstantiationStmt)
	VisitEventTrace(*EventTracingStmt)
	VisitGenerator(*Generator)
}

// BaseVisitor is a no-op Visitor. Concrete visitors embed it and override the
// hooks they need.
type BaseVisitor struct{}

func (BaseVisitor) VisitVar(*Var)                              {}
func (BaseVisitor) VisitSlice(*VarSlice)                       {}
func (BaseVisitor) VisitConst(*Const)                          {}
func (BaseVisitor) VisitEnumConst(*EnumConst)                  {}
func (BaseVisitor) VisitExpr(*Expr)                            {}
func (BaseVisitor) VisitPort(*Port)                            {}
func (BaseVisitor) VisitPackedVar(*PackedVar)                  {}
func (BaseVisitor) VisitEnumVar(*EnumVar)                      {}
func (BaseVisitor) VisitInterfaceVar(*InterfaceVar)            {}
func (BaseVisitor) VisitFunctionCall(*FunctionCallVar)         {}
func (BaseVisitor) VisitCast(*VarCast)                         {}
func (BaseVisitor) VisitAssign(*AssignStmt)                    {}
func (BaseVisitor) VisitBlock(*StmtBlock)                      {}
func (BaseVisitor) VisitIf(*IfStmt)                            {}
func (BaseVisitor) VisitInstantiation(*ModuleInstantiationStmt) {}
func (BaseVisitor) VisitEventTrace(*EventTracingStmt)          {}
func (BaseVisitor) VisitGenerator(*Generator)                  {}

// Walk traverses n and its structural children in pre-order, dispatching each
// node to v. Traversal order is deterministic: children are visited in
// declaration order.
func Walk(v Visitor, n Node) {
	if n == nil {
		return
	}
	n.Accept(v)
	count := n.ChildCount()
	for i := 0; i < count; i++ {
		Walk(v, n.Child(i))
	}
}

// VisitorFunc adapts a plain function to a Visitor that observes every node
// kind uniformly.
type VisitorFunc func(Node)

func (f VisitorFunc) VisitVar(n *Var)                              { f(n) }
func (f VisitorFunc) VisitSlice(n *VarSlice)                       { f(n) }
func (f VisitorFunc) VisitConst(n *Const)                          { f(n) }
func (f VisitorFunc) VisitEnumConst(n *EnumConst)                  { f(n) }
func (f VisitorFunc) VisitExpr(n *Expr)                            { f(n) }
func (f VisitorFunc) VisitPort(n *Port)                            { f(n) }
func (f VisitorFunc) VisitPackedVar(n *PackedVar)                  { f(n) }
func (f VisitorFunc) VisitEnumVar(n *EnumVar)                      { f(n) }
func (f VisitorFunc) VisitInterfaceVar(n *InterfaceVar)            { f(n) }
func (f VisitorFunc) VisitFunctionCall(n *FunctionCallVar)         { f(n) }
func (f VisitorFunc) VisitCast(n *VarCast)                         { f(n) }
func (f VisitorFunc) VisitAssign(n *AssignStmt)                    { f(n) }
func (f VisitorFunc) VisitBlock(n *StmtBlock)                      { f(n) }
func (f VisitorFunc) VisitIf(n *IfStmt)                            { f(n) }
func (f VisitorFunc) VisitInstantiation(n *ModuleInstantiationStmt) { f(n) }
func (f VisitorFunc) VisitEventTrace(n *EventTracingStmt)          { f(n) }
func (f VisitorFunc) VisitGenerator(n *Generator)                  { f(n) }
