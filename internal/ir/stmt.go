package ir

import (
	"fmt"
	"sort"
)

// StmtType tags the concrete statement kind.
type StmtType int

const (
	StmtAssign StmtType = iota
	StmtBlockType
	StmtIf
	StmtModuleInstantiation
	StmtEventTracing
)

// String returns the tag name used in diagnostics and serialized records.
func (t StmtType) String() string {
	switch t {
	case StmtAssign:
		return "assign"
	case StmtBlockType:
		return "block"
	case StmtIf:
		return "if"
	case StmtModuleInstantiation:
		return "module_instantiation"
	case StmtEventTracing:
		return "event_tracing"
	default:
		return fmt.Sprintf("stmttype(%d)", int(t))
	}
}

// Stmt is the sealed interface over every statement kind: AssignStmt,
// StmtBlock, IfStmt, ModuleInstantiationStmt, and EventTracingStmt.
//
// A statement belongs to at most one parent (a block, an if branch, or a
// generator body); inserting it a second time anywhere is a StmtError.
// Statement IDs start at -1 and stay that way until a numbering pass assigns
// them.
type Stmt interface {
	Node

	StmtType() StmtType
	// ID returns the statement's assigned id, or -1 before numbering.
	ID() int
	// SetID assigns the statement id.
	SetID(id int)
	// Parent returns the enclosing statement or generator, or nil while the
	// statement is detached.
	Parent() Node
	// GeneratorParent walks the parent chain to the owning generator, or nil
	// while the statement is detached.
	GeneratorParent() *Generator

	setParent(Node)
	isStmt()
}

type baseStmt struct {
	id     int
	parent Node
}

func (b *baseStmt) isStmt()            {}
func (b *baseStmt) ID() int            { return b.id }
func (b *baseStmt) SetID(id int)       { b.id = id }
func (b *baseStmt) Parent() Node       { return b.parent }
func (b *baseStmt) setParent(n Node)   { b.parent = n }

func (b *baseStmt) GeneratorParent() *Generator {
	for n := b.parent; n != nil; {
		switch p := n.(type) {
		case *Generator:
			return p
		case Stmt:
			n = p.Parent()
		default:
			return nil
		}
	}
	return nil
}

// AssignmentType is the write discipline of an assignment. Undefined defers
// the choice to the enclosing block; a resolve pass rewrites every Undefined
// assignment before code generation.
type AssignmentType int

const (
	Blocking AssignmentType = iota
	NonBlocking
	Undefined
)

// String returns the discipline name used in diagnostics and serialized
// records.
func (t AssignmentType) String() string {
	switch t {
	case Blocking:
		return "blocking"
	case NonBlocking:
		return "non_blocking"
	case Undefined:
		return "undefined"
	default:
		return fmt.Sprintf("assigntype(%d)", int(t))
	}
}

// AssignStmt drives a target value from a source value. Construction goes
// through Value.Assign or Value.AssignKind, which registers the new statement
// in the target's sinks; the caller then inserts it into a block or a
// generator body.
type AssignStmt struct {
	baseStmt
	target     Value
	source     Value
	assignType AssignmentType
}

func newAssignStmt(target, source Value, kind AssignmentType) (*AssignStmt, error) {
	if target == nil {
		return nil, NewUserError("left hand side of assignment is empty")
	}
	if source == nil {
		return nil, NewUserError("right hand side of assignment is empty")
	}
	switch target.VarType() {
	case ConstValue:
		return nil, NewVarError("cannot assign to a constant", target)
	case Expression:
		return nil, NewVarError("cannot assign to an expression", target)
	}
	if ev, ok := target.(*EnumVar); ok {
		if err := checkEnumAssign(ev, source); err != nil {
			return nil, err
		}
	} else {
		if target.Width() != source.Width() {
			return nil, NewVarError(fmt.Sprintf(
				"cannot assign %s (width %d) to %s (width %d): width mismatch",
				source, source.Width(), target, target.Width()), target, source)
		}
		if target.Signed() != source.Signed() {
			return nil, NewVarError(fmt.Sprintf(
				"cannot assign %s (%s) to %s (%s): signedness mismatch",
				source, signName(source.Signed()), target, signName(target.Signed())),
				target, source)
		}
	}
	s := &AssignStmt{target: target, source: source, assignType: kind}
	s.id = -1
	target.base().addSink(s)
	return s, nil
}

// Target returns the driven value.
func (s *AssignStmt) Target() Value { return s.target }

// Source returns the driving value.
func (s *AssignStmt) Source() Value { return s.source }

// AssignType returns the write discipline.
func (s *AssignStmt) AssignType() AssignmentType { return s.assignType }

// SetAssignType rewrites the write discipline. Used by the resolve pass and
// by instantiation absorption; block insertion rules are checked at insertion
// time, not here.
func (s *AssignStmt) SetAssignType(t AssignmentType) { s.assignType = t }

// Unlink removes this statement from its target's sink registry. Callers
// that also inserted the statement into a block must remove it there
// separately.
func (s *AssignStmt) Unlink() { s.target.base().removeSink(s) }

func (s *AssignStmt) StmtType() StmtType { return StmtAssign }
func (s *AssignStmt) KindName() string   { return "assign" }
func (s *AssignStmt) ChildCount() int    { return 2 }

func (s *AssignStmt) Child(i int) Node {
	switch i {
	case 0:
		return s.target
	case 1:
		return s.source
	}
	return nil
}

func (s *AssignStmt) Accept(vis Visitor) { vis.VisitAssign(s) }

func (s *AssignStmt) String() string {
	op := "="
	if s.assignType == NonBlocking {
		op = "<="
	}
	return fmt.Sprintf("%s %s %s", s.target, op, s.source)
}

// BlockType distinguishes the three block flavors. Combinational and
// Sequential blocks are top-level processes on a generator; Scoped blocks are
// the bodies of structured statements and may nest inside other blocks.
type BlockType int

const (
	Combinational BlockType = iota
	Sequential
	Scoped
)

// String returns the block flavor name.
func (t BlockType) String() string {
	switch t {
	case Combinational:
		return "combinational"
	case Sequential:
		return "sequential"
	case Scoped:
		return "scoped"
	default:
		return fmt.Sprintf("blocktype(%d)", int(t))
	}
}

// EdgeType is a sequential sensitivity edge.
type EdgeType int

const (
	Posedge EdgeType = iota
	Negedge
)

// String returns the SystemVerilog edge keyword.
func (e EdgeType) String() string {
	if e == Posedge {
		return "posedge"
	}
	return "negedge"
}

// EventControl is one (edge, signal) entry in a sequential block's
// sensitivity list.
type EventControl struct {
	Edge  EdgeType
	Value Value
}

// StmtBlock is an ordered list of statements. Sequential blocks additionally
// carry a sensitivity list of (edge, signal) pairs.
//
// Insertion rules, enforced by AddStmt:
//   - a statement joins at most one parent, and never twice;
//   - process blocks (combinational, sequential) never nest inside another
//     block, only scoped blocks do;
//   - a combinational block rejects non-blocking assignments, a sequential
//     block rejects blocking ones. Undefined assignments are accepted and
//     resolved by a later pass;
//   - a combinational block rejects a second unguarded assignment to a
//     target it already drives. The error binds both assignments.
type StmtBlock struct {
	baseStmt
	blockType  BlockType
	stmts      []Stmt
	conditions []EventControl
}

// NewStmtBlock returns a detached block of the given flavor.
func NewStmtBlock(t BlockType) *StmtBlock {
	b := &StmtBlock{blockType: t}
	b.id = -1
	return b
}

// BlockType returns the block flavor.
func (b *StmtBlock) BlockType() BlockType { return b.blockType }

// Stmts returns the statements in insertion order. The returned slice is
// shared; callers must not mutate it.
func (b *StmtBlock) Stmts() []Stmt { return b.stmts }

// Conditions returns the sensitivity list in insertion order.
func (b *StmtBlock) Conditions() []EventControl { return b.conditions }

// AddCondition appends an (edge, signal) pair to a sequential block's
// sensitivity list. Re-adding an existing pair is a no-op.
func (b *StmtBlock) AddCondition(edge EdgeType, value Value) error {
	if b.blockType != Sequential {
		return NewStmtError(
			fmt.Sprintf("cannot add sensitivity to a %s block", b.blockType), b)
	}
	if value == nil {
		return NewUserError("sensitivity signal is empty")
	}
	if value.Width() != 1 {
		return NewVarError(fmt.Sprintf(
			"sensitivity signal %s must have width 1, got %d", value, value.Width()), value)
	}
	for _, c := range b.conditions {
		if c.Edge == edge && c.Value == value {
			return nil
		}
	}
	b.conditions = append(b.conditions, EventControl{Edge: edge, Value: value})
	return nil
}

// AddStmt appends a statement, enforcing the insertion rules.
func (b *StmtBlock) AddStmt(stmt Stmt) error {
	if stmt == nil {
		return NewUserError("cannot add an empty statement")
	}
	if stmt.Parent() != nil {
		return NewStmtError("statement already has a parent", stmt)
	}
	for _, s := range b.stmts {
		if s == stmt {
			return NewStmtError("statement already added to this block", stmt, b)
		}
	}
	switch s := stmt.(type) {
	case *StmtBlock:
		if s.blockType != Scoped {
			return NewStmtError(fmt.Sprintf(
				"cannot nest a %s block inside a %s block", s.blockType, b.blockType), s, b)
		}
	case *ModuleInstantiationStmt:
		return NewStmtError("instantiation must be placed in a module body, not a block", s, b)
	case *AssignStmt:
		if err := b.checkAssignDiscipline(s); err != nil {
			return err
		}
		if b.blockType == Combinational {
			for _, prev := range b.stmts {
				if pa, ok := prev.(*AssignStmt); ok && pa.target == s.target {
					return NewStmtError(fmt.Sprintf(
						"%s is driven twice in the same combinational block",
						s.target), pa, s)
				}
			}
		}
	}
	stmt.setParent(b)
	b.stmts = append(b.stmts, stmt)
	return nil
}

// checkAssignDiscipline walks up to the nearest process block and applies its
// discipline rule, so scoped bodies inherit the rule of the process that
// contains them. A still-detached scope passes here; the resolve pass applies
// the same rule once the tree is complete.
func (b *StmtBlock) checkAssignDiscipline(s *AssignStmt) error {
	proc := b
	for proc.blockType == Scoped {
		var next *StmtBlock
		switch p := proc.parent.(type) {
		case *StmtBlock:
			next = p
		case *IfStmt:
			if pb, ok := p.parent.(*StmtBlock); ok {
				next = pb
			}
		}
		if next == nil {
			return nil
		}
		proc = next
	}
	switch proc.blockType {
	case Combinational:
		if s.assignType == NonBlocking {
			return NewStmtError(
				"cannot add a non-blocking assignment to a combinational block", s, b)
		}
	case Sequential:
		if s.assignType == Blocking {
			return NewStmtError(
				"cannot add a blocking assignment to a sequential block", s, b)
		}
	}
	return nil
}

// RemoveStmt detaches the statement from this block. Removing a statement
// that is not in the block is a no-op.
func (b *StmtBlock) RemoveStmt(stmt Stmt) {
	for i, s := range b.stmts {
		if s == stmt {
			b.stmts = append(b.stmts[:i], b.stmts[i+1:]...)
			stmt.setParent(nil)
			return
		}
	}
}

func (b *StmtBlock) StmtType() StmtType { return StmtBlockType }
func (b *StmtBlock) KindName() string   { return "block" }
func (b *StmtBlock) ChildCount() int    { return len(b.stmts) }

func (b *StmtBlock) Child(i int) Node {
	if i < 0 || i >= len(b.stmts) {
		return nil
	}
	return b.stmts[i]
}

func (b *StmtBlock) Accept(vis Visitor) { vis.VisitBlock(b) }

func (b *StmtBlock) String() string {
	return fmt.Sprintf("%s block (%d stmts)", b.blockType, len(b.stmts))
}

// IfStmt branches on a one-bit predicate. Both bodies are scoped blocks
// created with the statement; Then and Else insert through the usual block
// rules.
type IfStmt struct {
	baseStmt
	predicate Value
	thenBody  *StmtBlock
	elseBody  *StmtBlock
}

// NewIfStmt returns an if statement over the predicate. The predicate must be
// one bit wide.
func NewIfStmt(predicate Value) (*IfStmt, error) {
	if predicate == nil {
		return nil, NewUserError("if predicate is empty")
	}
	if predicate.Width() != 1 {
		return nil, NewVarError(fmt.Sprintf(
			"if predicate %s must have width 1, got %d", predicate, predicate.Width()),
			predicate)
	}
	s := &IfStmt{predicate: predicate}
	s.id = -1
	s.thenBody = NewStmtBlock(Scoped)
	s.elseBody = NewStmtBlock(Scoped)
	s.thenBody.setParent(s)
	s.elseBody.setParent(s)
	return s, nil
}

// Predicate returns the branch condition.
func (s *IfStmt) Predicate() Value { return s.predicate }

// ThenBody returns the taken-branch block.
func (s *IfStmt) ThenBody() *StmtBlock { return s.thenBody }

// ElseBody returns the not-taken-branch block.
func (s *IfStmt) ElseBody() *StmtBlock { return s.elseBody }

// AddThen appends a statement to the taken branch.
func (s *IfStmt) AddThen(stmt Stmt) error { return s.thenBody.AddStmt(stmt) }

// AddElse appends a statement to the not-taken branch.
func (s *IfStmt) AddElse(stmt Stmt) error { return s.elseBody.AddStmt(stmt) }

func (s *IfStmt) StmtType() StmtType { return StmtIf }
func (s *IfStmt) KindName() string   { return "if" }
func (s *IfStmt) ChildCount() int    { return 3 }

func (s *IfStmt) Child(i int) Node {
	switch i {
	case 0:
		return s.predicate
	case 1:
		return s.thenBody
	case 2:
		return s.elseBody
	}
	return nil
}

func (s *IfStmt) Accept(vis Visitor) { vis.VisitIf(s) }

func (s *IfStmt) String() string {
	return fmt.Sprintf("if (%s)", s.predicate)
}

// PortConnection binds one port of an instantiated child to a parent-side
// value.
type PortConnection struct {
	Port  *Port
	Value Value
}

// ModuleInstantiationStmt places a child generator inside its parent and
// records the port map. Instantiation statements are produced by the
// instantiation pass, which absorbs the port-wiring assignments between
// parent and child into connections here and removes them from the bodies
// and sink registries they came from.
type ModuleInstantiationStmt struct {
	baseStmt
	target      *Generator
	connections []PortConnection
	byPort      map[*Port]Value
}

// NewModuleInstantiationStmt returns an instantiation of the child generator
// with an empty port map.
func NewModuleInstantiationStmt(target *Generator) (*ModuleInstantiationStmt, error) {
	if target == nil {
		return nil, NewUserError("instantiation target is empty")
	}
	s := &ModuleInstantiationStmt{
		target: target,
		byPort: make(map[*Port]Value),
	}
	s.id = -1
	return s, nil
}

// Target returns the instantiated child generator.
func (s *ModuleInstantiationStmt) Target() *Generator { return s.target }

// Connections returns the port map in port declaration order.
func (s *ModuleInstantiationStmt) Connections() []PortConnection { return s.connections }

// Connected returns the parent-side value bound to the port, or nil.
func (s *ModuleInstantiationStmt) Connected(port *Port) Value { return s.byPort[port] }

// Connect binds a port of the target to a parent-side value. The port must
// belong to the target, match the value in width and signedness, and not be
// bound already.
func (s *ModuleInstantiationStmt) Connect(port *Port, value Value) error {
	if port == nil || value == nil {
		return NewUserError("port connection is empty")
	}
	if port.Generator() != s.target {
		return NewVarError(fmt.Sprintf(
			"port %s does not belong to %q", port, s.target.Name()), port, s.target)
	}
	if _, ok := s.byPort[port]; ok {
		return NewStmtError(fmt.Sprintf("port %s is already connected", port), s)
	}
	if port.Width() != value.Width() {
		return NewVarError(fmt.Sprintf(
			"cannot connect %s (width %d) to port %s (width %d): width mismatch",
			value, value.Width(), port, port.Width()), port, value)
	}
	if port.Signed() != value.Signed() {
		return NewVarError(fmt.Sprintf(
			"cannot connect %s (%s) to port %s (%s): signedness mismatch",
			value, signName(value.Signed()), port, signName(port.Signed())), port, value)
	}
	s.byPort[port] = value
	s.connections = append(s.connections, PortConnection{Port: port, Value: value})
	return nil
}

func (s *ModuleInstantiationStmt) StmtType() StmtType { return StmtModuleInstantiation }
func (s *ModuleInstantiationStmt) KindName() string   { return "module_instantiation" }
func (s *ModuleInstantiationStmt) ChildCount() int    { return 1 }

func (s *ModuleInstantiationStmt) Child(i int) Node {
	if i == 0 {
		return s.target
	}
	return nil
}

func (s *ModuleInstantiationStmt) Accept(vis Visitor) { vis.VisitInstantiation(s) }

func (s *ModuleInstantiationStmt) String() string {
	return fmt.Sprintf("%s %s", s.target.Name(), s.target.InstanceName())
}

// EventActionType classifies what an event statement marks in a transaction.
type EventActionType int

const (
	EventActionNone EventActionType = iota
	EventActionStart
	EventActionEnd
)

// String returns the action name used in diagnostics and serialized records.
func (t EventActionType) String() string {
	switch t {
	case EventActionNone:
		return "none"
	case EventActionStart:
		return "start"
	case EventActionEnd:
		return "end"
	default:
		return fmt.Sprintf("eventaction(%d)", int(t))
	}
}

// EventTracingStmt marks a point in a process where a named event fires,
// carrying a payload of named values. Event statements are instrumentation:
// an extraction pass computes their fire conditions, and a removal pass
// strips them before code generation.
type EventTracingStmt struct {
	baseStmt
	eventName   string
	transaction string
	action      EventActionType
	fields      map[string]Value
	fieldOrder  []string
}

// NewEventTracingStmt returns an event statement for the named event.
func NewEventTracingStmt(eventName string) (*EventTracingStmt, error) {
	if eventName == "" {
		return nil, NewUserError("event name must not be empty")
	}
	s := &EventTracingStmt{
		eventName: eventName,
		action:    EventActionNone,
		fields:    make(map[string]Value),
	}
	s.id = -1
	return s, nil
}

// EventName returns the fired event's name.
func (s *EventTracingStmt) EventName() string { return s.eventName }

// Transaction returns the transaction this event belongs to, or "".
func (s *EventTracingStmt) Transaction() string { return s.transaction }

// SetTransaction tags the event with a transaction name and action.
func (s *EventTracingStmt) SetTransaction(name string, action EventActionType) {
	s.transaction = name
	s.action = action
}

// Action returns the transaction action.
func (s *EventTracingStmt) Action() EventActionType { return s.action }

// SetField attaches a named payload value. Re-binding an existing field is a
// StmtError.
func (s *EventTracingStmt) SetField(name string, value Value) error {
	if name == "" {
		return NewUserError("event field name must not be empty")
	}
	if value == nil {
		return NewUserError(fmt.Sprintf("event field %q is empty", name))
	}
	if _, ok := s.fields[name]; ok {
		return NewStmtError(fmt.Sprintf("event field %q is already set", name), s)
	}
	s.fields[name] = value
	s.fieldOrder = append(s.fieldOrder, name)
	return nil
}

// FieldNames returns the payload field names sorted for stable iteration.
func (s *EventTracingStmt) FieldNames() []string {
	names := make([]string, len(s.fieldOrder))
	copy(names, s.fieldOrder)
	sort.Strings(names)
	return names
}

// Field returns the payload value bound to the name, or nil.
func (s *EventTracingStmt) Field(name string) Value { return s.fields[name] }

func (s *EventTracingStmt) StmtType() StmtType { return StmtEventTracing }
func (s *EventTracingStmt) KindName() string   { return "event_tracing" }
func (s *EventTracingStmt) ChildCount() int    { return 0 }
func (s *EventTracingStmt) Child(int) Node     { return nil }
func (s *EventTracingStmt) Accept(vis Visitor) { vis.VisitEventTrace(s) }

func (s *EventTracingStmt) String() string {
	return fmt.Sprintf("event %s", s.eventName)
}
