package ir

import (
	"fmt"
)

// GraphSnapshot is the flat, reference-preserving form of a context: every
// node once, identified by a small integer id, with all cross-references
// expressed as ids. Node ids are assigned by a deterministic walk, so the
// same construction sequence always snapshots to the same bytes.
//
// The envelope around a snapshot (format version, snapshot id, checksum)
// belongs to the serialize package; this type is only the node table.
type GraphSnapshot struct {
	Nodes []NodeRecord `json:"nodes"`
	Roots []int        `json:"roots,omitempty"`
}

// NodeRecord is one serialized node. Kind discriminates the concrete type;
// the remaining fields are a union, with each kind using its own subset.
// Ids start at 1 so that 0 can mean "absent" under omitempty.
type NodeRecord struct {
	ID   int    `json:"id"`
	Kind string `json:"kind"`

	// Value fields.
	Name      string `json:"name,omitempty"`
	Width     uint32 `json:"width,omitempty"`
	Signed    bool   `json:"signed,omitempty"`
	Gen       int    `json:"gen,omitempty"`
	Slices    []int  `json:"slices,omitempty"`
	Parent    int    `json:"parent,omitempty"`
	High      uint32 `json:"high,omitempty"`
	Low       uint32 `json:"low,omitempty"`
	Value     int64  `json:"value,omitempty"`
	Op        string `json:"op,omitempty"`
	Left      int    `json:"left,omitempty"`
	Right     int    `json:"right,omitempty"`
	Cast      string `json:"cast,omitempty"`
	Direction string `json:"direction,omitempty"`
	PortType  string `json:"port_type,omitempty"`
	EnumDef   string `json:"enum_def,omitempty"`
	StructDef string `json:"struct_def,omitempty"`
	IfaceDef  string `json:"iface_def,omitempty"`
	Func      string `json:"func,omitempty"`
	Args      []int  `json:"args,omitempty"`

	// Statement fields.
	StmtID      *int       `json:"stmt_id,omitempty"`
	AssignType  string     `json:"assign_type,omitempty"`
	Target      int        `json:"target,omitempty"`
	Source      int        `json:"source,omitempty"`
	BlockType   string     `json:"block_type,omitempty"`
	Conditions  []EdgeRec  `json:"conditions,omitempty"`
	Stmts       []int      `json:"stmts,omitempty"`
	Predicate   int        `json:"predicate,omitempty"`
	Then        int        `json:"then,omitempty"`
	Else        int        `json:"else,omitempty"`
	Instance    int        `json:"instance,omitempty"`
	Connections []ConnRec  `json:"connections,omitempty"`
	Event       string     `json:"event,omitempty"`
	Transaction string     `json:"transaction,omitempty"`
	Action      string     `json:"action,omitempty"`
	Fields      []FieldRec `json:"fields,omitempty"`

	// Generator fields. Values lists every named value in declaration order;
	// ports are the subset tagged as ports, in the same order.
	InstanceName string         `json:"instance_name,omitempty"`
	Values       []int          `json:"values,omitempty"`
	Consts       []int          `json:"consts,omitempty"`
	Enums        []EnumDefRec   `json:"enums,omitempty"`
	Structs      []StructDefRec `json:"structs,omitempty"`
	Interfaces   []IfaceDefRec  `json:"interfaces,omitempty"`
	Children     []int          `json:"children,omitempty"`
}

// EdgeRec is one sensitivity entry of a sequential block.
type EdgeRec struct {
	Edge  string `json:"edge"`
	Value int    `json:"value"`
}

// ConnRec is one port binding of an instantiation.
type ConnRec struct {
	Port  int `json:"port"`
	Value int `json:"value"`
}

// FieldRec is one payload binding of an event statement.
type FieldRec struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// EnumMemberRec is one member of a serialized enum definition.
type EnumMemberRec struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
	Const int    `json:"const"`
}

// EnumDefRec is a serialized enum definition.
type EnumDefRec struct {
	Name    string          `json:"name"`
	Width   uint32          `json:"width"`
	Members []EnumMemberRec `json:"members"`
}

// StructFieldRec is one field of a serialized packed struct definition.
type StructFieldRec struct {
	Name   string `json:"name"`
	Width  uint32 `json:"width"`
	Signed bool   `json:"signed,omitempty"`
}

// StructDefRec is a serialized packed struct definition.
type StructDefRec struct {
	Name   string           `json:"name"`
	Fields []StructFieldRec `json:"fields"`
}

// IfaceDefRec is a serialized interface definition. Signals share the field
// record shape.
type IfaceDefRec struct {
	Name    string           `json:"name"`
	Signals []StructFieldRec `json:"signals"`
}

// nodeRegistry maps record kinds to shell allocators for the first restore
// phase. Built-in kinds register below; RegisterNodeKind adds new ones.
var nodeRegistry = map[string]func() Node{
	"generator":            func() Node { return &Generator{} },
	"var":                  func() Node { return &Var{} },
	"slice":                func() Node { return &VarSlice{} },
	"const":                func() Node { return &Const{} },
	"enum_const":           func() Node { return &EnumConst{} },
	"enum_var":             func() Node { return &EnumVar{} },
	"packed_var":           func() Node { return &PackedVar{} },
	"interface_var":        func() Node { return &InterfaceVar{} },
	"function_call":        func() Node { return &FunctionCallVar{} },
	"port":                 func() Node { return &Port{} },
	"packed_port":          func() Node { return &Port{} },
	"expr":                 func() Node { return &Expr{} },
	"cast":                 func() Node { return &VarCast{} },
	"assign":               func() Node { return &AssignStmt{} },
	"block":                func() Node { return &StmtBlock{} },
	"if":                   func() Node { return &IfStmt{} },
	"module_instantiation": func() Node { return &ModuleInstantiationStmt{} },
	"event_tracing":        func() Node { return &EventTracingStmt{} },
}

// RegisterNodeKind adds a restore allocator for a node kind. Registering a
// kind twice is an InternalError; built-in kinds cannot be replaced.
func RegisterNodeKind(kind string, alloc func() Node) error {
	if kind == "" || alloc == nil {
		return Internalf("RegisterNodeKind: empty kind or allocator")
	}
	if _, ok := nodeRegistry[kind]; ok {
		return Internalf("RegisterNodeKind: kind %q is already registered", kind)
	}
	nodeRegistry[kind] = alloc
	return nil
}

// snapshotBuilder assigns ids and emits records.
type snapshotBuilder struct {
	ids   map[Node]int
	order []Node
}

func (b *snapshotBuilder) assign(n Node) int {
	if id, ok := b.ids[n]; ok {
		return id
	}
	id := len(b.order) + 1
	b.ids[n] = id
	b.order = append(b.order, n)
	return id
}

func (b *snapshotBuilder) has(n Node) bool {
	_, ok := b.ids[n]
	return ok
}

// assignValue assigns ids to a value, its structural dependencies first, and
// its cached slices after.
func (b *snapshotBuilder) assignValue(v Value) {
	if v == nil || b.has(v) {
		return
	}
	switch val := v.(type) {
	case *Expr:
		b.assignValue(val.left)
		if val.right != nil {
			b.assignValue(val.right)
		}
	case *VarCast:
		b.assignValue(val.parent)
	case *VarSlice:
		b.assignValue(val.parent)
	case *FunctionCallVar:
		for _, a := range val.args {
			b.assignValue(a)
		}
	}
	if b.has(v) {
		// A dependency walk can reach back to v through a slice chain.
		return
	}
	b.assign(v)
	for _, s := range v.base().sliceOrder {
		b.assignValue(s)
	}
}

func (b *snapshotBuilder) assignStmt(s Stmt) {
	if s == nil || b.has(s) {
		return
	}
	switch st := s.(type) {
	case *AssignStmt:
		b.assignValue(st.target)
		b.assignValue(st.source)
		b.assign(st)
	case *StmtBlock:
		for _, c := range st.conditions {
			b.assignValue(c.Value)
		}
		b.assign(st)
		for _, child := range st.stmts {
			b.assignStmt(child)
		}
	case *IfStmt:
		b.assignValue(st.predicate)
		b.assign(st)
		b.assignStmt(st.thenBody)
		b.assignStmt(st.elseBody)
	case *ModuleInstantiationStmt:
		for _, c := range st.connections {
			b.assignValue(c.Port)
			b.assignValue(c.Value)
		}
		b.assign(st)
	case *EventTracingStmt:
		for _, name := range st.FieldNames() {
			b.assignValue(st.fields[name])
		}
		b.assign(st)
	}
}

// BuildSnapshot flattens the context into a snapshot. Ids follow a
// deterministic walk: generators in creation order, then per generator its
// named values and their slices, constants, enum members, and body
// statements with the expressions they reference.
func BuildSnapshot(ctx *Context) (*GraphSnapshot, error) {
	if ctx == nil {
		return nil, NewUserError("cannot snapshot an empty context")
	}
	b := &snapshotBuilder{ids: make(map[Node]int)}

	for _, g := range ctx.generators {
		b.assign(g)
	}
	for _, g := range ctx.generators {
		for _, name := range g.valueOrder {
			b.assignValue(g.namedValues[name])
		}
		for _, c := range g.consts {
			b.assignValue(c)
		}
		for _, name := range g.enumOrder {
			for _, m := range g.enums[name].members {
				b.assignValue(m)
			}
		}
		for _, s := range g.stmts {
			b.assignStmt(s)
		}
	}

	snap := &GraphSnapshot{Nodes: make([]NodeRecord, 0, len(b.order))}
	for _, n := range b.order {
		rec, err := b.record(n)
		if err != nil {
			return nil, err
		}
		snap.Nodes = append(snap.Nodes, rec)
	}
	for _, g := range ctx.Roots() {
		snap.Roots = append(snap.Roots, b.ids[g])
	}
	return snap, nil
}

func (b *snapshotBuilder) valueRecord(v Value) NodeRecord {
	base := v.base()
	rec := NodeRecord{
		ID:     b.ids[v],
		Kind:   v.KindName(),
		Name:   base.name,
		Width:  base.width,
		Signed: base.signed,
	}
	if base.gen != nil {
		rec.Gen = b.ids[base.gen]
	}
	for _, s := range base.sliceOrder {
		rec.Slices = append(rec.Slices, b.ids[s])
	}
	return rec
}

func (b *snapshotBuilder) record(n Node) (NodeRecord, error) {
	switch node := n.(type) {
	case *Var:
		return b.valueRecord(node), nil
	case *VarSlice:
		rec := b.valueRecord(node)
		rec.Parent = b.ids[node.parent]
		rec.High = node.High
		rec.Low = node.Low
		return rec, nil
	case *Const:
		rec := b.valueRecord(node)
		rec.Value = node.value
		return rec, nil
	case *EnumConst:
		rec := b.valueRecord(node)
		rec.Value = node.value
		rec.EnumDef = node.def.name
		return rec, nil
	case *EnumVar:
		rec := b.valueRecord(node)
		rec.EnumDef = node.def.name
		return rec, nil
	case *PackedVar:
		rec := b.valueRecord(node)
		rec.StructDef = node.def.name
		return rec, nil
	case *InterfaceVar:
		rec := b.valueRecord(node)
		rec.IfaceDef = node.def.name
		return rec, nil
	case *FunctionCallVar:
		rec := b.valueRecord(node)
		rec.Func = node.fn
		for _, a := range node.args {
			rec.Args = append(rec.Args, b.ids[a])
		}
		return rec, nil
	case *Port:
		rec := b.valueRecord(node)
		rec.Direction = node.direction.String()
		rec.PortType = node.portType.String()
		if node.structDef != nil {
			rec.StructDef = node.structDef.name
		}
		return rec, nil
	case *Expr:
		rec := b.valueRecord(node)
		rec.Op = node.op.opName()
		rec.Left = b.ids[node.left]
		if node.right != nil {
			rec.Right = b.ids[node.right]
		}
		return rec, nil
	case *VarCast:
		rec := b.valueRecord(node)
		rec.Parent = b.ids[node.parent]
		rec.Cast = node.castType.String()
		return rec, nil
	case *AssignStmt:
		rec := NodeRecord{
			ID:         b.ids[node],
			Kind:       node.KindName(),
			AssignType: node.assignType.String(),
			Target:     b.ids[node.target],
			Source:     b.ids[node.source],
		}
		rec.StmtID = stmtIDField(node)
		return rec, nil
	case *StmtBlock:
		rec := NodeRecord{
			ID:        b.ids[node],
			Kind:      node.KindName(),
			BlockType: node.blockType.String(),
		}
		rec.StmtID = stmtIDField(node)
		for _, c := range node.conditions {
			rec.Conditions = append(rec.Conditions, EdgeRec{
				Edge:  c.Edge.String(),
				Value: b.ids[c.Value],
			})
		}
		for _, s := range node.stmts {
			rec.Stmts = append(rec.Stmts, b.ids[s])
		}
		return rec, nil
	case *IfStmt:
		rec := NodeRecord{
			ID:        b.ids[node],
			Kind:      node.KindName(),
			Predicate: b.ids[node.predicate],
			Then:      b.ids[node.thenBody],
			Else:      b.ids[node.elseBody],
		}
		rec.StmtID = stmtIDField(node)
		return rec, nil
	case *ModuleInstantiationStmt:
		rec := NodeRecord{
			ID:       b.ids[node],
			Kind:     node.KindName(),
			Instance: b.ids[node.target],
		}
		rec.StmtID = stmtIDField(node)
		for _, c := range node.connections {
			rec.Connections = append(rec.Connections, ConnRec{
				Port:  b.ids[c.Port],
				Value: b.ids[c.Value],
			})
		}
		return rec, nil
	case *EventTracingStmt:
		rec := NodeRecord{
			ID:          b.ids[node],
			Kind:        node.KindName(),
			Event:       node.eventName,
			Transaction: node.transaction,
			Action:      node.action.String(),
		}
		rec.StmtID = stmtIDField(node)
		for _, name := range node.FieldNames() {
			rec.Fields = append(rec.Fields, FieldRec{
				Name:  name,
				Value: b.ids[node.fields[name]],
			})
		}
		return rec, nil
	case *Generator:
		rec := NodeRecord{
			ID:           b.ids[node],
			Kind:         node.KindName(),
			Name:         node.name,
			InstanceName: node.instanceName,
		}
		for _, name := range node.valueOrder {
			rec.Values = append(rec.Values, b.ids[node.namedValues[name]])
		}
		for _, c := range node.consts {
			rec.Consts = append(rec.Consts, b.ids[c])
		}
		for _, name := range node.enumOrder {
			def := node.enums[name]
			defRec := EnumDefRec{Name: def.name, Width: def.width}
			for _, m := range def.members {
				defRec.Members = append(defRec.Members, EnumMemberRec{
					Name:  m.memberName,
					Value: m.value,
					Const: b.ids[m],
				})
			}
			rec.Enums = append(rec.Enums, defRec)
		}
		for _, name := range node.structOrder {
			def := node.structs[name]
			defRec := StructDefRec{Name: def.name}
			for _, f := range def.fields {
				defRec.Fields = append(defRec.Fields, StructFieldRec{
					Name:   f.Name,
					Width:  f.Width,
					Signed: f.Signed,
				})
			}
			rec.Structs = append(rec.Structs, defRec)
		}
		for _, name := range node.interfaceOrder {
			def := node.interfaces[name]
			defRec := IfaceDefRec{Name: def.name}
			for _, s := range def.signals {
				defRec.Signals = append(defRec.Signals, StructFieldRec{
					Name:   s.Name,
					Width:  s.Width,
					Signed: s.Signed,
				})
			}
			rec.Interfaces = append(rec.Interfaces, defRec)
		}
		for _, s := range node.stmts {
			rec.Stmts = append(rec.Stmts, b.ids[s])
		}
		for _, child := range node.children {
			rec.Children = append(rec.Children, b.ids[child])
		}
		return rec, nil
	default:
		return NodeRecord{}, Internalf("record: unsupported node type %T", n)
	}
}

func stmtIDField(s Stmt) *int {
	id := s.ID()
	if id < 0 {
		return nil
	}
	return &id
}

// restorer rebuilds a context from a snapshot in phases: allocate a shell per
// record by kind, then link every shell's fields by resolving ids. Linking
// itself is ordered: generator definitions first, then every non-generator
// node, then generator membership lists, so cross-record lookups always see
// linked state.
type restorer struct {
	records map[int]*NodeRecord
	nodes   map[int]Node
	ctx     *Context
}

func corrupt(format string, args ...any) error {
	return NewUserError("snapshot is corrupt: " + fmt.Sprintf(format, args...))
}

// RestoreSnapshot rebuilds the full context graph, preserving shared
// references: every record becomes exactly one node, and every id reference
// resolves to that node. Unknown kinds and dangling or mistyped references
// are UserErrors.
func RestoreSnapshot(snap *GraphSnapshot) (*Context, error) {
	if snap == nil {
		return nil, NewUserError("cannot restore an empty snapshot")
	}
	r := &restorer{
		records: make(map[int]*NodeRecord, len(snap.Nodes)),
		nodes:   make(map[int]Node, len(snap.Nodes)),
		ctx:     NewContext(),
	}

	// Phase 1: allocate shells.
	for i := range snap.Nodes {
		rec := &snap.Nodes[i]
		if rec.ID <= 0 {
			return nil, corrupt("node id %d out of range", rec.ID)
		}
		if _, ok := r.nodes[rec.ID]; ok {
			return nil, corrupt("duplicate node id %d", rec.ID)
		}
		alloc, ok := nodeRegistry[rec.Kind]
		if !ok {
			return nil, corrupt("unknown node kind %q", rec.Kind)
		}
		r.records[rec.ID] = rec
		r.nodes[rec.ID] = alloc()
	}

	// Phase 2: link generator identities and type definitions. Enum and
	// struct vars resolve definitions off their generator, so these must
	// exist before any value links.
	for i := range snap.Nodes {
		rec := &snap.Nodes[i]
		if g, ok := r.nodes[rec.ID].(*Generator); ok {
			if err := r.linkGeneratorDefs(g, rec); err != nil {
				return nil, err
			}
		}
	}

	// Phase 3: link every non-generator node in record order.
	for i := range snap.Nodes {
		rec := &snap.Nodes[i]
		if _, ok := r.nodes[rec.ID].(*Generator); ok {
			continue
		}
		if err := r.link(rec); err != nil {
			return nil, err
		}
	}

	// Phase 4: link generator membership. Value lists are keyed by name,
	// which only exists once the values themselves have linked.
	for i := range snap.Nodes {
		rec := &snap.Nodes[i]
		if g, ok := r.nodes[rec.ID].(*Generator); ok {
			if err := r.linkGeneratorMembers(g, rec); err != nil {
				return nil, err
			}
		}
	}
	return r.ctx, nil
}

func (r *restorer) node(id int) (Node, error) {
	n, ok := r.nodes[id]
	if !ok {
		return nil, corrupt("reference to unknown node id %d", id)
	}
	return n, nil
}

func (r *restorer) value(id int) (Value, error) {
	n, err := r.node(id)
	if err != nil {
		return nil, err
	}
	v, ok := n.(Value)
	if !ok {
		return nil, corrupt("node %d is a %s, expected a value", id, n.KindName())
	}
	return v, nil
}

func (r *restorer) stmt(id int) (Stmt, error) {
	n, err := r.node(id)
	if err != nil {
		return nil, err
	}
	s, ok := n.(Stmt)
	if !ok {
		return nil, corrupt("node %d is a %s, expected a statement", id, n.KindName())
	}
	return s, nil
}

func (r *restorer) generator(id int) (*Generator, error) {
	n, err := r.node(id)
	if err != nil {
		return nil, err
	}
	g, ok := n.(*Generator)
	if !ok {
		return nil, corrupt("node %d is a %s, expected a generator", id, n.KindName())
	}
	return g, nil
}

// linkValueBase fills the embedded value core and rebuilds the slice cache.
func (r *restorer) linkValueBase(self Value, rec *NodeRecord, typ VarType) error {
	var gen *Generator
	if rec.Gen != 0 {
		g, err := r.generator(rec.Gen)
		if err != nil {
			return err
		}
		gen = g
	}
	base := self.base()
	base.init(self, gen, rec.Name, rec.Width, rec.Signed, typ)
	for _, sliceID := range rec.Slices {
		sv, err := r.value(sliceID)
		if err != nil {
			return err
		}
		s, ok := sv.(*VarSlice)
		if !ok {
			return corrupt("node %d is a %s, expected a slice", sliceID, sv.KindName())
		}
		sliceRec, err := r.recordFor(sliceID)
		if err != nil {
			return err
		}
		if base.slices == nil {
			base.slices = make(map[sliceKey]*VarSlice)
		}
		key := sliceKey{high: sliceRec.High, low: sliceRec.Low}
		if _, ok := base.slices[key]; ok {
			return corrupt("duplicate slice [%d:%d] on node %d", sliceRec.High, sliceRec.Low, rec.ID)
		}
		base.slices[key] = s
		base.sliceOrder = append(base.sliceOrder, s)
	}
	return nil
}

func (r *restorer) recordFor(id int) (*NodeRecord, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, corrupt("reference to unknown node id %d", id)
	}
	return rec, nil
}

func (r *restorer) link(rec *NodeRecord) error {
	n := r.nodes[rec.ID]
	switch node := n.(type) {
	case *Var:
		if rec.Width == 0 {
			return corrupt("var %q has width 0", rec.Name)
		}
		return r.linkValueBase(node, rec, Base)
	case *VarSlice:
		parent, err := r.value(rec.Parent)
		if err != nil {
			return err
		}
		if rec.Low > rec.High || rec.High >= parent.Width() {
			return corrupt("slice [%d:%d] out of range for width %d",
				rec.High, rec.Low, parent.Width())
		}
		if rec.Width != rec.High-rec.Low+1 {
			return corrupt("slice [%d:%d] has width %d", rec.High, rec.Low, rec.Width)
		}
		node.parent = parent
		node.High = rec.High
		node.Low = rec.Low
		return r.linkValueBase(node, rec, SliceValue)
	case *Const:
		if err := r.linkValueBase(node, rec, ConstValue); err != nil {
			return err
		}
		node.value = rec.Value
		if err := checkConstRange(node, rec.Value, rec.Width, rec.Signed); err != nil {
			return corrupt("%v", err)
		}
		return nil
	case *EnumConst:
		if err := r.linkValueBase(node, rec, ConstValue); err != nil {
			return err
		}
		node.memberName = rec.Name
		node.value = rec.Value
		// def is linked by the owning generator's record.
		return nil
	case *EnumVar:
		if err := r.linkValueBase(node, rec, Base); err != nil {
			return err
		}
		def, ok := node.gen.enums[rec.EnumDef]
		if !ok {
			return corrupt("enum var %q references unknown enum %q", rec.Name, rec.EnumDef)
		}
		node.def = def
		return nil
	case *PackedVar:
		if err := r.linkValueBase(node, rec, Base); err != nil {
			return err
		}
		def, ok := node.gen.structs[rec.StructDef]
		if !ok {
			return corrupt("packed var %q references unknown struct %q", rec.Name, rec.StructDef)
		}
		node.def = def
		return nil
	case *InterfaceVar:
		if err := r.linkValueBase(node, rec, Base); err != nil {
			return err
		}
		def, ok := node.gen.interfaces[rec.IfaceDef]
		if !ok {
			return corrupt("interface var %q references unknown interface %q", rec.Name, rec.IfaceDef)
		}
		node.def = def
		return nil
	case *FunctionCallVar:
		if rec.Func == "" {
			return corrupt("function call node %d has no name", rec.ID)
		}
		if rec.Width == 0 {
			return corrupt("call to %q has width 0", rec.Func)
		}
		node.fn = rec.Func
		for _, aid := range rec.Args {
			a, err := r.value(aid)
			if err != nil {
				return err
			}
			node.args = append(node.args, a)
		}
		return r.linkValueBase(node, rec, Expression)
	case *Port:
		dir, err := parsePortDirection(rec.Direction)
		if err != nil {
			return err
		}
		pt, err := parsePortType(rec.PortType)
		if err != nil {
			return err
		}
		if pt.isControl() && rec.Width != 1 {
			return corrupt("%s port %q has width %d", pt, rec.Name, rec.Width)
		}
		node.direction = dir
		node.portType = pt
		if err := r.linkValueBase(node, rec, PortIO); err != nil {
			return err
		}
		if rec.StructDef != "" {
			if node.gen == nil {
				return corrupt("packed port %q has no generator", rec.Name)
			}
			def, ok := node.gen.structs[rec.StructDef]
			if !ok {
				return corrupt("port %q references unknown struct %q", rec.Name, rec.StructDef)
			}
			if rec.Width != def.Width() {
				return corrupt("port %q has width %d, struct %q packs to %d",
					rec.Name, rec.Width, def.name, def.Width())
			}
			node.structDef = def
		}
		return nil
	case *Expr:
		op, ok := exprOpByName[rec.Op]
		if !ok {
			return corrupt("unknown operator %q", rec.Op)
		}
		left, err := r.value(rec.Left)
		if err != nil {
			return err
		}
		node.op = op
		node.left = left
		if !op.IsUnary() {
			right, err := r.value(rec.Right)
			if err != nil {
				return err
			}
			node.right = right
		}
		return r.linkValueBase(node, rec, Expression)
	case *VarCast:
		parent, err := r.value(rec.Parent)
		if err != nil {
			return err
		}
		ct, err := parseCastType(rec.Cast)
		if err != nil {
			return err
		}
		node.parent = parent
		node.castType = ct
		return r.linkValueBase(node, rec, Expression)
	case *AssignStmt:
		target, err := r.value(rec.Target)
		if err != nil {
			return err
		}
		source, err := r.value(rec.Source)
		if err != nil {
			return err
		}
		at, err := parseAssignmentType(rec.AssignType)
		if err != nil {
			return err
		}
		node.target = target
		node.source = source
		node.assignType = at
		node.id = restoredStmtID(rec)
		target.base().addSink(node)
		return nil
	case *StmtBlock:
		bt, err := parseBlockType(rec.BlockType)
		if err != nil {
			return err
		}
		node.blockType = bt
		node.id = restoredStmtID(rec)
		for _, c := range rec.Conditions {
			edge, err := parseEdgeType(c.Edge)
			if err != nil {
				return err
			}
			v, err := r.value(c.Value)
			if err != nil {
				return err
			}
			node.conditions = append(node.conditions, EventControl{Edge: edge, Value: v})
		}
		for _, sid := range rec.Stmts {
			s, err := r.stmt(sid)
			if err != nil {
				return err
			}
			s.setParent(node)
			node.stmts = append(node.stmts, s)
		}
		return nil
	case *IfStmt:
		pred, err := r.value(rec.Predicate)
		if err != nil {
			return err
		}
		thenStmt, err := r.stmt(rec.Then)
		if err != nil {
			return err
		}
		thenBody, ok := thenStmt.(*StmtBlock)
		if !ok {
			return corrupt("if body node %d is a %s", rec.Then, thenStmt.KindName())
		}
		elseStmt, err := r.stmt(rec.Else)
		if err != nil {
			return err
		}
		elseBody, ok := elseStmt.(*StmtBlock)
		if !ok {
			return corrupt("if body node %d is a %s", rec.Else, elseStmt.KindName())
		}
		node.predicate = pred
		node.thenBody = thenBody
		node.elseBody = elseBody
		node.id = restoredStmtID(rec)
		thenBody.setParent(node)
		elseBody.setParent(node)
		return nil
	case *ModuleInstantiationStmt:
		target, err := r.generator(rec.Instance)
		if err != nil {
			return err
		}
		node.target = target
		node.id = restoredStmtID(rec)
		node.byPort = make(map[*Port]Value, len(rec.Connections))
		for _, c := range rec.Connections {
			pv, err := r.value(c.Port)
			if err != nil {
				return err
			}
			port, ok := pv.(*Port)
			if !ok {
				return corrupt("connection node %d is a %s, expected a port", c.Port, pv.KindName())
			}
			v, err := r.value(c.Value)
			if err != nil {
				return err
			}
			if _, dup := node.byPort[port]; dup {
				return corrupt("port %q connected twice", port.Name())
			}
			node.byPort[port] = v
			node.connections = append(node.connections, PortConnection{Port: port, Value: v})
		}
		return nil
	case *EventTracingStmt:
		action, err := parseEventAction(rec.Action)
		if err != nil {
			return err
		}
		node.eventName = rec.Event
		node.transaction = rec.Transaction
		node.action = action
		node.id = restoredStmtID(rec)
		node.fields = make(map[string]Value, len(rec.Fields))
		for _, f := range rec.Fields {
			v, err := r.value(f.Value)
			if err != nil {
				return err
			}
			if _, dup := node.fields[f.Name]; dup {
				return corrupt("event field %q bound twice", f.Name)
			}
			node.fields[f.Name] = v
			node.fieldOrder = append(node.fieldOrder, f.Name)
		}
		return nil
	default:
		return Internalf("link: unsupported node type %T", n)
	}
}

// linkGeneratorDefs fills a generator's identity and its enum and struct
// definitions. Definitions only reference allocated shells, so this can run
// before any value has linked.
func (r *restorer) linkGeneratorDefs(node *Generator, rec *NodeRecord) error {
	node.ctx = r.ctx
	node.name = rec.Name
	node.instanceName = rec.InstanceName
	node.namedValues = make(map[string]Value, len(rec.Values))
	node.enums = make(map[string]*EnumDef, len(rec.Enums))
	node.structs = make(map[string]*PackedStructDef, len(rec.Structs))
	node.interfaces = make(map[string]*InterfaceDef, len(rec.Interfaces))
	node.childByInstance = make(map[string]*Generator, len(rec.Children))
	r.ctx.generators = append(r.ctx.generators, node)
	r.ctx.byName[rec.Name] = append(r.ctx.byName[rec.Name], node)

	for _, defRec := range rec.Enums {
		def := &EnumDef{
			name:   defRec.Name,
			width:  defRec.Width,
			byName: make(map[string]*EnumConst, len(defRec.Members)),
		}
		for _, m := range defRec.Members {
			mv, err := r.value(m.Const)
			if err != nil {
				return err
			}
			mc, ok := mv.(*EnumConst)
			if !ok {
				return corrupt("enum member node %d is a %s", m.Const, mv.KindName())
			}
			mc.def = def
			def.members = append(def.members, mc)
			def.byName[m.Name] = mc
		}
		node.enums[defRec.Name] = def
		node.enumOrder = append(node.enumOrder, defRec.Name)
	}
	for _, defRec := range rec.Structs {
		fields := make([]PackedField, 0, len(defRec.Fields))
		for _, f := range defRec.Fields {
			fields = append(fields, PackedField{Name: f.Name, Width: f.Width, Signed: f.Signed})
		}
		def, err := newPackedStructDef(defRec.Name, fields)
		if err != nil {
			return corrupt("%v", err)
		}
		node.structs[defRec.Name] = def
		node.structOrder = append(node.structOrder, defRec.Name)
	}
	for _, defRec := range rec.Interfaces {
		signals := make([]InterfaceSignal, 0, len(defRec.Signals))
		for _, s := range defRec.Signals {
			signals = append(signals, InterfaceSignal{Name: s.Name, Width: s.Width, Signed: s.Signed})
		}
		def, err := newInterfaceDef(defRec.Name, signals)
		if err != nil {
			return corrupt("%v", err)
		}
		node.interfaces[defRec.Name] = def
		node.interfaceOrder = append(node.interfaceOrder, defRec.Name)
	}
	return nil
}

// linkGeneratorMembers fills a generator's value, const, statement and child
// lists. Runs after every non-generator node has linked so names and record
// order are meaningful.
func (r *restorer) linkGeneratorMembers(node *Generator, rec *NodeRecord) error {
	for _, vid := range rec.Values {
		v, err := r.value(vid)
		if err != nil {
			return err
		}
		if v.Name() == "" {
			return corrupt("generator %q lists unnamed value node %d", rec.Name, vid)
		}
		if _, dup := node.namedValues[v.Name()]; dup {
			return corrupt("generator %q declares %q twice", rec.Name, v.Name())
		}
		node.namedValues[v.Name()] = v
		node.valueOrder = append(node.valueOrder, v.Name())
		if p, ok := v.(*Port); ok {
			node.ports = append(node.ports, p)
		}
	}
	for _, cid := range rec.Consts {
		cv, err := r.value(cid)
		if err != nil {
			return err
		}
		c, ok := cv.(*Const)
		if !ok {
			return corrupt("const node %d is a %s", cid, cv.KindName())
		}
		node.consts = append(node.consts, c)
	}
	for _, sid := range rec.Stmts {
		s, err := r.stmt(sid)
		if err != nil {
			return err
		}
		s.setParent(node)
		node.stmts = append(node.stmts, s)
	}
	for _, cid := range rec.Children {
		child, err := r.generator(cid)
		if err != nil {
			return err
		}
		child.parent = node
		node.children = append(node.children, child)
		if child.instanceName != "" {
			node.childByInstance[child.instanceName] = child
		}
	}
	return nil
}

func restoredStmtID(rec *NodeRecord) int {
	if rec.StmtID == nil {
		return -1
	}
	return *rec.StmtID
}

func parsePortDirection(s string) (PortDirection, error) {
	switch s {
	case "input":
		return In, nil
	case "output":
		return Out, nil
	case "inout":
		return InOut, nil
	}
	return 0, corrupt("unknown port direction %q", s)
}

func parsePortType(s string) (PortType, error) {
	switch s {
	case "data":
		return Data, nil
	case "clock":
		return Clock, nil
	case "async_reset":
		return AsyncReset, nil
	case "clock_enable":
		return ClockEnable, nil
	case "reset":
		return Reset, nil
	}
	return 0, corrupt("unknown port type %q", s)
}

func parseAssignmentType(s string) (AssignmentType, error) {
	switch s {
	case "blocking":
		return Blocking, nil
	case "non_blocking":
		return NonBlocking, nil
	case "undefined":
		return Undefined, nil
	}
	return 0, corrupt("unknown assignment type %q", s)
}

func parseBlockType(s string) (BlockType, error) {
	switch s {
	case "combinational":
		return Combinational, nil
	case "sequential":
		return Sequential, nil
	case "scoped":
		return Scoped, nil
	}
	return 0, corrupt("unknown block type %q", s)
}

func parseEdgeType(s string) (EdgeType, error) {
	switch s {
	case "posedge":
		return Posedge, nil
	case "negedge":
		return Negedge, nil
	}
	return 0, corrupt("unknown edge %q", s)
}

func parseEventAction(s string) (EventActionType, error) {
	switch s {
	case "none":
		return EventActionNone, nil
	case "start":
		return EventActionStart, nil
	case "end":
		return EventActionEnd, nil
	}
	return 0, corrupt("unknown event action %q", s)
}

func parseCastType(s string) (CastType, error) {
	switch s {
	case "signed":
		return CastSigned, nil
	case "unsigned":
		return CastUnsigned, nil
	}
	return 0, corrupt("unknown cast type %q", s)
}
