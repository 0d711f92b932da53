// Package codegen renders generator trees as synthesizable SystemVerilog.
//
// GenerateModule renders a single module definition and performs no graph
// mutation, so the same tree always renders to the same bytes. Generate
// lowers a whole instantiation tree first (assignment disciplines resolved,
// cross-module wiring absorbed into port maps, connectivity verified,
// definition names deduplicated) and then renders every distinct module
// definition once.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/loom/internal/ir"
	"github.com/roach88/loom/internal/passes"
)

// indentSize is the number of spaces per nesting level.
const indentSize = 2

// generatePasses is the lowering order Generate applies before rendering.
// Event statements are deliberately absent: tracing must be extracted and
// stripped by the caller, and an event statement reaching the renderer is
// reported as an internal fault rather than silently dropped.
var generatePasses = []string{
	passes.PassCheckGeneratorCycles,
	passes.PassFixAssignmentType,
	passes.PassDecoupleGeneratorPorts,
	passes.PassCreateModuleInstantiation,
	passes.PassVerifyGeneratorConnectivity,
	passes.PassUniquifyGenerators,
}

// Generate lowers the tree under top and renders every distinct module
// definition it instantiates, keyed by definition name. Definitions that
// share a name after deduplication are structurally identical and are
// rendered once.
func Generate(top *ir.Generator) (map[string]string, error) {
	if top == nil {
		return nil, ir.NewUserError("cannot generate code for an empty generator")
	}
	mgr := passes.NewManager()
	for _, name := range generatePasses {
		if err := mgr.Add(name); err != nil {
			return nil, err
		}
	}
	if err := mgr.Run(top); err != nil {
		return nil, err
	}

	out := make(map[string]string)
	visited := make(map[*ir.Generator]bool)
	var render func(g *ir.Generator) error
	render = func(g *ir.Generator) error {
		if visited[g] {
			return nil
		}
		visited[g] = true
		if _, done := out[g.Name()]; !done {
			src, err := GenerateModule(g)
			if err != nil {
				return fmt.Errorf("generate %s: %w", g.Name(), err)
			}
			out[g.Name()] = src
		}
		for _, child := range g.Children() {
			if err := render(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := render(top); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateModule renders the definition of a single generator. The tree is
// expected to be lowered already: every assignment carries a resolved
// discipline and no event statements remain. Rendering mutates nothing, so
// identical trees produce byte-identical output.
func GenerateModule(g *ir.Generator) (string, error) {
	if g == nil {
		return "", ir.NewUserError("cannot generate code for an empty generator")
	}
	e := &emitter{}
	if err := e.module(g); err != nil {
		return "", err
	}
	return e.out.String(), nil
}

// emitter accumulates one module's source. Statement renderers share the
// indent counter so nesting depth is tracked in exactly one place.
type emitter struct {
	out    strings.Builder
	indent int
}

func (e *emitter) linef(format string, args ...any) {
	for i := 0; i < e.indent*indentSize; i++ {
		e.out.WriteByte(' ')
	}
	fmt.Fprintf(&e.out, format, args...)
	e.out.WriteByte('\n')
}

func (e *emitter) blank() {
	e.out.WriteByte('\n')
}

func (e *emitter) module(g *ir.Generator) error {
	e.header(g)
	e.blank()
	if e.variables(g) > 0 {
		e.blank()
	}
	for _, s := range g.Stmts() {
		if err := e.moduleStmt(s); err != nil {
			return err
		}
	}
	e.linef("endmodule  // %s", g.Name())
	return nil
}

func (e *emitter) header(g *ir.Generator) {
	ports := g.Ports()
	if len(ports) == 0 {
		e.linef("module %s;", g.Name())
		return
	}
	e.linef("module %s (", g.Name())
	e.indent++
	for i, p := range ports {
		sep := ","
		if i == len(ports)-1 {
			sep = ""
		}
		e.linef("%s logic %s%s%s%s",
			p.Direction(), signedString(p.Signed()), widthString(p.Width()), p.Name(), sep)
	}
	e.indent--
	e.linef(");")
}

// variables declares every named value that is not a port, in declaration
// order, and reports how many lines it wrote. Enum, packed-struct, and
// interface variables flatten to plain vectors of their definition's width.
func (e *emitter) variables(g *ir.Generator) int {
	count := 0
	for _, v := range g.NamedValues() {
		if _, isPort := v.(*ir.Port); isPort {
			continue
		}
		e.linef("logic %s%s%s;", signedString(v.Signed()), widthString(v.Width()), v.Name())
		count++
	}
	return count
}

// moduleStmt renders one statement of the module body.
func (e *emitter) moduleStmt(s ir.Stmt) error {
	switch st := s.(type) {
	case *ir.AssignStmt:
		return e.continuousAssign(st)
	case *ir.StmtBlock:
		return e.processBlock(st)
	case *ir.ModuleInstantiationStmt:
		return e.instantiation(st)
	case *ir.EventTracingStmt:
		return ir.Internalf(
			"event %s reached emission; tracing must be stripped first", st)
	default:
		return ir.Internalf("cannot render a %s statement at module scope", s.StmtType())
	}
}

func (e *emitter) continuousAssign(s *ir.AssignStmt) error {
	if s.AssignType() == ir.NonBlocking {
		return ir.Internalf("continuous assignment %s cannot be non-blocking", s)
	}
	lhs, err := e.value(s.Target())
	if err != nil {
		return err
	}
	rhs, err := e.value(s.Source())
	if err != nil {
		return err
	}
	e.linef("assign %s = %s;", lhs, rhs)
	return nil
}

func (e *emitter) processBlock(b *ir.StmtBlock) error {
	switch b.BlockType() {
	case ir.Combinational:
		e.linef("always_comb begin")
	case ir.Sequential:
		conds := b.Conditions()
		if len(conds) == 0 {
			return ir.NewInternalError("sequential block has an empty sensitivity list")
		}
		parts := make([]string, len(conds))
		for i, c := range conds {
			v, err := e.value(c.Value)
			if err != nil {
				return err
			}
			parts[i] = fmt.Sprintf("%s %s", c.Edge, v)
		}
		e.linef("always_ff @(%s) begin", strings.Join(parts, ", "))
	default:
		return ir.NewInternalError("scoped block cannot appear at module scope")
	}
	e.indent++
	for _, s := range b.Stmts() {
		if err := e.blockStmt(s); err != nil {
			return err
		}
	}
	e.indent--
	e.linef("end")
	return nil
}

// blockStmt renders one statement inside a process. Scoped blocks group
// statements for construction and the passes; they flatten away here since
// they declare nothing of their own.
func (e *emitter) blockStmt(s ir.Stmt) error {
	switch st := s.(type) {
	case *ir.AssignStmt:
		return e.blockAssign(st)
	case *ir.IfStmt:
		return e.ifStmt(st)
	case *ir.StmtBlock:
		if st.BlockType() != ir.Scoped {
			return ir.Internalf("%s block cannot nest inside a process", st.BlockType())
		}
		for _, inner := range st.Stmts() {
			if err := e.blockStmt(inner); err != nil {
				return err
			}
		}
		return nil
	case *ir.EventTracingStmt:
		return ir.Internalf(
			"event %s reached emission; tracing must be stripped first", st)
	default:
		return ir.Internalf("cannot render a %s statement inside a process", s.StmtType())
	}
}

func (e *emitter) blockAssign(s *ir.AssignStmt) error {
	var op string
	switch s.AssignType() {
	case ir.Blocking:
		op = "="
	case ir.NonBlocking:
		op = "<="
	default:
		return ir.Internalf(
			"assignment %s has an unresolved discipline; run the assignment-type pass before emission", s)
	}
	lhs, err := e.value(s.Target())
	if err != nil {
		return err
	}
	rhs, err := e.value(s.Source())
	if err != nil {
		return err
	}
	e.linef("%s %s %s;", lhs, op, rhs)
	return nil
}

func (e *emitter) ifStmt(s *ir.IfStmt) error {
	pred, err := e.value(s.Predicate())
	if err != nil {
		return err
	}
	e.linef("if (%s) begin", pred)
	e.indent++
	for _, st := range s.ThenBody().Stmts() {
		if err := e.blockStmt(st); err != nil {
			return err
		}
	}
	e.indent--
	e.linef("end")
	if len(s.ElseBody().Stmts()) > 0 {
		e.linef("else begin")
		e.indent++
		for _, st := range s.ElseBody().Stmts() {
			if err := e.blockStmt(st); err != nil {
				return err
			}
		}
		e.indent--
		e.linef("end")
	}
	return nil
}

// instantiation renders the port map sorted by port name, so the emitted
// text does not depend on the order connections were recorded in.
func (e *emitter) instantiation(s *ir.ModuleInstantiationStmt) error {
	child := s.Target()
	conns := append([]ir.PortConnection(nil), s.Connections()...)
	sort.Slice(conns, func(i, j int) bool {
		return conns[i].Port.Name() < conns[j].Port.Name()
	})
	if len(conns) == 0 {
		e.linef("%s %s ();", child.Name(), child.InstanceName())
		return nil
	}
	e.linef("%s %s (", child.Name(), child.InstanceName())
	e.indent++
	for i, c := range conns {
		v, err := e.value(c.Value)
		if err != nil {
			return err
		}
		sep := ","
		if i == len(conns)-1 {
			sep = ""
		}
		e.linef(".%s(%s)%s", c.Port.Name(), v, sep)
	}
	e.indent--
	e.linef(");")
	return nil
}

// value renders a reference to a value. Enum constants render as sized
// literals of their definition's width, matching the flattened variable
// declarations.
func (e *emitter) value(v ir.Value) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", ir.NewInternalError("value reference is empty")
	case *ir.Var:
		return val.Name(), nil
	case *ir.Port:
		return val.Name(), nil
	case *ir.EnumVar:
		return val.Name(), nil
	case *ir.PackedVar:
		return val.Name(), nil
	case *ir.InterfaceVar:
		return val.Name(), nil
	case *ir.FunctionCallVar:
		args := make([]string, len(val.Args()))
		for i, a := range val.Args() {
			s, err := e.value(a)
			if err != nil {
				return "", err
			}
			args[i] = s
		}
		return fmt.Sprintf("%s(%s)", val.FuncName(), strings.Join(args, ", ")), nil
	case *ir.VarSlice:
		parent, err := e.value(val.Parent())
		if err != nil {
			return "", err
		}
		return parent + sliceString(val.High, val.Low), nil
	case *ir.Const:
		return literal(val.Value(), val.Width()), nil
	case *ir.EnumConst:
		return literal(val.Value(), val.Def().Width()), nil
	case *ir.VarCast:
		inner, err := e.value(val.Parent())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s'(%s)", val.CastType(), inner), nil
	case *ir.Expr:
		return e.expr(val)
	default:
		return "", ir.Internalf("cannot render a %s value", v.KindName())
	}
}

func (e *emitter) expr(x *ir.Expr) (string, error) {
	left, err := e.operand(x.Left())
	if err != nil {
		return "", err
	}
	if x.Op().IsUnary() {
		return x.Op().String() + left, nil
	}
	right, err := e.operand(x.Right())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", left, x.Op(), right), nil
}

// operand parenthesizes nested expressions so emitted text never leans on
// operator precedence.
func (e *emitter) operand(v ir.Value) (string, error) {
	s, err := e.value(v)
	if err != nil {
		return "", err
	}
	if _, nested := v.(*ir.Expr); nested {
		s = "(" + s + ")"
	}
	return s, nil
}

// widthString renders the packed range of a declaration, with a trailing
// space, e.g. "[7:0] ". Width-one values carry no range.
func widthString(width uint32) string {
	if width <= 1 {
		return ""
	}
	return fmt.Sprintf("[%d:0] ", width-1)
}

// sliceString renders a select suffix: "[3]" for a single bit, "[7:4]" for
// a range.
func sliceString(high, low uint32) string {
	if high == low {
		return fmt.Sprintf("[%d]", high)
	}
	return fmt.Sprintf("[%d:%d]", high, low)
}

// literal renders a sized hex literal, e.g. 16'h1f, or -16'h1f for negative
// payloads.
func literal(value int64, width uint32) string {
	if value < 0 {
		return fmt.Sprintf("-%d'h%x", width, -value)
	}
	return fmt.Sprintf("%d'h%x", width, value)
}

func signedString(signed bool) string {
	if signed {
		return "signed "
	}
	return ""
}
