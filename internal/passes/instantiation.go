package passes

import (
	"fmt"

	"github.com/roach88/loom/internal/ir"
)

// DecoupleGeneratorPorts rewrites direct child-to-child port wiring through
// a fresh wire in the parent, so that each side of the connection binds a
// value that is local to the parent scope. `b.in = a.out` becomes
// `a_out = a.out; b.in = a_out` with `a_out` a new parent variable named
// after the source instance and port.
func DecoupleGeneratorPorts(top *ir.Generator) error {
	return eachGenerator(top, decoupleGenerator)
}

func decoupleGenerator(g *ir.Generator) error {
	stmts := append([]ir.Stmt(nil), g.Stmts()...)
	for _, stmt := range stmts {
		assign, ok := stmt.(*ir.AssignStmt)
		if !ok {
			continue
		}
		dst := childPort(g, assign.Target())
		src := childPort(g, assign.Source())
		if dst == nil || src == nil {
			continue
		}
		mid, err := newWire(g, src.Generator().InstanceName(), src)
		if err != nil {
			return err
		}
		kind := assign.AssignType()
		g.RemoveStmt(assign)
		assign.Unlink()
		feed, err := mid.AssignKind(src, kind)
		if err != nil {
			return err
		}
		if err := g.AddStmt(feed); err != nil {
			return err
		}
		drive, err := dst.AssignKind(mid, kind)
		if err != nil {
			return err
		}
		if err := g.AddStmt(drive); err != nil {
			return err
		}
	}
	return nil
}

// CreateModuleInstantiation derives an instantiation statement for every
// child that does not have one yet, absorbing the child's top-level port
// wiring into the port map. A wiring assignment that is absorbed is removed
// from the module body and unlinked from its target's sinks; what remains
// after this pass is exactly what code generation emits.
func CreateModuleInstantiation(top *ir.Generator) error {
	return eachGenerator(top, instantiateChildren)
}

func instantiateChildren(g *ir.Generator) error {
	instantiated := make(map[*ir.Generator]bool)
	for _, stmt := range g.Stmts() {
		if inst, ok := stmt.(*ir.ModuleInstantiationStmt); ok {
			instantiated[inst.Target()] = true
		}
	}
	for _, child := range g.Children() {
		if instantiated[child] {
			continue
		}
		inst, err := ir.NewModuleInstantiationStmt(child)
		if err != nil {
			return err
		}
		for _, port := range child.Ports() {
			if port.Direction() == ir.Out {
				err = absorbOutputWiring(g, inst, child, port)
			} else {
				err = absorbInputWiring(g, inst, child, port)
			}
			if err != nil {
				return err
			}
		}
		if err := g.AddStmt(inst); err != nil {
			return err
		}
	}
	return nil
}

// absorbInputWiring moves the drivers of a child input port into the port
// map. A single whole-port driver connects its source directly; partial
// drivers are rerouted onto a fresh parent wire that becomes the connection.
// A port nobody drives is left unconnected for the connectivity check to
// judge.
func absorbInputWiring(g *ir.Generator, inst *ir.ModuleInstantiationStmt, child *ir.Generator, port *ir.Port) error {
	full := topLevelSinks(g, port)
	partial := topLevelSliceSinks(g, port)
	switch {
	case len(full) > 1 || (len(full) == 1 && len(partial) > 0):
		nodes := append([]ir.Node{port}, assignNodes(full, partial)...)
		return ir.NewStmtError(fmt.Sprintf(
			"%s.%s is driven by multiple statements",
			child.InstanceName(), port.Name()), nodes...)
	case len(full) == 1:
		a := full[0]
		if err := inst.Connect(port, a.Source()); err != nil {
			return err
		}
		g.RemoveStmt(a)
		a.Unlink()
	case len(partial) > 0:
		mid, err := newWire(g, child.InstanceName(), port)
		if err != nil {
			return err
		}
		if err := inst.Connect(port, mid); err != nil {
			return err
		}
		for _, a := range partial {
			slice := a.Target().(*ir.VarSlice)
			kind := a.AssignType()
			g.RemoveStmt(a)
			a.Unlink()
			target, err := mid.Slice(slice.High, slice.Low)
			if err != nil {
				return err
			}
			repl, err := target.AssignKind(a.Source(), kind)
			if err != nil {
				return err
			}
			if err := g.AddStmt(repl); err != nil {
				return err
			}
		}
	}
	return nil
}

// absorbOutputWiring moves the readers of a child output port into the port
// map. A single whole-port reader binds its target directly; any other
// fan-out goes through a fresh parent wire, with each reader rewritten to
// read the wire instead of the port.
func absorbOutputWiring(g *ir.Generator, inst *ir.ModuleInstantiationStmt, child *ir.Generator, port *ir.Port) error {
	full, partial := topLevelReaders(g, port)
	switch {
	case len(full) == 0 && len(partial) == 0:
		// an unread output is allowed to dangle
	case len(full) == 1 && len(partial) == 0:
		a := full[0]
		if err := inst.Connect(port, a.Target()); err != nil {
			return err
		}
		g.RemoveStmt(a)
		a.Unlink()
	default:
		mid, err := newWire(g, child.InstanceName(), port)
		if err != nil {
			return err
		}
		if err := inst.Connect(port, mid); err != nil {
			return err
		}
		for _, a := range full {
			if err := rereadFrom(g, a, mid); err != nil {
				return err
			}
		}
		for _, a := range partial {
			slice := a.Source().(*ir.VarSlice)
			source, err := mid.Slice(slice.High, slice.Low)
			if err != nil {
				return err
			}
			if err := rereadFrom(g, a, source); err != nil {
				return err
			}
		}
	}
	return nil
}

// rereadFrom replaces a reader assignment with one of the same target and
// discipline reading from the given value.
func rereadFrom(g *ir.Generator, a *ir.AssignStmt, source ir.Value) error {
	target := a.Target()
	kind := a.AssignType()
	g.RemoveStmt(a)
	a.Unlink()
	repl, err := target.AssignKind(source, kind)
	if err != nil {
		return err
	}
	return g.AddStmt(repl)
}

// childPort returns v as a port of a direct child of g, or nil.
func childPort(g *ir.Generator, v ir.Value) *ir.Port {
	p, ok := v.(*ir.Port)
	if !ok {
		return nil
	}
	owner := p.Generator()
	if owner == nil || owner == g || owner.Parent() != g {
		return nil
	}
	return p
}

// topLevelSinks returns the assignments driving the whole port that sit
// directly in g's module body.
func topLevelSinks(g *ir.Generator, port *ir.Port) []*ir.AssignStmt {
	var out []*ir.AssignStmt
	for _, a := range port.Sinks() {
		if parent, ok := a.Parent().(*ir.Generator); ok && parent == g {
			out = append(out, a)
		}
	}
	return out
}

// topLevelSliceSinks returns the assignments driving some bit range of the
// port that sit directly in g's module body.
func topLevelSliceSinks(g *ir.Generator, port *ir.Port) []*ir.AssignStmt {
	var out []*ir.AssignStmt
	for _, slice := range port.CachedSlices() {
		for _, a := range slice.Sinks() {
			if parent, ok := a.Parent().(*ir.Generator); ok && parent == g {
				out = append(out, a)
			}
		}
	}
	return out
}

// topLevelReaders scans g's module body for assignments whose source is the
// port (full) or a cached bit range of it (partial).
func topLevelReaders(g *ir.Generator, port *ir.Port) (full, partial []*ir.AssignStmt) {
	for _, stmt := range g.Stmts() {
		a, ok := stmt.(*ir.AssignStmt)
		if !ok {
			continue
		}
		if a.Source() == ir.Value(port) {
			full = append(full, a)
			continue
		}
		if slice, ok := a.Source().(*ir.VarSlice); ok && slice.Parent() == ir.Value(port) {
			partial = append(partial, a)
		}
	}
	return full, partial
}

// newWire creates a parent variable shaped like the reference value, named
// after the instance and port it stands in for. Taken names get a numeric
// suffix.
func newWire(g *ir.Generator, instance string, ref ir.Value) (*ir.Var, error) {
	base := fmt.Sprintf("%s_%s", instance, ref.Name())
	name := base
	for i := 0; g.GetVar(name) != nil; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	if ref.Signed() {
		return g.SignedVar(name, ref.Width())
	}
	return g.Var(name, ref.Width())
}

func assignNodes(lists ...[]*ir.AssignStmt) []ir.Node {
	var out []ir.Node
	for _, list := range lists {
		for _, a := range list {
			out = append(out, a)
		}
	}
	return out
}
