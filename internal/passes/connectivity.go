package passes

import (
	"fmt"

	"github.com/roach88/loom/internal/ir"
)

// VerifyGeneratorConnectivity checks that every input port of every
// non-root generator in the tree has exactly one driver, counting wiring
// assignments, partial-range assignments, and instantiation port maps.
// Output ports may dangle; an unread output is not an error. The check runs
// the same before and after instantiation absorption, since absorbing a
// wiring assignment trades a sink for a port-map entry.
func VerifyGeneratorConnectivity(top *ir.Generator) error {
	return eachGenerator(top, verifyGenerator)
}

func verifyGenerator(g *ir.Generator) error {
	parent := g.Parent()
	if parent == nil {
		// the root's ports face the outside world
		return nil
	}
	inst := instantiationFor(parent, g)
	for _, port := range g.Ports() {
		if port.Direction() != ir.In {
			continue
		}
		full := len(port.Sinks())
		if inst != nil && inst.Connected(port) != nil {
			full++
		}
		partial := 0
		for _, slice := range port.CachedSlices() {
			partial += len(slice.Sinks())
		}
		switch {
		case full == 0 && partial == 0:
			return ir.NewGeneratorError(fmt.Sprintf(
				"%s.%s is not connected", g.InstanceName(), port.Name()), port, g)
		case full > 1 || (full == 1 && partial > 0):
			nodes := []ir.Node{port}
			for _, a := range port.Sinks() {
				nodes = append(nodes, a)
			}
			return ir.NewStmtError(fmt.Sprintf(
				"%s.%s is driven by multiple statements",
				g.InstanceName(), port.Name()), nodes...)
		}
	}
	return nil
}

// instantiationFor returns the instantiation statement for the child in the
// parent's module body, or nil if the child has not been instantiated yet.
func instantiationFor(parent, child *ir.Generator) *ir.ModuleInstantiationStmt {
	for _, stmt := range parent.Stmts() {
		if inst, ok := stmt.(*ir.ModuleInstantiationStmt); ok && inst.Target() == child {
			return inst
		}
	}
	return nil
}
