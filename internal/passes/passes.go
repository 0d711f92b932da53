package passes

import (
	"fmt"

	"github.com/roach88/loom/internal/ir"
)

// A Pass transforms or checks a generator tree in place. Passes receive the
// top of the tree; passes that need context-wide state (such as uniquify)
// reach it through the generator.
type Pass func(top *ir.Generator) error

// Builtin pass names, usable with Manager.Add.
const (
	PassCheckGeneratorCycles        = "check_generator_cycles"
	PassFixAssignmentType           = "fix_assignment_type"
	PassDecoupleGeneratorPorts      = "decouple_generator_ports"
	PassCreateModuleInstantiation   = "create_module_instantiation"
	PassVerifyGeneratorConnectivity = "verify_generator_connectivity"
	PassRemoveEventStmts            = "remove_event_stmts"
	PassUniquifyGenerators          = "uniquify_generators"
	PassAssignStmtIDs               = "assign_stmt_ids"
)

// defaultOrder is the standard lowering sequence. assign_stmt_ids is
// registered but not queued: only the debug database needs statement ids.
var defaultOrder = []string{
	PassCheckGeneratorCycles,
	PassFixAssignmentType,
	PassDecoupleGeneratorPorts,
	PassCreateModuleInstantiation,
	PassVerifyGeneratorConnectivity,
	PassRemoveEventStmts,
	PassUniquifyGenerators,
}

// Manager runs an ordered list of registered passes over one generator tree.
type Manager struct {
	registered map[string]Pass
	order      []string
}

// NewManager returns a manager with every builtin pass registered and an
// empty run order.
func NewManager() *Manager {
	m := &Manager{registered: make(map[string]Pass)}
	m.registered[PassCheckGeneratorCycles] = CheckGeneratorCycles
	m.registered[PassFixAssignmentType] = FixAssignmentType
	m.registered[PassDecoupleGeneratorPorts] = DecoupleGeneratorPorts
	m.registered[PassCreateModuleInstantiation] = CreateModuleInstantiation
	m.registered[PassVerifyGeneratorConnectivity] = VerifyGeneratorConnectivity
	m.registered[PassRemoveEventStmts] = RemoveEventStmts
	m.registered[PassUniquifyGenerators] = UniquifyGenerators
	m.registered[PassAssignStmtIDs] = AssignStmtIDs
	return m
}

// Default returns a manager with the standard lowering order queued.
// Callers that fire events should run ExtractEventFireCondition before
// Run, since the queued remove_event_stmts pass discards the fire sites.
func Default() *Manager {
	m := NewManager()
	m.order = append(m.order, defaultOrder...)
	return m
}

// Register adds a custom pass under a new name.
func (m *Manager) Register(name string, p Pass) error {
	if name == "" {
		return ir.NewUserError("pass name must not be empty")
	}
	if p == nil {
		return ir.NewUserError(fmt.Sprintf("pass %q has no function", name))
	}
	if _, ok := m.registered[name]; ok {
		return ir.NewUserError(fmt.Sprintf("pass %q is already registered", name))
	}
	m.registered[name] = p
	return nil
}

// Add queues a registered pass at the end of the run order. The same pass
// may be queued more than once.
func (m *Manager) Add(name string) error {
	if _, ok := m.registered[name]; !ok {
		return ir.NewUserError(fmt.Sprintf("unknown pass %q", name))
	}
	m.order = append(m.order, name)
	return nil
}

// Has reports whether a pass is registered under the name.
func (m *Manager) Has(name string) bool {
	_, ok := m.registered[name]
	return ok
}

// Order returns the queued pass names in run order.
func (m *Manager) Order() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Run executes the queued passes in order. The first failing pass stops the
// run; its error is wrapped with the pass name and keeps its original kind.
func (m *Manager) Run(top *ir.Generator) error {
	if top == nil {
		return ir.NewUserError("cannot run passes on an empty generator")
	}
	for _, name := range m.order {
		if err := m.registered[name](top); err != nil {
			return fmt.Errorf("pass %s: %w", name, err)
		}
	}
	return nil
}

// eachGenerator applies fn to every generator in the subtree, parents before
// children, children in creation order. Already-visited generators are
// skipped so a malformed cyclic tree cannot hang the walk.
func eachGenerator(top *ir.Generator, fn func(*ir.Generator) error) error {
	seen := make(map[*ir.Generator]bool)
	var walk func(*ir.Generator) error
	walk = func(g *ir.Generator) error {
		if seen[g] {
			return nil
		}
		seen[g] = true
		if err := fn(g); err != nil {
			return err
		}
		for _, child := range g.Children() {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(top)
}
