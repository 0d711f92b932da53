// Package ir provides the design-graph intermediate representation for loom.
//
// A design is built programmatically: callers create a Context, obtain
// Generators (hardware modules) from it, and grow each generator's value and
// statement graph through builder methods. Builders only extend the graph -
// nothing is evaluated, scheduled, or synthesized here. Lowering to
// SystemVerilog text lives in internal/codegen, tree transformations in
// internal/passes.
//
// This package contains the node family and its construction contract. All
// other internal packages import ir; ir imports nothing internal, keeping it
// the foundational layer with no circular dependencies.
//
// # Node Family
//
// Every element implements Node: child enumeration in declaration order,
// visitor dispatch, and a diagnostic rendering. Values implement the sealed
// Value interface; the closed set is Var, VarSlice, Const, EnumConst, Expr,
// Port, PackedVar, EnumVar, InterfaceVar, FunctionCallVar, and VarCast.
// Statements implement the sealed Stmt
// interface: AssignStmt, StmtBlock, IfStmt, ModuleInstantiationStmt, and
// EventTracingStmt. Backends dispatch with exhaustive type switches; both
// interfaces use the marker-method pattern so no external type can sneak into
// a switch.
//
// # Construction Discipline
//
//   - Width and signedness rules are enforced at node construction; a
//     violation returns a node-bound error (VarError, StmtError,
//     GeneratorError) at the exact construction site. The graph never holds
//     an out-of-contract node.
//   - Slicing is idempotent: the same (high, low) range on the same value
//     returns the cached node.
//   - Assignment construction registers the statement in the target's sink
//     list immediately; inserting it into a block is a separate step.
//   - There is no implicit truncation or sign conversion anywhere. Mixing
//     signedness requires an explicit cast node (AsSigned / AsUnsigned).
//
// # Determinism
//
// All collections that feed code generation or serialization preserve
// insertion order: ports, variables, statements, children, slice caches, and
// sink lists. Rendering the same frozen graph twice yields identical text.
//
// # Concurrency
//
// Construction is single-threaded by design; no node carries a lock. A fully
// constructed generator subtree is immutable as far as codegen and
// serialization are concerned, and read-only traversals of disjoint subtrees
// may run concurrently.
package ir
