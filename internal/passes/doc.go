// Package passes contains the tree transformations that sit between design
// construction and code generation.
//
// Each pass is a named function over a generator tree. A Manager holds an
// ordered list of registered passes and runs them in sequence; Default
// returns the standard lowering order:
//
//  1. check_generator_cycles — reject instantiation cycles before any
//     traversal-based pass can run into them
//  2. fix_assignment_type — resolve Undefined assignments to the discipline
//     of their process block
//  3. decouple_generator_ports — split direct child-to-child port wiring
//     through fresh parent wires
//  4. create_module_instantiation — absorb top-level port wiring into
//     instantiation statements
//  5. verify_generator_connectivity — every child input driven exactly once
//  6. remove_event_stmts — strip tracing statements so emission never sees
//     them
//  7. uniquify_generators — structurally identical modules share one
//     definition name, differing ones get numbered names
//
// ExtractEventFireCondition is not a managed pass: it returns data (the
// extracted EventInfo list) rather than transforming the tree, and must run
// before remove_event_stmts discards the fire sites.
package passes
