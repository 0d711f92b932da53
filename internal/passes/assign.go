package passes

import (
	"fmt"

	"github.com/roach88/loom/internal/ir"
)

// FixAssignmentType resolves every Undefined assignment in the tree to the
// discipline its position implies: blocking for continuous assignments and
// combinational processes, non-blocking for sequential processes. An
// explicit discipline that contradicts its process block is an error here;
// this is the resolve step that closes the detached-scope loophole left open
// at insertion time.
func FixAssignmentType(top *ir.Generator) error {
	return eachGenerator(top, fixGeneratorAssignments)
}

func fixGeneratorAssignments(g *ir.Generator) error {
	for _, stmt := range g.Stmts() {
		switch s := stmt.(type) {
		case *ir.AssignStmt:
			switch s.AssignType() {
			case ir.Undefined:
				s.SetAssignType(ir.Blocking)
			case ir.NonBlocking:
				// Insertion rejects these; a hand-linked tree can still carry one.
				return ir.NewStmtError("continuous assignment cannot be non-blocking", s)
			}
		case *ir.StmtBlock:
			if err := resolveBlockAssignments(s, s.BlockType()); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveBlockAssignments applies the discipline of the enclosing process
// block to every assignment under it, descending through scoped bodies and
// conditionals.
func resolveBlockAssignments(b *ir.StmtBlock, process ir.BlockType) error {
	want := ir.Blocking
	if process == ir.Sequential {
		want = ir.NonBlocking
	}
	for _, stmt := range b.Stmts() {
		switch s := stmt.(type) {
		case *ir.AssignStmt:
			if s.AssignType() == ir.Undefined {
				s.SetAssignType(want)
			} else if s.AssignType() != want {
				return ir.NewStmtError(fmt.Sprintf(
					"cannot have a %s assignment in a %s process",
					s.AssignType(), process), s, b)
			}
		case *ir.StmtBlock:
			if err := resolveBlockAssignments(s, process); err != nil {
				return err
			}
		case *ir.IfStmt:
			if err := resolveBlockAssignments(s.ThenBody(), process); err != nil {
				return err
			}
			if err := resolveBlockAssignments(s.ElseBody(), process); err != nil {
				return err
			}
		}
	}
	return nil
}
