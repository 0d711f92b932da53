package passes

import "github.com/roach88/loom/internal/ir"

// stmtCounter hands out the monotonically increasing ids the debug database
// keys statement rows by. Numbering is a pure function of tree shape, so a
// rebuilt or restored tree numbers identically and debug records stay
// comparable across runs.
type stmtCounter struct {
	next int
}

func (c *stmtCounter) Next() int {
	id := c.next
	c.next++
	return id
}

// AssignStmtIDs numbers every statement in the tree, parents before
// children, module bodies in generator walk order. Ids start at zero; an
// unnumbered statement keeps -1.
func AssignStmtIDs(top *ir.Generator) error {
	counter := &stmtCounter{}
	return eachGenerator(top, func(g *ir.Generator) error {
		for _, stmt := range g.Stmts() {
			numberStmt(stmt, counter)
		}
		return nil
	})
}

func numberStmt(stmt ir.Stmt, counter *stmtCounter) {
	stmt.SetID(counter.Next())
	switch s := stmt.(type) {
	case *ir.StmtBlock:
		for _, child := range s.Stmts() {
			numberStmt(child, counter)
		}
	case *ir.IfStmt:
		numberStmt(s.ThenBody(), counter)
		numberStmt(s.ElseBody(), counter)
	}
}
