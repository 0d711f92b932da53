package passes

import "github.com/roach88/loom/internal/ir"

// ExtractEventFireCondition walks the whole tree and resolves, for each
// event fire site, the static condition under which the site is reached:
// the conjunction of every enclosing conditional's predicate, inverted on
// else arms. A site outside any conditional reports a nil condition. The
// result order is traversal order, so repeated extraction over the same
// tree yields the same list.
//
// Extraction reads block context that RemoveEventStmts destroys; run it
// first.
func ExtractEventFireCondition(top *ir.Generator) ([]ir.EventInfo, error) {
	var infos []ir.EventInfo
	err := eachGenerator(top, func(g *ir.Generator) error {
		for _, stmt := range g.Stmts() {
			block, ok := stmt.(*ir.StmtBlock)
			if !ok {
				continue
			}
			comb := block.BlockType() == ir.Combinational
			if err := collectFireSites(block, nil, comb, &infos); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

func collectFireSites(b *ir.StmtBlock, cond ir.Value, comb bool, out *[]ir.EventInfo) error {
	for _, stmt := range b.Stmts() {
		switch s := stmt.(type) {
		case *ir.EventTracingStmt:
			names := s.FieldNames()
			fields := make(map[string]ir.Value, len(names))
			for _, name := range names {
				fields[name] = s.Field(name)
			}
			*out = append(*out, ir.EventInfo{
				Name:          s.EventName(),
				Transaction:   s.Transaction(),
				Action:        s.Action(),
				Combinational: comb,
				Fields:        fields,
				Condition:     cond,
			})
		case *ir.StmtBlock:
			if err := collectFireSites(s, cond, comb, out); err != nil {
				return err
			}
		case *ir.IfStmt:
			if len(s.ThenBody().Stmts()) > 0 {
				thenCond, err := andCondition(cond, s.Predicate())
				if err != nil {
					return err
				}
				if err := collectFireSites(s.ThenBody(), thenCond, comb, out); err != nil {
					return err
				}
			}
			if len(s.ElseBody().Stmts()) > 0 {
				inverted, err := s.Predicate().Invert()
				if err != nil {
					return err
				}
				elseCond, err := andCondition(cond, inverted)
				if err != nil {
					return err
				}
				if err := collectFireSites(s.ElseBody(), elseCond, comb, out); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// andCondition conjoins a new predicate onto the running condition. With no
// running condition the predicate itself is the condition, so a fire site
// under a single conditional reports that conditional's predicate
// unchanged.
func andCondition(cond, pred ir.Value) (ir.Value, error) {
	if cond == nil {
		return pred, nil
	}
	return cond.And(pred)
}

// RemoveEventStmts deletes every event fire site from the tree. Code
// generation runs on the stripped tree, so emitted modules carry no tracing
// artifacts.
func RemoveEventStmts(top *ir.Generator) error {
	return eachGenerator(top, func(g *ir.Generator) error {
		for _, stmt := range g.Stmts() {
			if block, ok := stmt.(*ir.StmtBlock); ok {
				stripFireSites(block)
			}
		}
		return nil
	})
}

func stripFireSites(b *ir.StmtBlock) {
	var doomed []ir.Stmt
	for _, stmt := range b.Stmts() {
		switch s := stmt.(type) {
		case *ir.EventTracingStmt:
			doomed = append(doomed, s)
		case *ir.StmtBlock:
			stripFireSites(s)
		case *ir.IfStmt:
			stripFireSites(s.ThenBody())
			stripFireSites(s.ElseBody())
		}
	}
	for _, stmt := range doomed {
		b.RemoveStmt(stmt)
	}
}
