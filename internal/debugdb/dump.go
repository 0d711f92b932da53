package debugdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/loom/internal/ir"
	"github.com/roach88/loom/internal/passes"
)

// Session is one recorded dump.
type Session struct {
	ID            string
	CreatedSeq    int64
	TopModule     string
	GeneratorHash string
	ToolVersion   string
}

// Dump numbers every statement under top in place, then persists the
// statement table, leaf-statement scopes, and the instantiation hierarchy
// as a new session. The whole dump commits in one transaction.
func (d *DB) Dump(ctx context.Context, top *ir.Generator) (*Session, error) {
	if top == nil {
		return nil, ir.NewUserError("cannot dump an empty generator")
	}
	if err := passes.AssignStmtIDs(top); err != nil {
		return nil, fmt.Errorf("dump session: %w", err)
	}
	hash, err := ir.GeneratorHash(top)
	if err != nil {
		return nil, fmt.Errorf("dump session: %w", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("dump session: %w", err)
	}
	defer tx.Rollback()

	// Sessions are ordered by an integer sequence, not wall time.
	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(created_seq), 0) + 1 FROM sessions`).Scan(&seq); err != nil {
		return nil, fmt.Errorf("dump session: %w", err)
	}

	session := &Session{
		ID:            d.tokens.Generate(),
		CreatedSeq:    seq,
		TopModule:     top.Name(),
		GeneratorHash: hash,
		ToolVersion:   ir.ToolVersion,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, created_seq, top_module, generator_hash, tool_version)
		VALUES (?, ?, ?, ?, ?)
	`, session.ID, session.CreatedSeq, session.TopModule,
		session.GeneratorHash, session.ToolVersion); err != nil {
		return nil, fmt.Errorf("dump session: %w", err)
	}

	if err := d.dumpTree(ctx, tx, session.ID, top); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("dump session: %w", err)
	}
	return session, nil
}

func (d *DB) dumpTree(ctx context.Context, tx *sql.Tx, sessionID string, top *ir.Generator) error {
	visited := make(map[*ir.Generator]bool)
	var walk func(g *ir.Generator) error
	walk = func(g *ir.Generator) error {
		if visited[g] {
			return nil
		}
		visited[g] = true
		for _, child := range g.Children() {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO hierarchy (session_id, parent, instance, child)
				VALUES (?, ?, ?, ?)
			`, sessionID, g.Name(), child.InstanceName(), child.Name()); err != nil {
				return fmt.Errorf("write hierarchy edge %s.%s: %w",
					g.Name(), child.InstanceName(), err)
			}
		}
		for _, s := range g.Stmts() {
			if err := d.writeStmt(ctx, tx, sessionID, g, s); err != nil {
				return err
			}
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

// writeStmt records one statement and recurses into its children. Scope
// rows are written for leaf statements only: blocks and branches structure
// the body, leaves are where a debugger stops.
func (d *DB) writeStmt(ctx context.Context, tx *sql.Tx, sessionID string, g *ir.Generator, s ir.Stmt) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO statements (session_id, stmt_id, module, kind, text)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, s.ID(), g.Name(), s.StmtType().String(), s.String()); err != nil {
		return fmt.Errorf("write statement %d: %w", s.ID(), err)
	}

	switch st := s.(type) {
	case *ir.StmtBlock:
		for _, inner := range st.Stmts() {
			if err := d.writeStmt(ctx, tx, sessionID, g, inner); err != nil {
				return err
			}
		}
	case *ir.IfStmt:
		if err := d.writeStmt(ctx, tx, sessionID, g, st.ThenBody()); err != nil {
			return err
		}
		if err := d.writeStmt(ctx, tx, sessionID, g, st.ElseBody()); err != nil {
			return err
		}
	case *ir.AssignStmt, *ir.EventTracingStmt:
		if err := d.writeScope(ctx, tx, sessionID, g, s.ID()); err != nil {
			return err
		}
	}
	return nil
}

// writeScope records the named values visible at a statement, ports
// included, with a rendered declaration shape for display.
func (d *DB) writeScope(ctx context.Context, tx *sql.Tx, sessionID string, g *ir.Generator, stmtID int) error {
	for _, v := range g.NamedValues() {
		_, isPort := v.(*ir.Port)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scope_variables (session_id, stmt_id, name, value, is_var)
			VALUES (?, ?, ?, ?, ?)
		`, sessionID, stmtID, v.Name(), typeText(v), !isPort); err != nil {
			return fmt.Errorf("write scope variable %s: %w", v.Name(), err)
		}
	}
	return nil
}

// typeText renders the declared shape of a value for display, e.g.
// "logic signed [7:0]".
func typeText(v ir.Value) string {
	text := "logic"
	if v.Signed() {
		text += " signed"
	}
	if v.Width() > 1 {
		text += fmt.Sprintf(" [%d:0]", v.Width()-1)
	}
	return text
}
