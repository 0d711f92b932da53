package debugdb

import (
	"context"
	"fmt"
)

// StatementRecord is one row of the statements table.
type StatementRecord struct {
	StmtID int
	Module string
	Kind   string
	Text   string
}

// ScopeVariable is one named value visible at a statement.
type ScopeVariable struct {
	Name  string
	Value string
	IsVar bool
}

// HierarchyEdge is one parent-to-child instantiation link.
type HierarchyEdge struct {
	Parent   string
	Instance string
	Child    string
}

// Sessions returns every recorded session in creation order.
//
// Returns an empty slice (not nil) if the database has no sessions.
func (d *DB) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, created_seq, top_module, generator_hash, tool_version
		FROM sessions
		ORDER BY created_seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.CreatedSeq, &s.TopModule,
			&s.GeneratorHash, &s.ToolVersion); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Statements returns a session's statements ordered by assigned id.
//
// Returns an empty slice (not nil) if the session is unknown or empty.
func (d *DB) Statements(ctx context.Context, sessionID string) ([]StatementRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT stmt_id, module, kind, text
		FROM statements
		WHERE session_id = ?
		ORDER BY stmt_id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query statements: %w", err)
	}
	defer rows.Close()

	stmts := []StatementRecord{}
	for rows.Next() {
		var rec StatementRecord
		if err := rows.Scan(&rec.StmtID, &rec.Module, &rec.Kind, &rec.Text); err != nil {
			return nil, fmt.Errorf("scan statement: %w", err)
		}
		stmts = append(stmts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statements: %w", err)
	}
	return stmts, nil
}

// ScopeVariables returns the values visible at a statement, ordered by name.
//
// Returns an empty slice (not nil) when the statement has no recorded scope,
// which is the case for structural statements (blocks, branches).
func (d *DB) ScopeVariables(ctx context.Context, sessionID string, stmtID int) ([]ScopeVariable, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT name, value, is_var
		FROM scope_variables
		WHERE session_id = ? AND stmt_id = ?
		ORDER BY name COLLATE BINARY ASC
	`, sessionID, stmtID)
	if err != nil {
		return nil, fmt.Errorf("query scope variables: %w", err)
	}
	defer rows.Close()

	vars := []ScopeVariable{}
	for rows.Next() {
		var v ScopeVariable
		if err := rows.Scan(&v.Name, &v.Value, &v.IsVar); err != nil {
			return nil, fmt.Errorf("scan scope variable: %w", err)
		}
		vars = append(vars, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scope variables: %w", err)
	}
	return vars, nil
}

// Hierarchy returns a session's instantiation edges, ordered by parent then
// instance name.
//
// Returns an empty slice (not nil) for a flat design.
func (d *DB) Hierarchy(ctx context.Context, sessionID string) ([]HierarchyEdge, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT parent, instance, child
		FROM hierarchy
		WHERE session_id = ?
		ORDER BY parent COLLATE BINARY ASC, instance COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query hierarchy: %w", err)
	}
	defer rows.Close()

	edges := []HierarchyEdge{}
	for rows.Next() {
		var e HierarchyEdge
		if err := rows.Scan(&e.Parent, &e.Instance, &e.Child); err != nil {
			return nil, fmt.Errorf("scan hierarchy edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hierarchy: %w", err)
	}
	return edges, nil
}
