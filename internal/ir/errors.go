package ir

import (
	"errors"
	"fmt"
	"strings"
)

// The construction and lowering APIs fail with one of five error kinds.
// Node-bound kinds (VarError, StmtError, GeneratorError) carry the IR nodes
// implicated at the construction site so diagnostics can print the exact
// offending values and statements. InternalError marks a defect inside loom
// itself (an unreachable node kind during lowering, a broken invariant).
// UserError marks API misuse with no specific node to blame.
//
// The core fails fast: the error is returned at the point of contract
// violation and no partially-constructed node enters the graph.

// VarError reports a value-graph contract violation: incompatible operand
// widths or signedness, an invalid slice range, an unrepresentable constant.
type VarError struct {
	Message string
	Nodes   []Node
}

// Error implements the error interface.
func (e *VarError) Error() string {
	return formatNodeError("var", e.Message, e.Nodes)
}

// NewVarError creates a VarError bound to the given nodes.
func NewVarError(message string, nodes ...Node) *VarError {
	return &VarError{Message: message, Nodes: nodes}
}

// StmtError reports a statement-graph contract violation: conflicting
// drivers, an assignment discipline that does not fit its block, a statement
// inserted where it cannot go.
type StmtError struct {
	Message string
	Nodes   []Node
}

// Error implements the error interface.
func (e *StmtError) Error() string {
	return formatNodeError("stmt", e.Message, e.Nodes)
}

// NewStmtError creates a StmtError bound to the given nodes.
func NewStmtError(message string, nodes ...Node) *StmtError {
	return &StmtError{Message: message, Nodes: nodes}
}

// GeneratorError reports a generator-container violation: a name collision
// inside one generator, an instantiation cycle, a missing mandatory port
// connection.
type GeneratorError struct {
	Message string
	Nodes   []Node
}

// Error implements the error interface.
func (e *GeneratorError) Error() string {
	return formatNodeError("generator", e.Message, e.Nodes)
}

// NewGeneratorError creates a GeneratorError bound to the given nodes.
func NewGeneratorError(message string, nodes ...Node) *GeneratorError {
	return &GeneratorError{Message: message, Nodes: nodes}
}

// InternalError reports a defect in loom itself, not in the caller's design.
type InternalError struct {
	Message string
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return "internal: " + e.Message
}

// NewInternalError creates an InternalError.
func NewInternalError(message string) *InternalError {
	return &InternalError{Message: message}
}

// Internalf creates an InternalError with a formatted message.
func Internalf(format string, args ...any) *InternalError {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}

// UserError reports API misuse that cannot be pinned on a specific node,
// such as passing nil where a value is required.
type UserError struct {
	Message string
}

// Error implements the error interface.
func (e *UserError) Error() string {
	return "user: " + e.Message
}

// NewUserError creates a UserError.
func NewUserError(message string) *UserError {
	return &UserError{Message: message}
}

// IsVarError reports whether err is (or wraps) a VarError.
func IsVarError(err error) bool {
	var ve *VarError
	return errors.As(err, &ve)
}

// IsStmtError reports whether err is (or wraps) a StmtError.
func IsStmtError(err error) bool {
	var se *StmtError
	return errors.As(err, &se)
}

// IsGeneratorError reports whether err is (or wraps) a GeneratorError.
func IsGeneratorError(err error) bool {
	var ge *GeneratorError
	return errors.As(err, &ge)
}

// IsInternalError reports whether err is (or wraps) an InternalError.
func IsInternalError(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}

// IsUserError reports whether err is (or wraps) a UserError.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}

// ErrorNodes returns the nodes bound to err, if err is one of the node-bound
// error kinds. Returns nil for InternalError, UserError, and foreign errors.
func ErrorNodes(err error) []Node {
	var ve *VarError
	if errors.As(err, &ve) {
		return ve.Nodes
	}
	var se *StmtError
	if errors.As(err, &se) {
		return se.Nodes
	}
	var ge *GeneratorError
	if errors.As(err, &ge) {
		return ge.Nodes
	}
	return nil
}

// FormatNodes renders a node list for a diagnostic, one node per line, using
// each node's own String rendering with its kind name. Every error kind
// shares this routine so diagnostics look the same everywhere.
func FormatNodes(nodes []Node) string {
	if len(nodes) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, n := range nodes {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if n == nil {
			sb.WriteString("  - <nil node>")
			continue
		}
		fmt.Fprintf(&sb, "  - %s: %s", n.KindName(), n.String())
	}
	return sb.String()
}

func formatNodeError(kind, message string, nodes []Node) string {
	if len(nodes) == 0 {
		return kind + ": " + message
	}
	return kind + ": " + message + "\n" + FormatNodes(nodes)
}
