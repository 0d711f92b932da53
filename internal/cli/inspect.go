package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/loom/internal/ir"
)

// ModuleReport describes one generator in a design.
type ModuleReport struct {
	Name     string   `json:"name"`
	Instance string   `json:"instance,omitempty"`
	Parent   string   `json:"parent,omitempty"`
	Ports    []string `json:"ports"`
	Vars     []string `json:"vars"`
	Stmts    int      `json:"stmts"`
	Children []string `json:"children,omitempty"`
	Hash     string   `json:"hash"`
}

// InspectResult holds an inspection of a whole design.
type InspectResult struct {
	Design  string         `json:"design"`
	Roots   []string       `json:"roots"`
	Modules []ModuleReport `json:"modules"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	var top string

	cmd := &cobra.Command{
		Use:   "inspect <design-file>",
		Short: "Show the structure of a serialized design",
		Long: `Show every module in a serialized design: its ports, variables,
statement count, instantiation children, and structural hash.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return runInspect(formatter, args[0], top)
		},
	}

	cmd.Flags().StringVar(&top, "top", "", "inspect only the named root module")

	return cmd
}

func runInspect(formatter *OutputFormatter, designPath, top string) error {
	designCtx, err := LoadDesign(designPath)
	if err != nil {
		return commandError(formatter, err)
	}
	roots, err := selectRoots(designCtx, top)
	if err != nil {
		return commandError(formatter, err)
	}

	result := &InspectResult{Design: designPath, Roots: make([]string, 0, len(roots))}
	visited := make(map[*ir.Generator]bool)
	for _, root := range roots {
		result.Roots = append(result.Roots, root.Name())
		if err := inspectTree(root, visited, result); err != nil {
			return commandError(formatter, err)
		}
	}

	return outputInspectResult(formatter, result)
}

// inspectTree reports a generator and its children, parents first. Shared
// children are reported once, under the first parent reaching them.
func inspectTree(g *ir.Generator, visited map[*ir.Generator]bool, result *InspectResult) error {
	if visited[g] {
		return nil
	}
	visited[g] = true

	report, err := moduleReport(g)
	if err != nil {
		return err
	}
	result.Modules = append(result.Modules, report)

	for _, child := range g.Children() {
		if err := inspectTree(child, visited, result); err != nil {
			return err
		}
	}
	return nil
}

func moduleReport(g *ir.Generator) (ModuleReport, error) {
	hash, err := ir.GeneratorHash(g)
	if err != nil {
		return ModuleReport{}, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("hashing %s: %v", g.Name(), err)}
	}

	report := ModuleReport{
		Name:     g.Name(),
		Instance: g.InstanceName(),
		Hash:     hash,
	}
	if p := g.Parent(); p != nil {
		report.Parent = p.Name()
	}

	ports := make(map[string]bool)
	report.Ports = make([]string, 0, len(g.Ports()))
	for _, port := range g.Ports() {
		ports[port.Name()] = true
		report.Ports = append(report.Ports, portText(port))
	}

	report.Vars = make([]string, 0)
	for _, v := range g.NamedValues() {
		if ports[v.Name()] {
			continue
		}
		report.Vars = append(report.Vars, valueText(v))
	}

	for _, stmt := range g.Stmts() {
		report.Stmts += deepStmtCount(stmt)
	}

	for _, child := range g.Children() {
		report.Children = append(report.Children, fmt.Sprintf("%s (%s)", child.InstanceName(), child.Name()))
	}

	return report, nil
}

// deepStmtCount counts a statement and everything nested under it, the
// same statements a debug dump would record.
func deepStmtCount(stmt ir.Stmt) int {
	count := 1
	switch s := stmt.(type) {
	case *ir.StmtBlock:
		for _, inner := range s.Stmts() {
			count += deepStmtCount(inner)
		}
	case *ir.IfStmt:
		count += deepStmtCount(s.ThenBody())
		count += deepStmtCount(s.ElseBody())
	}
	return count
}

func portText(p *ir.Port) string {
	return fmt.Sprintf("%s %s", p.Direction(), valueText(p))
}

func valueText(v ir.Value) string {
	text := v.Name()
	if v.Width() > 1 {
		text = fmt.Sprintf("%s[%d:0]", text, v.Width()-1)
	}
	if v.Signed() {
		text += " signed"
	}
	return text
}

// outputInspectResult outputs inspection results.
func outputInspectResult(formatter *OutputFormatter, result *InspectResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "%s: %d module(s)\n", result.Design, len(result.Modules))
	for _, m := range result.Modules {
		fmt.Fprintln(formatter.Writer)
		if m.Instance != "" && m.Parent != "" {
			fmt.Fprintf(formatter.Writer, "module %s (instance %s of %s)\n", m.Name, m.Instance, m.Parent)
		} else {
			fmt.Fprintf(formatter.Writer, "module %s\n", m.Name)
		}
		fmt.Fprintf(formatter.Writer, "  hash  %s\n", m.Hash)
		for _, p := range m.Ports {
			fmt.Fprintf(formatter.Writer, "  port  %s\n", p)
		}
		for _, v := range m.Vars {
			fmt.Fprintf(formatter.Writer, "  var   %s\n", v)
		}
		fmt.Fprintf(formatter.Writer, "  stmts %d\n", m.Stmts)
		for _, c := range m.Children {
			fmt.Fprintf(formatter.Writer, "  child %s\n", c)
		}
	}
	return nil
}
