package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/loom/internal/ir"
	"github.com/roach88/loom/internal/passes"
)

// Diagnostic is one validation finding, with the implicated IR nodes
// rendered as text.
type Diagnostic struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Nodes   []string `json:"nodes,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool         `json:"valid"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// validateChecks are the passes validate runs over each root, in order.
// fix_assignment_type mutates the tree, which is harmless here: the
// restored design is discarded after the run, never written back.
var validateChecks = []struct {
	name string
	pass passes.Pass
}{
	{passes.PassCheckGeneratorCycles, passes.CheckGeneratorCycles},
	{passes.PassFixAssignmentType, passes.FixAssignmentType},
	{passes.PassVerifyGeneratorConnectivity, passes.VerifyGeneratorConnectivity},
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var top string

	cmd := &cobra.Command{
		Use:   "validate <design-file>",
		Short: "Check a design without generating code",
		Long: `Check a serialized design for instantiation cycles, assignment
discipline violations, and connectivity problems without generating any
output files. Faster than emit for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return runValidate(formatter, args[0], top)
		},
	}

	cmd.Flags().StringVar(&top, "top", "", "validate only the named root module")

	return cmd
}

func runValidate(formatter *OutputFormatter, designPath, top string) error {
	designCtx, err := LoadDesign(designPath)
	if err != nil {
		return commandError(formatter, err)
	}
	roots, err := selectRoots(designCtx, top)
	if err != nil {
		return commandError(formatter, err)
	}

	var diagnostics []Diagnostic
	for _, root := range roots {
		for _, check := range validateChecks {
			formatter.VerboseLog("Checking %s: %s", root.Name(), check.name)
			if err := check.pass(root); err != nil {
				diagnostics = append(diagnostics, toDiagnostic(err))
			}
		}
	}

	if len(diagnostics) > 0 {
		return outputDiagnostics(formatter, diagnostics)
	}
	return outputValidateSuccess(formatter)
}

// toDiagnostic classifies an error into its diagnostic kind and unwraps
// the bare message. Node-bound kinds carry their nodes rendered one per
// entry.
func toDiagnostic(err error) Diagnostic {
	var (
		varErr  *ir.VarError
		stmtErr *ir.StmtError
		genErr  *ir.GeneratorError
		intErr  *ir.InternalError
		userErr *ir.UserError
	)
	switch {
	case errors.As(err, &varErr):
		return Diagnostic{Kind: "var", Message: varErr.Message, Nodes: renderNodes(varErr.Nodes)}
	case errors.As(err, &stmtErr):
		return Diagnostic{Kind: "stmt", Message: stmtErr.Message, Nodes: renderNodes(stmtErr.Nodes)}
	case errors.As(err, &genErr):
		return Diagnostic{Kind: "generator", Message: genErr.Message, Nodes: renderNodes(genErr.Nodes)}
	case errors.As(err, &intErr):
		return Diagnostic{Kind: "internal", Message: intErr.Message}
	case errors.As(err, &userErr):
		return Diagnostic{Kind: "user", Message: userErr.Message}
	default:
		return Diagnostic{Kind: "user", Message: err.Error()}
	}
}

func renderNodes(nodes []ir.Node) []string {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			out = append(out, "<nil node>")
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s", n.KindName(), n.String()))
	}
	return out
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: true}
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ Design valid")
	return nil
}

// outputDiagnostics outputs validation findings.
func outputDiagnostics(formatter *OutputFormatter, diagnostics []Diagnostic) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:       false,
			Diagnostics: diagnostics,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    ErrCodeGeneric,
				Message: diagnostics[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d finding(s)", len(diagnostics)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, d := range diagnostics {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", d.Kind, d.Message)
		for _, n := range d.Nodes {
			fmt.Fprintf(formatter.Writer, "    - %s\n", n)
		}
		fmt.Fprintln(formatter.Writer)
	}

	// Findings are a failed check, not a command error.
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d finding(s)", len(diagnostics)))
}
