package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/loom/internal/ir"
	"github.com/roach88/loom/internal/passes"
	"github.com/roach88/loom/internal/serialize"
)

// EventReport is one extracted event fire site, with values rendered as
// expression text.
type EventReport struct {
	Name          string            `json:"name" yaml:"name"`
	Transaction   string            `json:"transaction,omitempty" yaml:"transaction,omitempty"`
	Action        string            `json:"action,omitempty" yaml:"action,omitempty"`
	Combinational bool              `json:"combinational" yaml:"combinational"`
	Condition     string            `json:"condition,omitempty" yaml:"condition,omitempty"`
	Fields        map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// TraceReport holds every event fire site extracted from a design, in
// traversal order. An empty Condition means the site fires unconditionally.
type TraceReport struct {
	Design string        `json:"design" yaml:"design"`
	Events []EventReport `json:"events" yaml:"events"`
}

// TraceRemoveResult holds the outcome of stripping events from a design.
type TraceRemoveResult struct {
	Design  string `json:"design"`
	Output  string `json:"output"`
	Removed int    `json:"removed"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		remove     bool
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "trace <design-file>",
		Short: "Report the events a design fires",
		Long: `Report every event fire site in a serialized design: its name,
transaction marker, static fire condition, and captured fields.

With --remove the fire sites are stripped and the design is serialized
back out, by default over the input file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if remove {
				return runTraceRemove(formatter, args[0], outputPath)
			}
			return runTrace(formatter, args[0])
		},
	}

	cmd.Flags().BoolVar(&remove, "remove", false, "strip event statements and write the design back")
	cmd.Flags().StringVar(&outputPath, "output", "", "with --remove, write the stripped design here instead of over the input")

	return cmd
}

func runTrace(formatter *OutputFormatter, designPath string) error {
	designCtx, err := LoadDesign(designPath)
	if err != nil {
		return commandError(formatter, err)
	}
	events, err := extractAllEvents(designCtx)
	if err != nil {
		return commandError(formatter, err)
	}

	report := buildTraceReport(designPath, events)
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return commandError(formatter, fmt.Errorf("encoding report: %w", err))
	}
	fmt.Fprint(formatter.Writer, string(data))
	return nil
}

func runTraceRemove(formatter *OutputFormatter, designPath, outputPath string) error {
	designCtx, err := LoadDesign(designPath)
	if err != nil {
		return commandError(formatter, err)
	}
	events, err := extractAllEvents(designCtx)
	if err != nil {
		return commandError(formatter, err)
	}
	for _, root := range designCtx.Roots() {
		if err := passes.RemoveEventStmts(root); err != nil {
			return commandError(formatter, &LoadError{
				Code:    ErrCodeGeneric,
				Message: fmt.Sprintf("stripping events from %s: %v", root.Name(), err),
			})
		}
	}

	if outputPath == "" {
		outputPath = designPath
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return commandError(formatter, &LoadError{
			Code:    ErrCodeWriteFailed,
			Message: fmt.Sprintf("creating %s: %v", outputPath, err),
		})
	}
	if err := serialize.Serialize(f, designCtx); err != nil {
		f.Close()
		return commandError(formatter, &LoadError{
			Code:    ErrCodeWriteFailed,
			Message: fmt.Sprintf("serializing %s: %v", outputPath, err),
		})
	}
	if err := f.Close(); err != nil {
		return commandError(formatter, &LoadError{
			Code:    ErrCodeWriteFailed,
			Message: fmt.Sprintf("writing %s: %v", outputPath, err),
		})
	}

	result := &TraceRemoveResult{Design: designPath, Output: outputPath, Removed: len(events)}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Removed %d event site(s); wrote %s\n", result.Removed, result.Output)
	return nil
}

// extractAllEvents gathers fire sites from every root, in root order.
func extractAllEvents(designCtx *ir.Context) ([]ir.EventInfo, error) {
	var events []ir.EventInfo
	for _, root := range designCtx.Roots() {
		infos, err := passes.ExtractEventFireCondition(root)
		if err != nil {
			return nil, &LoadError{
				Code:    ErrCodeGeneric,
				Message: fmt.Sprintf("extracting events from %s: %v", root.Name(), err),
			}
		}
		events = append(events, infos...)
	}
	return events, nil
}

// buildTraceReport renders extracted events into their reporting shape.
// Encoders sort map keys, so the report is stable across runs.
func buildTraceReport(designPath string, events []ir.EventInfo) *TraceReport {
	report := &TraceReport{Design: designPath, Events: make([]EventReport, 0, len(events))}
	for _, info := range events {
		entry := EventReport{
			Name:          info.Name,
			Transaction:   info.Transaction,
			Combinational: info.Combinational,
		}
		if info.Action != ir.EventActionNone {
			entry.Action = info.Action.String()
		}
		if info.Condition != nil {
			entry.Condition = info.Condition.String()
		}
		if len(info.Fields) > 0 {
			entry.Fields = make(map[string]string, len(info.Fields))
			for name, v := range info.Fields {
				entry.Fields[name] = v.String()
			}
		}
		report.Events = append(report.Events, entry)
	}
	return report
}
