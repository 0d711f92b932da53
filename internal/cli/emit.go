package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/loom/internal/codegen"
	"github.com/roach88/loom/internal/debugdb"
	"github.com/roach88/loom/internal/ir"
	"github.com/roach88/loom/internal/passes"
)

// eventReportName is the sidecar written next to generated modules when
// --keep-events is set.
const eventReportName = "events.yaml"

// EmitResult holds emission results.
type EmitResult struct {
	Design  string   `json:"design"`
	Output  string   `json:"output"`
	Modules []string `json:"modules"`
	Events  int      `json:"events"`
	DebugDB string   `json:"debug_db,omitempty"`
}

// emitOptions are the resolved emit settings after merging flags with an
// optional manifest. Explicit flags always win.
type emitOptions struct {
	Out        string
	Top        string
	KeepEvents bool
	DebugDB    string
}

// NewEmitCommand creates the emit command.
func NewEmitCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		manifestPath string
		watch        bool
		opts         emitOptions
	)

	cmd := &cobra.Command{
		Use:   "emit <design-file>",
		Short: "Generate SystemVerilog from a serialized design",
		Long: `Generate SystemVerilog modules from a serialized design snapshot.

Events are extracted into a report and stripped before rendering, so the
emitted modules carry no tracing artifacts. One .sv file is written per
module definition.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if manifestPath != "" {
				manifest, err := LoadManifest(manifestPath)
				if err != nil {
					return commandError(formatter, err)
				}
				applyManifest(cmd, manifest, &opts)
			}
			if watch {
				return runEmitWatch(cmd, formatter, args[0], opts)
			}
			return runEmit(formatter, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", ".", "output directory for generated files")
	cmd.Flags().StringVar(&opts.Top, "top", "", "emit only the named root module")
	cmd.Flags().BoolVar(&opts.KeepEvents, "keep-events", false, "write the extracted event report next to the generated modules")
	cmd.Flags().StringVar(&opts.DebugDB, "debug-db", "", "dump debug symbols to this SQLite database")
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "CUE build manifest (explicit flags override manifest values)")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-emit whenever the design file changes")

	return cmd
}

// applyManifest fills in manifest values for every flag the user did not
// set explicitly.
func applyManifest(cmd *cobra.Command, m *Manifest, opts *emitOptions) {
	flags := cmd.Flags()
	if !flags.Changed("out") {
		opts.Out = m.Output
	}
	if !flags.Changed("top") && m.Top != "" {
		opts.Top = m.Top
	}
	if !flags.Changed("keep-events") {
		opts.KeepEvents = m.KeepEvents
	}
	if !flags.Changed("debug-db") && m.DebugDB != "" {
		opts.DebugDB = m.DebugDB
	}
}

func runEmit(formatter *OutputFormatter, designPath string, opts emitOptions) error {
	result, err := emitOnce(formatter, designPath, opts)
	if err != nil {
		return commandError(formatter, err)
	}
	return outputEmitSuccess(formatter, result)
}

// emitOnce performs one full emission: load, extract and strip events,
// render, write. It reloads the snapshot from disk on every call so watch
// mode never renders a tree mutated by a previous run.
func emitOnce(formatter *OutputFormatter, designPath string, opts emitOptions) (*EmitResult, error) {
	designCtx, err := LoadDesign(designPath)
	if err != nil {
		return nil, err
	}
	roots, err := selectRoots(designCtx, opts.Top)
	if err != nil {
		return nil, err
	}

	modules := make(map[string]string)
	var events []ir.EventInfo
	for _, root := range roots {
		infos, err := passes.ExtractEventFireCondition(root)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeRender, Message: fmt.Sprintf("extracting events from %s: %v", root.Name(), err)}
		}
		events = append(events, infos...)
		if err := passes.RemoveEventStmts(root); err != nil {
			return nil, &LoadError{Code: ErrCodeRender, Message: fmt.Sprintf("stripping events from %s: %v", root.Name(), err)}
		}
		rendered, err := codegen.Generate(root)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeRender, Message: fmt.Sprintf("rendering %s: %v", root.Name(), err)}
		}
		for name, src := range rendered {
			// Structurally identical definitions share a name after
			// uniquification and render identically; emit the shared
			// definition once.
			if prev, dup := modules[name]; dup {
				if prev != src {
					return nil, &LoadError{Code: ErrCodeRender, Message: fmt.Sprintf("module %s renders differently under two roots", name)}
				}
				continue
			}
			modules[name] = src
		}
	}

	if err := os.MkdirAll(opts.Out, 0o755); err != nil {
		return nil, &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("creating output directory: %v", err)}
	}

	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(opts.Out, name+".sv")
		if err := os.WriteFile(path, []byte(modules[name]), 0o644); err != nil {
			return nil, &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing %s: %v", path, err)}
		}
		formatter.VerboseLog("Wrote %s", path)
	}

	if opts.KeepEvents {
		report := buildTraceReport(designPath, events)
		data, err := yaml.Marshal(report)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("encoding event report: %v", err)}
		}
		path := filepath.Join(opts.Out, eventReportName)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing %s: %v", path, err)}
		}
		formatter.VerboseLog("Wrote %s", path)
	}

	result := &EmitResult{
		Design:  designPath,
		Output:  opts.Out,
		Modules: names,
		Events:  len(events),
	}

	if opts.DebugDB != "" {
		// Dump after rendering so the recorded hierarchy matches the
		// lowered tree the modules were generated from.
		if err := dumpDebugDB(opts.DebugDB, roots); err != nil {
			return nil, err
		}
		result.DebugDB = opts.DebugDB
	}

	return result, nil
}

func dumpDebugDB(path string, roots []*ir.Generator) error {
	db, err := debugdb.Open(path)
	if err != nil {
		return &LoadError{Code: ErrCodeDebugDB, Message: fmt.Sprintf("opening debug database: %v", err)}
	}
	defer db.Close()

	for _, root := range roots {
		if _, err := db.Dump(context.Background(), root); err != nil {
			return &LoadError{Code: ErrCodeDebugDB, Message: fmt.Sprintf("dumping %s: %v", root.Name(), err)}
		}
	}
	return nil
}

// runEmitWatch emits once up front, then re-emits every time the design
// file changes. Emission failures while watching are reported and watching
// continues; only watcher setup failures abort.
func runEmitWatch(cmd *cobra.Command, formatter *OutputFormatter, designPath string, opts emitOptions) error {
	if err := runEmit(formatter, designPath, opts); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return commandError(formatter, fmt.Errorf("starting watcher: %w", err))
	}
	defer watcher.Close()

	// Editors replace files via rename+create, which silently drops a
	// watch registered on the file itself. Watch the directory and filter
	// events down to the target path.
	if err := watcher.Add(filepath.Dir(designPath)); err != nil {
		return commandError(formatter, fmt.Errorf("watching %s: %w", filepath.Dir(designPath), err))
	}
	target, err := filepath.Abs(designPath)
	if err != nil {
		return commandError(formatter, fmt.Errorf("resolving %s: %w", designPath, err))
	}

	// Watch progress goes to stderr so a JSON consumer of stdout only ever
	// sees the emission result.
	fmt.Fprintf(formatter.GetErrWriter(), "Watching %s for changes\n", designPath)

	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			result, err := emitOnce(formatter, designPath, opts)
			if err != nil {
				fmt.Fprintf(formatter.GetErrWriter(), "emit failed: %v\n", err)
				continue
			}
			fmt.Fprintf(formatter.GetErrWriter(), "Re-emitted %d module(s) to %s\n", len(result.Modules), result.Output)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(formatter.GetErrWriter(), "watch error: %v\n", werr)
		}
	}
}

// outputEmitSuccess outputs emission results.
func outputEmitSuccess(formatter *OutputFormatter, result *EmitResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Emitted %d module(s) to %s\n", len(result.Modules), result.Output)
	for _, name := range result.Modules {
		fmt.Fprintf(formatter.Writer, "  %s.sv\n", name)
	}
	if result.Events > 0 {
		fmt.Fprintf(formatter.Writer, "  %d event(s) extracted\n", result.Events)
	}
	if result.DebugDB != "" {
		fmt.Fprintf(formatter.Writer, "  debug symbols in %s\n", result.DebugDB)
	}
	return nil
}
