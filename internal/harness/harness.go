package harness

import (
	"fmt"
	"slices"
	"sort"

	"github.com/roach88/loom/internal/codegen"
	"github.com/roach88/loom/internal/passes"
)

// Run executes a design scenario and returns the result.
//
// Execution flow:
//  1. Look up the builder and construct the design
//  2. Extract event fire conditions (stripping destroys the context they
//     are computed from, so extraction comes first)
//  3. Strip event statements from the tree
//  4. Lower and render with the standard pipeline
//  5. Evaluate the expect clause
//
// The returned error covers mechanical failure (bad parameters, a design
// the pipeline rejects); expectation mismatches land in Result.Errors with
// Pass set to false.
func Run(scenario *Scenario) (*Result, error) {
	builder, ok := LookupBuilder(scenario.Builder)
	if !ok {
		return nil, fmt.Errorf("unknown builder %q (registered: %v)", scenario.Builder, BuilderNames())
	}

	top, err := builder(scenario.Params)
	if err != nil {
		return nil, fmt.Errorf("builder %s: %w", scenario.Builder, err)
	}

	infos, err := passes.ExtractEventFireCondition(top)
	if err != nil {
		return nil, fmt.Errorf("extract events: %w", err)
	}
	if err := passes.RemoveEventStmts(top); err != nil {
		return nil, fmt.Errorf("strip events: %w", err)
	}

	modules, err := codegen.Generate(top)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", scenario.Name, err)
	}

	result := NewResult()
	result.Modules = modules
	result.Events = infos
	evaluateExpect(scenario.Expect, result)
	return result, nil
}

// evaluateExpect checks the rendered result against the scenario's expect
// clause, recording each mismatch on the result.
func evaluateExpect(expect *ExpectClause, result *Result) {
	if expect == nil {
		return
	}
	if expect.Modules > 0 && len(result.Modules) != expect.Modules {
		names := make([]string, 0, len(result.Modules))
		for name := range result.Modules {
			names = append(names, name)
		}
		sort.Strings(names)
		result.AddError(fmt.Sprintf("expected %d modules, rendered %d %v", expect.Modules, len(names), names))
	}
	if expect.Events != nil {
		got := result.EventNames()
		if !slices.Equal(got, expect.Events) {
			result.AddError(fmt.Sprintf("expected events %v, extracted %v", expect.Events, got))
		}
	}
}
