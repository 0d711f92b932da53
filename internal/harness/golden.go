package harness

import (
	"sort"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario and compares the rendered output against
// a golden file. The golden file is stored in
// testdata/golden/{scenario.GoldenName()}.golden.sv
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result for further assertions; the error covers scenario
// execution failure. Golden mismatch fails the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.GoldenName(), result)
	return result, nil
}

// AssertGolden compares the result's rendered modules against a golden file.
// Modules concatenate in sorted name order separated by one blank line, so
// the byte layout does not depend on render order.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	names := make([]string, 0, len(result.Modules))
	for n := range result.Modules {
		names = append(names, n)
	}
	sort.Strings(names)

	var out strings.Builder
	for i, n := range names {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(result.Modules[n])
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden.sv"),
	)
	g.Assert(t, name, []byte(out.String()))
}
