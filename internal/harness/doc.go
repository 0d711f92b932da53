// Package harness runs design scenarios: small hardware designs built by
// registered constructors, lowered and rendered to SystemVerilog, with the
// result checked against the scenario's expectations and golden files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: counter_8bit
//	description: "Synchronous counter renders a single always_ff module"
//	builder: counter
//	params:
//	  width: 8
//	golden: counter_8bit
//	expect:
//	  modules: 1
//	  events: []
//
// The builder field names a registered design constructor; params carries
// its integer parameters. Unknown YAML fields are rejected so that a typo in
// a scenario file fails loudly instead of being silently ignored.
//
// # Builders
//
// A builder is a named function from parameters to a fully constructed top
// generator. The package registers a standard set (counter, adder, mux,
// hierarchy, traced); tests and callers can add their own with
// RegisterBuilder.
//
// # Deterministic Output
//
// Run lowers the built design with the standard pass pipeline and renders it
// with the code generator, both of which are deterministic, so the same
// scenario always yields byte-identical SystemVerilog. RunWithGolden relies
// on this to compare the concatenated module output against a golden file:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/counter.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	harness.RunWithGolden(t, scenario)
//
// Golden files live in testdata/golden/{name}.golden.sv and are refreshed
// with:
//
//	go test ./internal/harness -update
package harness
