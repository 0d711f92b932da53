package harness

import "github.com/roach88/loom/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if every expectation matched.
	Pass bool

	// Modules maps rendered module names to their SystemVerilog source.
	Modules map[string]string

	// Events holds the extracted event fire sites in traversal order.
	Events []ir.EventInfo

	// Errors contains expectation mismatch messages.
	// Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Modules: map[string]string{},
		Errors:  []string{},
	}
}

// AddError adds an expectation mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// EventNames returns the extracted event names in traversal order.
func (r *Result) EventNames() []string {
	names := make([]string, len(r.Events))
	for i, info := range r.Events {
		names[i] = info.Name
	}
	return names
}
