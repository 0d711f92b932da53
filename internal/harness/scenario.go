package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a design scenario.
// Scenarios name a registered builder, parameterize it, and describe what
// the rendered output must look like.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Builder is the registered design constructor to invoke.
	Builder string `yaml:"builder"`

	// Params carries the builder's integer parameters (e.g. width).
	// Builders apply their own defaults for missing keys.
	Params map[string]int64 `yaml:"params,omitempty"`

	// Golden overrides the golden file base name.
	// If empty, the scenario name is used.
	Golden string `yaml:"golden,omitempty"`

	// Expect describes the rendered result.
	// If nil, only mechanical success is required.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected scenario output.
type ExpectClause struct {
	// Modules is the expected number of rendered modules.
	// Zero means unchecked; a rendered design always has at least one.
	Modules int `yaml:"modules,omitempty"`

	// Events lists the expected event names in extraction order.
	// A nil list means unchecked; an explicit empty list means the design
	// must fire no events.
	Events []string `yaml:"events,omitempty"`
}

// GoldenName returns the golden file base name for this scenario.
func (s *Scenario) GoldenName() string {
	if s.Golden != "" {
		return s.Golden
	}
	return s.Name
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), names an unregistered builder, or is missing
// required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expects:" vs "expect:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Builder == "" {
		return fmt.Errorf("builder is required")
	}

	if _, ok := LookupBuilder(s.Builder); !ok {
		return fmt.Errorf("unknown builder %q (registered: %v)", s.Builder, BuilderNames())
	}

	if s.Expect != nil && s.Expect.Modules < 0 {
		return fmt.Errorf("expect.modules must be non-negative")
	}

	return nil
}
