package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/qmodel/internal/compiler"
	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
)

// Scenario is one conformance case: a source table, an operator
// pipeline over it, and what parsing and running the pipeline must
// produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden
	// file and the query built from Ops.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Source is the table the pipeline starts from.
	Source Source `yaml:"source"`

	// Ops is the operator pipeline, in call order.
	Ops []compiler.Op `yaml:"ops"`

	// Expect lists the checks to run. Omitted checks are skipped.
	Expect Expect `yaml:"expect"`
}

// Source is an inline table.
type Source struct {
	Name string `yaml:"name"`

	// Type is the item type, e.g. "Person{name: string, age: int}".
	Type string `yaml:"type"`

	Rows []any `yaml:"rows"`
}

// Expect holds the expected outcome of a scenario.
type Expect struct {
	// Model is the canonical rendering of the parsed query model.
	Model string `yaml:"model,omitempty"`

	// Shape is the rendered output shape, e.g. "seq<string>".
	Shape string `yaml:"shape,omitempty"`

	// Result is the executed value. A YAML null expects a null result;
	// leaving the key out skips the check.
	Result yaml.Node `yaml:"result,omitempty"`

	// Error is a substring the first failure must contain. When set,
	// the scenario passes only if building, parsing or running fails.
	Error string `yaml:"error,omitempty"`
}

// HasResult reports whether the scenario names an expected result.
func (e *Expect) HasResult() bool {
	return e.Result.Kind != 0
}

// ResultValue decodes the expected result.
func (e *Expect) ResultValue() (ir.IRValue, error) {
	var v any
	if err := e.Result.Decode(&v); err != nil {
		return nil, fmt.Errorf("expect.result: %w", err)
	}
	iv, err := ir.FromGo(v)
	if err != nil {
		return nil, fmt.Errorf("expect.result: %w", err)
	}
	return iv, nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a scenario from YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// strict: catches typos like "expects:" vs "expect:"
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

	if s.Source.Name == "" {
		return fmt.Errorf("source.name is required")
	}
	if s.Source.Name == s.Name {
		return fmt.Errorf("source.name %q must differ from the scenario name", s.Name)
	}
	if s.Source.Type == "" {
		return fmt.Errorf("source.type is required")
	}
	if _, err := expr.ParseType(s.Source.Type); err != nil {
		return fmt.Errorf("source.type: %w", err)
	}

	for i, op := range s.Ops {
		if op.Op == "" {
			return fmt.Errorf("ops[%d]: op is required", i)
		}
	}

	e := s.Expect
	if e.Model == "" && e.Shape == "" && !e.HasResult() && e.Error == "" {
		return fmt.Errorf("expect needs at least one of model, shape, result or error")
	}
	if e.Error != "" && e.HasResult() {
		return fmt.Errorf("expect.result and expect.error are mutually exclusive")
	}
	return nil
}

// program turns the scenario into a single-table, single-query program.
func (s *Scenario) program() (*compiler.Program, error) {
	itemType, err := expr.ParseType(s.Source.Type)
	if err != nil {
		return nil, fmt.Errorf("source.type: %w", err)
	}

	rows := make(ir.IRArray, len(s.Source.Rows))
	for i, r := range s.Source.Rows {
		v, err := ir.FromGo(r)
		if err != nil {
			return nil, fmt.Errorf("source.rows[%d]: %w", i, err)
		}
		if itemType.Kind == expr.KindRecord {
			if _, ok := v.(ir.IRObject); !ok {
				return nil, fmt.Errorf("source.rows[%d]: row must be an object, got %s", i, ir.KindName(v))
			}
		}
		rows[i] = v
	}

	return &compiler.Program{
		Tables:  []*compiler.Table{{Name: s.Source.Name, Type: itemType, Rows: rows}},
		Queries: []*compiler.Query{{Name: s.Name, Source: s.Source.Name, Ops: s.Ops}},
	}, nil
}
