package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/qmodel/internal/ir"
)

// ExpectationError describes one failed expect check.
type ExpectationError struct {
	Check    string // model, shape, result or error
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "expectation failed: %s\n", e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// checkExpectations compares the run against the scenario's expect
// clause and records every mismatch on result.
func checkExpectations(scenario *Scenario, result *Result) {
	for _, err := range evaluate(scenario.Expect, result) {
		result.AddError(err.Error())
	}
}

func evaluate(expect Expect, result *Result) []*ExpectationError {
	var errs []*ExpectationError

	if expect.Error != "" {
		if result.Err == nil {
			errs = append(errs, &ExpectationError{
				Check:    "error",
				Expected: fmt.Sprintf("an error containing %q", expect.Error),
				Actual:   "no error",
			})
		} else if !strings.Contains(result.Err.Error(), expect.Error) {
			errs = append(errs, &ExpectationError{
				Check:    "error",
				Expected: fmt.Sprintf("an error containing %q", expect.Error),
				Actual:   fmt.Sprintf("%s error: %v", result.Stage, result.Err),
			})
		}
	} else if result.Err != nil {
		errs = append(errs, &ExpectationError{
			Check:    "error",
			Expected: "no error",
			Actual:   fmt.Sprintf("%s error: %v", result.Stage, result.Err),
		})
	}

	// a scenario may pin the rendering of a query that fails later on
	if expect.Model != "" && result.Model != expect.Model {
		errs = append(errs, &ExpectationError{Check: "model", Expected: expect.Model, Actual: orNone(result.Model)})
	}
	if expect.Shape != "" && result.Shape != expect.Shape {
		errs = append(errs, &ExpectationError{Check: "shape", Expected: expect.Shape, Actual: orNone(result.Shape)})
	}

	if expect.HasResult() && result.Err == nil {
		want, err := expect.ResultValue()
		if err != nil {
			errs = append(errs, &ExpectationError{Check: "result", Expected: "a decodable value", Actual: err.Error()})
		} else if !ir.Equal(want, result.Value) {
			errs = append(errs, &ExpectationError{Check: "result", Expected: render(want), Actual: render(result.Value)})
		}
	}

	return errs
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func render(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
