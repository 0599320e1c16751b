package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/qmodel/internal/nodes"
	"github.com/roach88/qmodel/internal/registry"
)

// Validation error codes (E100-E199)
const (
	ErrDuplicateName    = "E101" // table or query name declared twice
	ErrUnknownSource    = "E102" // query source is neither a table nor a query
	ErrUnknownOperator  = "E103" // no operator registered for name and argument count
	ErrMissingTypeArg   = "E104" // Cast/OfType without a type
	ErrQueryCycle       = "E105" // queries depend on each other
	ErrMissingOperator  = "E106" // op entry without a name
	ErrMissingTableType = "E107" // table without a row type
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a program against the operator registry before any
// chain is built. Returns all errors found (does not fail-fast).
// A nil registry means the standard operators.
func Validate(prog *Program, reg registry.Registry) []ValidationError {
	if reg == nil {
		reg = nodes.NewDefaultRegistry()
	}
	var errs []ValidationError

	seen := make(map[string]bool)
	for i, t := range prog.Tables {
		if seen[t.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("tables[%d].name", i),
				Message: fmt.Sprintf("duplicate name %q", t.Name),
				Code:    ErrDuplicateName,
			})
		}
		seen[t.Name] = true
		if t.Type == nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("table.%s.type", t.Name),
				Message: "row type is required",
				Code:    ErrMissingTableType,
			})
		}
	}

	for _, q := range prog.Queries {
		field := "query." + q.Name
		if seen[q.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate name %q", q.Name),
				Code:    ErrDuplicateName,
			})
		}
		seen[q.Name] = true

		if prog.Table(q.Source) == nil && prog.Query(q.Source) == nil {
			errs = append(errs, ValidationError{
				Field:   field + ".source",
				Message: fmt.Sprintf("%q is neither a table nor a query", q.Source),
				Code:    ErrUnknownSource,
			})
		}

		for i, op := range q.Ops {
			errs = append(errs, validateOp(op, fmt.Sprintf("%s.ops[%d]", field, i), reg)...)
		}
	}

	for _, c := range AnalyzeCycles(prog) {
		errs = append(errs, ValidationError{
			Field:   "query." + c.Path[0],
			Message: c.Message,
			Code:    ErrQueryCycle,
		})
	}

	return errs
}

func validateOp(op Op, field string, reg registry.Registry) []ValidationError {
	if strings.TrimSpace(op.Op) == "" {
		return []ValidationError{{
			Field:   field + ".op",
			Message: "operator name is required",
			Code:    ErrMissingOperator,
		}}
	}

	var errs []ValidationError
	arity := len(op.Args) + 1
	if !reg.IsRegistered(nodes.QueryableSignature(op.Op, arity)) {
		errs = append(errs, ValidationError{
			Field:   field + ".op",
			Message: fmt.Sprintf("no operator %s taking %d argument(s)", op.Op, arity),
			Code:    ErrUnknownOperator,
		})
	}
	if (op.Op == "Cast" || op.Op == "OfType") && strings.TrimSpace(op.Type) == "" {
		errs = append(errs, ValidationError{
			Field:   field + ".type",
			Message: fmt.Sprintf("%s needs a type argument", op.Op),
			Code:    ErrMissingTypeArg,
		})
	}
	return errs
}
